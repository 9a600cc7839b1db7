package media

import (
	"database/sql"
	"fmt"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(m *Media) error {
	query := `INSERT INTO media (id, media_id, name, content_type, size_bytes, offset_bytes, upload_link, status, reason, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(query,
		m.ID,
		m.MediaID,
		m.Name,
		m.ContentType,
		m.SizeBytes,
		m.OffsetBytes,
		m.UploadLink,
		m.Status,
		m.Reason,
		m.CreatedAt,
		m.UpdatedAt,
	)
	return err
}

func (r *Repository) GetByID(id string) (*Media, error) {
	query := `SELECT id, media_id, name, content_type, size_bytes, offset_bytes, upload_link, status, reason, created_at, updated_at
			  FROM media WHERE id = $1`

	m := &Media{}
	err := r.db.QueryRow(query, id).Scan(
		&m.ID,
		&m.MediaID,
		&m.Name,
		&m.ContentType,
		&m.SizeBytes,
		&m.OffsetBytes,
		&m.UploadLink,
		&m.Status,
		&m.Reason,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media: %w", err)
	}
	return m, nil
}

func (r *Repository) List() ([]*Media, error) {
	query := `SELECT id, media_id, name, content_type, size_bytes, offset_bytes, upload_link, status, reason, created_at, updated_at
			  FROM media ORDER BY created_at DESC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}
	defer rows.Close()

	var list []*Media
	for rows.Next() {
		m := &Media{}
		if err := rows.Scan(
			&m.ID,
			&m.MediaID,
			&m.Name,
			&m.ContentType,
			&m.SizeBytes,
			&m.OffsetBytes,
			&m.UploadLink,
			&m.Status,
			&m.Reason,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan media row: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (r *Repository) UpdateProgress(id string, offset int64, status Status, updatedAt int64) error {
	query := `UPDATE media SET offset_bytes = $1, status = $2, updated_at = $3 WHERE id = $4`

	res, err := r.db.Exec(query, offset, status, updatedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) UpdateStatus(id string, status Status, reason string, updatedAt int64) error {
	query := `UPDATE media SET status = $1, reason = $2, updated_at = $3 WHERE id = $4`

	res, err := r.db.Exec(query, status, reason, updatedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM media WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete media: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
