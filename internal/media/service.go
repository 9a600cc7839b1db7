package media

import (
	"context"
	"fmt"
	"time"

	"github.com/JacobNewton007/tus-demo/internal/upstream"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// HostingAPI is the slice of the video-hosting client the registry needs.
type HostingAPI interface {
	CreateVideo(ctx context.Context, name string, size int64) (*upstream.Video, error)
	GetVideo(ctx context.Context, mediaID string) (*upstream.Video, error)
	DeleteVideo(ctx context.Context, mediaID string) error
}

// Publisher receives lifecycle events. Implementations must not block.
type Publisher interface {
	Publish(ev *Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(*Event) {}

type Service struct {
	repo        MediaRepository
	hosting     HostingAPI
	publisher   Publisher
	maxFileSize int64
}

// MediaRepository abstracts the SQL repository so tests can substitute a mock.
type MediaRepository interface {
	Create(m *Media) error
	GetByID(id string) (*Media, error)
	List() ([]*Media, error)
	UpdateProgress(id string, offset int64, status Status, updatedAt int64) error
	UpdateStatus(id string, status Status, reason string, updatedAt int64) error
	Delete(id string) error
}

func NewService(repo MediaRepository, hosting HostingAPI, publisher Publisher, maxFileSize int64) *Service {
	if maxFileSize <= 0 {
		maxFileSize = 5 * 1024 * 1024 * 1024
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &Service{
		repo:        repo,
		hosting:     hosting,
		publisher:   publisher,
		maxFileSize: maxFileSize,
	}
}

// Create registers the upload with the hosting API and stores a pending
// media record. The upstream upload link stays server-side.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*Media, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if req.SizeBytes <= 0 {
		return nil, fmt.Errorf("size must be positive")
	}
	if req.SizeBytes > s.maxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max: %d)", req.SizeBytes, s.maxFileSize)
	}

	video, err := s.hosting.CreateVideo(ctx, req.Name, req.SizeBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to register upload with hosting API: %w", err)
	}

	now := time.Now().Unix()
	m := &Media{
		ID:          uuid.NewString(),
		MediaID:     video.MediaID(),
		Name:        req.Name,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		UploadLink:  video.Upload.UploadLink,
		Status:      string(StatusPending),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(m); err != nil {
		s.deleteUpstream(ctx, m)
		return nil, fmt.Errorf("failed to save media record: %w", err)
	}

	s.publish(EventCreated, m)
	return m, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Media, error) {
	return s.repo.GetByID(id)
}

// Inspect returns the record with the hosting API's view of the asset
// attached. The upstream lookup is best-effort.
func (s *Service) Inspect(ctx context.Context, id string) (*Media, error) {
	m, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if m.MediaID != "" {
		video, err := s.hosting.GetVideo(ctx, m.MediaID)
		if err != nil {
			log.Warn().Err(err).Str("mediaId", m.MediaID).Msg("Failed to fetch upstream status")
		} else {
			m.UpstreamStatus = video.Status
		}
	}
	return m, nil
}

func (s *Service) List(ctx context.Context) ([]*Media, error) {
	return s.repo.List()
}

// UpdateProgress records the offset the hosting API acknowledged. Offsets
// are monotonic; reaching the declared size completes the upload.
func (s *Service) UpdateProgress(ctx context.Context, id string, offset int64) (*Media, error) {
	m, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if Status(m.Status).Terminal() {
		return nil, ErrConflict
	}
	if offset < m.OffsetBytes {
		return m, nil
	}

	status := StatusUploading
	eventType := EventProgress
	if offset >= m.SizeBytes {
		status = StatusReady
		eventType = EventReady
	}

	now := time.Now().Unix()
	if err := s.repo.UpdateProgress(id, offset, status, now); err != nil {
		return nil, err
	}

	m.OffsetBytes = offset
	m.Status = string(status)
	m.UpdatedAt = now
	s.publish(eventType, m)
	return m, nil
}

// MarkFailed moves an in-flight record to failed with a reason.
func (s *Service) MarkFailed(ctx context.Context, id, reason string) error {
	m, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if Status(m.Status).Terminal() {
		return ErrConflict
	}

	now := time.Now().Unix()
	if err := s.repo.UpdateStatus(id, StatusFailed, reason, now); err != nil {
		return err
	}

	m.Status = string(StatusFailed)
	m.Reason = reason
	s.publish(EventFailed, m)
	return nil
}

// Cancel aborts a pending or uploading record and releases the upstream asset.
func (s *Service) Cancel(ctx context.Context, id string) (*Media, error) {
	m, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if Status(m.Status).Terminal() {
		return nil, ErrConflict
	}

	s.deleteUpstream(ctx, m)

	now := time.Now().Unix()
	if err := s.repo.UpdateStatus(id, StatusCancelled, "cancelled by client", now); err != nil {
		return nil, err
	}

	m.Status = string(StatusCancelled)
	m.Reason = "cancelled by client"
	m.UpdatedAt = now
	s.publish(EventCancelled, m)
	return m, nil
}

// Delete removes the record and the upstream asset.
func (s *Service) Delete(ctx context.Context, id string) error {
	m, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}

	s.deleteUpstream(ctx, m)

	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.publish(EventDeleted, m)
	return nil
}

func (s *Service) deleteUpstream(ctx context.Context, m *Media) {
	if m.MediaID == "" {
		return
	}
	if err := s.hosting.DeleteVideo(ctx, m.MediaID); err != nil {
		log.Warn().Err(err).Str("mediaId", m.MediaID).Msg("Failed to delete upstream asset")
	}
}

func (s *Service) publish(t EventType, m *Media) {
	s.publisher.Publish(&Event{
		Type:    t,
		ID:      m.ID,
		MediaID: m.MediaID,
		Offset:  m.OffsetBytes,
		Size:    m.SizeBytes,
		Status:  m.Status,
		Reason:  m.Reason,
	})
}
