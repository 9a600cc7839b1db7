package internal

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// NewDB opens the media registry database and applies migrations. sqlite3
// covers the single-node default; postgres is available for shared setups.
func NewDB(driver, dsn, migrationsPath string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	var instance database.Driver
	switch driver {
	case "postgres":
		instance, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		instance, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(migrationsPath, driver, instance)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return db, nil
}
