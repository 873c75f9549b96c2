// Package storage handles all database operations for cloudgate: cloud
// service rows, presets and admin tokens, with hash-based optimistic
// concurrency on the mutable entities.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // sqlite driver

	"github.com/openvis/cloudgate/internal/service"
)

// SQLiteStorage implements persistence on SQLite. Credential blobs are
// encrypted at rest; validation of the opaque JSON values is driven by the
// injected service-type registry.
type SQLiteStorage struct {
	db            *sql.DB
	encryptionKey []byte
	registry      *service.Registry
}

// New creates a SQLiteStorage instance. dbPath may be ":memory:" for tests.
// The encryptionKey must be exactly 32 bytes for AES-256.
func New(dbPath string, encryptionKey []byte, registry *service.Registry) (*SQLiteStorage, error) {
	if len(encryptionKey) != 32 {
		return nil, ErrInvalidKey
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := InitSchema(db); err != nil {
		_ = db.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// modernc.org/sqlite needs a single connection for in-process file
	// databases to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close() //nolint:errcheck
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &SQLiteStorage{
		db:            db,
		encryptionKey: encryptionKey,
		registry:      registry,
	}, nil
}

// Ping verifies database connectivity with a lightweight query. Used by the
// /ready endpoint.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	var result int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
