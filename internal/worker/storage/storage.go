package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/archival-ingest/internal/worker/domain"
)

// Storage hands out per-job database sessions for folder lookups
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// Session is a dedicated pooled connection held for the duration of one job.
// It must be closed on every path.
type Session struct {
	conn   *sqlx.Conn
	logger *slog.Logger
}

// OpenSession acquires a connection from the pool
func (s *Storage) OpenSession(ctx context.Context) (*Session, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire database session: %w", err)
	}
	return &Session{conn: conn, logger: s.logger}, nil
}

// GetFolder looks a folder up by id. It returns domain.ErrFolderNotFound
// when no row matches.
func (s *Session) GetFolder(ctx context.Context, id string) (*domain.Folder, error) {
	query := `
		SELECT id, name, parent_id
		FROM folders
		WHERE id = $1
	`

	var folder domain.Folder
	if err := s.conn.GetContext(ctx, &folder, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrFolderNotFound
		}
		return nil, fmt.Errorf("failed to get folder %s: %w", id, err)
	}

	return &folder, nil
}

// Close returns the connection to the pool
func (s *Session) Close() error {
	if err := s.conn.Close(); err != nil {
		s.logger.Warn("Failed to release database session",
			slog.Any("error", err),
		)
		return err
	}
	return nil
}
