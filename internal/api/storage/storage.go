package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/archival-ingest/internal/api/domain"
	"github.com/cuongbtq/archival-ingest/internal/api/model"
	"github.com/cuongbtq/archival-ingest/shared/postgresql"
)

// schema is applied at startup; every statement is idempotent
var schema = []string{
	`CREATE TABLE IF NOT EXISTS folders (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		parent_id TEXT NULL REFERENCES folders (id),
		CONSTRAINT uq_folder_parent_name UNIQUE (name, parent_id)
	)`,
	`CREATE TABLE IF NOT EXISTS aips (
		id TEXT PRIMARY KEY,
		transfer_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		ra TEXT NULL,
		folder_id TEXT NULL REFERENCES folders (id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		deleted_at TIMESTAMPTZ NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_aips_transfer_id ON aips (transfer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_aips_created_at_id ON aips (created_at DESC, id DESC)`,
	`CREATE TABLE IF NOT EXISTS original_files (
		id TEXT PRIMARY KEY,
		aip_id TEXT NOT NULL REFERENCES aips (id),
		name TEXT NOT NULL,
		storage_path TEXT NOT NULL,
		checksum TEXT NOT NULL,
		format TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS preservation_files (
		id TEXT PRIMARY KEY,
		aip_id TEXT NOT NULL REFERENCES aips (id),
		name TEXT NOT NULL,
		storage_path TEXT NOT NULL,
		checksum TEXT NOT NULL,
		format TEXT NOT NULL
	)`,
}

// fileTables maps a file area to its table
var fileTables = map[string]string{
	domain.AreaOriginals:    "original_files",
	domain.AreaPreservation: "preservation_files",
}

type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

// EnsureSchema creates missing tables and indexes
func (s *Storage) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// CreateAIP inserts the record and all of its files in one transaction.
// It assigns ids and the creation time.
func (s *Storage) CreateAIP(ctx context.Context, aip *model.AIP, originals, preserved []model.File) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	aip.ID = uuid.New().String()
	aip.CreatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO aips (id, transfer_id, title, ra, folder_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, aip.ID, aip.TransferID, aip.Title, aip.RA, aip.FolderID, aip.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert aip: %w", err)
	}

	if err := insertFiles(ctx, tx, fileTables[domain.AreaOriginals], aip.ID, originals); err != nil {
		return err
	}
	if err := insertFiles(ctx, tx, fileTables[domain.AreaPreservation], aip.ID, preserved); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit aip: %w", err)
	}
	return nil
}

func insertFiles(ctx context.Context, tx *sqlx.Tx, table, aipID string, files []model.File) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, aip_id, name, storage_path, checksum, format)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, table)

	for i := range files {
		files[i].ID = uuid.New().String()
		files[i].AIPID = aipID
		_, err := tx.ExecContext(ctx, query,
			files[i].ID,
			files[i].AIPID,
			files[i].Name,
			files[i].StoragePath,
			files[i].Checksum,
			files[i].Format,
		)
		if err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	return nil
}

// GetAIPByTransferID returns the oldest live AIP of a transfer
func (s *Storage) GetAIPByTransferID(ctx context.Context, transferID string) (*model.AIP, error) {
	var aip model.AIP
	query := `
		SELECT id, transfer_id, title, ra, folder_id, created_at
		FROM aips
		WHERE transfer_id = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC
		LIMIT 1
	`

	if err := s.db.GetContext(ctx, &aip, query, transferID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAIPNotFound
		}
		return nil, fmt.Errorf("failed to get aip: %w", err)
	}
	return &aip, nil
}

// FirstFile returns the first file of an AIP in the given area
func (s *Storage) FirstFile(ctx context.Context, aipID, area string) (*model.File, error) {
	table, ok := fileTables[area]
	if !ok {
		return nil, fmt.Errorf("unknown file area %q", area)
	}

	var file model.File
	query := fmt.Sprintf(`
		SELECT id, aip_id, name, storage_path, checksum, format
		FROM %s
		WHERE aip_id = $1
		ORDER BY name ASC
		LIMIT 1
	`, table)

	if err := s.db.GetContext(ctx, &file, query, aipID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return &file, nil
}

type AIPFilter struct {
	PageSize int
	Cursor   *AIPCursor
}

type AIPCursor struct {
	CreatedAt time.Time
	ID        string
}

func (s *Storage) ListAIPs(ctx context.Context, filter AIPFilter) ([]model.AIP, error) {
	query := `
        SELECT id, transfer_id, title, ra, folder_id, created_at
        FROM aips
        WHERE deleted_at IS NULL
    `
	args := []interface{}{}
	argIdx := 1

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.ID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, id DESC"

	// Fetch one extra to determine if there are more results
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var aips []model.AIP
	if err := s.db.SelectContext(ctx, &aips, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list aips: %w", err)
	}
	return aips, nil
}
