package storage

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/archival-ingest/internal/worker/domain"
)

// Runs against a real database when ARCHIVAL_TEST_DATABASE_URL is set.
func setupDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("ARCHIVAL_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("ARCHIVAL_TEST_DATABASE_URL not set")
	}

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	// temp tables live on a single connection
	db.SetMaxOpenConns(1)

	db.MustExec(`CREATE TEMP TABLE IF NOT EXISTS folders (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		parent_id TEXT NULL
	)`)
	return db
}

func TestSession_GetFolder(t *testing.T) {
	db := setupDB(t)
	db.MustExec(`INSERT INTO folders (id, name, parent_id) VALUES ('root', 'Root', NULL), ('sub', 'Sub', 'root')`)

	s := NewStorage(db, slog.Default())
	session, err := s.OpenSession(context.Background())
	require.NoError(t, err)
	defer session.Close()

	sub, err := session.GetFolder(context.Background(), "sub")
	require.NoError(t, err)
	assert.Equal(t, "Sub", sub.Name)
	require.NotNil(t, sub.ParentID)
	assert.Equal(t, "root", *sub.ParentID)

	root, err := session.GetFolder(context.Background(), "root")
	require.NoError(t, err)
	assert.Nil(t, root.ParentID)

	_, err = session.GetFolder(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrFolderNotFound)
}
