// Package repotest opens throwaway SQLite databases for tests.
package repotest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/LeventeLantos/wa-relay/internal/repo"
)

// Open returns a migrated database backed by a file in t.TempDir().
func Open(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := "sqlite:" + filepath.Join(t.TempDir(), "relay.db")
	db, err := repo.Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := repo.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}
