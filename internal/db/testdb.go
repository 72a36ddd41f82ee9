package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// NewTestDB creates a session database in a per-test temporary directory.
// A file is used instead of ":memory:" so concurrent handlers in HTTP tests
// share one database across pooled connections.
func NewTestDB(tb testing.TB) *sql.DB {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "sessions.sqlite3")
	db, err := Open(path)
	if err != nil {
		tb.Fatalf("opening test database: %v", err)
	}

	if err := EnsureSchema(db); err != nil {
		db.Close()
		tb.Fatalf("creating test database schema: %v", err)
	}

	tb.Cleanup(func() { db.Close() })

	return db
}
