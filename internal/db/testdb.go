package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// NewTestDB creates a fresh in-memory SQLite database with the schema applied.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	return openTest(t, ":memory:")
}

// TestDBPath returns a database file path inside the test's temp dir.
// Open it with OpenTestFile to simulate a process restart.
func TestDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "zaloga.sqlite3")
}

// OpenTestFile opens (or reopens) a file-backed test database with the schema applied.
func OpenTestFile(t *testing.T, path string) *sql.DB {
	t.Helper()
	return openTest(t, path)
}

func openTest(t *testing.T, path string) *sql.DB {
	t.Helper()

	db, err := Open(path)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	if err := EnsureSchema(db); err != nil {
		db.Close()
		t.Fatalf("creating test database schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return db
}
