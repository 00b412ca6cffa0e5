package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/zaloga/internal/db"
)

// SQLite is a Store backed by the kv table of a SQLite database.
type SQLite struct {
	db *sql.DB
	sqliteRW
}

// NewSQLite wraps an open database that already has the schema applied.
func NewSQLite(database *sql.DB) *SQLite {
	return &SQLite{db: database, sqliteRW: sqliteRW{q: database}}
}

// OpenSQLite opens the database at path and ensures the schema.
func OpenSQLite(path string) (*SQLite, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		return nil, err
	}
	return NewSQLite(database), nil
}

// PutIfAbsent stores value under key unless the key already exists, and
// returns whatever is stored afterwards.
func (s *SQLite) PutIfAbsent(ctx context.Context, key string, value []byte) ([]byte, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO kv (key, value) VALUES (?, ?)`,
		key, value,
	)
	if err != nil {
		return nil, fmt.Errorf("storing %s: %w", key, err)
	}

	// Always read back (either our insert or the existing value).
	stored, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// Update implements Store.
func (s *SQLite) Update(ctx context.Context, fn func(w Writer) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(sqliteRW{q: tx}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqliteRW struct {
	q queryer
}

func (rw sqliteRW) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := rw.q.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", key, err)
	}
	return value, nil
}

func (rw sqliteRW) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := rw.q.QueryContext(ctx,
		`SELECT key FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key`,
		len(prefix), prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (rw sqliteRW) Put(ctx context.Context, key string, value []byte) error {
	_, err := rw.q.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("putting %s: %w", key, err)
	}
	return nil
}

func (rw sqliteRW) Delete(ctx context.Context, key string) error {
	if _, err := rw.q.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}
