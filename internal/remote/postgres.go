package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS sync_documents (
    name       TEXT PRIMARY KEY,
    content    BYTEA NOT NULL,
    revision   TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres stores the document as one row. The revision column is
// compared in the UPDATE itself.
type Postgres struct {
	pool *pgxpool.Pool
	name string
}

// OpenPostgres connects to dsn and ensures the table exists.
func OpenPostgres(ctx context.Context, dsn, name string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating sync_documents: %w", postgresError(err))
	}
	return &Postgres{pool: pool, name: name}, nil
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// postgresError marks authentication failures (invalid_authorization_specification
// and invalid_password).
func postgresError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "28000" || pgErr.Code == "28P01") {
		return unauthorized(err)
	}
	return err
}

// Fetch implements Store.
func (p *Postgres) Fetch(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	err := p.pool.QueryRow(ctx,
		`SELECT content, revision FROM sync_documents WHERE name = $1`, p.name,
	).Scan(&snap.Content, &snap.Revision)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading sync document: %w", postgresError(err))
	}
	return &snap, nil
}

// Put implements Store.
func (p *Postgres) Put(ctx context.Context, content []byte, revision string) error {
	next := ContentRevision(content)

	var (
		tag pgconn.CommandTag
		err error
	)
	if revision == "" {
		tag, err = p.pool.Exec(ctx,
			`INSERT INTO sync_documents (name, content, revision) VALUES ($1, $2, $3)
			 ON CONFLICT (name) DO NOTHING`,
			p.name, content, next,
		)
	} else {
		tag, err = p.pool.Exec(ctx,
			`UPDATE sync_documents SET content = $2, revision = $3, updated_at = now()
			 WHERE name = $1 AND revision = $4`,
			p.name, content, next, revision,
		)
	}
	if err != nil {
		return fmt.Errorf("writing sync document: %w", postgresError(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrRevisionMismatch
	}
	return nil
}
