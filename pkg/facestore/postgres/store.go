// Package postgres provides a PostgreSQL-backed implementation of
// [facestore.Store] using a pgvector column for the face encodings.
//
// The pgvector extension must be available in the target database;
// [Migrate] installs it automatically via CREATE EXTENSION IF NOT EXISTS.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn, 128)
//	if err != nil { … }
//	defer store.Close()
//
//	_ = store.Add(ctx, facestore.Entry{Name: "alice", Encoding: enc})
//	matches, _ := store.Nearest(ctx, probe, 1)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/wardenhq/warden/pkg/facestore"
)

// Compile-time interface check.
var _ facestore.Store = (*Store)(nil)

// Store is the PostgreSQL-backed trusted face encoding store. All operations
// are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store, establishes a connection pool to the PostgreSQL
// database at dsn, registers pgvector types on every connection, and runs
// [Migrate] to ensure the table and extension exist.
//
// encodingDimensions must match the output dimension of the face encoder
// (e.g., 128 for dlib-style encodings). Changing this value after the first
// migration requires a manual schema change.
func NewStore(ctx context.Context, dsn string, encodingDimensions int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("facestore: parse dsn: %w", err)
	}

	// Register pgvector types on every new connection so that vector columns
	// can be scanned into and inserted from pgvector.Vector values.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("facestore: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("facestore: ping: %w", err)
	}

	if err := Migrate(ctx, pool, encodingDimensions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("facestore: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Migrate installs the pgvector extension and creates the trusted_faces
// table with the given encoding dimension.
func Migrate(ctx context.Context, pool *pgxpool.Pool, dims int) error {
	if dims <= 0 {
		return fmt.Errorf("encoding dimensions must be positive, got %d", dims)
	}

	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS trusted_faces (
    name        TEXT         PRIMARY KEY,
    encoding    vector(%d)   NOT NULL,
    enrolled_at TIMESTAMPTZ  NOT NULL DEFAULT now()
)`, dims)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create trusted_faces table: %w", err)
	}
	return nil
}

// Add implements [facestore.Store]. An existing entry with the same name is
// completely replaced.
func (s *Store) Add(ctx context.Context, e facestore.Entry) error {
	if e.Name == "" {
		return fmt.Errorf("facestore: entry name must not be empty")
	}

	const q = `
		INSERT INTO trusted_faces (name, encoding)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET
		    encoding    = EXCLUDED.encoding,
		    enrolled_at = now()`

	if _, err := s.pool.Exec(ctx, q, e.Name, pgvector.NewVector(e.Encoding)); err != nil {
		return fmt.Errorf("facestore: add %q: %w", e.Name, err)
	}
	return nil
}

// Nearest implements [facestore.Store]. Results are ordered by ascending
// cosine distance (most similar first).
func (s *Store) Nearest(ctx context.Context, encoding []float32, k int) ([]facestore.Match, error) {
	if k <= 0 {
		return nil, nil
	}

	const q = `
		SELECT name, encoding <=> $1 AS distance
		FROM   trusted_faces
		ORDER  BY distance
		LIMIT  $2`

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(encoding), k)
	if err != nil {
		return nil, fmt.Errorf("facestore: nearest: %w", err)
	}

	matches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (facestore.Match, error) {
		var m facestore.Match
		err := row.Scan(&m.Name, &m.Distance)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("facestore: collect matches: %w", err)
	}
	return matches, nil
}

// List implements [facestore.Store].
func (s *Store) List(ctx context.Context) ([]facestore.Entry, error) {
	rows, err := s.pool.Query(ctx, `SELECT name, encoding FROM trusted_faces ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("facestore: list: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (facestore.Entry, error) {
		var (
			e   facestore.Entry
			vec pgvector.Vector
		)
		if err := row.Scan(&e.Name, &vec); err != nil {
			return e, err
		}
		e.Encoding = vec.Slice()
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("facestore: collect entries: %w", err)
	}
	return entries, nil
}

// Remove implements [facestore.Store].
func (s *Store) Remove(ctx context.Context, name string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM trusted_faces WHERE name = $1`, name); err != nil {
		return fmt.Errorf("facestore: remove %q: %w", name, err)
	}
	return nil
}

// Count implements [facestore.Store].
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM trusted_faces`).Scan(&n); err != nil {
		return 0, fmt.Errorf("facestore: count: %w", err)
	}
	return n, nil
}

// Ping reports whether the database connection is healthy. Used by the
// readiness endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}
