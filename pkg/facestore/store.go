// Package facestore defines the storage abstraction for trusted face
// encodings.
//
// An encoding is an opaque embedding vector produced by an external face
// encoder; the store only needs to persist named encodings and answer
// nearest-neighbour queries by cosine distance. A PostgreSQL/pgvector
// implementation lives in the postgres subpackage; an in-memory
// implementation in this package backs tests and database-less deployments.
package facestore

import "context"

// Entry is a single named trusted face encoding.
type Entry struct {
	// Name identifies the trusted person (typically derived from the
	// enrollment image filename).
	Name string

	// Encoding is the face embedding vector. All entries in one store must
	// share the same dimensionality.
	Encoding []float32
}

// Match is a nearest-neighbour query result.
type Match struct {
	// Name is the matched entry's name.
	Name string

	// Distance is the cosine distance to the query encoding (0 = identical,
	// 2 = opposite). Smaller is more similar.
	Distance float64
}

// Store persists trusted face encodings and answers similarity queries.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Add inserts or replaces the entry under its name.
	Add(ctx context.Context, e Entry) error

	// Nearest returns up to k entries closest to encoding, ordered by
	// ascending cosine distance. An empty store yields an empty slice, not
	// an error.
	Nearest(ctx context.Context, encoding []float32, k int) ([]Match, error)

	// List returns all entries ordered by name. Used by enrollment tooling.
	List(ctx context.Context) ([]Entry, error)

	// Remove deletes the entry with the given name. Removing a name that
	// does not exist is a no-op.
	Remove(ctx context.Context, name string) error

	// Count reports the number of stored entries.
	Count(ctx context.Context) (int, error)
}
