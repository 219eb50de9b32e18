package facestore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// MemStore is an in-memory Store implementation. It is used in tests and in
// deployments without a PostgreSQL instance; enrollment then lasts only for
// the process lifetime.
//
// All methods are safe for concurrent use.
type MemStore struct {
	mu      sync.RWMutex
	entries map[string][]float32
	dims    int
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string][]float32)}
}

// Add implements Store. The first entry fixes the expected encoding
// dimensionality; later entries with a different length are rejected.
func (s *MemStore) Add(_ context.Context, e Entry) error {
	if e.Name == "" {
		return fmt.Errorf("facestore: entry name must not be empty")
	}
	if len(e.Encoding) == 0 {
		return fmt.Errorf("facestore: entry %q has an empty encoding", e.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dims == 0 {
		s.dims = len(e.Encoding)
	} else if len(e.Encoding) != s.dims {
		return fmt.Errorf("facestore: entry %q has dimension %d, store expects %d", e.Name, len(e.Encoding), s.dims)
	}

	enc := make([]float32, len(e.Encoding))
	copy(enc, e.Encoding)
	s.entries[e.Name] = enc
	return nil
}

// Nearest implements Store.
func (s *MemStore) Nearest(_ context.Context, encoding []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]Match, 0, len(s.entries))
	for name, enc := range s.entries {
		if len(enc) != len(encoding) {
			continue
		}
		matches = append(matches, Match{Name: name, Distance: cosineDistance(encoding, enc)})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// List implements Store.
func (s *MemStore) List(_ context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, 0, len(s.entries))
	for name, enc := range s.entries {
		cp := make([]float32, len(enc))
		copy(cp, enc)
		entries = append(entries, Entry{Name: name, Encoding: cp})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Remove implements Store.
func (s *MemStore) Remove(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, name)
	return nil
}

// Count implements Store.
func (s *MemStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// cosineDistance returns 1 - cosine similarity of a and b. Zero-magnitude
// vectors are treated as maximally distant.
func cosineDistance(a, b []float32) float64 {
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(magA)*math.Sqrt(magB))
}
