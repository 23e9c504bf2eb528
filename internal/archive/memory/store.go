// Package memory keeps evidence snapshots in memory for development and
// tests.
package memory

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Store keeps snapshots in a map and hands out memory:// URIs.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates an in-memory evidence archive.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Put retains the snapshot and returns its pseudo URI.
func (s *Store) Put(_ context.Context, path string, _ string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read snapshot: %w", err)
	}
	s.mu.Lock()
	s.data[path] = append([]byte(nil), data...)
	s.mu.Unlock()
	return fmt.Sprintf("memory://%s", path), nil
}

// Get returns a stored snapshot.
func (s *Store) Get(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[path]
	return data, ok
}

// Len reports how many snapshots are held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
