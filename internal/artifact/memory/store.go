// Package memory implements an in-process artifact store for local
// development and tests.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/JakeFAU/site-cloner/internal/clone"
)

const scheme = "mem://"

// Store keeps artifacts in a map keyed by path.
type Store struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

// Put stores a copy of data under path and returns a mem:// ref.
func (s *Store) Put(_ context.Context, path string, _ string, data []byte) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	s.blobs[path] = buf
	s.mu.Unlock()
	return scheme + path, nil
}

// Get returns the artifact for a mem:// ref, or clone.ErrNotFound.
func (s *Store) Get(_ context.Context, ref string) ([]byte, error) {
	path := strings.TrimPrefix(ref, scheme)
	if path == "" {
		return nil, fmt.Errorf("ref is required")
	}

	s.mu.RLock()
	blob, ok := s.blobs[path]
	s.mu.RUnlock()
	if !ok {
		return nil, clone.ErrNotFound
	}
	out := make([]byte, len(blob))
	copy(out, blob)
	return out, nil
}

// Len reports the number of stored artifacts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
