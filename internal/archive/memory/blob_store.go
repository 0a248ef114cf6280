// Package memory stores archived documents in-memory for development and
// tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/secpulse/secpulse/internal/filing"
)

// BlobStore keeps document bytes in a map and returns pseudo URIs.
type BlobStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ filing.BlobStore = (*BlobStore)(nil)

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{data: make(map[string][]byte)}
}

// PutObject persists the content and returns a memory:// URI.
func (s *BlobStore) PutObject(_ context.Context, path string, _ string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[path] = append([]byte(nil), data...)
	return fmt.Sprintf("memory://%s", path), nil
}

// Object returns the stored bytes for a path.
func (s *BlobStore) Object(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.data[path]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), b...), true
}
