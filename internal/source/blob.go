package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// ErrUnknownBlob indicates a blob handle that was never registered or has
// been revoked.
var ErrUnknownBlob = errors.New("source: unknown blob")

type blob struct {
	name string
	data []byte
}

// Store holds in-memory blobs addressed by "blob:<uuid>" handles.
// It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	blobs map[string]blob
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{blobs: make(map[string]blob)}
}

// Register stores data under a fresh handle and returns a Source for it.
func (s *Store) Register(name string, data []byte) Source {
	ref := BlobScheme + uuid.NewString()
	s.mu.Lock()
	s.blobs[ref] = blob{name: name, data: data}
	s.mu.Unlock()
	return Source{Ref: ref, Name: name}
}

// RegisterFile reads the file at path into the store.
func (s *Store) RegisterFile(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("source: reading %s: %w", path, err)
	}
	return s.Register(filepath.Base(path), data), nil
}

// Fetch returns the content behind a blob handle.
func (s *Store) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	b, ok := s.blobs[ref]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBlob, ref)
	}
	return b.data, nil
}

// Revoke forgets a handle. Revoking an unknown handle is a no-op.
func (s *Store) Revoke(ref string) {
	s.mu.Lock()
	delete(s.blobs, ref)
	s.mu.Unlock()
}

// Len returns the number of registered blobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
