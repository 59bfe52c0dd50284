package manifest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/openlaptop/viewer/internal/storage"
)

// Store caches the manifest read from model storage.
// It is safe for concurrent use.
type Store struct {
	backend storage.Store

	mu       sync.RWMutex
	current  *Manifest
	loadedAt time.Time
}

// NewStore creates a manifest cache over a model store.
// Nothing is read until Get or Refresh is called.
func NewStore(backend storage.Store) *Store {
	return &Store{backend: backend}
}

// Get returns the cached manifest, loading it on first use
func (s *Store) Get(ctx context.Context) (*Manifest, error) {
	s.mu.RLock()
	current := s.current
	s.mu.RUnlock()
	if current != nil {
		return current, nil
	}
	return s.Refresh(ctx)
}

// Refresh reloads the manifest from storage and replaces the cached copy.
// A missing manifest file yields an empty manifest.
func (s *Store) Refresh(ctx context.Context) (*Manifest, error) {
	data, err := s.backend.Get(ctx, storage.ManifestName)
	var m *Manifest
	switch {
	case errors.Is(err, storage.ErrNotFound):
		m = &Manifest{Models: make(map[string][]Model)}
	case err != nil:
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	default:
		m, err = Parse(data)
		if err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	s.current = m
	s.loadedAt = time.Now()
	s.mu.Unlock()
	return m, nil
}

// LoadedAt reports when the cached manifest was last read. It is zero
// before the first load.
func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}
