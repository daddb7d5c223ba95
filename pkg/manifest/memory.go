package manifest

import (
	"fmt"
	"sync"

	"blocknet/pkg/types"
)

// MemoryStore keeps manifests in process memory. The default store for
// tests and single-run simulations.
type MemoryStore struct {
	mu        sync.RWMutex
	manifests map[types.FileID]*types.Manifest
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{manifests: make(map[types.FileID]*types.Manifest)}
}

func (s *MemoryStore) Put(m *types.Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifests[m.FileID] = m
	return nil
}

func (s *MemoryStore) Get(fileID types.FileID) (*types.Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.manifests[fileID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fileID)
	}
	return m, nil
}

func (s *MemoryStore) Delete(fileID types.FileID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.manifests[fileID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, fileID)
	}
	delete(s.manifests, fileID)
	return nil
}

func (s *MemoryStore) List() ([]*types.Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.Manifest, 0, len(s.manifests))
	for _, m := range s.manifests {
		out = append(out, m)
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
