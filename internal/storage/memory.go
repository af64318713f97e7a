package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/carter293/reactive-notebook/notebook"
)

// MemoryStore is an in-memory Storage implementation (SPEC_FULL §6.1),
// used by tests.
type MemoryStore struct {
	mu    sync.Mutex
	byID  map[string]*notebook.Notebook
	owned map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:  map[string]*notebook.Notebook{},
		owned: map[string][]string{},
	}
}

func (s *MemoryStore) Save(_ context.Context, nb *notebook.Notebook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[nb.ID]; !exists {
		s.owned[nb.Owner] = append(s.owned[nb.Owner], nb.ID)
	}
	s.byID[nb.ID] = nb
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (*notebook.Notebook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nb, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("notebook %s not found", id)
	}
	return nb, nil
}

func (s *MemoryStore) List(_ context.Context, owner string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.owned[owner]...), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	nb, ok := s.byID[id]
	if !ok {
		return nil
	}
	delete(s.byID, id)
	ids := s.owned[nb.Owner]
	for i, existing := range ids {
		if existing == id {
			s.owned[nb.Owner] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}
