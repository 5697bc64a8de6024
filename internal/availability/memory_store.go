package availability

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store, used by tests and by single-node
// deployments that do not need Postgres.
type MemoryStore struct {
	mu        sync.RWMutex
	templates map[uuid.UUID]Template
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{templates: make(map[uuid.UUID]Template)}
}

func (s *MemoryStore) Get(_ context.Context, providerID uuid.UUID) (*Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tpl, ok := s.templates[providerID]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	cp := tpl
	return &cp, nil
}

func (s *MemoryStore) Set(_ context.Context, tpl *Template) error {
	if err := tpl.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *tpl
	cp.UpdatedAt = time.Now()
	s.templates[tpl.ProviderID] = cp
	return nil
}
