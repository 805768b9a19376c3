package memory

import (
	"context"
	"sync"

	"github.com/infohyun/aramcrm-sub001/pkg/domain"
	"github.com/infohyun/aramcrm-sub001/pkg/ports"
)

// Store implements ports.WorkflowStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Workflow
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Workflow),
	}
}

// Save persists a deep copy of the workflow.
func (s *Store) Save(ctx context.Context, wf *domain.Workflow) error {
	c := wf.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[wf.ID] = c
	return nil
}

// Load returns a copy so callers can't mutate stored state through the pointer.
func (s *Store) Load(ctx context.Context, id string) (*domain.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wf, ok := s.data[id]
	if !ok {
		return nil, domain.ErrWorkflowNotFound
	}
	return wf.Clone(), nil
}

// Delete removes the workflow.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns copies of the matching workflows.
func (s *Store) List(ctx context.Context, opts ports.ListOptions) ([]*domain.Workflow, error) {
	s.mu.RLock()
	all := make([]*domain.Workflow, 0, len(s.data))
	for _, wf := range s.data {
		all = append(all, wf.Clone())
	}
	s.mu.RUnlock()

	return opts.Apply(all), nil
}
