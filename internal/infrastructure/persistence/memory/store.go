// Package memory keeps the workflow collection in process memory.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/workflowos/approval-engine/internal/application/port"
	"github.com/workflowos/approval-engine/internal/domain/entity"
)

// Store implements port.WorkflowStore over an in-memory slice
type Store struct {
	mu        sync.RWMutex
	version   uint64
	workflows []*entity.Workflow
	seed      func() []*entity.Workflow
}

// Option configures the store
type Option func(*Store)

// WithSeed makes Load return seed() until the first successful Save
func WithSeed(seed func() []*entity.Workflow) Option {
	return func(s *Store) {
		s.seed = seed
	}
}

// NewStore creates an empty in-memory store
func NewStore(opts ...Option) *Store {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns a deep copy of the collection
func (s *Store) Load(ctx context.Context) (*port.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.version == 0 && s.seed != nil {
		return &port.Snapshot{Version: 0, Workflows: s.seed()}, nil
	}
	return &port.Snapshot{Version: s.version, Workflows: entity.CloneAll(s.workflows)}, nil
}

// Save replaces the collection when expectedVersion matches
func (s *Store) Save(ctx context.Context, expectedVersion uint64, workflows []*entity.Workflow) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if expectedVersion != s.version {
		return 0, fmt.Errorf("%w: expected %d, stored %d", entity.ErrVersionConflict, expectedVersion, s.version)
	}

	s.workflows = entity.CloneAll(workflows)
	s.version++
	return s.version, nil
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}

var _ port.WorkflowStore = (*Store)(nil)
