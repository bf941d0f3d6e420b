package port

import (
	"context"

	"github.com/workflowos/approval-engine/internal/domain/entity"
)

// Snapshot is the whole workflow collection as loaded from a store
type Snapshot struct {
	// Version identifies the stored collection; zero means nothing has been saved yet
	Version   uint64
	Workflows []*entity.Workflow
}

// Clone returns a deep copy of the snapshot
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	return &Snapshot{Version: s.Version, Workflows: entity.CloneAll(s.Workflows)}
}

// WorkflowStore persists the whole workflow collection. There are no partial updates:
// Save replaces everything or nothing.
type WorkflowStore interface {
	// Load returns a copy of the stored collection, or the seed/empty collection when none exists
	Load(ctx context.Context) (*Snapshot, error)

	// Save replaces the collection if the stored version still equals expectedVersion.
	// It returns the new version, or an error wrapping entity.ErrVersionConflict.
	Save(ctx context.Context, expectedVersion uint64, workflows []*entity.Workflow) (uint64, error)

	// Close releases any resources held by the store
	Close() error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
