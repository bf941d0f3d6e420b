// Package persistence holds the workflow store drivers and helpers shared by them.
package persistence

import (
	"context"
	"errors"

	"github.com/workflowos/approval-engine/internal/application/port"
	"github.com/workflowos/approval-engine/internal/domain/entity"
)

// ErrorRecorder counts failed store operations
type ErrorRecorder interface {
	RecordStorageError(op string)
}

// Instrumented decorates a store and reports its failures.
// Version conflicts are expected under contention and are not counted.
type Instrumented struct {
	port.WorkflowStore
	recorder ErrorRecorder
}

// Instrument wraps store with recorder
func Instrument(store port.WorkflowStore, recorder ErrorRecorder) *Instrumented {
	return &Instrumented{WorkflowStore: store, recorder: recorder}
}

// Load implements port.WorkflowStore
func (s *Instrumented) Load(ctx context.Context) (*port.Snapshot, error) {
	snap, err := s.WorkflowStore.Load(ctx)
	if err != nil {
		s.recorder.RecordStorageError("load")
	}
	return snap, err
}

// Save implements port.WorkflowStore
func (s *Instrumented) Save(ctx context.Context, expectedVersion uint64, workflows []*entity.Workflow) (uint64, error) {
	version, err := s.WorkflowStore.Save(ctx, expectedVersion, workflows)
	if err != nil && !errors.Is(err, entity.ErrVersionConflict) {
		s.recorder.RecordStorageError("save")
	}
	return version, err
}

var _ port.WorkflowStore = (*Instrumented)(nil)
