// Package storetest is a conformance suite shared by every port.WorkflowStore driver.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workflowos/approval-engine/internal/application/port"
	"github.com/workflowos/approval-engine/internal/domain/entity"
	"github.com/workflowos/approval-engine/internal/infrastructure/persistence/seed"
)

// Factory opens a fresh, empty store. When seeded is true the store must fall back to seed.Workflows.
type Factory func(t *testing.T, seeded bool) port.WorkflowStore

// Sample returns a small collection covering every optional field
func Sample() []*entity.Workflow {
	ts := time.Date(2026, 1, 20, 10, 15, 30, 123456789, time.UTC)
	return []*entity.Workflow{
		{
			ID:            "wf-b",
			Title:         "Laptop",
			Description:   "New laptop",
			Category:      "Hardware",
			Status:        entity.StatusRejected,
			Priority:      entity.PriorityMedium,
			RequesterID:   "R1",
			RequesterName: "Requester One",
			ApproverID:    "A1",
			ApproverName:  "Approver One",
			CreatedAt:     "2026-01-19",
			UpdatedAt:     "2026-01-20",
			DueDate:       "2026-02-01",
			Actions: []entity.WorkflowAction{
				{Action: entity.ActionSubmitted, ActorID: "R1", ActorName: "Requester One", Timestamp: ts.Add(-time.Hour)},
				{Action: entity.ActionRejected, ActorID: "A1", ActorName: "Approver One", Timestamp: ts, Comment: "Budget exceeded"},
			},
			Version: 3,
		},
		{
			ID:            "wf-a",
			Title:         "Monitor",
			Description:   "Second monitor",
			Category:      "Hardware",
			Status:        entity.StatusDraft,
			Priority:      entity.PriorityLow,
			RequesterID:   "R2",
			RequesterName: "Requester Two",
			CreatedAt:     "2026-01-20",
			UpdatedAt:     "2026-01-20",
			Actions:       []entity.WorkflowAction{},
			Version:       1,
		},
	}
}

// Run executes the conformance suite against factory
func Run(t *testing.T, factory Factory) {
	t.Run("empty store loads empty collection", func(t *testing.T) {
		store := factory(t, false)
		snap, err := store.Load(context.Background())
		require.NoError(t, err)
		assert.Zero(t, snap.Version)
		assert.Empty(t, snap.Workflows)
	})

	t.Run("seeded store loads seed until first save", func(t *testing.T) {
		store := factory(t, true)
		ctx := context.Background()

		snap, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Zero(t, snap.Version)
		assertEqualWorkflows(t, seed.Workflows(), snap.Workflows)

		_, err = store.Save(ctx, snap.Version, snap.Workflows[:1])
		require.NoError(t, err)

		snap, err = store.Load(ctx)
		require.NoError(t, err)
		assert.Len(t, snap.Workflows, 1)
	})

	t.Run("round trip preserves order and fields", func(t *testing.T) {
		store := factory(t, false)
		ctx := context.Background()

		version, err := store.Save(ctx, 0, Sample())
		require.NoError(t, err)
		assert.Equal(t, uint64(1), version)

		snap, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), snap.Version)
		require.Len(t, snap.Workflows, 2)
		assertEqualWorkflows(t, Sample(), snap.Workflows)
	})

	t.Run("save replaces whole collection", func(t *testing.T) {
		store := factory(t, false)
		ctx := context.Background()

		v1, err := store.Save(ctx, 0, Sample())
		require.NoError(t, err)
		v2, err := store.Save(ctx, v1, Sample()[1:])
		require.NoError(t, err)
		assert.Greater(t, v2, v1)

		snap, err := store.Load(ctx)
		require.NoError(t, err)
		require.Len(t, snap.Workflows, 1)
		assert.Equal(t, "wf-a", snap.Workflows[0].ID)

		v3, err := store.Save(ctx, v2, nil)
		require.NoError(t, err)
		snap, err = store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, v3, snap.Version)
		assert.Empty(t, snap.Workflows)
	})

	t.Run("stale version is rejected and nothing is written", func(t *testing.T) {
		store := factory(t, false)
		ctx := context.Background()

		v1, err := store.Save(ctx, 0, Sample())
		require.NoError(t, err)

		_, err = store.Save(ctx, 0, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, entity.ErrVersionConflict)

		_, err = store.Save(ctx, v1+5, nil)
		assert.ErrorIs(t, err, entity.ErrVersionConflict)

		snap, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, v1, snap.Version)
		assert.Len(t, snap.Workflows, 2)
	})

	t.Run("load returns a defensive copy", func(t *testing.T) {
		store := factory(t, false)
		ctx := context.Background()

		workflows := Sample()
		_, err := store.Save(ctx, 0, workflows)
		require.NoError(t, err)
		workflows[0].Title = "mutated after save"

		snap, err := store.Load(ctx)
		require.NoError(t, err)
		snap.Workflows[0].Actions[0].Comment = "mutated after load"

		again, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Laptop", again.Workflows[0].Title)
		assert.Empty(t, again.Workflows[0].Actions[0].Comment)
	})

	t.Run("concurrent writers with the same version", func(t *testing.T) {
		store := factory(t, false)
		ctx := context.Background()
		v1, err := store.Save(ctx, 0, Sample())
		require.NoError(t, err)

		const writers = 4
		var wg sync.WaitGroup
		errs := make([]error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = store.Save(ctx, v1, Sample()[:1])
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, entity.ErrVersionConflict)
		}
		assert.Equal(t, 1, succeeded)
	})
}

// assertEqualWorkflows compares collections, treating timestamps by instant
func assertEqualWorkflows(t *testing.T, want, got []*entity.Workflow) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		w, g := want[i].Clone(), got[i].Clone()
		require.Len(t, g.Actions, len(w.Actions), w.ID)
		for j := range w.Actions {
			assert.True(t, w.Actions[j].Timestamp.Equal(g.Actions[j].Timestamp), "%s action %d timestamp", w.ID, j)
			w.Actions[j].Timestamp = time.Time{}
			g.Actions[j].Timestamp = time.Time{}
		}
		assert.Equal(t, w, g)
	}
}
