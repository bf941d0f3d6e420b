package workflow

import (
	"context"

	"github.com/workflowos/approval-engine/internal/domain/entity"
	domainwf "github.com/workflowos/approval-engine/internal/domain/workflow"
)

// LifecycleEngine applies lifecycle operations to a single workflow.
// Every method works on a copy: the workflow passed in is never modified,
// and on failure no copy is returned.
type LifecycleEngine interface {
	// Create builds a new draft owned by actor
	Create(ctx context.Context, actor entity.Identity, input entity.CreateInput) (*entity.Workflow, error)

	// Edit merges patch into a draft
	Edit(ctx context.Context, actor entity.Identity, w *entity.Workflow, patch entity.EditPatch) (*entity.Workflow, error)

	// Submit moves a draft into the approver queue
	Submit(ctx context.Context, actor entity.Identity, w *entity.Workflow) (*entity.Workflow, error)

	// Queue marks a submitted workflow as picked up by an approver
	Queue(ctx context.Context, actor entity.Identity, w *entity.Workflow) (*entity.Workflow, error)

	// Approve records an approver decision in favour
	Approve(ctx context.Context, actor entity.Identity, w *entity.Workflow, comment string) (*entity.Workflow, error)

	// Reject records an approver decision against; comment is required
	Reject(ctx context.Context, actor entity.Identity, w *entity.Workflow, comment string) (*entity.Workflow, error)

	// Complete closes an approved workflow
	Complete(ctx context.Context, actor entity.Identity, w *entity.Workflow, comment string) (*entity.Workflow, error)

	// CheckDelete reports whether actor may remove w from the collection
	CheckDelete(ctx context.Context, actor entity.Identity, w *entity.Workflow) error

	// AvailableTriggers lists the triggers actor may fire on w right now
	AvailableTriggers(actor entity.Identity, w *entity.Workflow) []domainwf.Trigger
}
