package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/workflowos/approval-engine/internal/domain/entity"
	"github.com/workflowos/approval-engine/internal/domain/policy"
	domainwf "github.com/workflowos/approval-engine/internal/domain/workflow"
)

// Clock returns the current time
type Clock func() time.Time

// IDGenerator returns a new unique workflow id
type IDGenerator func() string

// transitionSpec describes the effects of one trigger
type transitionSpec struct {
	op       policy.Operation
	action   entity.ActionType
	decision bool
}

var transitions = map[domainwf.Trigger]transitionSpec{
	domainwf.TriggerEdit:     {op: policy.OpEdit},
	domainwf.TriggerDelete:   {op: policy.OpDelete},
	domainwf.TriggerSubmit:   {op: policy.OpSubmit, action: entity.ActionSubmitted},
	domainwf.TriggerQueue:    {op: policy.OpQueue, action: entity.ActionQueued},
	domainwf.TriggerApprove:  {op: policy.OpApprove, action: entity.ActionApproved, decision: true},
	domainwf.TriggerReject:   {op: policy.OpReject, action: entity.ActionRejected, decision: true},
	domainwf.TriggerComplete: {op: policy.OpComplete, action: entity.ActionCompleted},
}

// engineImpl is the concrete implementation of LifecycleEngine
type engineImpl struct {
	policy policy.Policy
	now    Clock
	newID  IDGenerator
}

// EngineOption configures the lifecycle engine
type EngineOption func(*engineImpl)

// WithClock sets the time source used for dates and action timestamps
func WithClock(clock Clock) EngineOption {
	return func(e *engineImpl) {
		e.now = clock
	}
}

// WithIDGenerator sets the workflow id generator
func WithIDGenerator(gen IDGenerator) EngineOption {
	return func(e *engineImpl) {
		e.newID = gen
	}
}

// WithPolicy replaces the default role policy
func WithPolicy(p policy.Policy) EngineOption {
	return func(e *engineImpl) {
		e.policy = p
	}
}

// NewEngine creates a new lifecycle engine
func NewEngine(opts ...EngineOption) LifecycleEngine {
	e := &engineImpl{
		policy: policy.New(),
		now:    time.Now,
		newID:  uuid.NewString,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Create builds a new draft owned by actor
func (e *engineImpl) Create(ctx context.Context, actor entity.Identity, input entity.CreateInput) (*entity.Workflow, error) {
	if err := e.policy.Authorize(actor, policy.OpCreate, nil); err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	in := input.Normalized()
	today := entity.DateOf(e.now())

	return &entity.Workflow{
		ID:            e.newID(),
		Title:         in.Title,
		Description:   in.Description,
		Category:      in.Category,
		Status:        entity.StatusDraft,
		Priority:      in.Priority,
		RequesterID:   actor.ID,
		RequesterName: actor.Name,
		CreatedAt:     today,
		UpdatedAt:     today,
		DueDate:       entity.Date(in.DueDate),
		Actions:       []entity.WorkflowAction{},
		Version:       1,
	}, nil
}

// Edit merges patch into a draft
func (e *engineImpl) Edit(ctx context.Context, actor entity.Identity, w *entity.Workflow, patch entity.EditPatch) (*entity.Workflow, error) {
	return e.fire(ctx, actor, w, domainwf.TriggerEdit, "", func(next *entity.Workflow) error {
		if patch.IsEmpty() {
			return &entity.ValidationError{Field: "patch", Reason: "has no fields to update"}
		}
		return patch.Merge(next)
	})
}

// Submit moves a draft into the approver queue
func (e *engineImpl) Submit(ctx context.Context, actor entity.Identity, w *entity.Workflow) (*entity.Workflow, error) {
	return e.fire(ctx, actor, w, domainwf.TriggerSubmit, "", nil)
}

// Queue marks a submitted workflow as picked up by an approver
func (e *engineImpl) Queue(ctx context.Context, actor entity.Identity, w *entity.Workflow) (*entity.Workflow, error) {
	return e.fire(ctx, actor, w, domainwf.TriggerQueue, "", nil)
}

// Approve records an approver decision in favour
func (e *engineImpl) Approve(ctx context.Context, actor entity.Identity, w *entity.Workflow, comment string) (*entity.Workflow, error) {
	return e.fire(ctx, actor, w, domainwf.TriggerApprove, comment, nil)
}

// Reject records an approver decision against
func (e *engineImpl) Reject(ctx context.Context, actor entity.Identity, w *entity.Workflow, comment string) (*entity.Workflow, error) {
	return e.fire(ctx, actor, w, domainwf.TriggerReject, comment, nil)
}

// Complete closes an approved workflow
func (e *engineImpl) Complete(ctx context.Context, actor entity.Identity, w *entity.Workflow, comment string) (*entity.Workflow, error) {
	return e.fire(ctx, actor, w, domainwf.TriggerComplete, comment, nil)
}

// CheckDelete reports whether actor may remove w from the collection
func (e *engineImpl) CheckDelete(ctx context.Context, actor entity.Identity, w *entity.Workflow) error {
	_, err := e.fire(ctx, actor, w, domainwf.TriggerDelete, "", nil)
	return err
}

// AvailableTriggers lists the triggers actor may fire on w right now
func (e *engineImpl) AvailableTriggers(actor entity.Identity, w *entity.Workflow) []domainwf.Trigger {
	if w == nil || !w.Status.IsValid() {
		return nil
	}
	machine := BuildWorkflowStateMachine(domainwf.StateOf(w.Status))

	var out []domainwf.Trigger
	for _, trigger := range machine.PermittedTriggers() {
		if e.policy.Authorize(actor, transitions[trigger].op, w) == nil {
			out = append(out, trigger)
		}
	}
	return out
}

// fire runs the shared transition pipeline: authorize, check state, evaluate guards,
// then apply the effects to a copy. It is the only place an audit action is appended.
func (e *engineImpl) fire(
	ctx context.Context,
	actor entity.Identity,
	w *entity.Workflow,
	trigger domainwf.Trigger,
	comment string,
	mutate func(next *entity.Workflow) error,
) (*entity.Workflow, error) {
	if w == nil {
		return nil, &entity.NotFoundError{}
	}

	spec := transitions[trigger]
	if err := e.policy.Authorize(actor, spec.op, w); err != nil {
		return nil, err
	}

	// a record outside the status enum has no state to fire from
	if !w.Status.IsValid() {
		return nil, &entity.InvalidTransitionError{From: w.Status, Event: trigger.String()}
	}

	machine := BuildWorkflowStateMachine(domainwf.StateOf(w.Status))
	if !machine.CanFire(trigger) {
		if trigger.IsDraftOnly() {
			return nil, &entity.InvalidStateError{Status: w.Status, Operation: trigger.String()}
		}
		return nil, &entity.InvalidTransitionError{From: w.Status, Event: trigger.String()}
	}

	comment = strings.TrimSpace(comment)
	if err := machine.Fire(WithComment(ctx, comment), trigger); err != nil {
		var guardErr *domainwf.GuardError
		if errors.As(err, &guardErr) && guardErr.FailedGuard() == GuardComment {
			return nil, &entity.ValidationError{Field: "comment", Reason: "is required to " + trigger.String()}
		}
		return nil, &entity.InvalidTransitionError{From: w.Status, Event: trigger.String()}
	}

	next := w.Clone()
	if mutate != nil {
		if err := mutate(next); err != nil {
			return nil, err
		}
	}

	now := e.now().UTC()
	next.Status = machine.State().Status()

	if spec.action != "" {
		if last := next.LastAction(); last != nil && now.Before(last.Timestamp) {
			now = last.Timestamp
		}
		next.Actions = append(next.Actions, entity.WorkflowAction{
			Action:    spec.action,
			ActorID:   actor.ID,
			ActorName: actor.Name,
			Timestamp: now,
			Comment:   comment,
		})
	}

	if spec.decision {
		next.ApproverID = actor.ID
		next.ApproverName = actor.Name
	}

	if today := entity.DateOf(now); !today.Before(next.CreatedAt) {
		next.UpdatedAt = today
	} else {
		next.UpdatedAt = next.CreatedAt
	}
	next.Version++

	return next, nil
}
