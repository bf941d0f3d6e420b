package service

import (
	"context"
	"sync"
	"time"

	"github.com/workflowos/approval-engine/internal/application/dispatcher"
	"github.com/workflowos/approval-engine/internal/application/port"
	"github.com/workflowos/approval-engine/internal/application/query"
	"github.com/workflowos/approval-engine/internal/application/workflow"
	"github.com/workflowos/approval-engine/internal/domain/entity"
	"github.com/workflowos/approval-engine/internal/domain/event"
	"github.com/workflowos/approval-engine/internal/domain/policy"
	domainwf "github.com/workflowos/approval-engine/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// WorkflowService is the operation surface consumed by the presentation layer.
// Every method returns a copy of the affected workflow or a typed error; there is no partial success.
type WorkflowService interface {
	CreateWorkflow(ctx context.Context, actor entity.Identity, input entity.CreateInput) (*entity.Workflow, error)
	EditWorkflow(ctx context.Context, actor entity.Identity, id string, patch entity.EditPatch) (*entity.Workflow, error)
	SubmitWorkflow(ctx context.Context, actor entity.Identity, id string) (*entity.Workflow, error)
	MarkPending(ctx context.Context, actor entity.Identity, id string) (*entity.Workflow, error)
	ApproveWorkflow(ctx context.Context, actor entity.Identity, id, comment string) (*entity.Workflow, error)
	RejectWorkflow(ctx context.Context, actor entity.Identity, id, comment string) (*entity.Workflow, error)
	CompleteWorkflow(ctx context.Context, actor entity.Identity, id, comment string) (*entity.Workflow, error)
	DeleteWorkflow(ctx context.Context, actor entity.Identity, id string) error

	GetWorkflow(ctx context.Context, actor entity.Identity, id string) (*entity.Workflow, error)
	AvailableActions(ctx context.Context, actor entity.Identity, id string) ([]domainwf.Trigger, error)
	ListAll(ctx context.Context, actor entity.Identity) ([]*entity.Workflow, error)
	ListByRequester(ctx context.Context, actor entity.Identity, requesterID string) ([]*entity.Workflow, error)
	ListByApprover(ctx context.Context, actor entity.Identity, approverID string) ([]*entity.Workflow, error)
	ListPendingApprovals(ctx context.Context, actor entity.Identity) ([]*entity.Workflow, error)
	GetStatistics(ctx context.Context, actor entity.Identity, identityID string) (query.Statistics, error)
	GetDecisionCounts(ctx context.Context, actor entity.Identity, date entity.Date) (query.DecisionCounts, error)
}

type workflowServiceImpl struct {
	store      port.WorkflowStore
	engine     workflow.LifecycleEngine
	policy     policy.Policy
	dispatcher dispatcher.Dispatcher
	logger     Logger
	now        func() time.Time

	// serialises load-mutate-save within the process
	mu sync.Mutex
}

// Option configures the workflow service
type Option func(*workflowServiceImpl)

// WithDispatcher publishes an event after every accepted mutation
func WithDispatcher(d dispatcher.Dispatcher) Option {
	return func(s *workflowServiceImpl) {
		s.dispatcher = d
	}
}

// WithPolicy replaces the default role policy used for reads
func WithPolicy(p policy.Policy) Option {
	return func(s *workflowServiceImpl) {
		s.policy = p
	}
}

// WithClock sets the time source used to default the decision-count date
func WithClock(now func() time.Time) Option {
	return func(s *workflowServiceImpl) {
		s.now = now
	}
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(
	store port.WorkflowStore,
	engine workflow.LifecycleEngine,
	logger Logger,
	opts ...Option,
) WorkflowService {
	s := &workflowServiceImpl{
		store:  store,
		engine: engine,
		policy: policy.New(),
		logger: logger,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateWorkflow creates a draft owned by actor
func (s *workflowServiceImpl) CreateWorkflow(ctx context.Context, actor entity.Identity, input entity.CreateInput) (*entity.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created, err := s.engine.Create(ctx, actor, input)
	if err != nil {
		return nil, err
	}

	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.save(ctx, snap.Version, append(snap.Workflows, created)); err != nil {
		return nil, err
	}

	s.logger.Info("Workflow created", "workflow_id", created.ID, "requester_id", actor.ID)
	s.publish(ctx, event.TypeWorkflowCreated, actor, nil, created, "")
	return created.Clone(), nil
}

// EditWorkflow merges patch into a draft
func (s *workflowServiceImpl) EditWorkflow(ctx context.Context, actor entity.Identity, id string, patch entity.EditPatch) (*entity.Workflow, error) {
	return s.transition(ctx, actor, id, event.TypeWorkflowEdited, "", func(w *entity.Workflow) (*entity.Workflow, error) {
		return s.engine.Edit(ctx, actor, w, patch)
	})
}

// SubmitWorkflow moves a draft into the approver queue
func (s *workflowServiceImpl) SubmitWorkflow(ctx context.Context, actor entity.Identity, id string) (*entity.Workflow, error) {
	return s.transition(ctx, actor, id, event.TypeWorkflowSubmitted, "", func(w *entity.Workflow) (*entity.Workflow, error) {
		return s.engine.Submit(ctx, actor, w)
	})
}

// MarkPending records that an approver has picked up a submitted workflow
func (s *workflowServiceImpl) MarkPending(ctx context.Context, actor entity.Identity, id string) (*entity.Workflow, error) {
	return s.transition(ctx, actor, id, event.TypeWorkflowQueued, "", func(w *entity.Workflow) (*entity.Workflow, error) {
		return s.engine.Queue(ctx, actor, w)
	})
}

// ApproveWorkflow approves a submitted or pending workflow
func (s *workflowServiceImpl) ApproveWorkflow(ctx context.Context, actor entity.Identity, id, comment string) (*entity.Workflow, error) {
	return s.transition(ctx, actor, id, event.TypeWorkflowApproved, comment, func(w *entity.Workflow) (*entity.Workflow, error) {
		return s.engine.Approve(ctx, actor, w, comment)
	})
}

// RejectWorkflow rejects a submitted or pending workflow; comment is required
func (s *workflowServiceImpl) RejectWorkflow(ctx context.Context, actor entity.Identity, id, comment string) (*entity.Workflow, error) {
	return s.transition(ctx, actor, id, event.TypeWorkflowRejected, comment, func(w *entity.Workflow) (*entity.Workflow, error) {
		return s.engine.Reject(ctx, actor, w, comment)
	})
}

// CompleteWorkflow closes an approved workflow
func (s *workflowServiceImpl) CompleteWorkflow(ctx context.Context, actor entity.Identity, id, comment string) (*entity.Workflow, error) {
	return s.transition(ctx, actor, id, event.TypeWorkflowCompleted, comment, func(w *entity.Workflow) (*entity.Workflow, error) {
		return s.engine.Complete(ctx, actor, w, comment)
	})
}

// DeleteWorkflow removes a draft from the collection
func (s *workflowServiceImpl) DeleteWorkflow(ctx context.Context, actor entity.Identity, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return err
	}

	target, idx := query.Find(snap.Workflows, id)
	if target == nil {
		return &entity.NotFoundError{ID: id}
	}

	if err := s.engine.CheckDelete(ctx, actor, target); err != nil {
		return err
	}

	remaining := make([]*entity.Workflow, 0, len(snap.Workflows)-1)
	remaining = append(remaining, snap.Workflows[:idx]...)
	remaining = append(remaining, snap.Workflows[idx+1:]...)

	if err := s.save(ctx, snap.Version, remaining); err != nil {
		return err
	}

	s.logger.Info("Workflow deleted", "workflow_id", id, "actor_id", actor.ID)
	s.publish(ctx, event.TypeWorkflowDeleted, actor, target, nil, "")
	return nil
}

// GetWorkflow returns one workflow visible to actor
func (s *workflowServiceImpl) GetWorkflow(ctx context.Context, actor entity.Identity, id string) (*entity.Workflow, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	w, _ := query.Find(snap.Workflows, id)
	if w == nil {
		return nil, &entity.NotFoundError{ID: id}
	}
	if err := s.policy.Authorize(actor, policy.OpRead, w); err != nil {
		return nil, err
	}

	return w, nil
}

// AvailableActions lists the triggers actor may fire on the workflow
func (s *workflowServiceImpl) AvailableActions(ctx context.Context, actor entity.Identity, id string) ([]domainwf.Trigger, error) {
	w, err := s.GetWorkflow(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.engine.AvailableTriggers(actor, w), nil
}

// ListAll returns the whole collection
func (s *workflowServiceImpl) ListAll(ctx context.Context, actor entity.Identity) ([]*entity.Workflow, error) {
	if err := s.policy.Authorize(actor, policy.OpReadAll, nil); err != nil {
		return nil, err
	}

	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Workflows, nil
}

// ListByRequester returns the workflows created by requesterID
func (s *workflowServiceImpl) ListByRequester(ctx context.Context, actor entity.Identity, requesterID string) ([]*entity.Workflow, error) {
	if err := s.authorizeScope(actor, requesterID); err != nil {
		return nil, err
	}

	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return query.ByRequester(snap.Workflows, requesterID), nil
}

// ListByApprover returns the workflows decided by approverID
func (s *workflowServiceImpl) ListByApprover(ctx context.Context, actor entity.Identity, approverID string) ([]*entity.Workflow, error) {
	if err := s.authorizeScope(actor, approverID); err != nil {
		return nil, err
	}

	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return query.ByApprover(snap.Workflows, approverID), nil
}

// ListPendingApprovals returns the shared approver queue, oldest first
func (s *workflowServiceImpl) ListPendingApprovals(ctx context.Context, actor entity.Identity) ([]*entity.Workflow, error) {
	if err := s.policy.Authorize(actor, policy.OpReadAll, nil); err != nil {
		return nil, err
	}

	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return query.PendingApprovals(snap.Workflows), nil
}

// GetStatistics counts workflows by status, optionally restricted to one identity
func (s *workflowServiceImpl) GetStatistics(ctx context.Context, actor entity.Identity, identityID string) (query.Statistics, error) {
	if err := s.authorizeScope(actor, identityID); err != nil {
		return query.Statistics{}, err
	}

	snap, err := s.load(ctx)
	if err != nil {
		return query.Statistics{}, err
	}
	return query.ComputeStatistics(snap.Workflows, identityID), nil
}

// GetDecisionCounts returns approvals and rejections on date (today when zero).
// Approvers see their own decisions; admins see everyone's.
func (s *workflowServiceImpl) GetDecisionCounts(ctx context.Context, actor entity.Identity, date entity.Date) (query.DecisionCounts, error) {
	if err := s.policy.Authorize(actor, policy.OpReadAll, nil); err != nil {
		return query.DecisionCounts{}, err
	}

	if date.IsZero() {
		date = entity.DateOf(s.now())
	}

	approverID := ""
	if actor.Is(entity.RoleApprover) {
		approverID = actor.ID
	}

	snap, err := s.load(ctx)
	if err != nil {
		return query.DecisionCounts{}, err
	}
	return query.DecidedOn(snap.Workflows, approverID, date), nil
}

// transition runs load, lookup, apply, save and publish under the service lock
func (s *workflowServiceImpl) transition(
	ctx context.Context,
	actor entity.Identity,
	id string,
	eventType event.Type,
	comment string,
	apply func(w *entity.Workflow) (*entity.Workflow, error),
) (*entity.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	current, idx := query.Find(snap.Workflows, id)
	if current == nil {
		return nil, &entity.NotFoundError{ID: id}
	}

	next, err := apply(current)
	if err != nil {
		s.logger.Info("Workflow operation refused",
			"workflow_id", id,
			"event_type", eventType,
			"actor_id", actor.ID,
			"error", err,
		)
		return nil, err
	}

	workflows := make([]*entity.Workflow, len(snap.Workflows))
	copy(workflows, snap.Workflows)
	workflows[idx] = next

	if err := s.save(ctx, snap.Version, workflows); err != nil {
		return nil, err
	}

	s.logger.Info("Workflow transitioned",
		"workflow_id", id,
		"event_type", eventType,
		"from", current.Status,
		"to", next.Status,
		"actor_id", actor.ID,
	)
	s.publish(ctx, eventType, actor, current, next, comment)
	return next.Clone(), nil
}

// authorizeScope allows an identity to read its own scope; anything else needs read_all
func (s *workflowServiceImpl) authorizeScope(actor entity.Identity, identityID string) error {
	if identityID != "" && !actor.IsZero() && identityID == actor.ID {
		return nil
	}
	return s.policy.Authorize(actor, policy.OpReadAll, nil)
}

func (s *workflowServiceImpl) load(ctx context.Context) (*port.Snapshot, error) {
	snap, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Error("Failed to load workflows", "error", err)
		return nil, entity.NewStorageError("load", err)
	}
	return snap, nil
}

func (s *workflowServiceImpl) save(ctx context.Context, expectedVersion uint64, workflows []*entity.Workflow) error {
	if _, err := s.store.Save(ctx, expectedVersion, workflows); err != nil {
		s.logger.Error("Failed to save workflows", "error", err, "expected_version", expectedVersion)
		return entity.NewStorageError("save", err)
	}
	return nil
}

func (s *workflowServiceImpl) publish(ctx context.Context, eventType event.Type, actor entity.Identity, before, after *entity.Workflow, comment string) {
	if s.dispatcher == nil {
		return
	}

	subject := after
	if subject == nil {
		subject = before
	}

	payload := map[string]interface{}{
		event.KeyTitle:   subject.Title,
		event.KeyVersion: subject.Version,
	}
	if before != nil {
		payload[event.KeyPreviousStatus] = before.Status.String()
	}
	if after != nil {
		payload[event.KeyNewStatus] = after.Status.String()
	}
	if comment != "" {
		payload[event.KeyComment] = comment
	}

	s.dispatcher.DispatchAsync(ctx, event.NewEvent(eventType, subject.ID, actor.ID, payload))
}
