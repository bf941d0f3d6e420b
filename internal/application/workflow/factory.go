package workflow

import (
	"context"
	"strings"
	"sync"

	domainwf "github.com/workflowos/approval-engine/internal/domain/workflow"
)

// GuardComment names the guard that requires a non-blank comment on rejection
const GuardComment = "comment"

type commentKey struct{}

// WithComment attaches the actor's comment to ctx for guard evaluation
func WithComment(ctx context.Context, comment string) context.Context {
	return context.WithValue(ctx, commentKey{}, comment)
}

// CommentFrom returns the comment carried by ctx, or ""
func CommentFrom(ctx context.Context) string {
	comment, _ := ctx.Value(commentKey{}).(string)
	return comment
}

func hasComment(ctx context.Context) bool {
	return strings.TrimSpace(CommentFrom(ctx)) != ""
}

var (
	builderOnce sync.Once
	builder     domainwf.StateMachineBuilder
)

// BuildWorkflowStateMachine creates a state machine configured for the approval lifecycle
func BuildWorkflowStateMachine(initialState domainwf.State) domainwf.StateMachine {
	builderOnce.Do(func() {
		builder = configureLifecycle(domainwf.NewBuilder())
	})
	return builder.Build(initialState)
}

func configureLifecycle(b domainwf.StateMachineBuilder) domainwf.StateMachineBuilder {
	// DRAFT: owner may edit, submit or delete
	b.Configure(domainwf.StateDraft).
		PermitReentry(domainwf.TriggerEdit).
		PermitReentry(domainwf.TriggerDelete).
		Permit(domainwf.TriggerSubmit, domainwf.StateSubmitted)

	// SUBMITTED: waiting in the shared approver queue
	b.Configure(domainwf.StateSubmitted).
		Permit(domainwf.TriggerQueue, domainwf.StatePending).
		Permit(domainwf.TriggerApprove, domainwf.StateApproved).
		PermitIf(domainwf.TriggerReject, domainwf.StateRejected, GuardComment, hasComment)

	// PENDING: picked up by an approver
	b.Configure(domainwf.StatePending).
		Permit(domainwf.TriggerApprove, domainwf.StateApproved).
		PermitIf(domainwf.TriggerReject, domainwf.StateRejected, GuardComment, hasComment)

	// APPROVED: administrative completion only
	b.Configure(domainwf.StateApproved).
		Permit(domainwf.TriggerComplete, domainwf.StateCompleted)

	// REJECTED and COMPLETED are terminal states - no outgoing transitions

	return b
}
