package workflow

import "github.com/workflowos/approval-engine/internal/domain/entity"

// State represents a workflow state in the approval lifecycle
type State string

const (
	StateDraft     = State(entity.StatusDraft)
	StateSubmitted = State(entity.StatusSubmitted)
	StatePending   = State(entity.StatusPending)
	StateApproved  = State(entity.StatusApproved)
	StateRejected  = State(entity.StatusRejected)
	StateCompleted = State(entity.StatusCompleted)
)

// StateOf converts an entity status into a machine state
func StateOf(s entity.Status) State {
	return State(s)
}

// Status converts the state back into an entity status
func (s State) Status() entity.Status {
	return entity.Status(s)
}

// IsTerminal returns true if no approver action is possible from this state
func (s State) IsTerminal() bool {
	return s.Status().IsTerminal()
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return s.Status().IsValid()
}
