package event

// Type identifies the type of domain event
type Type string

const (
	TypeWorkflowCreated   Type = "workflow.created"
	TypeWorkflowEdited    Type = "workflow.edited"
	TypeWorkflowSubmitted Type = "workflow.submitted"
	TypeWorkflowQueued    Type = "workflow.queued"
	TypeWorkflowApproved  Type = "workflow.approved"
	TypeWorkflowRejected  Type = "workflow.rejected"
	TypeWorkflowCompleted Type = "workflow.completed"
	TypeWorkflowDeleted   Type = "workflow.deleted"
)

// AllTypes returns every event type the engine emits
func AllTypes() []Type {
	return []Type{
		TypeWorkflowCreated,
		TypeWorkflowEdited,
		TypeWorkflowSubmitted,
		TypeWorkflowQueued,
		TypeWorkflowApproved,
		TypeWorkflowRejected,
		TypeWorkflowCompleted,
		TypeWorkflowDeleted,
	}
}

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeWorkflowCreated,
		TypeWorkflowEdited,
		TypeWorkflowSubmitted,
		TypeWorkflowQueued,
		TypeWorkflowApproved,
		TypeWorkflowRejected,
		TypeWorkflowCompleted,
		TypeWorkflowDeleted:
		return true
	default:
		return false
	}
}

// IsStatusChange reports whether the event records a lifecycle transition
func (t Type) IsStatusChange() bool {
	switch t {
	case TypeWorkflowSubmitted,
		TypeWorkflowQueued,
		TypeWorkflowApproved,
		TypeWorkflowRejected,
		TypeWorkflowCompleted:
		return true
	default:
		return false
	}
}
