package entity

// Status is the lifecycle status of a workflow request
type Status string

// Status constants for Workflow
const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

var validStatuses = map[Status]bool{
	StatusDraft:     true,
	StatusSubmitted: true,
	StatusPending:   true,
	StatusApproved:  true,
	StatusRejected:  true,
	StatusCompleted: true,
}

// AllStatuses returns every status in lifecycle order
func AllStatuses() []Status {
	return []Status{
		StatusDraft,
		StatusSubmitted,
		StatusPending,
		StatusApproved,
		StatusRejected,
		StatusCompleted,
	}
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is one of the defined constants
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// IsTerminal returns true once an approver decision (or completion) has been recorded
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCompleted
}

// IsAwaitingApproval returns true for statuses that sit in the approver queue
func (s Status) IsAwaitingApproval() bool {
	return s == StatusSubmitted || s == StatusPending
}

// Priority is the requester-assigned urgency of a workflow
type Priority string

// Priority constants
const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// String returns the string representation of the priority
func (p Priority) String() string {
	return string(p)
}

// IsValid returns true if the priority is one of the defined constants
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// ActionType identifies an entry in a workflow's audit trail
type ActionType string

// Action type constants
const (
	ActionSubmitted ActionType = "submitted"
	ActionQueued    ActionType = "queued"
	ActionApproved  ActionType = "approved"
	ActionRejected  ActionType = "rejected"
	ActionCompleted ActionType = "completed"
)

// String returns the string representation of the action type
func (a ActionType) String() string {
	return string(a)
}

// Role is the capability held by an identity
type Role string

// Role constants
const (
	RoleRequester Role = "requester"
	RoleApprover  Role = "approver"
	RoleAdmin     Role = "admin"
)

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsValid returns true if the role is one of the defined constants
func (r Role) IsValid() bool {
	switch r {
	case RoleRequester, RoleApprover, RoleAdmin:
		return true
	default:
		return false
	}
}
