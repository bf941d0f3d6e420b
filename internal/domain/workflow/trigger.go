package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	TriggerEdit     Trigger = "edit"
	TriggerSubmit   Trigger = "submit"
	TriggerQueue    Trigger = "queue"
	TriggerApprove  Trigger = "approve"
	TriggerReject   Trigger = "reject"
	TriggerComplete Trigger = "complete"
	TriggerDelete   Trigger = "delete"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

// IsDraftOnly returns true for requester operations that are legal only on a draft
func (t Trigger) IsDraftOnly() bool {
	switch t {
	case TriggerEdit, TriggerSubmit, TriggerDelete:
		return true
	default:
		return false
	}
}
