package entity

import (
	"fmt"
	"time"
)

// WorkflowAction is one entry in the append-only audit trail of a workflow
type WorkflowAction struct {
	Action    ActionType `json:"action"`
	ActorID   string     `json:"actorId"`
	ActorName string     `json:"actorName"`
	Timestamp time.Time  `json:"timestamp"`
	Comment   string     `json:"comment,omitempty"`
}

// Workflow is a single request tracked through its approval lifecycle
type Workflow struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Category      string           `json:"category"`
	Status        Status           `json:"status"`
	Priority      Priority         `json:"priority"`
	RequesterID   string           `json:"requesterId"`
	RequesterName string           `json:"requesterName"`
	ApproverID    string           `json:"approverId,omitempty"`
	ApproverName  string           `json:"approverName,omitempty"`
	CreatedAt     Date             `json:"createdAt"`
	UpdatedAt     Date             `json:"updatedAt"`
	DueDate       Date             `json:"dueDate,omitempty"`
	Actions       []WorkflowAction `json:"actions"`
	Version       uint64           `json:"version"`
}

// Clone returns a deep copy so callers never share the audit trail slice
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}
	c := *w
	c.Actions = make([]WorkflowAction, len(w.Actions))
	copy(c.Actions, w.Actions)
	return &c
}

// HasApprover reports whether an approver decision has been recorded
func (w *Workflow) HasApprover() bool {
	return w.ApproverID != ""
}

// LastAction returns the most recent audit entry, or nil for an untouched draft
func (w *Workflow) LastAction() *WorkflowAction {
	if len(w.Actions) == 0 {
		return nil
	}
	a := w.Actions[len(w.Actions)-1]
	return &a
}

// CheckInvariants verifies the record-level rules every persisted workflow must satisfy
func (w *Workflow) CheckInvariants() error {
	if w.ID == "" {
		return fmt.Errorf("workflow has no id")
	}
	if !w.Status.IsValid() {
		return fmt.Errorf("workflow %s: invalid status %q", w.ID, w.Status)
	}
	if !w.Priority.IsValid() {
		return fmt.Errorf("workflow %s: invalid priority %q", w.ID, w.Priority)
	}

	// completed is only reachable from approved, so it keeps the approver
	decided := w.Status == StatusApproved || w.Status == StatusRejected || w.Status == StatusCompleted
	if decided != w.HasApprover() {
		return fmt.Errorf("workflow %s: approver presence does not match status %s", w.ID, w.Status)
	}

	if w.UpdatedAt.Before(w.CreatedAt) {
		return fmt.Errorf("workflow %s: updatedAt %s precedes createdAt %s", w.ID, w.UpdatedAt, w.CreatedAt)
	}

	for i := 1; i < len(w.Actions); i++ {
		if w.Actions[i].Timestamp.Before(w.Actions[i-1].Timestamp) {
			return fmt.Errorf("workflow %s: audit trail out of order at index %d", w.ID, i)
		}
	}

	if w.Status == StatusDraft && len(w.Actions) != 0 {
		return fmt.Errorf("workflow %s: draft carries %d audit actions", w.ID, len(w.Actions))
	}

	return nil
}

// CloneAll deep-copies a collection
func CloneAll(workflows []*Workflow) []*Workflow {
	out := make([]*Workflow, 0, len(workflows))
	for _, w := range workflows {
		out = append(out, w.Clone())
	}
	return out
}
