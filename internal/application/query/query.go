// Package query derives read-only views and counts from a workflow collection.
// Functions never modify their input and return slices of the same pointers.
package query

import "github.com/workflowos/approval-engine/internal/domain/entity"

// Statistics holds per-status counts over a set of workflows
type Statistics struct {
	Total     int `json:"total"`
	Draft     int `json:"draft"`
	Submitted int `json:"submitted"`
	Pending   int `json:"pending"`
	Approved  int `json:"approved"`
	Rejected  int `json:"rejected"`
	Completed int `json:"completed"`
}

// Sum returns the sum of the per-status counts; it always equals Total
func (s Statistics) Sum() int {
	return s.Draft + s.Submitted + s.Pending + s.Approved + s.Rejected + s.Completed
}

// AwaitingApproval returns submitted plus pending
func (s Statistics) AwaitingApproval() int {
	return s.Submitted + s.Pending
}

// DecisionCounts holds an approver's decisions on one calendar date
type DecisionCounts struct {
	Date     entity.Date `json:"date"`
	Approved int         `json:"approved"`
	Rejected int         `json:"rejected"`
}

// Filter returns the workflows matching keep, in collection order
func Filter(workflows []*entity.Workflow, keep func(*entity.Workflow) bool) []*entity.Workflow {
	out := make([]*entity.Workflow, 0)
	for _, w := range workflows {
		if keep(w) {
			out = append(out, w)
		}
	}
	return out
}

// Find returns the workflow with id and its index, or nil and -1
func Find(workflows []*entity.Workflow, id string) (*entity.Workflow, int) {
	for i, w := range workflows {
		if w.ID == id {
			return w, i
		}
	}
	return nil, -1
}

// ByRequester returns the workflows created by requesterID
func ByRequester(workflows []*entity.Workflow, requesterID string) []*entity.Workflow {
	return Filter(workflows, func(w *entity.Workflow) bool {
		return w.RequesterID == requesterID
	})
}

// ByApprover returns the workflows decided by approverID
func ByApprover(workflows []*entity.Workflow, approverID string) []*entity.Workflow {
	if approverID == "" {
		return []*entity.Workflow{}
	}
	return Filter(workflows, func(w *entity.Workflow) bool {
		return w.ApproverID == approverID
	})
}

// ByStatus returns the workflows in status
func ByStatus(workflows []*entity.Workflow, status entity.Status) []*entity.Workflow {
	return Filter(workflows, func(w *entity.Workflow) bool {
		return w.Status == status
	})
}

// PendingApprovals returns the approver work queue (submitted or pending) in collection order
func PendingApprovals(workflows []*entity.Workflow) []*entity.Workflow {
	return Filter(workflows, func(w *entity.Workflow) bool {
		return w.Status.IsAwaitingApproval()
	})
}

// Involving returns the workflows where identityID is the requester or the approver
func Involving(workflows []*entity.Workflow, identityID string) []*entity.Workflow {
	return Filter(workflows, func(w *entity.Workflow) bool {
		return w.RequesterID == identityID || (w.ApproverID != "" && w.ApproverID == identityID)
	})
}

// ComputeStatistics counts the collection by status. When identityID is non-empty only
// workflows involving that identity are counted.
func ComputeStatistics(workflows []*entity.Workflow, identityID string) Statistics {
	if identityID != "" {
		workflows = Involving(workflows, identityID)
	}

	var s Statistics
	for _, w := range workflows {
		s.Total++
		switch w.Status {
		case entity.StatusDraft:
			s.Draft++
		case entity.StatusSubmitted:
			s.Submitted++
		case entity.StatusPending:
			s.Pending++
		case entity.StatusApproved:
			s.Approved++
		case entity.StatusRejected:
			s.Rejected++
		case entity.StatusCompleted:
			s.Completed++
		default:
			// unknown statuses are not counted so Sum stays equal to Total
			s.Total--
		}
	}
	return s
}

// DecidedOn counts approverID's approvals and rejections last updated on date.
// A blank approverID counts decisions by anyone.
func DecidedOn(workflows []*entity.Workflow, approverID string, date entity.Date) DecisionCounts {
	counts := DecisionCounts{Date: date}
	for _, w := range workflows {
		if w.UpdatedAt != date {
			continue
		}
		if approverID != "" && w.ApproverID != approverID {
			continue
		}
		switch w.Status {
		case entity.StatusApproved:
			counts.Approved++
		case entity.StatusRejected:
			counts.Rejected++
		}
	}
	return counts
}
