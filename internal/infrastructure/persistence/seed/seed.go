// Package seed holds the initial workflow collection used when a store is empty.
package seed

import (
	"time"

	"github.com/workflowos/approval-engine/internal/domain/entity"
)

const (
	requesterID   = "1"
	requesterName = "Pooja Prasad Upadhye"
	approverID    = "appr-001"
	approverName  = "HR Manager"
)

func at(date string, hour int) time.Time {
	d, _ := time.Parse(entity.DateLayout, date)
	return d.Add(time.Duration(hour) * time.Hour)
}

// Workflows returns a fresh copy of the seed collection
func Workflows() []*entity.Workflow {
	return []*entity.Workflow{
		{
			ID:            "wf-001",
			Title:         "Software License Request",
			Description:   "Request for Adobe Creative Cloud license for design team",
			Category:      "Software",
			Status:        entity.StatusApproved,
			Priority:      entity.PriorityHigh,
			RequesterID:   requesterID,
			RequesterName: requesterName,
			ApproverID:    approverID,
			ApproverName:  approverName,
			CreatedAt:     "2025-12-10",
			UpdatedAt:     "2025-12-15",
			DueDate:       "2025-12-30",
			Actions: []entity.WorkflowAction{
				{Action: entity.ActionSubmitted, ActorID: requesterID, ActorName: requesterName, Timestamp: at("2025-12-10", 10)},
				{Action: entity.ActionApproved, ActorID: approverID, ActorName: approverName, Timestamp: at("2025-12-15", 14)},
			},
			Version: 3,
		},
		{
			ID:            "wf-002",
			Title:         "New Ergonomic Chair",
			Description:   "Split ergonomic chair and keyboard to reduce wrist strain",
			Category:      "Hardware",
			Status:        entity.StatusRejected,
			Priority:      entity.PriorityMedium,
			RequesterID:   requesterID,
			RequesterName: requesterName,
			ApproverID:    approverID,
			ApproverName:  approverName,
			CreatedAt:     "2026-01-05",
			UpdatedAt:     "2026-01-10",
			Actions: []entity.WorkflowAction{
				{Action: entity.ActionSubmitted, ActorID: requesterID, ActorName: requesterName, Timestamp: at("2026-01-05", 9)},
				{Action: entity.ActionRejected, ActorID: approverID, ActorName: approverName, Timestamp: at("2026-01-10", 16), Comment: "Not covered by the current equipment budget"},
			},
			Version: 3,
		},
		{
			ID:            "wf-003",
			Title:         "React Advanced Training Subscription",
			Description:   "Frontend Masters annual subscription for upskilling",
			Category:      "Training",
			Status:        entity.StatusDraft,
			Priority:      entity.PriorityLow,
			RequesterID:   requesterID,
			RequesterName: requesterName,
			CreatedAt:     "2026-01-18",
			UpdatedAt:     "2026-01-18",
			Actions:       []entity.WorkflowAction{},
			Version:       1,
		},
	}
}

// Users returns the identities matching the seed workflows plus an administrator
func Users() []entity.Identity {
	return []entity.Identity{
		{ID: requesterID, Name: requesterName, Email: "user@workflowos.com", Role: entity.RoleRequester},
		{ID: approverID, Name: approverName, Email: "hr@workflowos.com", Role: entity.RoleApprover},
		{ID: "admin-001", Name: "Workflow Admin", Email: "admin@workflowos.com", Role: entity.RoleAdmin},
	}
}
