// Package policy decides which actor may invoke which workflow operation.
package policy

import (
	"strings"

	"github.com/workflowos/approval-engine/internal/domain/entity"
)

// Operation names an engine operation subject to authorization
type Operation string

const (
	OpCreate    Operation = "create"
	OpEdit      Operation = "edit"
	OpSubmit    Operation = "submit"
	OpDelete    Operation = "delete"
	OpQueue     Operation = "queue"
	OpApprove   Operation = "approve"
	OpReject    Operation = "reject"
	OpComplete  Operation = "complete"
	OpRead      Operation = "read"
	OpReadAll   Operation = "read_all"
	OpListUsers Operation = "list_users"
)

// RequiredOwner is reported when the actor holds the right capability but does not own the target
const RequiredOwner = "owner"

// String returns the string representation of the operation
func (o Operation) String() string {
	return string(o)
}

// Policy authorizes an actor for an operation on an optional target workflow
type Policy interface {
	Authorize(actor entity.Identity, op Operation, target *entity.Workflow) error
}

type rule struct {
	roles []entity.Role
	// owner restricts the operation to the target's requester
	owner bool
	// participant lets the target's requester or approver through regardless of role
	participant bool
}

// RolePolicy is the capability table consumed by every transition and query
type RolePolicy struct {
	rules map[Operation]rule
}

// New creates the default role policy
func New() *RolePolicy {
	requester := []entity.Role{entity.RoleRequester}
	approver := []entity.Role{entity.RoleApprover}
	admin := []entity.Role{entity.RoleAdmin}
	reviewers := []entity.Role{entity.RoleApprover, entity.RoleAdmin}

	return &RolePolicy{
		rules: map[Operation]rule{
			OpCreate:    {roles: requester},
			OpEdit:      {roles: requester, owner: true},
			OpSubmit:    {roles: requester, owner: true},
			OpDelete:    {roles: requester, owner: true},
			OpQueue:     {roles: approver},
			OpApprove:   {roles: approver},
			OpReject:    {roles: approver},
			OpComplete:  {roles: admin},
			OpRead:      {roles: reviewers, participant: true},
			OpReadAll:   {roles: reviewers},
			OpListUsers: {roles: admin},
		},
	}
}

// Authorize returns nil when actor may perform op on target, or an *entity.UnauthorizedError
func (p *RolePolicy) Authorize(actor entity.Identity, op Operation, target *entity.Workflow) error {
	r, ok := p.rules[op]
	if !ok || actor.IsZero() {
		return deny(actor, op, r.roles)
	}

	if r.participant && target != nil && isParticipant(actor, target) {
		return nil
	}

	if !hasAny(actor, r.roles) {
		return deny(actor, op, r.roles)
	}

	if r.owner && target != nil && target.RequesterID != actor.ID {
		return &entity.UnauthorizedError{Operation: op.String(), Required: RequiredOwner, Actual: actor.Role}
	}

	return nil
}

// Allows reports whether Authorize would succeed
func (p *RolePolicy) Allows(actor entity.Identity, op Operation, target *entity.Workflow) bool {
	return p.Authorize(actor, op, target) == nil
}

func isParticipant(actor entity.Identity, w *entity.Workflow) bool {
	return w.RequesterID == actor.ID || (w.ApproverID != "" && w.ApproverID == actor.ID)
}

func hasAny(actor entity.Identity, roles []entity.Role) bool {
	for _, role := range roles {
		if actor.Is(role) {
			return true
		}
	}
	return false
}

func deny(actor entity.Identity, op Operation, roles []entity.Role) error {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.String())
	}
	required := strings.Join(names, "|")
	if required == "" {
		required = "none"
	}
	return &entity.UnauthorizedError{Operation: op.String(), Required: required, Actual: actor.Role}
}
