package service

import (
	"context"
	"fmt"

	"github.com/workflowos/approval-engine/internal/application/port"
	"github.com/workflowos/approval-engine/internal/domain/entity"
	"github.com/workflowos/approval-engine/internal/domain/policy"
)

// DirectoryService exposes the user directory to administrators and the identity middleware
type DirectoryService interface {
	ListUsers(ctx context.Context, actor entity.Identity) ([]entity.Identity, error)
	ListUsersByRole(ctx context.Context, actor entity.Identity, role entity.Role) ([]entity.Identity, error)
	Resolve(ctx context.Context, id string) (entity.Identity, error)
}

type directoryServiceImpl struct {
	directory port.UserDirectory
	policy    policy.Policy
	logger    Logger
}

// NewDirectoryService creates a new DirectoryService
func NewDirectoryService(directory port.UserDirectory, logger Logger) DirectoryService {
	return &directoryServiceImpl{
		directory: directory,
		policy:    policy.New(),
		logger:    logger,
	}
}

// ListUsers returns every known identity
func (s *directoryServiceImpl) ListUsers(ctx context.Context, actor entity.Identity) ([]entity.Identity, error) {
	if err := s.policy.Authorize(actor, policy.OpListUsers, nil); err != nil {
		return nil, err
	}

	users, err := s.directory.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list users", "error", err)
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// ListUsersByRole returns the identities holding role
func (s *directoryServiceImpl) ListUsersByRole(ctx context.Context, actor entity.Identity, role entity.Role) ([]entity.Identity, error) {
	if !role.IsValid() {
		return nil, &entity.ValidationError{Field: "role", Reason: fmt.Sprintf("must be one of [%s %s %s]", entity.RoleRequester, entity.RoleApprover, entity.RoleAdmin)}
	}

	users, err := s.ListUsers(ctx, actor)
	if err != nil {
		return nil, err
	}

	out := make([]entity.Identity, 0, len(users))
	for _, u := range users {
		if u.Is(role) {
			out = append(out, u)
		}
	}
	return out, nil
}

// Resolve looks up a single identity by id
func (s *directoryServiceImpl) Resolve(ctx context.Context, id string) (entity.Identity, error) {
	identity, err := s.directory.Get(ctx, id)
	if err != nil {
		return entity.Identity{}, err
	}
	return identity, nil
}
