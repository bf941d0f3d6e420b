package port

import (
	"context"

	"github.com/workflowos/approval-engine/internal/domain/entity"
)

// UserDirectory lists the identities known to the system
type UserDirectory interface {
	List(ctx context.Context) ([]entity.Identity, error)
	Get(ctx context.Context, id string) (entity.Identity, error)
}

// IdentityResolver turns a bearer credential into an already-authenticated identity
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (entity.Identity, error)
}
