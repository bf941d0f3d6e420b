package http

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/workflowos/approval-engine/internal/application/port"
	"github.com/workflowos/approval-engine/internal/application/service"
	"github.com/workflowos/approval-engine/internal/domain/entity"
)

const (
	actorKey = "actor"

	// ActorHeader names the trusted-header identity
	ActorHeader = "X-Actor-Id"
)

// IdentityMiddleware resolves the acting identity for every request.
// A bearer token is preferred; X-Actor-Id is honoured only when trustHeaders is set.
func IdentityMiddleware(resolver port.IdentityResolver, directory service.DirectoryService, trustHeaders bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth := c.GetHeader("Authorization"); auth != "" {
			token, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				unauthenticated(c, "invalid Authorization header")
				return
			}
			if resolver == nil {
				unauthenticated(c, "bearer tokens are not accepted")
				return
			}

			actor, err := resolver.Resolve(c.Request.Context(), strings.TrimSpace(token))
			if err != nil {
				unauthenticated(c, "invalid token")
				return
			}
			c.Set(actorKey, actor)
			c.Next()
			return
		}

		if id := strings.TrimSpace(c.GetHeader(ActorHeader)); id != "" && trustHeaders && directory != nil {
			actor, err := directory.Resolve(c.Request.Context(), id)
			if err != nil {
				unauthenticated(c, "unknown actor")
				return
			}
			c.Set(actorKey, actor)
			c.Next()
			return
		}

		unauthenticated(c, "authentication required")
	}
}

func actorFrom(c *gin.Context) (entity.Identity, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return entity.Identity{}, false
	}
	actor, ok := v.(entity.Identity)
	return actor, ok
}
