package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"garrison/pkg/response"
)

const actorKey = "garrison.actor"

// UserSource resolves a token's subject to its current actor descriptor.
// Tokens carry role and base, but both may change after issuance, so the
// middleware re-reads them from the source of record on every request.
type UserSource interface {
	FindActor(ctx context.Context, userID string) (Actor, error)
}

// RequireAuth verifies the bearer token and attaches the actor to the request.
func RequireAuth(tokens *Tokens, source UserSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			response.SendAPIResponse(c, http.StatusUnauthorized, false, "authentication required", nil)
			c.Abort()
			return
		}

		claims, err := tokens.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			response.SendAPIResponse(c, http.StatusUnauthorized, false, "invalid token", nil)
			c.Abort()
			return
		}

		actor, err := source.FindActor(c.Request.Context(), claims.UserID)
		if err != nil {
			response.SendAPIResponse(c, http.StatusUnauthorized, false, "user not found or inactive", nil)
			c.Abort()
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// RequireRoles rejects actors outside the allowed role set. Must run after
// RequireAuth.
func RequireRoles(roles ...Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			response.SendAPIResponse(c, http.StatusUnauthorized, false, "authentication required", nil)
			c.Abort()
			return
		}
		if !actor.HasRole(roles...) {
			response.SendAPIResponse(c, http.StatusForbidden, false, "access denied: insufficient permissions", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// ActorFrom returns the authenticated actor attached by RequireAuth.
func ActorFrom(c *gin.Context) (Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return Actor{}, false
	}
	actor, ok := v.(Actor)
	return actor, ok
}

// SetActor attaches an actor directly, bypassing token checks. Test helper.
func SetActor(c *gin.Context, actor Actor) {
	c.Set(actorKey, actor)
}
