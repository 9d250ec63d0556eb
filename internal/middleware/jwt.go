package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/skillbase/skillbase-backend/internal/auth"
	"github.com/skillbase/skillbase-backend/internal/response"
)

const (
	// ContextKeyActor is the Gin context key for the authenticated actor.
	ContextKeyActor = "actor"
)

// RequireAuth validates a JWT from the Authorization header and stores the
// resulting actor on the context.
func RequireAuth(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := extractActor(c, verifier)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		c.Set(ContextKeyActor, actor)
		c.Next()
	}
}

// RequireRole restricts a route group to one role. Must run after
// RequireAuth.
func RequireRole(role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		if actor.Role != role {
			code := response.ErrForbidden
			switch role {
			case auth.RoleCandidate:
				code = response.ErrCandidateOnly
			case auth.RoleOrgAdmin:
				code = response.ErrOrgAdminOnly
			}
			response.AbortFail(c, http.StatusForbidden, code)
			return
		}

		c.Next()
	}
}

// RequireWSAuth validates a JWT from the query param ?token=... Used for
// WebSocket upgrade requests, where browsers cannot set headers.
func RequireWSAuth(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := c.Query("token")
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		claims, err := verifier.Validate(tokenStr)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		c.Set(ContextKeyActor, claims.Actor())
		c.Next()
	}
}

// GetActor retrieves the authenticated actor from the Gin context.
func GetActor(c *gin.Context) (auth.Actor, bool) {
	val, exists := c.Get(ContextKeyActor)
	if !exists {
		return auth.Actor{}, false
	}
	actor, ok := val.(auth.Actor)
	return actor, ok
}

func extractActor(c *gin.Context, verifier *auth.Verifier) (auth.Actor, error) {
	tokenStr := ""

	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			tokenStr = parts[1]
		}
	}

	if tokenStr == "" {
		return auth.Actor{}, fmt.Errorf("authorization header required")
	}

	claims, err := verifier.Validate(tokenStr)
	if err != nil {
		return auth.Actor{}, err
	}
	return claims.Actor(), nil
}
