package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xenon007/tasktracker/internal/apperr"
)

const callerKey = "auth.caller"

// Verifier validates raw identity tokens.
type Verifier interface {
	Verify(raw string) (Claims, error)
}

// RequireIdentity rejects requests without a valid bearer token and stores
// the verified claims on the gin context.
func RequireIdentity(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, raw, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token", "kind": apperr.KindAuthFailed})
			return
		}

		claims, err := v.Verify(strings.TrimSpace(raw))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "kind": apperr.KindAuthFailed})
			return
		}

		c.Set(callerKey, claims)
		c.Next()
	}
}

// Caller returns the verified claims set by RequireIdentity.
func Caller(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}
