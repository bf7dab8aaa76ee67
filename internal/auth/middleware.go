package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextUserIDKey is the Gin context key under which the authenticated user
// id is stored. The rate limiter and handlers read the same key.
const ContextUserIDKey = "userID"

// MiddlewareConfig controls auth enforcement behavior.
type MiddlewareConfig struct {
	// DisableAuth skips verification and injects a fixed local user.
	// Intended for local development only.
	DisableAuth bool
}

// Middleware enforces bearer-token auth and stores the user id in the Gin
// context. Requests without a valid token are rejected with 401 in the
// standard error envelope.
func Middleware(verifier *Verifier, cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.DisableAuth {
			c.Set(ContextUserIDKey, "local-dev")
			c.Next()
			return
		}

		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		claims, err := verifier.Verify(raw)
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set(ContextUserIDKey, claims.Subject)
		c.Set("userEmail", claims.Email)
		c.Next()
	}
}

// UserID returns the authenticated user id from the Gin context, or "".
func UserID(c *gin.Context) string {
	if v, ok := c.Get(ContextUserIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get("X-Request-ID"),
		"code":       "unauthorized",
		"message":    msg,
	})
}
