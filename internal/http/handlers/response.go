// Package handlers implements the HTTP endpoints: chat, usage, contact,
// regulations, the auth proxy, and the admin tier update. Handlers stay
// transport-thin; they bind input, call a service interface, and map
// sentinel errors onto the shared response envelope.
//
// Every error response carries the same JSON shape with a stable code, so
// clients can branch on `code` without parsing messages. The chat endpoint
// is the one non-JSON surface: once admitted it streams plain text, but its
// pre-stream failures still use the envelope.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-rag-backend/internal/http/middleware"
)

// ErrorResponse is the error envelope returned by every endpoint. RequestID
// echoes X-Request-ID so client reports can be matched to server logs.
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable machine-readable code (see errors.go)
	Code string `json:"code" example:"quota_exceeded"`
	// Safe to show to users
	Message string `json:"message" example:"daily query limit reached"`
}

// fail aborts the request with the error envelope. Server-side failures
// (5xx) are logged through the request-scoped logger; the message sent to
// the client is assumed to already be safe.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail exposes fail to the router for its NoRoute and NoMethod fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
