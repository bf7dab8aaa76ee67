package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-rag-backend/internal/auth"
)

// Usage godoc
// @ID          usage
// @Summary     Get today's quota state
// @Description Returns the caller's tier, queries used today, and queries remaining. Read-only; does not consume quota.
// @Tags        Usage
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer access token"
//
// @Success     200  {object} services.UsageState
// @Failure     401  {object} handlers.ErrorResponse "Missing or invalid token"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /usage [get]
func (h *Handlers) Usage(c *gin.Context) {
	uid := auth.UserID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	st, err := h.usageSvc.GetUsageState(c.Request.Context(), uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load usage")
		return
	}
	ok(c, http.StatusOK, st)
}
