package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-rag-backend/internal/domain"
	"github.com/tbourn/go-rag-backend/internal/services"
)

// UpdateTierRequest is the JSON payload for the admin tier endpoint.
type UpdateTierRequest struct {
	Tier string `json:"tier" binding:"required" example:"pro"`
}

// UpdateTier godoc
// @ID          updateTier
// @Summary     Set a user's subscription tier
// @Description Admin-only. Authorized by the X-Service-Key header, not by user tokens. Intended for billing webhooks and support tooling.
// @Tags        Admin
// @Accept      json
//
// @Param       X-Service-Key  header  string  true  "Service role key"
// @Param       id             path    string  true  "User ID (UUID)"  format(uuid)
// @Param       body           body    handlers.UpdateTierRequest  true  "New tier"
//
// @Success     204  {string} string "Tier updated"
// @Failure     400  {object} handlers.ErrorResponse "Invalid user id or tier"
// @Failure     403  {object} handlers.ErrorResponse "Bad or missing service key"
// @Failure     404  {object} handlers.ErrorResponse "Profile not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /admin/users/{id}/tier [put]
func (h *Handlers) UpdateTier(c *gin.Context) {
	if h.serviceKey == "" ||
		subtle.ConstantTimeCompare([]byte(c.GetHeader("X-Service-Key")), []byte(h.serviceKey)) != 1 {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "service key required")
		return
	}

	userID := c.Param("id")
	if _, err := uuid.Parse(userID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user id must be a UUID")
		return
	}

	var req UpdateTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "tier required")
		return
	}

	err := h.profileSvc.SetTier(c.Request.Context(), userID, domain.Tier(req.Tier))
	switch {
	case err == nil:
		noContent(c)
	case errors.Is(err, services.ErrInvalidTier):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown tier")
	case errors.Is(err, services.ErrProfileNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "profile not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not update tier")
	}
}
