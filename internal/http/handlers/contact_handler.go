package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-rag-backend/internal/domain"
	"github.com/tbourn/go-rag-backend/internal/services"
)

// ContactRequest is the JSON payload for the contact form. Company is the
// only optional field.
type ContactRequest struct {
	Name    string `json:"name" example:"Jane Smith"`
	Email   string `json:"email" example:"jane@example.com"`
	Company string `json:"company,omitempty" example:"Acme Corp"`
	Subject string `json:"subject" example:"Compliance question"`
	Message string `json:"message" example:"How does Part 820 apply to ..."`
}

// ContactResponse acknowledges a stored submission.
type ContactResponse struct {
	ID     string `json:"id"`
	Status string `json:"status" example:"new"`
}

// Contact godoc
// @ID          contact
// @Summary     Submit the contact form
// @Description Validates and stores a contact form submission. Public endpoint, protected by a per-IP fixed-window rate limit.
// @Tags        Contact
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.ContactRequest  true  "Submission payload"
//
// @Success     201  {object} handlers.ContactResponse
// @Failure     400  {object} handlers.ErrorResponse "Missing field or invalid email"
// @Failure     429  {object} handlers.ErrorResponse "Rate limited"
// @Failure     500  {object} handlers.ErrorResponse "Storage failure"
// @Router      /contact [post]
func (h *Handlers) Contact(c *gin.Context) {
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	sub := domain.ContactSubmission{
		Name:      req.Name,
		Email:     req.Email,
		Company:   req.Company,
		Subject:   req.Subject,
		Message:   req.Message,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	saved, err := h.contactSvc.Submit(c.Request.Context(), sub)
	if err != nil {
		// Validation messages are safe to relay; storage errors are not.
		if errors.Is(err, services.ErrMissingField) || errors.Is(err, services.ErrInvalidEmail) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, "could not save submission")
		return
	}

	ok(c, http.StatusCreated, ContactResponse{ID: saved.ID, Status: saved.Status})
}
