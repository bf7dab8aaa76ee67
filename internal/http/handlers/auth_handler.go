// Authentication HTTP handlers.
//
// These endpoints proxy credential operations to the hosted identity
// provider: the backend never stores passwords, it relays them over TLS and
// returns the provider's session tokens. Provider 4xx responses (bad
// credentials, duplicate signup) are passed through with their status;
// provider outages surface as 502.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-rag-backend/internal/auth"
	"github.com/tbourn/go-rag-backend/internal/http/middleware"
)

// CredentialsRequest is the JSON payload for signup and password sign-in.
type CredentialsRequest struct {
	Email    string `json:"email" binding:"required" example:"jane@example.com"`
	Password string `json:"password" binding:"required" example:"hunter2hunter2"`
	// RedirectTo overrides the confirmation-link target (signup only).
	RedirectTo string `json:"redirect_to,omitempty"`
}

// MagicLinkRequest is the JSON payload for passwordless sign-in.
type MagicLinkRequest struct {
	Email      string `json:"email" binding:"required" example:"jane@example.com"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

// SessionResponse returns the provider's session tokens to the client.
type SessionResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type" example:"bearer"`
	ExpiresIn    int    `json:"expires_in" example:"3600"`
	RefreshToken string `json:"refresh_token"`
}

func sessionResponse(s *auth.Session) SessionResponse {
	return SessionResponse{
		AccessToken:  s.AccessToken,
		TokenType:    s.TokenType,
		ExpiresIn:    s.ExpiresIn,
		RefreshToken: s.RefreshToken,
	}
}

// authReady reports whether an identity provider is wired; when it is not,
// the credential endpoints answer 502 instead of panicking on a nil client.
func (h *Handlers) authReady(c *gin.Context) bool {
	if h.authSvc == nil {
		fail(c, http.StatusBadGateway, ErrCodeAuthProvider, "authentication service unavailable")
		return false
	}
	return true
}

// failAuth maps identity provider errors to HTTP responses. Client-caused
// provider errors keep their status and message; everything else is a 502.
func failAuth(c *gin.Context, err error) {
	var pe *auth.ProviderError
	if errors.As(err, &pe) && pe.StatusCode >= 400 && pe.StatusCode < 500 {
		code := ErrCodeBadRequest
		if pe.StatusCode == http.StatusUnauthorized || pe.StatusCode == http.StatusForbidden {
			code = ErrCodeUnauthorized
		}
		fail(c, pe.StatusCode, code, pe.Message)
		return
	}
	lg := middleware.LoggerFrom(c)
	lg.Error().Err(err).Msg("identity provider request failed")
	fail(c, http.StatusBadGateway, ErrCodeAuthProvider, "authentication service unavailable")
}

// SignUp godoc
// @ID          signUp
// @Summary     Create an account
// @Description Registers a new user with the identity provider. A free-tier profile is provisioned on first authenticated request.
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CredentialsRequest  true  "Email and password"
//
// @Success     200  {object} handlers.SessionResponse
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload or provider rejection"
// @Failure     502  {object} handlers.ErrorResponse "Provider unavailable"
// @Router      /auth/signup [post]
func (h *Handlers) SignUp(c *gin.Context) {
	if !h.authReady(c) {
		return
	}
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password are required")
		return
	}

	redirect := strings.TrimSpace(req.RedirectTo)
	if redirect == "" {
		redirect = h.siteURL
	}

	sess, err := h.authSvc.SignUp(c.Request.Context(), req.Email, req.Password, redirect)
	if err != nil {
		failAuth(c, err)
		return
	}
	ok(c, http.StatusOK, sessionResponse(sess))
}

// SignIn godoc
// @ID          signIn
// @Summary     Sign in with email and password
// @Tags        Auth
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CredentialsRequest  true  "Email and password"
//
// @Success     200  {object} handlers.SessionResponse
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload or credentials"
// @Failure     502  {object} handlers.ErrorResponse "Provider unavailable"
// @Router      /auth/signin [post]
func (h *Handlers) SignIn(c *gin.Context) {
	if !h.authReady(c) {
		return
	}
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email and password are required")
		return
	}

	sess, err := h.authSvc.SignInWithPassword(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failAuth(c, err)
		return
	}
	ok(c, http.StatusOK, sessionResponse(sess))
}

// MagicLink godoc
// @ID          magicLink
// @Summary     Send a passwordless sign-in link
// @Description Always returns 204 on acceptance so the endpoint cannot be used to probe which emails are registered.
// @Tags        Auth
// @Accept      json
//
// @Param       body  body  handlers.MagicLinkRequest  true  "Email address"
//
// @Success     204  {string} string "Link sent if the account exists"
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Failure     502  {object} handlers.ErrorResponse "Provider unavailable"
// @Router      /auth/magic-link [post]
func (h *Handlers) MagicLink(c *gin.Context) {
	if !h.authReady(c) {
		return
	}
	var req MagicLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "email is required")
		return
	}

	redirect := strings.TrimSpace(req.RedirectTo)
	if redirect == "" {
		redirect = h.siteURL
	}

	if err := h.authSvc.SendMagicLink(c.Request.Context(), req.Email, redirect); err != nil {
		failAuth(c, err)
		return
	}
	noContent(c)
}

// SignOut godoc
// @ID          signOut
// @Summary     Revoke the current session
// @Tags        Auth
//
// @Param       Authorization  header  string  true  "Bearer access token"
//
// @Success     204  {string} string "Session revoked"
// @Failure     401  {object} handlers.ErrorResponse "Missing token"
// @Failure     502  {object} handlers.ErrorResponse "Provider unavailable"
// @Router      /auth/signout [post]
func (h *Handlers) SignOut(c *gin.Context) {
	if !h.authReady(c) {
		return
	}
	token := bearerFromHeader(c.GetHeader("Authorization"))
	if token == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "bearer token required")
		return
	}

	if err := h.authSvc.SignOut(c.Request.Context(), token); err != nil {
		failAuth(c, err)
		return
	}
	noContent(c)
}

// bearerFromHeader extracts the token from an "Authorization: Bearer x" value.
func bearerFromHeader(header string) string {
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
