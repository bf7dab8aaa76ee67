// Chat HTTP handlers.
//
// This file exposes the retrieval-augmented chat endpoint:
//   - POST /chat  (streamed plain-text answer)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. The chat handler is the one
// streaming endpoint in the API; quota state and retrieval health are reported
// in response headers because the body is reserved for model output.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-rag-backend/internal/auth"
	"github.com/tbourn/go-rag-backend/internal/http/middleware"
	"github.com/tbourn/go-rag-backend/internal/llm"
	"github.com/tbourn/go-rag-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// ChatService defines the answer pipeline consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ChatService interface {
	// Ask gates, retrieves context, and opens a completion stream.
	Ask(ctx context.Context, userID string, messages []llm.Message) (*services.Answer, error)
}

// UsageService reports a user's quota state without consuming from it.
type UsageService interface {
	GetUsageState(ctx context.Context, userID string) (services.UsageState, error)
}

//
// DTOs
//

// ChatRequest is the JSON payload for the chat endpoint. The last message
// must be the user's current question; earlier entries provide conversation
// history for the model.
type ChatRequest struct {
	Messages []llm.Message `json:"messages" binding:"required"`
}

//
// Handlers
//

// Chat godoc
// @ID          chat
// @Summary     Ask a question about federal regulations
// @Description Streams a grounded answer as plain text. Quota state is reported in X-Usage-Limit and X-Usage-Remaining headers; X-Context-Degraded is set when retrieval failed and the answer carries no document context.
// @Tags        Chat
// @Accept      json
// @Produce     plain
//
// @Param       Authorization  header  string  true  "Bearer access token"
// @Param       body           body    handlers.ChatRequest  true  "Conversation so far"
//
// @Success     200  {string} string "Streamed answer text"
// @Header      200  {string} X-Usage-Limit      "Daily query limit (-1 when unlimited)"
// @Header      200  {string} X-Usage-Remaining  "Queries remaining today (-1 when unlimited)"
// @Header      200  {string} X-Context-Degraded "Set to true when retrieval failed"
// @Failure     400  {object} handlers.ErrorResponse "Empty or malformed message"
// @Failure     401  {object} handlers.ErrorResponse "Missing or invalid token"
// @Failure     429  {object} handlers.ErrorResponse "Daily quota exhausted"
// @Failure     500  {object} handlers.ErrorResponse "Pipeline failure"
// @Failure     503  {object} handlers.ErrorResponse "Quota accounting unavailable"
// @Router      /chat [post]
func (h *Handlers) Chat(c *gin.Context) {
	uid := auth.UserID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	ans, err := h.chatSvc.Ask(c.Request.Context(), uid, req.Messages)
	if err != nil {
		h.failChat(c, err)
		return
	}
	defer ans.Stream.Close()

	c.Header("X-Usage-Limit", strconv.Itoa(ans.Usage.Limit))
	c.Header("X-Usage-Remaining", strconv.Itoa(ans.Usage.Remaining))
	if ans.Degraded {
		c.Header("X-Context-Degraded", "true")
	}
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)

	streamBody(c, ans.Stream)
}

// failChat maps pipeline errors to HTTP responses. Quota denials are counted
// per tier for the /metrics endpoint.
func (h *Handlers) failChat(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrEmptyMessage):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message must not be empty")
	case errors.Is(err, services.ErrQuotaExceeded):
		var tier string
		if st, serr := h.usageSvc.GetUsageState(c.Request.Context(), auth.UserID(c)); serr == nil {
			tier = string(st.Tier)
		}
		middleware.CountQuotaDenial(tier)
		fail(c, http.StatusTooManyRequests, ErrCodeQuotaExceeded, "daily query limit reached")
	case errors.Is(err, services.ErrQuotaUnavailable):
		fail(c, http.StatusServiceUnavailable, ErrCodeQuotaUnavailable, "usage accounting unavailable, try again shortly")
	case errors.Is(err, llm.ErrNoProvider):
		fail(c, http.StatusInternalServerError, ErrCodeProviderUnconfigured, "no language model provider configured")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeAnswerFailed, "failed to generate answer")
	}
}

// streamBody copies stream chunks to the response, flushing after each write
// so clients see tokens as they arrive. A client disconnect cancels the
// request context, which both stops this loop and tears down the upstream
// completion via Recv returning an error.
func streamBody(c *gin.Context, stream llm.Stream) {
	ctx := c.Request.Context()
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			if ctx.Err() == nil {
				lg := middleware.LoggerFrom(c)
				lg.Warn().Err(err).Msg("completion stream interrupted")
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		if chunk == "" {
			continue
		}
		if _, err := c.Writer.WriteString(chunk); err != nil {
			return
		}
		c.Writer.Flush()
	}
}
