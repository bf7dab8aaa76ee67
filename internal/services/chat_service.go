// Package services contains the application logic behind the HTTP layer.
//
// This file implements the RAG pipeline behind POST /api/chat: validate the
// conversation, gate usage, embed the latest message, retrieve similar
// regulation passages, assemble a cited system prompt, and hand back a
// completion stream for the transport layer to relay.
//
// Retrieval failure intentionally degrades to an uncited answer instead of
// failing the request; the degrade is logged, counted, and surfaced to the
// handler so clients can tell the difference.
package services

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-rag-backend/internal/llm"
	"github.com/tbourn/go-rag-backend/internal/search"
)

// retrievalDegrades counts chat requests answered with an empty context
// after a retrieval failure.
var retrievalDegrades = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "chat_retrieval_degraded_total",
	Help: "Chat requests served without retrieved context after a retrieval failure.",
})

func init() {
	prometheus.MustRegister(retrievalDegrades)
}

// Answer is a prepared completion stream plus the metadata the handler
// exposes as response headers.
type Answer struct {
	Stream   llm.Stream
	Usage    UsageState
	Sources  []search.Result
	Degraded bool // retrieval failed; answer carries no context
}

// ChatService orchestrates the retrieval-augmented chat pipeline.
type ChatService struct {
	Usage     *UsageService
	LLM       llm.Client
	Retriever search.Retriever

	Threshold  float64
	MatchCount int
	SiteName   string

	// MaxPromptRunes caps the latest message length; 0 disables the cap.
	MaxPromptRunes int
}

// LatestMessage returns the trimmed content of the last message, or "" when
// the conversation is empty or ends with a blank message.
func LatestMessage(messages []llm.Message) string {
	if len(messages) == 0 {
		return ""
	}
	return strings.TrimSpace(messages[len(messages)-1].Content)
}

// Ask runs the full pipeline for an authenticated user. Validation failures
// and quota denials return before any upstream call; the usage counter is
// only incremented for requests that will reach the model.
func (s *ChatService) Ask(ctx context.Context, userID string, messages []llm.Message) (*Answer, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Ask",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	prompt := LatestMessage(messages)
	if prompt == "" {
		return nil, ErrEmptyMessage
	}
	if s.LLM == nil {
		return nil, llm.ErrNoProvider
	}
	if s.MaxPromptRunes > 0 && len([]rune(prompt)) > s.MaxPromptRunes {
		prompt = string([]rune(prompt)[:s.MaxPromptRunes])
	}

	// Gate before any paid upstream call. The increment is not rolled back
	// if a later step fails; a failed request still spent model budget.
	usage, err := s.Usage.CheckAndIncrement(ctx, userID)
	if err != nil {
		return nil, err
	}

	results, degraded := s.retrieve(ctx, prompt)
	span.SetAttributes(
		attribute.Int("retrieval.results", len(results)),
		attribute.Bool("retrieval.degraded", degraded),
	)

	system := search.SystemPrompt(s.SiteName, search.BuildContext(results))
	outbound := make([]llm.Message, 0, len(messages)+1)
	outbound = append(outbound, llm.Message{Role: llm.RoleSystem, Content: system})
	for _, m := range messages {
		if m.Role != llm.RoleUser && m.Role != llm.RoleAssistant {
			continue
		}
		outbound = append(outbound, m)
	}

	stream, err := s.LLM.ChatStream(ctx, outbound)
	if err != nil {
		return nil, err
	}

	return &Answer{Stream: stream, Usage: usage, Sources: results, Degraded: degraded}, nil
}

// retrieve embeds the prompt and runs the similarity search. Any failure
// degrades to an empty result set rather than failing the request.
func (s *ChatService) retrieve(ctx context.Context, prompt string) (results []search.Result, degraded bool) {
	embedding, err := s.LLM.Embed(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Msg("embedding failed; answering without context")
		retrievalDegrades.Inc()
		return nil, true
	}

	results, err = s.Retriever.Match(ctx, embedding, s.Threshold, s.MatchCount)
	if err != nil {
		log.Warn().Err(err).Msg("vector search failed; answering without context")
		retrievalDegrades.Inc()
		return nil, true
	}
	return results, false
}
