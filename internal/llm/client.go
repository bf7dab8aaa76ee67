package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tbourn/go-rag-backend/internal/config"
)

// Message is one turn of a conversation, provider-agnostic.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Recognized message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Stream delivers completion text incrementally. Recv returns io.EOF when
// the upstream signals completion; Close releases the connection and must be
// called even on error paths.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Client is the LLM surface consumed by services: one embedding call and one
// streamed completion call. Implementations must honor ctx cancellation so a
// client disconnect tears down the upstream request.
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ChatStream(ctx context.Context, messages []Message) (Stream, error)
}

// OpenAIClient implements Client over any OpenAI-compatible API. Chat and
// embeddings may resolve to different providers (see ResolveProvider and
// ResolveEmbeddingProvider).
type OpenAIClient struct {
	chat           *openai.Client
	chatModel      string
	embed          *openai.Client
	embedModel     string
	embedDimension int
}

// NewOpenAIClient resolves providers from cfg and returns a ready client, or
// ErrNoProvider when no key is configured.
func NewOpenAIClient(cfg config.LLMConfig) (*OpenAIClient, error) {
	chatProv, err := ResolveProvider(cfg)
	if err != nil {
		return nil, err
	}
	embedProv, err := ResolveEmbeddingProvider(cfg)
	if err != nil {
		return nil, err
	}

	chatCfg := openai.DefaultConfig(chatProv.APIKey)
	chatCfg.BaseURL = chatProv.BaseURL
	embedCfg := openai.DefaultConfig(embedProv.APIKey)
	embedCfg.BaseURL = embedProv.BaseURL

	return &OpenAIClient{
		chat:           openai.NewClientWithConfig(chatCfg),
		chatModel:      chatProv.ChatModel,
		embed:          openai.NewClientWithConfig(embedCfg),
		embedModel:     cfg.EmbeddingModel,
		embedDimension: cfg.EmbeddingDim,
	}, nil
}

// Embed returns the embedding vector for text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.embed.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.embedModel),
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("empty embedding returned")
	}
	vec := resp.Data[0].Embedding
	if c.embedDimension > 0 && len(vec) != c.embedDimension {
		return nil, fmt.Errorf("embedding dimension %d, want %d", len(vec), c.embedDimension)
	}
	return vec, nil
}

// ChatStream starts a streamed completion for messages. The returned stream
// yields raw text deltas in arrival order.
func (c *OpenAIClient) ChatStream(ctx context.Context, messages []Message) (Stream, error) {
	req := openai.ChatCompletionRequest{
		Model:  c.chatModel,
		Stream: true,
	}
	req.Messages = make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	s, err := c.chat.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create chat completion stream: %w", err)
	}
	return &openaiStream{inner: s}, nil
}

// openaiStream adapts the SDK stream to the package Stream interface,
// flattening choice deltas to plain text.
type openaiStream struct {
	inner *openai.ChatCompletionStream
}

// Recv returns the next text delta, or io.EOF at end of stream. Empty deltas
// (role frames, finish frames) are skipped.
func (s *openaiStream) Recv() (string, error) {
	for {
		resp, err := s.inner.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			return delta, nil
		}
	}
}

// Close releases the underlying connection.
func (s *openaiStream) Close() error { return s.inner.Close() }
