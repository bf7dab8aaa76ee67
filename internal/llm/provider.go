// Package llm talks to OpenAI-compatible chat-completion and embedding APIs.
// Provider selection is an explicit priority list rather than an implicit
// branch: the first provider with a configured key wins, and a request made
// with no key configured fails with ErrNoProvider before any usage is
// recorded.
package llm

import (
	"errors"

	"github.com/tbourn/go-rag-backend/internal/config"
)

// ErrNoProvider is returned when no chat-completion provider key is
// configured.
var ErrNoProvider = errors.New("no llm provider configured")

// Provider identifies one OpenAI-compatible upstream and its defaults.
type Provider struct {
	Name      string
	APIKey    string
	BaseURL   string
	ChatModel string
}

// Known upstream endpoints and their default chat models. OpenRouter is a
// multi-model gateway, so its default routes to DeepSeek for cost parity
// with the direct key.
const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	deepSeekBaseURL   = "https://api.deepseek.com/v1"
	openAIBaseURL     = "https://api.openai.com/v1"

	openRouterDefaultModel = "deepseek/deepseek-chat"
	deepSeekDefaultModel   = "deepseek-chat"
	openAIDefaultModel     = "gpt-4o-mini"
)

// ResolveProvider picks the chat-completion provider by priority:
// OpenRouter, then DeepSeek, then OpenAI. cfg.ChatModel overrides the
// provider default when set.
func ResolveProvider(cfg config.LLMConfig) (Provider, error) {
	var p Provider
	switch {
	case cfg.OpenRouterKey != "":
		p = Provider{Name: "openrouter", APIKey: cfg.OpenRouterKey, BaseURL: openRouterBaseURL, ChatModel: openRouterDefaultModel}
	case cfg.DeepSeekKey != "":
		p = Provider{Name: "deepseek", APIKey: cfg.DeepSeekKey, BaseURL: deepSeekBaseURL, ChatModel: deepSeekDefaultModel}
	case cfg.OpenAIKey != "":
		p = Provider{Name: "openai", APIKey: cfg.OpenAIKey, BaseURL: openAIBaseURL, ChatModel: openAIDefaultModel}
	default:
		return Provider{}, ErrNoProvider
	}
	if cfg.ChatModel != "" {
		p.ChatModel = cfg.ChatModel
	}
	return p, nil
}

// ResolveEmbeddingProvider picks the provider for embeddings. Embeddings
// require an OpenAI key when available (the embedding models live there);
// otherwise the chat provider's gateway is used, which proxies embedding
// models too.
func ResolveEmbeddingProvider(cfg config.LLMConfig) (Provider, error) {
	if cfg.OpenAIKey != "" {
		return Provider{Name: "openai", APIKey: cfg.OpenAIKey, BaseURL: openAIBaseURL}, nil
	}
	if cfg.OpenRouterKey != "" {
		return Provider{Name: "openrouter", APIKey: cfg.OpenRouterKey, BaseURL: openRouterBaseURL}, nil
	}
	return Provider{}, ErrNoProvider
}
