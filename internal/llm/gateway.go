package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"docutor/internal/config"
)

type gateway struct {
	chat       Provider
	embed      Provider
	chatModel  string
	embedModel string
	maxRetries int
}

// NewGateway builds the chat and embedding providers named by configuration.
// The provider families form a closed set; anything else is a construction
// error, so invalid configuration dies at startup rather than per request.
func NewGateway(cfg config.LLMConfig, emb config.EmbeddingConfig) (Gateway, error) {
	chat, err := buildProvider(cfg.Provider, cfg)
	if err != nil {
		return nil, fmt.Errorf("chat provider: %w", err)
	}

	embedP, err := buildProvider(emb.Provider, cfg)
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}

	return &gateway{
		chat:       chat,
		embed:      embedP,
		chatModel:  cfg.Model,
		embedModel: emb.Model,
		maxRetries: cfg.MaxRetries,
	}, nil
}

func buildProvider(family string, cfg config.LLMConfig) (Provider, error) {
	switch family {
	case "openai":
		return NewOpenAIProvider(cfg.OpenAIKey), nil
	case "groq":
		return NewGroqProvider(cfg.GroqKey), nil
	case "anthropic":
		return NewAnthropicProvider(cfg.AnthropicKey), nil
	case "ollama":
		return NewOllamaProvider(cfg.OllamaURL), nil
	default:
		return nil, fmt.Errorf("unsupported provider family %q", family)
	}
}

func (g *gateway) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.Model == "" {
		req.Model = g.chatModel
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			slog.Debug("retrying LLM call", "provider", g.chat.Name(), "attempt", attempt)
		}

		resp, err := g.chat.ChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all retries exhausted for %s: %w", g.chat.Name(), lastErr)
}

func (g *gateway) Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	if req.Model == "" {
		req.Model = g.embedModel
	}
	return g.embed.GenerateEmbedding(ctx, req)
}
