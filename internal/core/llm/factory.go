package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/markdave123-py/Memora/internal/config"
	"github.com/markdave123-py/Memora/internal/core"
	"github.com/markdave123-py/Memora/internal/core/embed"
)

// NewEmbeddingProvider builds the embedding backend named by EMBED_PROVIDER.
// "local" runs entirely offline on the deterministic fallback embedder.
func NewEmbeddingProvider(ctx context.Context, cfg *config.Config) (core.EmbeddingProvider, error) {
	limiter := newLimiter(cfg.ProviderRPS)

	switch cfg.EmbedProvider {
	case "gemini":
		return NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbedModel, cfg.EmbedDim, limiter)
	case "openai":
		return NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbedModel, cfg.EmbedDim, limiter), nil
	case "local":
		return embed.NewFallbackProvider(cfg.EmbedDim), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbedProvider)
	}
}

// NewLLMProvider builds the completion backend named by LLM_PROVIDER.
func NewLLMProvider(ctx context.Context, cfg *config.Config) (core.LLMProvider, error) {
	limiter := newLimiter(cfg.ProviderRPS)

	switch cfg.LLMProvider {
	case "gemini":
		return NewGeminiLLM(ctx, cfg.GeminiAPIKey, cfg.GenModel, limiter)
	case "openai":
		return NewOpenAILLM(cfg.OpenAIAPIKey, cfg.GenModel, limiter), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}
