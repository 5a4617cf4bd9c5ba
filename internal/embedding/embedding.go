package embedding

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"golang.org/x/time/rate"

	"pdf-rag/internal/config"
	"pdf-rag/internal/llmservice"
)

// Embedder maps text to a vector. langchaingo's EmbedderImpl satisfies it.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// NewEmbedder creates the embedder for the configured provider, throttled
// when requests_per_second is set.
func NewEmbedder(ctx context.Context, llmConfig *config.LLMConfig) (Embedder, error) {
	provider, err := llmservice.NewProvider(ctx, llmConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	if llmConfig.RequestsPerSecond > 0 {
		log.Info().
			Float64("rps", llmConfig.RequestsPerSecond).
			Int("burst", llmConfig.Burst).
			Msg("Throttling embedding requests")
		return NewRateLimited(embedder, llmConfig.RequestsPerSecond, llmConfig.Burst), nil
	}
	return embedder, nil
}

// RateLimited waits on a token bucket before every call to the wrapped embedder.
type RateLimited struct {
	next    Embedder
	limiter *rate.Limiter
}

func NewRateLimited(next Embedder, rps float64, burst int) *RateLimited {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (r *RateLimited) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding rate limit: %w", err)
	}
	return r.next.EmbedQuery(ctx, text)
}
