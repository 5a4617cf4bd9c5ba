package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"pdf-rag/internal/config"
	"pdf-rag/internal/models"
)

// Provider is a langchaingo backend usable both for completions and embeddings.
type Provider interface {
	llms.Model
	embeddings.EmbedderClient
}

// NewProvider builds the langchaingo client for the configured provider.
func NewProvider(ctx context.Context, llmConfig *config.LLMConfig) (Provider, error) {
	log.Debug().
		Str("provider", llmConfig.Provider).
		Str("base_url", llmConfig.BaseURL).
		Str("model", llmConfig.Model).
		Msg("Creating LLM client")

	switch llmConfig.Provider {
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(llmConfig.Model)}
		if llmConfig.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(llmConfig.BaseURL))
		}
		return ollama.New(opts...)
	case "openai":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
			openai.WithModel(llmConfig.Model),
			openai.WithEmbeddingModel(llmConfig.Model),
		}
		if llmConfig.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
		}
		return openai.New(opts...)
	case "googleai":
		return googleai.New(ctx,
			googleai.WithAPIKey(llmConfig.Key),
			googleai.WithDefaultModel(llmConfig.Model),
			googleai.WithDefaultEmbeddingModel(llmConfig.Model),
		)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", llmConfig.Provider)
	}
}

// Client generates answers from an assembled prompt.
type Client struct {
	llm llms.Model
}

func NewClient(llm llms.Model) *Client {
	return &Client{llm: llm}
}

// GenerateAnswer sends the prompt to the model. Failures are returned as
// errors wrapping models.ErrAnswerGeneration, never as answer text.
func (c *Client) GenerateAnswer(ctx context.Context, prompt string) (string, error) {
	log.Debug().Int("prompt_len", len(prompt)).Msg("Generating answer")

	answer, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrAnswerGeneration, err)
	}
	return answer, nil
}
