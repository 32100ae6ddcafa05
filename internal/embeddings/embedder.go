package embeddings

import (
	"context"
	"fmt"
	"os"

	"github.com/ziadkadry99/vecsync/internal/config"
)

// Embedder defines the interface for generating text embeddings.
type Embedder interface {
	// Embed generates embeddings for one or more texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// NewFromConfig builds an Embedder from configuration. It returns an error
// when the provider is unknown or its credentials are missing, so callers can
// fail fast before starting a sync.
func NewFromConfig(cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("embedding provider openai: %s is not set", config.APIKeyEnvVar(config.ProviderOpenAI))
		}
		return NewOpenAIEmbedder(apiKey, OpenAIModel(cfg.Model)), nil
	case config.ProviderOllama:
		dims := cfg.Dimensions
		if dims <= 0 {
			dims = 768
		}
		return NewOllamaEmbedder(cfg.Model, dims, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
