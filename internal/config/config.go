package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (VECSYNC_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: VECSYNC_PORT -> port,
	// VECSYNC_EMBEDDING_PROVIDER -> embedding.provider, etc.
	if err := k.Load(env.Provider("VECSYNC_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "VECSYNC_")), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validProviders is the set of recognized embedding provider values.
var validProviders = map[EmbeddingProvider]bool{
	ProviderOpenAI: true,
	ProviderOllama: true,
}

// validStrategies is the set of recognized chunking strategy values.
var validStrategies = map[string]bool{
	"sentence":  true,
	"paragraph": true,
	"fixed":     true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}

	if !validProviders[c.Embedding.Provider] {
		return fmt.Errorf("invalid embedding provider %q: must be one of openai, ollama", c.Embedding.Provider)
	}

	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding model is required")
	}

	if !validStrategies[c.Chunking.Strategy] {
		return fmt.Errorf("invalid chunking strategy %q: must be one of sentence, paragraph, fixed", c.Chunking.Strategy)
	}

	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive")
	}

	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= 1 {
		return fmt.Errorf("overlap must be in [0, 1)")
	}

	if c.Sync.StaleTimeout <= 0 {
		return fmt.Errorf("stale_timeout must be positive")
	}

	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider EmbeddingProvider) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}
