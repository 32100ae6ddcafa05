package config

import "time"

// DefaultExcludes are glob patterns excluded from collection listings by default.
var DefaultExcludes = []string{
	".*",
	".*/**",
	"*.lock",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir: ".vecsync",
		Port:    8420,
		Embedding: EmbeddingConfig{
			Provider: ProviderOpenAI,
			Model:    "text-embedding-3-small",
			Timeout:  30 * time.Second,
		},
		Chunking: ChunkingConfig{
			Strategy:   "paragraph",
			ChunkSize:  1000,
			WindowSize: 800,
			Overlap:    0.2,
		},
		Sync: SyncConfig{
			StaleTimeout:  10 * time.Minute,
			SweepInterval: time.Minute,
			MaxFileSize:   1 << 20,
		},
		Include: []string{"**"},
		Exclude: DefaultExcludes,
	}
}
