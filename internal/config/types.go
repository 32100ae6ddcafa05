package config

import "time"

// EmbeddingProvider identifies an embedding backend.
type EmbeddingProvider string

const (
	ProviderOpenAI EmbeddingProvider = "openai"
	ProviderOllama EmbeddingProvider = "ollama"
)

// Config is the top-level vecsync configuration, corresponding to .vecsync.yml.
type Config struct {
	DataDir   string          `yaml:"data_dir" koanf:"data_dir"`
	Port      int             `yaml:"port" koanf:"port"`
	Embedding EmbeddingConfig `yaml:"embedding" koanf:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking" koanf:"chunking"`
	Sync      SyncConfig      `yaml:"sync" koanf:"sync"`
	Include   []string        `yaml:"include" koanf:"include"`
	Exclude   []string        `yaml:"exclude" koanf:"exclude"`
}

// EmbeddingConfig selects and tunes the embedding backend.
type EmbeddingConfig struct {
	Provider EmbeddingProvider `yaml:"provider" koanf:"provider"`
	Model    string            `yaml:"model" koanf:"model"`
	BaseURL  string            `yaml:"base_url" koanf:"base_url"`
	// Dimensions is only needed for providers that cannot report it (ollama).
	Dimensions int           `yaml:"dimensions" koanf:"dimensions"`
	Timeout    time.Duration `yaml:"timeout" koanf:"timeout"`
}

// ChunkingConfig holds default chunking parameters. The strategy can be
// overridden per sync request.
type ChunkingConfig struct {
	Strategy   string  `yaml:"strategy" koanf:"strategy"`
	ChunkSize  int     `yaml:"chunk_size" koanf:"chunk_size"`
	WindowSize int     `yaml:"window_size" koanf:"window_size"`
	Overlap    float64 `yaml:"overlap" koanf:"overlap"`
}

// SyncConfig tunes the sync orchestrator.
type SyncConfig struct {
	StaleTimeout  time.Duration `yaml:"stale_timeout" koanf:"stale_timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval" koanf:"sweep_interval"`
	MaxFileSize   int64         `yaml:"max_file_size" koanf:"max_file_size"`
}
