package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Chunking.Strategy != "paragraph" {
		t.Errorf("default strategy = %q, want paragraph", cfg.Chunking.Strategy)
	}
	if cfg.Sync.StaleTimeout != 10*time.Minute {
		t.Errorf("default stale timeout = %v, want 10m", cfg.Sync.StaleTimeout)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"bad port", func(c *Config) { c.Port = -1 }},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "cohere" }},
		{"empty model", func(c *Config) { c.Embedding.Model = "" }},
		{"unknown strategy", func(c *Config) { c.Chunking.Strategy = "semantic" }},
		{"zero chunk size", func(c *Config) { c.Chunking.ChunkSize = 0 }},
		{"overlap out of range", func(c *Config) { c.Chunking.Overlap = 1.0 }},
		{"zero stale timeout", func(c *Config) { c.Sync.StaleTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Embedding.Provider != ProviderOpenAI {
		t.Errorf("provider = %q, want openai", cfg.Embedding.Provider)
	}
}

func TestLoadFileAndEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".vecsync.yml")
	yaml := `
data_dir: /tmp/vecsync-data
embedding:
  provider: ollama
  model: nomic-embed-text
  dimensions: 768
chunking:
  strategy: sentence
  chunk_size: 256
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("VECSYNC_PORT", "9999")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Embedding.Provider != ProviderOllama {
		t.Errorf("provider = %q, want ollama", cfg.Embedding.Provider)
	}
	if cfg.Chunking.ChunkSize != 256 {
		t.Errorf("chunk_size = %d, want 256", cfg.Chunking.ChunkSize)
	}
	if cfg.Port != 9999 {
		t.Errorf("port = %d, want 9999 (env overlay)", cfg.Port)
	}
	// Untouched values keep their defaults.
	if cfg.Sync.StaleTimeout != 10*time.Minute {
		t.Errorf("stale timeout = %v, want default 10m", cfg.Sync.StaleTimeout)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".vecsync.yml")

	cfg := DefaultConfig()
	cfg.Port = 1234
	cfg.Chunking.Strategy = "fixed"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Port != 1234 {
		t.Errorf("port = %d, want 1234", got.Port)
	}
	if got.Chunking.Strategy != "fixed" {
		t.Errorf("strategy = %q, want fixed", got.Chunking.Strategy)
	}
}
