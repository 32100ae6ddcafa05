package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to the given path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to vecsync! Let's configure your instance.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Embedding provider.
	providerPrompt := promptui.Select{
		Label: "Select embedding provider",
		Items: []string{"openai", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Embedding.Provider = EmbeddingProvider(providerStr)

	// 2. Embedding model.
	defaultModel := "text-embedding-3-small"
	if cfg.Embedding.Provider == ProviderOllama {
		defaultModel = "nomic-embed-text"
		cfg.Embedding.Dimensions = 768
	}
	modelPrompt := promptui.Prompt{
		Label:   "Embedding model",
		Default: defaultModel,
	}
	model, err := modelPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("model selection: %w", err)
	}
	cfg.Embedding.Model = model

	// 3. Default chunking strategy.
	strategyPrompt := promptui.Select{
		Label: "Default chunking strategy",
		Items: []string{
			"paragraph - split on blank lines, oversize paragraphs by sentence",
			"sentence  - pack sentences up to the chunk size",
			"fixed     - fixed-size windows with overlap",
		},
	}
	strategyIdx, _, err := strategyPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("strategy selection: %w", err)
	}
	cfg.Chunking.Strategy = []string{"paragraph", "sentence", "fixed"}[strategyIdx]

	// 4. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory",
		Default: cfg.DataDir,
	}
	dataDir, err := dataPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	cfg.DataDir = dataDir

	// 5. Server port.
	portPrompt := promptui.Prompt{
		Label:   "Server port",
		Default: strconv.Itoa(cfg.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("invalid port")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Port, _ = strconv.Atoi(portStr)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.Save(path); err != nil {
		return nil, err
	}
	fmt.Printf("\nConfiguration saved to %s\n", path)

	if cfg.Embedding.Provider == ProviderOpenAI && os.Getenv(APIKeyEnvVar(ProviderOpenAI)) == "" {
		fmt.Printf("Note: %s is not set; set it before running a sync.\n", APIKeyEnvVar(ProviderOpenAI))
	}

	return cfg, nil
}
