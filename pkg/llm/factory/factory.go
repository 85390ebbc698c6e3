package factory

import (
	"fmt"

	"corp-tax-agent-be/pkg/llm"
	"corp-tax-agent-be/pkg/llm/ollama"
	"corp-tax-agent-be/pkg/llm/openai"
)

type Config struct {
	Provider      string
	Model         string
	OllamaBaseURL string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

// NewLLMProvider returns nil with no error when Provider is "none", which
// leaves intent extraction to keyword rules.
func NewLLMProvider(cfg Config) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "ollama":
		baseURL := cfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model), nil
	case "openai":
		return openai.NewProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Model), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
