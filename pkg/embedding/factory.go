package embedding

import "fmt"

type FactoryConfig struct {
	Provider      string
	Model         string
	Dimensions    int
	OllamaBaseURL string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

func NewProvider(cfg FactoryConfig) (EmbeddingProvider, error) {
	switch cfg.Provider {
	case "ollama":
		return NewOllamaProvider(cfg.OllamaBaseURL, cfg.Model), nil
	case "openai":
		return NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Model, cfg.Dimensions), nil
	case "hash", "":
		return NewHashProvider(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
