package generation

import (
	"context"
	"fmt"

	"reviewrag/internal/config"
	"reviewrag/internal/domain"
)

// New builds the configured generator wrapped with the configured timeout.
func New(ctx context.Context, cfg config.GeneratorConfig) (Generator, error) {
	var g Generator
	switch cfg.Type {
	case "extractive", "":
		g = NewExtractive(cfg.MaxSentences)
	case "openai":
		if cfg.OpenAI == nil {
			return nil, configErr("openai generator config missing")
		}
		o, err := NewOpenAI(OpenAIConfig{
			BaseURL:     cfg.OpenAI.BaseURL,
			APIKeyEnv:   cfg.OpenAI.APIKeyEnv,
			Model:       cfg.OpenAI.Model,
			Temperature: cfg.OpenAI.Temperature,
			MaxTokens:   cfg.OpenAI.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		g = o
	case "ollama":
		if cfg.Ollama == nil {
			return nil, configErr("ollama generator config missing")
		}
		g = NewOllama(OllamaConfig{BaseURL: cfg.Ollama.BaseURL, Model: cfg.Ollama.Model})
	case "gemini":
		if cfg.Gemini == nil {
			return nil, configErr("gemini generator config missing")
		}
		gm, err := NewGemini(ctx, GeminiConfig{APIKeyEnv: cfg.Gemini.APIKeyEnv, Model: cfg.Gemini.Model, MaxTokens: 512})
		if err != nil {
			return nil, err
		}
		g = gm
	default:
		return nil, configErr("unknown generator: %s", cfg.Type)
	}
	return WithTimeout(g, cfg.Timeout()), nil
}

func configErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrConfiguration, fmt.Sprintf(format, args...))
}
