package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"reviewrag/internal/config"
	"reviewrag/internal/domain"
	"reviewrag/internal/embedding/gemini"
	"reviewrag/internal/embedding/openai"
	"reviewrag/internal/embedding/tfidf"
)

// Saver is implemented by embedders whose fitted state must be persisted
// next to the index.
type Saver interface {
	Save(path string) error
}

// New builds the configured embedder. A tfidf embedder is loaded from
// modelPath when that file exists and is returned unfitted otherwise.
func New(ctx context.Context, cfg config.EmbedderConfig, modelPath string) (Embedder, error) {
	switch cfg.Type {
	case "tfidf", "":
		if modelPath != "" {
			if _, err := os.Stat(modelPath); err == nil {
				e, err := tfidf.Load(modelPath)
				if err != nil {
					return nil, err
				}
				return e, nil
			} else if !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
		}
		return tfidf.NewEmbedder(), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("%w: openai embedder config missing", domain.ErrConfiguration)
		}
		c, err := openai.NewClient(openai.Config{
			BaseURL:           cfg.OpenAI.BaseURL,
			APIKeyEnv:         cfg.OpenAI.APIKeyEnv,
			Model:             cfg.OpenAI.Model,
			Timeout:           time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			MaxRetries:        cfg.OpenAI.MaxRetries,
			RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case "gemini":
		if cfg.Gemini == nil {
			return nil, fmt.Errorf("%w: gemini embedder config missing", domain.ErrConfiguration)
		}
		g, err := gemini.New(ctx, gemini.Config{APIKeyEnv: cfg.Gemini.APIKeyEnv, Model: cfg.Gemini.Model})
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("%w: unknown embedder: %s", domain.ErrConfiguration, cfg.Type)
	}
}
