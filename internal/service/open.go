package service

import (
	"context"
	"fmt"
	"time"

	"reviewrag/internal/assembler"
	"reviewrag/internal/config"
	"reviewrag/internal/domain"
	"reviewrag/internal/embedding"
	"reviewrag/internal/generation"
	"reviewrag/internal/retriever"
	"reviewrag/internal/tokenizer"
)

type preparedChecker interface {
	Prepared() bool
}

// QueryEmbedder builds the embedder used at query time. Fitted embedders
// must find their model on disk, and repeated questions hit the cache.
func QueryEmbedder(ctx context.Context, cfg *config.AppConfig) (embedding.Embedder, error) {
	emb, err := embedding.New(ctx, cfg.Embedder, cfg.Data.ModelPath)
	if err != nil {
		return nil, err
	}
	if p, ok := emb.(preparedChecker); ok && !p.Prepared() {
		return nil, fmt.Errorf("%w: %s model %s not found, run the embed stage first", domain.ErrConfiguration, emb.Name(), cfg.Data.ModelPath)
	}
	return embedding.WithCache(emb, cfg.Embedder.CacheSize, time.Duration(cfg.Embedder.CacheTTLSecs)*time.Second), nil
}

// OpenRetriever loads the index artifacts named by cfg.
func OpenRetriever(ctx context.Context, cfg *config.AppConfig) (*retriever.Retriever, error) {
	emb, err := QueryEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return retriever.Open(emb, cfg.Data.IndexPath, cfg.Data.MetadataPath)
}

// Open builds a Service from the artifacts and collaborators named by cfg.
// The returned service reloads through the same configuration.
func Open(ctx context.Context, cfg *config.AppConfig) (*Service, error) {
	r, err := OpenRetriever(ctx, cfg)
	if err != nil {
		return nil, err
	}
	tok, err := tokenizer.New(cfg.Context.Tokenizer, cfg.Context.Model)
	if err != nil {
		return nil, err
	}
	gen, err := generation.New(ctx, cfg.Generator)
	if err != nil {
		return nil, err
	}
	loader := func(ctx context.Context) (Retriever, error) {
		r, err := OpenRetriever(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	return New(r, assembler.New(tok, cfg.Context.MaxTokens, cfg.Context.MinPartialTokens), gen,
		WithTopK(cfg.Retriever.TopK),
		WithLoader(loader),
	)
}
