package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"reviewrag/internal/chunker"
	"reviewrag/internal/config"
	"reviewrag/internal/domain"
	"reviewrag/internal/embedding"
	"reviewrag/internal/index"
	"reviewrag/internal/ingest"
	"reviewrag/internal/vectorstore"
)

// Pipeline runs the offline stages. Each stage reads the previous stage's
// artifact from disk, so stages can be rerun independently.
type Pipeline struct {
	cfg *config.AppConfig
}

// NewPipeline returns a pipeline over cfg's data paths.
func NewPipeline(cfg *config.AppConfig) *Pipeline {
	return &Pipeline{cfg: cfg}
}

// NewChunker builds the configured chunker.
func NewChunker(cfg config.ChunkerConfig) (chunker.Chunker, error) {
	switch cfg.Type {
	case "word", "":
		c, err := chunker.NewWordChunker(cfg.WindowWords, cfg.OverlapWords,
			chunker.WithMinDocWords(cfg.MinDocWords),
			chunker.WithMinChunkChars(cfg.MinChunkChars),
		)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "sentence":
		c, err := chunker.NewSentenceChunker(cfg.SentencesPerChunk, cfg.OverlapSentences,
			chunker.WithMinDocWords(cfg.MinDocWords),
			chunker.WithMinChunkChars(cfg.MinChunkChars),
		)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: unknown chunker type %q", domain.ErrConfiguration, cfg.Type)
	}
}

func (p *Pipeline) paths() vectorstore.Paths {
	return vectorstore.Paths{Matrix: p.cfg.Data.EmbeddingsPath, Metadata: p.cfg.Data.MetadataPath}
}

// Chunk reads the raw reviews and writes the chunk file.
func (p *Pipeline) Chunk(ctx context.Context) (chunker.Stats, error) {
	c, err := NewChunker(p.cfg.Chunker)
	if err != nil {
		return chunker.Stats{}, err
	}
	opts := ingest.Options{Limit: p.cfg.Data.Limit}
	if p.cfg.Data.MetaPath != "" {
		names, err := ingest.LoadProductNames(p.cfg.Data.MetaPath)
		if err != nil {
			return chunker.Stats{}, err
		}
		opts.Names = names
	}
	docs := ingest.ReadFile(ctx, p.cfg.Data.ReviewsPath, opts)
	return chunker.WriteChunkFile(ctx, p.cfg.Data.ChunksPath, c, docs)
}

// Embed embeds the chunk file and saves the embedding matrix and metadata.
// Embedders with fitted state are refitted and saved to the model path.
func (p *Pipeline) Embed(ctx context.Context) (*vectorstore.Store, error) {
	chunks, err := chunker.ReadChunkFile(p.cfg.Data.ChunksPath)
	if err != nil {
		return nil, err
	}
	emb, err := embedding.New(ctx, p.cfg.Embedder, "")
	if err != nil {
		return nil, err
	}
	store, err := embedding.EmbedChunks(ctx, emb, chunks, p.cfg.Embedder.BatchSize)
	if err != nil {
		return nil, err
	}
	// the model goes first so saved vectors never outlive their vocabulary
	if s, ok := emb.(embedding.Saver); ok {
		if err := s.Save(p.cfg.Data.ModelPath); err != nil {
			return nil, fmt.Errorf("save %s model: %w", emb.Name(), err)
		}
	}
	if err := store.Save(p.paths()); err != nil {
		return nil, err
	}
	return store, nil
}

// BuildIndex builds the flat index over the saved embeddings.
func (p *Pipeline) BuildIndex(ctx context.Context) (*index.Flat, error) {
	start := time.Now()
	store, err := vectorstore.Load(p.paths())
	if err != nil {
		return nil, err
	}
	idx, err := index.Build(store.Matrix())
	if err != nil {
		return nil, err
	}
	if err := idx.Save(p.cfg.Data.IndexPath); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("index built",
		zap.Int("vectors", idx.Len()),
		zap.Int("dimension", idx.Dimension()),
		zap.String("path", p.cfg.Data.IndexPath),
		zap.Duration("elapsed", time.Since(start)),
	)
	return idx, nil
}

// Run executes every stage in order.
func (p *Pipeline) Run(ctx context.Context) error {
	if _, err := p.Chunk(ctx); err != nil {
		return fmt.Errorf("chunk: %w", err)
	}
	if _, err := p.Embed(ctx); err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if _, err := p.BuildIndex(ctx); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	return nil
}
