package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"reviewrag/internal/domain"
	"reviewrag/internal/vectorstore"
)

// DefaultBatchSize is used when EmbedChunks receives a non-positive size.
const DefaultBatchSize = 32

// EmbedChunks embeds every chunk in order and returns the aligned store.
// Embedders implementing Preparer are fitted on the chunk texts first.
// Any embedding error aborts the whole run; remote embedders are expected
// to have retried before returning one.
func EmbedChunks(ctx context.Context, e Embedder, chunks []domain.Chunk, batchSize int) (*vectorstore.Store, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no chunks to embed", domain.ErrConfiguration)
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	logger := logutil.GetLogger(ctx).With(zap.String("embedder", e.Name()))
	start := time.Now()

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	if p, ok := e.(Preparer); ok {
		if err := p.Prepare(ctx, texts); err != nil {
			return nil, wrapEmbedding(err, "prepare")
		}
		logger.Info("embedder prepared", zap.Int("dimension", e.Dimension()))
	}

	var store *vectorstore.Store
	for lo := 0; lo < len(chunks); lo += batchSize {
		hi := min(lo+batchSize, len(chunks))
		vecs, err := embedBatch(ctx, e, texts[lo:hi])
		if err != nil {
			return nil, wrapEmbedding(err, fmt.Sprintf("chunks %d-%d", lo, hi-1))
		}
		if len(vecs) != hi-lo {
			return nil, fmt.Errorf("%w: batch returned %d vectors for %d texts", domain.ErrEmbedding, len(vecs), hi-lo)
		}
		for i, vec := range vecs {
			if store == nil {
				if store, err = vectorstore.New(len(vec)); err != nil {
					return nil, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
				}
			}
			if err := store.Append(vec, chunks[lo+i]); err != nil {
				return nil, fmt.Errorf("%w: chunk %s: %w", domain.ErrEmbedding, chunks[lo+i].ChunkID, err)
			}
		}
		logger.Debug("embedded batch", zap.Int("done", hi), zap.Int("total", len(chunks)))
	}
	logger.Info("embedding finished",
		zap.Int("vectors", store.Len()),
		zap.Int("dimension", store.Dimension()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return store, nil
}

func embedBatch(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	if b, ok := e.(BatchEmbedder); ok {
		return b.EmbedBatch(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func wrapEmbedding(err error, what string) error {
	if errors.Is(err, domain.ErrEmbedding) {
		return fmt.Errorf("%s: %w", what, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrEmbedding, what, err)
}
