// Package retriever answers k-nearest-neighbour queries over the review
// index and joins hits back to their chunk metadata.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"reviewrag/internal/domain"
	"reviewrag/internal/embedding"
	"reviewrag/internal/index"
	"reviewrag/internal/vectorstore"
)

// Retriever is immutable after construction and safe for concurrent use.
type Retriever struct {
	emb    embedding.Embedder
	idx    *index.Flat
	chunks []domain.Chunk
}

// New pairs an index with its metadata. Row i of idx must describe
// chunks[i]; a count mismatch is a configuration error.
func New(emb embedding.Embedder, idx *index.Flat, chunks []domain.Chunk) (*Retriever, error) {
	if emb == nil || idx == nil {
		return nil, fmt.Errorf("%w: retriever needs an embedder and an index", domain.ErrConfiguration)
	}
	if idx.Len() != len(chunks) {
		return nil, fmt.Errorf("%w: index has %d vectors but metadata has %d records", domain.ErrConfiguration, idx.Len(), len(chunks))
	}
	if d := emb.Dimension(); d != 0 && idx.Len() > 0 && d != idx.Dimension() {
		return nil, fmt.Errorf("%w: embedder %s produces %d dimensions, index has %d", domain.ErrConfiguration, emb.Name(), d, idx.Dimension())
	}
	return &Retriever{emb: emb, idx: idx, chunks: chunks}, nil
}

// Open loads the index and metadata artifacts.
func Open(emb embedding.Embedder, indexPath, metadataPath string) (*Retriever, error) {
	idx, err := index.Load(indexPath)
	if err != nil {
		return nil, err
	}
	chunks, err := vectorstore.LoadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}
	return New(emb, idx, chunks)
}

// Len returns the number of indexed chunks.
func (r *Retriever) Len() int { return len(r.chunks) }

// Retrieve embeds query and returns up to k chunks ordered by ascending
// distance, lower ids first on ties. k larger than the index returns every
// chunk.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) (domain.Results, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", domain.ErrConfiguration, k)
	}
	if r.idx.Len() == 0 {
		return domain.Results{}, nil
	}
	start := time.Now()
	vec, err := r.emb.Embed(ctx, query)
	if err != nil {
		if !errors.Is(err, domain.ErrEmbedding) {
			err = fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
		}
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrRetrieval, err)
	}
	hits, err := r.idx.Search(vec, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRetrieval, err)
	}
	out := make(domain.Results, len(hits))
	for i, h := range hits {
		if h.ID < 0 || h.ID >= len(r.chunks) {
			return nil, fmt.Errorf("%w: index returned id %d outside metadata of %d records", domain.ErrConfiguration, h.ID, len(r.chunks))
		}
		out[i] = domain.SearchResult{ID: h.ID, Distance: h.Distance, Chunk: r.chunks[h.ID].WithPlaceholders()}
	}
	logutil.GetLogger(ctx).Debug("retrieved",
		zap.Int("k", k),
		zap.Int("results", len(out)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}
