// Package embedding maps text to dense vectors. The same Embedder value is
// used to build the corpus matrix and to embed queries.
package embedding

import "context"

// Embedder converts free text into a numeric vector representation.
// Dimension may report 0 until the first vector has been produced.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Preparer is implemented by embedders that must be fitted on the corpus
// before use.
type Preparer interface {
	Prepare(ctx context.Context, corpus []string) error
}

// BatchEmbedder is implemented by embedders that can embed many texts in
// one call. Output order matches input order.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
