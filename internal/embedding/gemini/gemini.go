// Package gemini embeds text with the Google Gemini API.
package gemini

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"google.golang.org/genai"

	"reviewrag/internal/domain"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "text-embedding-004"

// Config configures the Gemini embedder.
type Config struct {
	APIKeyEnv string
	Model     string
	// BaseURL overrides the API endpoint.
	BaseURL string
}

// Embedder calls Models.EmbedContent.
type Embedder struct {
	client    *genai.Client
	model     string
	dimension atomic.Int64
}

// New creates the API client once for the lifetime of the embedder.
func New(ctx context.Context, cfg Config) (*Embedder, error) {
	key := strings.TrimSpace(os.Getenv(cfg.APIKeyEnv))
	if key == "" {
		return nil, fmt.Errorf("%w: missing API key in env %s", domain.ErrConfiguration, cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	cc := &genai.ClientConfig{APIKey: key, Backend: genai.BackendGeminiAPI}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini client: %v", domain.ErrConfiguration, err)
	}
	return &Embedder{client: client, model: cfg.Model}, nil
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "gemini" }

// Dimension returns the dimensionality observed on the first response.
func (e *Embedder) Dimension() int { return int(e.dimension.Load()) }

// Embed returns the embedding of a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one request. The API returns embeddings in
// request order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}
	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini embed: %w", domain.ErrEmbedding, err)
	}
	return collect(resp, len(texts), &e.dimension)
}

func collect(resp *genai.EmbedContentResponse, n int, dim *atomic.Int64) ([][]float32, error) {
	if resp == nil || len(resp.Embeddings) != n {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("%w: gemini returned %d embeddings for %d inputs", domain.ErrEmbedding, got, n)
	}
	out := make([][]float32, n)
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("%w: gemini returned no values for input %d", domain.ErrEmbedding, i)
		}
		out[i] = emb.Values
	}
	dim.CompareAndSwap(0, int64(len(out[0])))
	return out, nil
}
