// Package openai embeds text through an OpenAI-compatible /embeddings
// endpoint. Ollama's native response shape is accepted as well.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"reviewrag/internal/domain"
)

// Default configuration values.
const (
	DefaultBaseURL      = "https://api.openai.com/v1"
	DefaultModel        = "text-embedding-3-small"
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRetries   = 5
	DefaultRetryBackoff = 200 * time.Millisecond
	maxRetryBackoff     = 5 * time.Second
)

// Client is an OpenAI-compatible embeddings client.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	dimension  atomic.Int64
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
	// MaxRetries bounds retries after the first attempt. Negative disables retries.
	MaxRetries int
	// RequestsPerSecond limits outgoing requests; zero means unlimited.
	RequestsPerSecond float64
	RetryBackoff      time.Duration
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: missing API key in env %s", domain.ErrConfiguration, cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	switch {
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = DefaultMaxRetries
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = max(1, int(cfg.RequestsPerSecond))
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     key,
		model:      cfg.Model,
		client:     &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.RetryBackoff,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Dimension returns the dimensionality observed on the first response.
func (c *Client) Dimension() int { return int(c.dimension.Load()) }

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

type embedRequest struct {
	Input  []string `json:"input"`
	Prompt string   `json:"prompt,omitempty"`
	Model  string   `json:"model"`
}

type openaiResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type ollamaResponse struct {
	Embedding []float32 `json:"embedding"`
}

// errPermanent marks failures that retrying cannot fix.
var errPermanent = errors.New("permanent failure")

// EmbedBatch embeds texts in a single request, retrying transient failures
// with exponential backoff. Errors wrap domain.ErrEmbedding.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body := embedRequest{Input: texts, Model: c.model}
	if len(texts) == 1 {
		body.Prompt = texts[0]
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", domain.ErrEmbedding, err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			logutil.GetLogger(ctx).Warn("retrying embeddings request",
				zap.Int("attempt", attempt), zap.Error(lastErr))
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
		}
		vecs, wait, err := c.do(ctx, data, len(texts))
		if err == nil {
			c.dimension.CompareAndSwap(0, int64(len(vecs[0])))
			return vecs, nil
		}
		lastErr = err
		if errors.Is(err, errPermanent) || attempt == c.maxRetries {
			break
		}
		if wait == 0 {
			wait = c.retryDelay(attempt)
		}
		if err := sleep(ctx, wait); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
		}
	}
	return nil, fmt.Errorf("%w: openai embeddings: %w", domain.ErrEmbedding, lastErr)
}

// do performs one request. A non-zero duration is the server's Retry-After.
func (c *Client) do(ctx context.Context, data []byte, n int) ([][]float32, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: create request: %v", errPermanent, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, fmt.Errorf("%w: %w", errPermanent, ctx.Err())
		}
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		var wait time.Duration
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			wait = time.Duration(secs) * time.Second
		}
		return nil, wait, fmt.Errorf("status %s", resp.Status)
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, 0, fmt.Errorf("%w: status %s: %s", errPermanent, resp.Status, bytes.TrimSpace(msg))
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	vecs, err := decode(payload, n)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errPermanent, err)
	}
	return vecs, 0, nil
}

func decode(payload []byte, n int) ([][]float32, error) {
	var out openaiResponse
	if err := json.Unmarshal(payload, &out); err == nil && len(out.Data) > 0 {
		if len(out.Data) != n {
			return nil, fmt.Errorf("got %d embeddings for %d inputs", len(out.Data), n)
		}
		sort.SliceStable(out.Data, func(i, j int) bool { return out.Data[i].Index < out.Data[j].Index })
		vecs := make([][]float32, n)
		for i, d := range out.Data {
			if d.Index != i {
				return nil, fmt.Errorf("embedding index %d at position %d", d.Index, i)
			}
			if len(d.Embedding) == 0 {
				return nil, fmt.Errorf("empty embedding at index %d", d.Index)
			}
			if len(d.Embedding) != len(out.Data[0].Embedding) {
				return nil, fmt.Errorf("embedding %d has dimension %d, want %d", i, len(d.Embedding), len(out.Data[0].Embedding))
			}
			vecs[i] = d.Embedding
		}
		return vecs, nil
	}
	// Ollama /api/embeddings answers one prompt with {"embedding": [...]}.
	var single ollamaResponse
	if err := json.Unmarshal(payload, &single); err == nil && len(single.Embedding) > 0 && n == 1 {
		return [][]float32{single.Embedding}, nil
	}
	return nil, errors.New("no embedding returned")
}

func (c *Client) retryDelay(attempt int) time.Duration {
	d := c.backoff << attempt
	if d > maxRetryBackoff || d <= 0 {
		d = maxRetryBackoff
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
