// Package service answers questions over the review index and runs the
// offline stages that build it.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"reviewrag/internal/assembler"
	"reviewrag/internal/domain"
	"reviewrag/internal/generation"
)

// DefaultTopK is used when neither the caller nor the options pick k.
const DefaultTopK = 5

// Retriever returns the k nearest chunks for a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) (domain.Results, error)
	Len() int
}

// Loader builds a fresh retriever from the artifacts on disk.
type Loader func(ctx context.Context) (Retriever, error)

// Service is safe for concurrent use. Reload swaps the retriever without
// interrupting in-flight questions.
type Service struct {
	mu        sync.RWMutex
	retriever Retriever

	assembler *assembler.Assembler
	generator generation.Generator
	system    string
	topK      int
	loader    Loader
}

// Option configures a Service.
type Option func(*Service)

// WithTopK sets the k used when a question does not name one.
func WithTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithSystemInstructions replaces generation.DefaultSystemInstructions.
func WithSystemInstructions(text string) Option {
	return func(s *Service) {
		if text != "" {
			s.system = text
		}
	}
}

// WithLoader enables Reload.
func WithLoader(l Loader) Option {
	return func(s *Service) { s.loader = l }
}

// New wires a question answering service.
func New(r Retriever, asm *assembler.Assembler, gen generation.Generator, opts ...Option) (*Service, error) {
	if r == nil || asm == nil || gen == nil {
		return nil, fmt.Errorf("%w: service needs a retriever, an assembler and a generator", domain.ErrConfiguration)
	}
	s := &Service{
		retriever: r,
		assembler: asm,
		generator: gen,
		system:    generation.DefaultSystemInstructions,
		topK:      DefaultTopK,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) current() Retriever {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.retriever
}

// Len returns the number of chunks the current retriever serves.
func (s *Service) Len() int { return s.current().Len() }

// Retrieve exposes the current retriever, so a Service can be evaluated.
func (s *Service) Retrieve(ctx context.Context, query string, k int) (domain.Results, error) {
	if k <= 0 {
		k = s.topK
	}
	return s.current().Retrieve(ctx, query, k)
}

// Ask answers question with the configured k.
func (s *Service) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	return s.AskK(ctx, question, 0)
}

// AskK answers question from the k nearest chunks; k <= 0 uses the
// configured default. When nothing is retrieved the canned domain.NoAnswer
// is returned without calling the generator. When generation fails the
// returned answer still carries the sources and the prompt.
func (s *Service) AskK(ctx context.Context, question string, k int) (*domain.Answer, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("question", question))
	start := time.Now()

	results, err := s.Retrieve(ctx, question, k)
	if err != nil {
		logger.Error("retrieve failed", zap.Error(err))
		return nil, err
	}
	ans := &domain.Answer{Question: question, Sources: Sources(results)}
	if len(results) == 0 {
		ans.Answer = domain.NoAnswer
		logger.Info("no chunks retrieved")
		return ans, nil
	}

	req := generation.Request{
		System:   s.system,
		Context:  s.assembler.Build(results),
		Question: question,
	}
	ans.Prompt = req.Prompt()
	text, err := s.generator.Generate(ctx, req)
	if err != nil {
		logger.Error("generate failed",
			zap.String("generator", s.generator.Name()),
			zap.Bool("retryable", domain.IsRetryable(err)),
			zap.Error(err),
		)
		return ans, err
	}
	ans.Answer = text
	logger.Info("answered",
		zap.Int("sources", len(ans.Sources)),
		zap.String("generator", s.generator.Name()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return ans, nil
}

// Reload rebuilds the retriever through the loader and swaps it in. On
// failure the previous retriever keeps serving.
func (s *Service) Reload(ctx context.Context) error {
	if s.loader == nil {
		return fmt.Errorf("%w: service has no loader", domain.ErrConfiguration)
	}
	r, err := s.loader(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.retriever = r
	s.mu.Unlock()
	logutil.GetLogger(ctx).Info("retriever reloaded", zap.Int("chunks", r.Len()))
	return nil
}

// Sources converts retrieval results into citations, best first.
func Sources(results domain.Results) []domain.Source {
	out := make([]domain.Source, 0, len(results))
	for _, r := range results {
		out = append(out, domain.Source{
			ASIN:        r.Chunk.ASIN,
			ChunkID:     r.Chunk.ChunkID,
			ProductName: r.Chunk.ProductName,
			Distance:    r.Distance,
		})
	}
	return out
}
