// Package generation turns a question and its retrieved context into an
// answer using a local or remote language model.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reviewrag/internal/domain"
)

// DefaultSystemInstructions constrain the model to the supplied excerpts.
const DefaultSystemInstructions = "You are an assistant that answers product questions using ONLY the provided context.\n" +
	"Cite sources inline like [source:ASIN:chunk_id].\n" +
	"If the answer is not supported by the context, respond: \"" + domain.NoAnswer + "\"\n" +
	"Do NOT guess product names unless they appear in the context.\n" +
	"Keep answers short and factual. " +
	"Provide a short answer and then list sources used."

// Request is everything a generator receives.
type Request struct {
	System   string
	Context  string
	Question string
}

// Prompt renders the request as a single prompt string.
func (r Request) Prompt() string {
	return BuildPrompt(r.System, r.Context, r.Question)
}

// BuildPrompt lays out instructions, context and question.
func BuildPrompt(system, context, question string) string {
	return fmt.Sprintf("%s\n\nUse the following retrieved review excerpts as factual context:\n\n%s\n\nQuestion: %s\nAnswer concisely and cite sources.",
		system, context, question)
}

// Generator produces answer text or fails.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// WithTimeout bounds every call of g by d. Failures wrap
// domain.ErrGeneration; a missed deadline also wraps
// domain.ErrGenerationTimeout. A non-positive d only adds the wrapping.
func WithTimeout(g Generator, d time.Duration) Generator {
	return &timeoutGenerator{next: g, timeout: d}
}

type timeoutGenerator struct {
	next    Generator
	timeout time.Duration
}

func (t *timeoutGenerator) Name() string { return t.next.Name() }

func (t *timeoutGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	out, err := t.next.Generate(ctx, req)
	if err == nil {
		return out, nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("%w: %w: %s after %s: %v", domain.ErrGeneration, domain.ErrGenerationTimeout, t.next.Name(), t.timeout, err)
	}
	if errors.Is(err, domain.ErrGeneration) {
		return "", err
	}
	return "", fmt.Errorf("%w: %s: %w", domain.ErrGeneration, t.next.Name(), err)
}
