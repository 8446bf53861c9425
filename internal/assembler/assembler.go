// Package assembler turns ranked search results into a token-budgeted
// context block with provenance tags.
package assembler

import (
	"fmt"
	"regexp"
	"strings"

	"reviewrag/internal/domain"
	"reviewrag/internal/tokenizer"
)

const (
	// DefaultMaxTokens is the context budget used when none is configured.
	DefaultMaxTokens = 3000
	// DefaultMinPartialTokens is the smallest remaining budget worth a
	// truncated piece.
	DefaultMinPartialTokens = 50
	// ContinuationMarker ends a truncated piece.
	ContinuationMarker = "....\n"
)

var (
	markupPattern     = regexp.MustCompile(`\[\[(VIDEOID|ASIN)[^\]]*\]\]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Clean removes embedded video and product markup and collapses whitespace.
func Clean(text string) string {
	text = markupPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// Provenance returns the citation tag for a chunk.
func Provenance(c domain.Chunk) string {
	return fmt.Sprintf("[source:%s:%s]", c.ASIN, c.ChunkID)
}

// Piece formats one result for the context block.
func Piece(c domain.Chunk) string {
	name := c.ProductName
	if name == "" {
		name = domain.UnknownProduct
	}
	return fmt.Sprintf("%s\nProduct: %s\n%s\n", Provenance(c), name, Clean(c.Text))
}

// Assembler builds context blocks under a token budget.
type Assembler struct {
	tok        tokenizer.Tokenizer
	maxTokens  int
	minPartial int
}

// New returns an assembler. Negative limits are treated as zero.
func New(tok tokenizer.Tokenizer, maxTokens, minPartialTokens int) *Assembler {
	return &Assembler{tok: tok, maxTokens: max(0, maxTokens), minPartial: max(0, minPartialTokens)}
}

// MaxTokens returns the budget.
func (a *Assembler) MaxTokens() int { return a.maxTokens }

// Build joins pieces in result order until the next one no longer fits.
// When at least one piece was added and the remaining budget exceeds the
// partial threshold, a token-truncated prefix of the overflowing piece is
// appended with ContinuationMarker. The block never exceeds the budget.
func (a *Assembler) Build(results []domain.SearchResult) string {
	var parts []string
	used := 0
	for _, r := range results {
		piece := Piece(r.Chunk)
		if n := a.tok.Count(join(parts, piece)); n <= a.maxTokens {
			parts = append(parts, piece)
			used = n
			continue
		}
		if len(parts) > 0 && a.maxTokens-used > a.minPartial {
			if partial, ok := a.partial(parts, piece, a.maxTokens-used); ok {
				parts = append(parts, partial)
			}
		}
		break
	}
	return strings.Join(parts, "\n")
}

// partial shrinks the prefix until the whole block fits.
func (a *Assembler) partial(parts []string, piece string, n int) (string, bool) {
	for n > 0 {
		candidate := a.tok.Truncate(piece, n) + ContinuationMarker
		total := a.tok.Count(join(parts, candidate))
		if total <= a.maxTokens {
			return candidate, true
		}
		n -= max(1, total-a.maxTokens)
	}
	return "", false
}

func join(parts []string, next string) string {
	if len(parts) == 0 {
		return next
	}
	return strings.Join(parts, "\n") + "\n" + next
}
