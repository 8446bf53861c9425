// Package tokenizer counts and truncates text in model tokens.
package tokenizer

import (
	"fmt"
	"strings"
	"unicode"

	"reviewrag/internal/domain"
)

// Tokenizer measures text the way the generation model does.
type Tokenizer interface {
	Name() string
	Count(text string) int
	// Truncate returns the longest prefix of text holding at most n tokens.
	Truncate(text string, n int) string
}

// New returns the tokenizer registered under name. model selects the
// encoding for tiktoken and is ignored otherwise.
func New(name, model string) (Tokenizer, error) {
	switch name {
	case "words", "":
		return Words{}, nil
	case "tiktoken":
		t, err := NewTiktoken(model)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("%w: unknown tokenizer: %s", domain.ErrConfiguration, name)
	}
}

// Words treats every whitespace-separated field as one token.
type Words struct{}

func (Words) Name() string { return "words" }

func (Words) Count(text string) int { return len(strings.Fields(text)) }

// Truncate keeps the original spacing of the prefix.
func (Words) Truncate(text string, n int) string {
	if n <= 0 {
		return ""
	}
	seen := 0
	inField := false
	for i, r := range text {
		if unicode.IsSpace(r) {
			if inField {
				inField = false
				if seen == n {
					return text[:i]
				}
			}
			continue
		}
		if !inField {
			inField = true
			seen++
		}
	}
	return strings.TrimRightFunc(text, unicode.IsSpace)
}
