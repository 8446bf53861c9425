package tokenizer

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"reviewrag/internal/domain"
)

// Tiktoken uses the BPE encoding of an OpenAI model. The encoding tables are
// fetched and cached by the library on first use.
type Tiktoken struct {
	model string
	enc   *tiktoken.Tiktoken
}

// NewTiktoken resolves the encoding used by model.
func NewTiktoken(model string) (*Tiktoken, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("%w: tiktoken: %v", domain.ErrConfiguration, err)
	}
	return &Tiktoken{model: model, enc: enc}, nil
}

func (t *Tiktoken) Name() string { return "tiktoken:" + t.model }

func (t *Tiktoken) Count(text string) int {
	return len(t.enc.EncodeOrdinary(text))
}

func (t *Tiktoken) Truncate(text string, n int) string {
	if n <= 0 {
		return ""
	}
	tokens := t.enc.EncodeOrdinary(text)
	if len(tokens) <= n {
		return text
	}
	// a cut inside a multi-byte rune decodes to invalid UTF-8
	return strings.ToValidUTF8(t.enc.Decode(tokens[:n]), "")
}
