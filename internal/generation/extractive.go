package generation

import (
	"context"
	"regexp"
	"strings"

	"reviewrag/internal/domain"
	"reviewrag/internal/summarizer"
)

var provenancePattern = regexp.MustCompile(`\[source:[^\]\s]+\]`)

// Extractive answers offline by quoting the context sentences that best
// match the question, each followed by its provenance tag.
type Extractive struct {
	summarizer   *summarizer.FrequencySummarizer
	maxSentences int
}

// NewExtractive returns an extractive generator.
func NewExtractive(maxSentences int) *Extractive {
	return &Extractive{summarizer: summarizer.NewFrequencySummarizer(), maxSentences: maxSentences}
}

func (e *Extractive) Name() string { return "extractive" }

func (e *Extractive) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	picked := e.summarizer.Summarize(req.Question, passages(req.Context), e.maxSentences)
	if len(picked) == 0 {
		return domain.NoAnswer, nil
	}
	var b strings.Builder
	var sources []string
	seen := map[string]bool{}
	for i, s := range picked {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s.Text)
		b.WriteByte(' ')
		b.WriteString(s.Source)
		if !seen[s.Source] {
			seen[s.Source] = true
			sources = append(sources, s.Source)
		}
	}
	b.WriteString("\n\nSources: ")
	b.WriteString(strings.Join(sources, ", "))
	return b.String(), nil
}

// passages splits a context block at its provenance tags. The product line
// directly after each tag is kept out of the passage text.
func passages(block string) []summarizer.Passage {
	locs := provenancePattern.FindAllStringIndex(block, -1)
	out := make([]summarizer.Passage, 0, len(locs))
	for i, loc := range locs {
		end := len(block)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := block[loc[1]:end]
		var text []string
		header := true
		for _, line := range strings.Split(body, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if header {
				header = false
				if strings.HasPrefix(line, "Product: ") {
					continue
				}
			}
			text = append(text, strings.TrimSuffix(line, "...."))
		}
		out = append(out, summarizer.Passage{Source: block[loc[0]:loc[1]], Text: strings.Join(text, " ")})
	}
	return out
}
