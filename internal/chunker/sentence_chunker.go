package chunker

import (
	"fmt"
	"strings"

	"reviewrag/internal/domain"
)

// SentenceChunker splits text into sentence-based chunks with overlap.
// Offsets are still reported in words so chunk files stay comparable.
type SentenceChunker struct {
	filters
	sentencesPerChunk int
	overlapSentences  int
}

// NewSentenceChunker validates the sentence window and returns a chunker.
// Overlap may be zero; otherwise it must be below sentencesPerChunk.
func NewSentenceChunker(sentencesPerChunk, overlapSentences int, opts ...Option) (*SentenceChunker, error) {
	if sentencesPerChunk <= 0 || overlapSentences < 0 || overlapSentences >= sentencesPerChunk {
		return nil, fmt.Errorf("%w: sentences per chunk must exceed sentence overlap (sentences=%d, overlap=%d)",
			domain.ErrConfiguration, sentencesPerChunk, overlapSentences)
	}
	c := &SentenceChunker{filters: defaultFilters(), sentencesPerChunk: sentencesPerChunk, overlapSentences: overlapSentences}
	c.apply(opts)
	return c, nil
}

type sentenceSpan struct{ start, end int }

func (c *SentenceChunker) Chunk(doc domain.Document) ([]domain.Chunk, error) {
	words := strings.Fields(doc.Text())
	if len(words) < c.minDocWords || len(words) == 0 {
		return nil, nil
	}
	sentences := splitSentences(words)
	var chunks []domain.Chunk
	i := 0
	for i < len(sentences) {
		end := min(i+c.sentencesPerChunk, len(sentences))
		start, stop := sentences[i].start, sentences[end-1].end
		text := strings.Join(words[start:stop], " ")
		if len(text) >= c.minChunkChars {
			chunks = append(chunks, newChunk(c.newID(), doc, start, stop, text))
		}
		if end == len(sentences) {
			break
		}
		i = end - c.overlapSentences
	}
	return chunks, nil
}

// splitSentences groups words into sentences ending with . ! or ?.
// Trailing words without terminal punctuation form the last sentence.
func splitSentences(words []string) []sentenceSpan {
	var spans []sentenceSpan
	start := 0
	for i, w := range words {
		if strings.ContainsAny(w[len(w)-1:], ".!?") {
			spans = append(spans, sentenceSpan{start, i + 1})
			start = i + 1
		}
	}
	if start < len(words) {
		spans = append(spans, sentenceSpan{start, len(words)})
	}
	return spans
}
