package chunker

import (
	"strings"

	"github.com/google/uuid"

	"reviewrag/internal/domain"
)

// Defaults used by the review pipeline.
const (
	DefaultWindowWords   = 250
	DefaultOverlapWords  = 50
	DefaultMinDocWords   = 40
	DefaultMinChunkChars = 40
)

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(doc domain.Document) ([]domain.Chunk, error)
}

// WordChunker splits a document's text into fixed-size overlapping word
// windows.
type WordChunker struct {
	filters
	windowWords  int
	overlapWords int
}

// filters are shared by every chunking strategy.
type filters struct {
	minDocWords   int
	minChunkChars int
	newID         func() string
}

func defaultFilters() filters {
	return filters{
		minDocWords:   DefaultMinDocWords,
		minChunkChars: DefaultMinChunkChars,
		newID:         func() string { return uuid.New().String() },
	}
}

func (f *filters) apply(opts []Option) {
	for _, opt := range opts {
		opt(f)
	}
}

// Option configures a chunker.
type Option func(*filters)

// WithMinDocWords sets the word count below which a document is skipped.
func WithMinDocWords(n int) Option {
	return func(c *filters) {
		if n >= 0 {
			c.minDocWords = n
		}
	}
}

// WithMinChunkChars sets the joined-text length below which a chunk is dropped.
func WithMinChunkChars(n int) Option {
	return func(c *filters) {
		if n >= 0 {
			c.minChunkChars = n
		}
	}
}

// WithIDFunc overrides chunk id generation.
func WithIDFunc(fn func() string) Option {
	return func(c *filters) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// NewWordChunker validates the window parameters and returns a chunker.
func NewWordChunker(windowWords, overlapWords int, opts ...Option) (*WordChunker, error) {
	if err := checkWindow(windowWords, overlapWords); err != nil {
		return nil, err
	}
	c := &WordChunker{filters: defaultFilters(), windowWords: windowWords, overlapWords: overlapWords}
	c.apply(opts)
	return c, nil
}

// Chunk returns the windows of doc that survive the length filters.
func (c *WordChunker) Chunk(doc domain.Document) ([]domain.Chunk, error) {
	words := strings.Fields(doc.Text())
	if len(words) < c.minDocWords || len(words) == 0 {
		return nil, nil
	}
	windows, err := Windows(words, c.windowWords, c.overlapWords)
	if err != nil {
		return nil, err
	}
	var chunks []domain.Chunk
	for w := range windows {
		text := strings.TrimSpace(strings.Join(w.Words, " "))
		if len(text) < c.minChunkChars {
			continue
		}
		chunks = append(chunks, newChunk(c.newID(), doc, w.Start, w.End, text))
	}
	return chunks, nil
}

func newChunk(id string, doc domain.Document, start, end int, text string) domain.Chunk {
	return domain.Chunk{
		ChunkID:          id,
		ASIN:             doc.ASIN,
		ParentASIN:       doc.ParentASIN,
		ProductName:      doc.ProductName,
		ReviewTitle:      doc.Title,
		Rating:           doc.Rating,
		Timestamp:        doc.Timestamp,
		HelpfulVote:      doc.HelpfulVote,
		VerifiedPurchase: doc.VerifiedPurchase,
		StartWord:        start,
		EndWord:          end,
		Text:             text,
	}
}
