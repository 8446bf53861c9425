package domain

const (
	// UnknownProduct replaces a missing product name.
	UnknownProduct = "Unknown Product"
	// UntitledReview replaces a missing review title.
	UntitledReview = "Untitled Review"
)

// Chunk is a contiguous word window over a Document's text together with a
// copy of the document's scalar metadata. Chunks are never mutated once built.
type Chunk struct {
	ChunkID          string  `json:"chunk_id"`
	ASIN             string  `json:"asin"`
	ParentASIN       string  `json:"parent_asin,omitempty"`
	ProductName      string  `json:"product_name"`
	ReviewTitle      string  `json:"review_title,omitempty"`
	Rating           float64 `json:"rating"`
	Timestamp        int64   `json:"timestamp"`
	HelpfulVote      int     `json:"helpful_vote"`
	VerifiedPurchase bool    `json:"verified_purchase"`
	StartWord        int     `json:"start_word"`
	EndWord          int     `json:"end_word"`
	Text             string  `json:"chunk_text"`
}

// WithPlaceholders returns a copy of c where missing optional fields carry
// explicit placeholder values.
func (c Chunk) WithPlaceholders() Chunk {
	if c.ProductName == "" {
		c.ProductName = UnknownProduct
	}
	if c.ReviewTitle == "" {
		c.ReviewTitle = UntitledReview
	}
	return c
}
