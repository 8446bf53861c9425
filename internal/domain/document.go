package domain

import (
	"fmt"
	"strings"
)

// Document is a single cleaned product review.
type Document struct {
	ASIN             string  `json:"asin"`
	ParentASIN       string  `json:"parent_asin,omitempty"`
	ProductName      string  `json:"product_name"`
	Title            string  `json:"title"`
	Body             string  `json:"text"`
	Rating           float64 `json:"rating"`
	HelpfulVote      int     `json:"helpful_vote"`
	VerifiedPurchase bool    `json:"verified_purchase"`
	Timestamp        int64   `json:"timestamp"`
}

// Text joins product name, title and body with labelled separators.
// This is the text that gets split into word windows.
func (d Document) Text() string {
	return strings.TrimSpace(fmt.Sprintf("Product: %s. Review Title: %s. Review: %s", d.ProductName, d.Title, d.Body))
}
