// Package ingest reads raw review dumps into cleaned documents ready for
// chunking.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"regexp"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"reviewrag/internal/domain"
)

// DefaultMinBodyChars drops reviews whose cleaned body is shorter.
const DefaultMinBodyChars = 30

const maxLineSize = 16 << 20

var (
	tagPattern   = regexp.MustCompile(`<.*?>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// Clean strips HTML tags and collapses whitespace.
func Clean(text string) string {
	text = tagPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
}

// Options controls a read.
type Options struct {
	// Names enriches reviews with product titles. Nil keeps the names found
	// in the review records.
	Names ProductNames
	// Limit caps the number of raw reviews read; zero reads everything.
	Limit int
	// MinBodyChars defaults to DefaultMinBodyChars when zero.
	MinBodyChars int
}

type rawReview struct {
	ASIN             string  `json:"asin"`
	ParentASIN       string  `json:"parent_asin"`
	ProductName      string  `json:"product_name"`
	Title            string  `json:"title"`
	Text             string  `json:"text"`
	Rating           float64 `json:"rating"`
	Timestamp        int64   `json:"timestamp"`
	HelpfulVote      int     `json:"helpful_vote"`
	VerifiedPurchase bool    `json:"verified_purchase"`
}

// Documents decodes one review per line. Blank lines are ignored; a
// malformed line stops the sequence with an error.
func Documents(ctx context.Context, r io.Reader, opts Options) iter.Seq2[domain.Document, error] {
	minChars := opts.MinBodyChars
	if minChars == 0 {
		minChars = DefaultMinBodyChars
	}
	return func(yield func(domain.Document, error) bool) {
		logger := logutil.GetLogger(ctx)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64*1024), maxLineSize)
		read, skipped, line := 0, 0, 0
		defer func() {
			logger.Info("reviews read", zap.Int("read", read), zap.Int("skipped", skipped))
		}()
		for sc.Scan() {
			line++
			if opts.Limit > 0 && read >= opts.Limit {
				return
			}
			raw := strings.TrimSpace(sc.Text())
			if raw == "" {
				continue
			}
			if err := ctx.Err(); err != nil {
				yield(domain.Document{}, err)
				return
			}
			read++
			var rv rawReview
			if err := json.Unmarshal([]byte(raw), &rv); err != nil {
				yield(domain.Document{}, fmt.Errorf("review line %d: %w", line, err))
				return
			}
			doc := domain.Document{
				ASIN:             rv.ASIN,
				ParentASIN:       rv.ParentASIN,
				ProductName:      Clean(rv.ProductName),
				Title:            Clean(rv.Title),
				Body:             Clean(rv.Text),
				Rating:           rv.Rating,
				HelpfulVote:      rv.HelpfulVote,
				VerifiedPurchase: rv.VerifiedPurchase,
				Timestamp:        rv.Timestamp,
			}
			if len(doc.Body) < minChars {
				skipped++
				continue
			}
			if opts.Names != nil {
				doc.ProductName = Clean(opts.Names.Lookup(rv.ParentASIN, rv.ASIN))
			}
			if doc.ProductName == "" {
				doc.ProductName = domain.UnknownProduct
			}
			if !yield(doc, nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(domain.Document{}, fmt.Errorf("read reviews: %w", err))
		}
	}
}

// ReadFile is Documents over a file. The file is opened when iteration
// starts and closed when it ends.
func ReadFile(ctx context.Context, path string, opts Options) iter.Seq2[domain.Document, error] {
	return func(yield func(domain.Document, error) bool) {
		f, err := os.Open(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				err = fmt.Errorf("%w: reviews file %s not found", domain.ErrConfiguration, path)
			}
			yield(domain.Document{}, err)
			return
		}
		defer f.Close()
		for doc, err := range Documents(ctx, f, opts) {
			if !yield(doc, err) {
				return
			}
		}
	}
}
