// Package evaluation measures retrieval quality against a labelled query
// set.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"reviewrag/internal/domain"
)

// Query is one labelled question. A result is relevant when its ASIN or
// chunk id is listed, or when its text contains one of the keywords.
type Query struct {
	Query          string   `yaml:"query"`
	RelevantASINs  []string `yaml:"relevant_asins,omitempty"`
	RelevantChunks []string `yaml:"relevant_chunks,omitempty"`
	Keywords       []string `yaml:"keywords,omitempty"`
}

// QuerySet is the on-disk evaluation file.
type QuerySet struct {
	K       int     `yaml:"k"`
	Queries []Query `yaml:"queries"`
}

// LoadQuerySet reads a YAML query set.
func LoadQuerySet(path string) (*QuerySet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: query set %s not found", domain.ErrConfiguration, path)
		}
		return nil, err
	}
	var qs QuerySet
	if err := yaml.Unmarshal(data, &qs); err != nil {
		return nil, fmt.Errorf("%w: parse query set: %v", domain.ErrConfiguration, err)
	}
	if len(qs.Queries) == 0 {
		return nil, fmt.Errorf("%w: query set %s has no queries", domain.ErrConfiguration, path)
	}
	return &qs, nil
}

// Retriever is the part of the retriever the evaluation needs.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) (domain.Results, error)
}

// QueryReport holds the outcome of one query.
type QueryReport struct {
	Query    string
	Relevant int
	Results  domain.Results
	Flags    []bool
}

// Report aggregates an evaluation run. PrecisionAtK divides relevant hits
// by queries × k, so short result lists count against the score.
type Report struct {
	K            int
	Queries      []QueryReport
	PrecisionAtK float64
	HitRate      float64
}

// Evaluate runs every query with k results. k <= 0 uses the set's k, then 3.
func Evaluate(ctx context.Context, r Retriever, qs *QuerySet, k int) (*Report, error) {
	if k <= 0 {
		k = qs.K
	}
	if k <= 0 {
		k = 3
	}
	rep := &Report{K: k}
	relevant, hits := 0, 0
	for _, q := range qs.Queries {
		res, err := r.Retrieve(ctx, q.Query, k)
		if err != nil {
			return nil, fmt.Errorf("query %q: %w", q.Query, err)
		}
		qr := QueryReport{Query: q.Query, Results: res, Flags: make([]bool, len(res))}
		for i, sr := range res {
			if q.isRelevant(sr.Chunk) {
				qr.Flags[i] = true
				qr.Relevant++
			}
		}
		relevant += qr.Relevant
		if qr.Relevant > 0 {
			hits++
		}
		rep.Queries = append(rep.Queries, qr)
	}
	n := float64(len(qs.Queries))
	if n > 0 {
		rep.PrecisionAtK = float64(relevant) / (n * float64(k))
		rep.HitRate = float64(hits) / n
	}
	logutil.GetLogger(ctx).Info("retrieval evaluated",
		zap.Int("queries", len(qs.Queries)),
		zap.Int("k", k),
		zap.Float64("precision_at_k", rep.PrecisionAtK),
		zap.Float64("hit_rate", rep.HitRate),
	)
	return rep, nil
}

func (q Query) isRelevant(c domain.Chunk) bool {
	for _, a := range q.RelevantASINs {
		if a == c.ASIN || (c.ParentASIN != "" && a == c.ParentASIN) {
			return true
		}
	}
	for _, id := range q.RelevantChunks {
		if id == c.ChunkID {
			return true
		}
	}
	text := strings.ToLower(c.Text)
	for _, kw := range q.Keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Write prints a human readable report.
func (r *Report) Write(w io.Writer) error {
	var b strings.Builder
	for _, q := range r.Queries {
		fmt.Fprintf(&b, "Query: %s\n", q.Query)
		for i, res := range q.Results {
			mark := " "
			if q.Flags[i] {
				mark = "*"
			}
			fmt.Fprintf(&b, "  %s %d. distance=%.4f asin=%s chunk=%s\n", mark, i+1, res.Distance, res.Chunk.ASIN, res.Chunk.ChunkID)
		}
		fmt.Fprintf(&b, "  relevant: %d/%d\n\n", q.Relevant, r.K)
	}
	fmt.Fprintf(&b, "PRECISION@%d: %.2f\nHIT RATE: %.2f\n", r.K, r.PrecisionAtK, r.HitRate)
	_, err := io.WriteString(w, b.String())
	return err
}
