// Package tfidf is a local, deterministic TF-IDF embedder. The fitted
// vocabulary is persisted so queries are embedded in the same space as the
// corpus.
package tfidf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/google/renameio/v2"

	"reviewrag/internal/domain"
)

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// Embedder implements a simple TF-IDF vectorizer.
// It builds a vocabulary from the corpus and computes IDF values.
type Embedder struct {
	vocabulary map[string]int
	terms      []string
	idf        []float32
	stopwords  map[string]struct{}
}

// NewEmbedder creates an unprepared TF-IDF embedder.
func NewEmbedder() *Embedder {
	return &Embedder{stopwords: defaultStopwords()}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "tfidf" }

// Prepared reports whether a vocabulary is loaded.
func (e *Embedder) Prepared() bool { return len(e.terms) > 0 }

// Prepare builds the vocabulary and IDF values from the provided corpus.
func (e *Embedder) Prepare(_ context.Context, corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("empty corpus for TF-IDF prepare")
	}
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range e.tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		return errors.New("no tokens found in corpus")
	}
	sort.Strings(terms)
	idf := make([]float32, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		// smoothed
		idf[i] = float32(math.Log((1+n)/(1+float64(df[term]))) + 1.0)
	}
	e.setModel(terms, idf)
	return nil
}

func (e *Embedder) setModel(terms []string, idf []float32) {
	e.terms = terms
	e.idf = idf
	e.vocabulary = make(map[string]int, len(terms))
	for i, t := range terms {
		e.vocabulary[t] = i
	}
}

// Dimension returns the vocabulary size.
func (e *Embedder) Dimension() int { return len(e.terms) }

// Embed computes the L2-normalised TF-IDF vector for text. Text without any
// known term maps to the zero vector.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	if !e.Prepared() {
		return nil, fmt.Errorf("%w: tfidf embedder not prepared", domain.ErrEmbedding)
	}
	vec := make([]float32, len(e.terms))
	tf := make(map[int]int)
	total := 0
	for _, tok := range e.tokenize(text) {
		if idx, ok := e.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}
	if total == 0 {
		return vec, nil
	}
	for idx, count := range tf {
		vec[idx] = float32(count) / float32(total) * e.idf[idx]
	}
	// summed in index order so repeated calls agree bit for bit
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for idx := range tf {
			vec[idx] *= inv
		}
	}
	return vec, nil
}

func (e *Embedder) tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

type modelFile struct {
	Terms []string  `json:"terms"`
	IDF   []float32 `json:"idf"`
}

// Save persists the fitted vocabulary.
func (e *Embedder) Save(path string) error {
	if !e.Prepared() {
		return fmt.Errorf("%w: tfidf embedder not prepared", domain.ErrEmbedding)
	}
	data, err := json.Marshal(modelFile{Terms: e.terms, IDF: e.idf})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return renameio.WriteFile(path, data, 0o644)
}

// Load reads a vocabulary written by Save.
func Load(path string) (*Embedder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: tfidf model %s not found", domain.ErrConfiguration, path)
		}
		return nil, err
	}
	var m modelFile
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: decode tfidf model: %v", domain.ErrConfiguration, err)
	}
	if len(m.Terms) == 0 || len(m.Terms) != len(m.IDF) {
		return nil, fmt.Errorf("%w: tfidf model has %d terms and %d weights", domain.ErrConfiguration, len(m.Terms), len(m.IDF))
	}
	e := NewEmbedder()
	e.setModel(m.Terms, m.IDF)
	return e, nil
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
