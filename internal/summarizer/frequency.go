// Package summarizer selects the sentences of a set of passages that best
// answer a question.
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// Passage is a block of text attributed to one source.
type Passage struct {
	Source string
	Text   string
}

// Sentence is a selected sentence and the source it came from.
type Sentence struct {
	Source string
	Text   string
	Score  float64
}

var sentencePattern = regexp.MustCompile(`[^.!?]+(?:[.!?]+|$)`)

// FrequencySummarizer ranks sentences by word frequency (stopwords filtered),
// boosted by overlap with the query.
type FrequencySummarizer struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewFrequencySummarizer creates a frequency-based sentence ranker summarizer.
func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`),
		stopwords:    defaultStopwords(),
	}
}

type candidate struct {
	order int
	Sentence
}

// Summarize returns up to maxSentences sentences in passage order. With a
// non-empty query only sentences sharing at least one query term are
// eligible, so an unrelated context yields no sentences.
func (s *FrequencySummarizer) Summarize(query string, passages []Passage, maxSentences int) []Sentence {
	if maxSentences <= 0 {
		maxSentences = 5
	}
	focus := map[string]struct{}{}
	for _, tok := range s.terms(query) {
		focus[tok] = struct{}{}
	}

	var cands []candidate
	freq := map[string]float64{}
	for _, p := range passages {
		for _, raw := range sentencePattern.FindAllString(p.Text, -1) {
			text := strings.TrimSpace(raw)
			if text == "" {
				continue
			}
			for _, tok := range s.terms(text) {
				freq[tok]++
			}
			cands = append(cands, candidate{order: len(cands), Sentence: Sentence{Source: p.Source, Text: text}})
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}

	scored := cands[:0]
	for _, c := range cands {
		toks := s.terms(c.Text)
		if len(toks) == 0 {
			continue
		}
		score, hits := 0.0, 0
		for _, tok := range toks {
			score += freq[tok] / maxF
			if _, ok := focus[tok]; ok {
				hits++
			}
		}
		if len(focus) > 0 && hits == 0 {
			continue
		}
		// long sentences should not win on length alone
		c.Score = score / math.Sqrt(float64(len(toks))) * float64(1+hits)
		scored = append(scored, c)
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if maxSentences < len(scored) {
		scored = scored[:maxSentences]
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].order < scored[j].order })
	out := make([]Sentence, len(scored))
	for i, c := range scored {
		out[i] = c.Sentence
	}
	return out
}

func (s *FrequencySummarizer) terms(text string) []string {
	raw := s.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, stop := s.stopwords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"what", "how", "does", "do", "did", "i", "my", "me", "you", "your", "any", "there", "which", "who", "why", "when", "where",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
