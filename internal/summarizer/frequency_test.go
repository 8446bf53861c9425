package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var passages = []Passage{
	{Source: "[source:B1:a]", Text: "The tripod legs are sturdy. Shipping took a week. The head pans smoothly!"},
	{Source: "[source:B2:b]", Text: "Battery life is short. The tripod plate is plastic."},
}

func TestSummarize_FocusOnQuery(t *testing.T) {
	s := NewFrequencySummarizer()
	got := s.Summarize("Is the tripod sturdy?", passages, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "The tripod legs are sturdy.", got[0].Text)
	assert.Equal(t, "[source:B1:a]", got[0].Source)
	assert.Equal(t, "The tripod plate is plastic.", got[1].Text)
	assert.Equal(t, "[source:B2:b]", got[1].Source)
}

func TestSummarize_KeepsPassageOrder(t *testing.T) {
	got := NewFrequencySummarizer().Summarize("", passages, 10)
	require.Len(t, got, 5)
	assert.Equal(t, "The tripod legs are sturdy.", got[0].Text)
	assert.Equal(t, "The head pans smoothly!", got[2].Text)
	assert.Equal(t, "The tripod plate is plastic.", got[4].Text)
}

func TestSummarize_UnrelatedQuery(t *testing.T) {
	assert.Empty(t, NewFrequencySummarizer().Summarize("waterproof headphones", passages, 3))
}

func TestSummarize_NoPassages(t *testing.T) {
	assert.Empty(t, NewFrequencySummarizer().Summarize("tripod", nil, 3))
}
