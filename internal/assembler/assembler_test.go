package assembler

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewrag/internal/domain"
	"reviewrag/internal/tokenizer"
)

func result(i, words int) domain.SearchResult {
	body := strings.TrimSpace(strings.Repeat(fmt.Sprintf("w%d ", i), words))
	return domain.SearchResult{
		ID: i,
		Chunk: domain.Chunk{
			ChunkID:     fmt.Sprintf("c%d", i),
			ASIN:        fmt.Sprintf("B%03d", i),
			ProductName: "TripodX",
			Text:        body,
		},
	}
}

func TestClean(t *testing.T) {
	in := "Great [[VIDEOID:abc123]] tripod   [[ASIN:B00X]]\n\n for  travel "
	assert.Equal(t, "Great tripod for travel", Clean(in))
	assert.Equal(t, "keep [[OTHER:x]] tags", Clean("keep [[OTHER:x]]  tags"))
}

func TestPiece(t *testing.T) {
	c := domain.Chunk{ChunkID: "id-1", ASIN: "B001", Text: "Solid  legs."}
	assert.Equal(t, "[source:B001:id-1]\nProduct: Unknown Product\nSolid legs.\n", Piece(c))
}

func TestBuild_AllPiecesFit(t *testing.T) {
	a := New(tokenizer.Words{}, 1000, 50)
	results := []domain.SearchResult{result(0, 10), result(1, 10)}
	got := a.Build(results)
	assert.Equal(t, Piece(results[0].Chunk)+"\n"+Piece(results[1].Chunk), got)
}

func TestBuild_ZeroBudget(t *testing.T) {
	a := New(tokenizer.Words{}, 0, 50)
	assert.Equal(t, "", a.Build([]domain.SearchResult{result(0, 5)}))
}

func TestBuild_BudgetSmallerThanAnyPiece(t *testing.T) {
	a := New(tokenizer.Words{}, 100, 10)
	assert.Equal(t, "", a.Build([]domain.SearchResult{result(0, 200), result(1, 150)}))
}

func TestBuild_EmptyResults(t *testing.T) {
	assert.Equal(t, "", New(tokenizer.Words{}, 100, 10).Build(nil))
}

func TestBuild_PartialWithMarker(t *testing.T) {
	tok := tokenizer.Words{}
	// each piece: tag + "Product:" + "TripodX" + body words
	a := New(tok, 200, 50)
	results := []domain.SearchResult{result(0, 60), result(1, 300), result(2, 10)}
	got := a.Build(results)

	require.True(t, strings.HasPrefix(got, Piece(results[0].Chunk)))
	assert.True(t, strings.HasSuffix(got, ContinuationMarker))
	assert.Contains(t, got, "[source:B001:c1]")
	assert.NotContains(t, got, "[source:B002:c2]")
	assert.LessOrEqual(t, tok.Count(got), 200)
	assert.Greater(t, tok.Count(got), 150)
}

func TestBuild_NoPartialBelowThreshold(t *testing.T) {
	a := New(tokenizer.Words{}, 100, 50)
	results := []domain.SearchResult{result(0, 60), result(1, 300)}
	got := a.Build(results)
	assert.Equal(t, Piece(results[0].Chunk), got)
}

func TestBuild_NeverExceedsBudget(t *testing.T) {
	tok := tokenizer.Words{}
	results := []domain.SearchResult{result(0, 40), result(1, 90), result(2, 7), result(3, 250)}
	for budget := 0; budget <= 450; budget += 7 {
		got := New(tok, budget, 20).Build(results)
		assert.LessOrEqual(t, tok.Count(got), budget, "budget %d", budget)
	}
}

func TestBuild_Monotonic(t *testing.T) {
	tok := tokenizer.Words{}
	results := []domain.SearchResult{result(0, 40), result(1, 90), result(2, 7)}
	small := New(tok, 60, 1000).Build(results)
	large := New(tok, 400, 1000).Build(results)
	assert.True(t, strings.HasPrefix(large, small))
}
