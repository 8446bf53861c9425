package chunker

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewrag/internal/domain"
)

func makeWords(n int) []string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return words
}

func collect(t *testing.T, n, size, overlap int) [][2]int {
	t.Helper()
	seq, err := Windows(makeWords(n), size, overlap)
	require.NoError(t, err)
	var out [][2]int
	for w := range seq {
		require.Len(t, w.Words, w.End-w.Start)
		out = append(out, [2]int{w.Start, w.End})
	}
	return out
}

func TestWindows_ReviewDefaults(t *testing.T) {
	tests := []struct {
		words int
		want  [][2]int
	}{
		{100, [][2]int{{0, 100}}},
		{250, [][2]int{{0, 250}}},
		{251, [][2]int{{0, 250}, {200, 251}}},
		{300, [][2]int{{0, 250}, {200, 300}}},
		{500, [][2]int{{0, 250}, {200, 450}, {400, 500}}},
		{800, [][2]int{{0, 250}, {200, 450}, {400, 650}, {600, 800}}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d words", tt.words), func(t *testing.T) {
			assert.Equal(t, tt.want, collect(t, tt.words, 250, 50))
		})
	}
}

func TestWindows_CoverageProperty(t *testing.T) {
	for _, params := range [][2]int{{250, 50}, {10, 3}, {2, 1}, {7, 6}} {
		size, overlap := params[0], params[1]
		for n := 1; n <= 60; n++ {
			got := collect(t, n, size, overlap)
			require.NotEmpty(t, got)
			assert.Equal(t, 0, got[0][0])
			assert.Equal(t, n, got[len(got)-1][1], "last window must end at word count")
			for i, w := range got {
				assert.True(t, 0 <= w[0] && w[0] < w[1] && w[1] <= n)
				if i == 0 {
					continue
				}
				prev := got[i-1]
				assert.LessOrEqual(t, w[0], prev[1], "no gap between windows")
				assert.Equal(t, overlap, prev[1]-w[0], "consecutive windows overlap by exactly the configured width")
			}
		}
	}
}

func TestWindows_InvalidParameters(t *testing.T) {
	for _, params := range [][2]int{{50, 50}, {10, 20}, {10, 0}, {0, 0}, {10, -1}} {
		_, err := Windows(makeWords(10), params[0], params[1])
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
		assert.Contains(t, err.Error(), "window must exceed overlap")
	}
}

func TestWindows_EmptyInput(t *testing.T) {
	assert.Empty(t, collect(t, 0, 250, 50))
}

func TestWindows_StopsEarly(t *testing.T) {
	seq, err := Windows(makeWords(800), 250, 50)
	require.NoError(t, err)
	count := 0
	for range seq {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}
