package index

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewrag/internal/domain"
	"reviewrag/internal/vectorstore"
)

func matrixOf(rows ...[]float32) vectorstore.Matrix {
	m := vectorstore.Matrix{Rows: len(rows), Cols: len(rows[0])}
	for _, r := range rows {
		m.Data = append(m.Data, r...)
	}
	return m
}

func TestSearch_OrdersByDistance(t *testing.T) {
	idx, err := Build(matrixOf(
		[]float32{10, 0},
		[]float32{1, 0},
		[]float32{0, 0},
		[]float32{3, 4},
	))
	require.NoError(t, err)

	hits, err := idx.Search([]float32{0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, []Hit{{ID: 2, Distance: 0}, {ID: 1, Distance: 1}, {ID: 3, Distance: 25}}, hits)
}

func TestSearch_TiesPreferLowerID(t *testing.T) {
	idx, err := Build(matrixOf(
		[]float32{0, 1},
		[]float32{1, 0},
		[]float32{0, -1},
		[]float32{-1, 0},
	))
	require.NoError(t, err)

	hits, err := idx.Search([]float32{0, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []Hit{{ID: 0, Distance: 1}, {ID: 1, Distance: 1}}, hits)

	hits, err = idx.Search([]float32{0, 0}, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, ids(hits))
}

func TestSearch_KLargerThanIndex(t *testing.T) {
	idx, err := Build(matrixOf([]float32{0}, []float32{2}, []float32{1}))
	require.NoError(t, err)

	hits, err := idx.Search([]float32{0}, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 1}, ids(hits))
}

func TestSearch_InvalidArguments(t *testing.T) {
	idx, err := Build(matrixOf([]float32{0, 0}))
	require.NoError(t, err)

	_, err = idx.Search([]float32{0, 0}, 0)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	_, err = idx.Search([]float32{0, 0, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestSearch_EmptyIndex(t *testing.T) {
	idx, err := Build(vectorstore.Matrix{Rows: 0, Cols: 3})
	require.NoError(t, err)
	hits, err := idx.Search([]float32{1, 2, 3}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestBuild_RejectsNonFinite(t *testing.T) {
	_, err := Build(matrixOf([]float32{0, 1}, []float32{float32(math.NaN()), 0}))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	_, err = Build(matrixOf([]float32{float32(math.Inf(1)), 1}))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestBuild_RejectsBadShape(t *testing.T) {
	_, err := Build(vectorstore.Matrix{Rows: 2, Cols: 2, Data: []float32{1, 2, 3}})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	_, err = FromRows([][]float32{{1, 2}, {3}})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestBuild_CopiesInput(t *testing.T) {
	m := matrixOf([]float32{1, 1})
	idx, err := Build(m)
	require.NoError(t, err)
	m.Data[0] = 100

	hits, err := idx.Search([]float32{1, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, float32(0), hits[0].Distance)
}

func TestBuild_Idempotent(t *testing.T) {
	m := randomMatrix(50, 8, 1)
	a, err := Build(m)
	require.NoError(t, err)
	b, err := Build(m)
	require.NoError(t, err)

	q := m.Row(7)
	ha, err := a.Search(q, 10)
	require.NoError(t, err)
	hb, err := b.Search(q, 10)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
	assert.Equal(t, 7, ha[0].ID)
}

func TestSearch_MatchesFullSort(t *testing.T) {
	m := randomMatrix(200, 4, 2)
	idx, err := Build(m)
	require.NoError(t, err)

	q := []float32{0.1, -0.2, 0.3, 0}
	all, err := idx.Search(q, m.Rows)
	require.NoError(t, err)
	top, err := idx.Search(q, 7)
	require.NoError(t, err)
	assert.Equal(t, all[:7], top)
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].Distance, all[i].Distance)
	}
}

func randomMatrix(rows, cols int, seed int64) vectorstore.Matrix {
	r := rand.New(rand.NewSource(seed))
	m := vectorstore.Matrix{Rows: rows, Cols: cols, Data: make([]float32, rows*cols)}
	for i := range m.Data {
		m.Data[i] = r.Float32()*2 - 1
	}
	return m
}

func ids(hits []Hit) []int {
	out := make([]int, len(hits))
	for i, h := range hits {
		out[i] = h.ID
	}
	return out
}
