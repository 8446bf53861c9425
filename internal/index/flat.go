// Package index provides an exact nearest-neighbour index over an embedding
// matrix using squared Euclidean distance.
package index

import (
	"container/heap"
	"fmt"
	"math"
	"sort"

	"reviewrag/internal/domain"
	"reviewrag/internal/vectorstore"
)

// Hit is a single search result. ID is the row position in the matrix the
// index was built from.
type Hit struct {
	ID       int
	Distance float32
}

// Flat is an immutable brute-force index. It is safe for concurrent searches.
type Flat struct {
	dim  int
	n    int
	data []float32
}

// Build copies m into a new index. Rows keep their order, so row i of m is
// reported as id i.
func Build(m vectorstore.Matrix) (*Flat, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	data := make([]float32, len(m.Data))
	for i, v := range m.Data {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("%w: non-finite value in row %d", domain.ErrConfiguration, i/m.Cols)
		}
		data[i] = v
	}
	return &Flat{dim: m.Cols, n: m.Rows, data: data}, nil
}

// FromRows builds an index from individual vectors of equal length.
func FromRows(rows [][]float32) (*Flat, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no vectors to index", domain.ErrConfiguration)
	}
	dim := len(rows[0])
	m := vectorstore.Matrix{Rows: len(rows), Cols: dim, Data: make([]float32, 0, len(rows)*dim)}
	for i, r := range rows {
		if len(r) != dim {
			return nil, fmt.Errorf("%w: row %d has dimension %d, want %d", domain.ErrConfiguration, i, len(r), dim)
		}
		m.Data = append(m.Data, r...)
	}
	return Build(m)
}

// Len returns the number of indexed vectors.
func (f *Flat) Len() int { return f.n }

// Dimension returns the vector dimension.
func (f *Flat) Dimension() int { return f.dim }

func (f *Flat) row(i int) []float32 {
	return f.data[i*f.dim : (i+1)*f.dim]
}

// Search returns up to k hits ordered by ascending distance. Equal distances
// are ordered by ascending id. When k exceeds Len all vectors are returned.
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", domain.ErrConfiguration, k)
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d", domain.ErrConfiguration, len(query), f.dim)
	}
	k = min(k, f.n)
	if k == 0 {
		return []Hit{}, nil
	}
	h := make(worstFirst, 0, k)
	for i := 0; i < f.n; i++ {
		d := L2Squared(query, f.row(i))
		if h.Len() < k {
			heap.Push(&h, Hit{ID: i, Distance: d})
		} else if better(Hit{ID: i, Distance: d}, h[0]) {
			h[0] = Hit{ID: i, Distance: d}
			heap.Fix(&h, 0)
		}
	}
	out := []Hit(h)
	sort.Slice(out, func(i, j int) bool { return better(out[i], out[j]) })
	return out, nil
}

// L2Squared returns the squared Euclidean distance between equal-length
// vectors.
func L2Squared(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func better(a, b Hit) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.ID < b.ID
}

// worstFirst is a max-heap: the root is the current worst of the top k.
type worstFirst []Hit

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return better(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x any) { *h = append(*h, x.(Hit)) }

func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
