package domain

// SearchResult is a retrieved chunk with its squared L2 distance to the query.
// ID is the row position of the chunk in the index.
type SearchResult struct {
	ID       int
	Distance float32
	Chunk    Chunk
}

// Results are ordered best match first (ascending distance).
type Results []SearchResult

// Distances returns the distances in result order.
func (r Results) Distances() []float32 {
	out := make([]float32, len(r))
	for i := range r {
		out[i] = r[i].Distance
	}
	return out
}

// IDs returns the index ids in result order.
func (r Results) IDs() []int {
	out := make([]int, len(r))
	for i := range r {
		out[i] = r[i].ID
	}
	return out
}

// Chunks returns the chunk metadata in result order.
func (r Results) Chunks() []Chunk {
	out := make([]Chunk, len(r))
	for i := range r {
		out[i] = r[i].Chunk
	}
	return out
}

// Source is a citation returned alongside an answer.
type Source struct {
	ASIN        string  `json:"asin"`
	ChunkID     string  `json:"chunk_id"`
	ProductName string  `json:"product_name"`
	Distance    float32 `json:"distance"`
}

// NoAnswer is returned when the retrieved context cannot support an answer.
const NoAnswer = "I don't know based on the provided information."

// Answer is the result of asking a question against the index.
type Answer struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Sources  []Source `json:"sources"`
	Prompt   string   `json:"prompt"`
}
