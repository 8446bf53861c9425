// Package vectorstore keeps embedding vectors and chunk metadata as one
// aligned sequence and persists them as a matrix file plus a JSONL
// metadata file with identical row order.
package vectorstore

import (
	"fmt"

	"reviewrag/internal/domain"
)

// Record pairs a chunk with its embedding vector.
type Record struct {
	Vector []float32
	Chunk  domain.Chunk
}

// Store is an append-only sequence of records sharing one dimension.
// Row i of the matrix always describes Chunk(i).
type Store struct {
	dimension int
	records   []Record
}

// New returns an empty store for vectors of the given dimension.
func New(dimension int) (*Store, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: invalid dimension %d", domain.ErrConfiguration, dimension)
	}
	return &Store{dimension: dimension}, nil
}

// Append adds one record. The vector is copied.
func (s *Store) Append(vec []float32, chunk domain.Chunk) error {
	if len(vec) != s.dimension {
		return fmt.Errorf("%w: vector dimension %d, store dimension %d", domain.ErrConfiguration, len(vec), s.dimension)
	}
	v := make([]float32, len(vec))
	copy(v, vec)
	s.records = append(s.records, Record{Vector: v, Chunk: chunk})
	return nil
}

// Len returns the number of records.
func (s *Store) Len() int { return len(s.records) }

// Dimension returns the vector dimension.
func (s *Store) Dimension() int { return s.dimension }

// Record returns the record at row i.
func (s *Store) Record(i int) (Record, bool) {
	if i < 0 || i >= len(s.records) {
		return Record{}, false
	}
	return s.records[i], true
}

// Chunks returns the metadata column in row order.
func (s *Store) Chunks() []domain.Chunk {
	out := make([]domain.Chunk, len(s.records))
	for i := range s.records {
		out[i] = s.records[i].Chunk
	}
	return out
}

// Matrix returns the vector column as one contiguous row-major matrix.
func (s *Store) Matrix() Matrix {
	m := Matrix{Rows: len(s.records), Cols: s.dimension, Data: make([]float32, len(s.records)*s.dimension)}
	for i := range s.records {
		copy(m.Data[i*s.dimension:], s.records[i].Vector)
	}
	return m
}

// FromColumns zips a matrix and a metadata slice into a store. It fails when
// the row counts differ.
func FromColumns(m Matrix, chunks []domain.Chunk) (*Store, error) {
	if m.Rows != len(chunks) {
		return nil, fmt.Errorf("%w: embedding matrix has %d rows but metadata has %d records", domain.ErrConfiguration, m.Rows, len(chunks))
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	s, err := New(m.Cols)
	if err != nil {
		return nil, err
	}
	s.records = make([]Record, 0, m.Rows)
	for i := range chunks {
		if err := s.Append(m.Row(i), chunks[i]); err != nil {
			return nil, err
		}
	}
	return s, nil
}
