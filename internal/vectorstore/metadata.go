package vectorstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"reviewrag/internal/chunker"
	"reviewrag/internal/domain"
)

// WriteMetadata writes one JSON record per chunk.
func WriteMetadata(w io.Writer, chunks []domain.Chunk) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i := range chunks {
		if err := enc.Encode(&chunks[i]); err != nil {
			return fmt.Errorf("write metadata row %d: %w", i, err)
		}
	}
	return nil
}

// SaveMetadata writes the metadata file atomically.
func SaveMetadata(path string, chunks []domain.Chunk) error {
	return writeAtomic(path, func(w io.Writer) error { return WriteMetadata(w, chunks) })
}

// LoadMetadata reads the metadata file in row order.
func LoadMetadata(path string) ([]domain.Chunk, error) {
	f, err := openArtifact(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return chunker.ReadChunks(bufio.NewReader(f))
}

// Paths names the two files of an embedding artifact.
type Paths struct {
	Matrix   string
	Metadata string
}

// Save persists the store as a matrix file and a metadata file.
func (s *Store) Save(p Paths) error {
	if err := SaveMatrix(p.Matrix, s.Matrix()); err != nil {
		return fmt.Errorf("save embeddings: %w", err)
	}
	if err := SaveMetadata(p.Metadata, s.Chunks()); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	return nil
}

// Load reads both files and rejects a row count mismatch.
func Load(p Paths) (*Store, error) {
	m, err := LoadMatrix(p.Matrix)
	if err != nil {
		return nil, err
	}
	chunks, err := LoadMetadata(p.Metadata)
	if err != nil {
		return nil, err
	}
	return FromColumns(m, chunks)
}
