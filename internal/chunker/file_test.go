package chunker

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewrag/internal/domain"
)

func docSeq(docs ...domain.Document) iter.Seq2[domain.Document, error] {
	return func(yield func(domain.Document, error) bool) {
		for _, d := range docs {
			if !yield(d, nil) {
				return
			}
		}
	}
}

func TestChunkAll_RoundTrip(t *testing.T) {
	c, err := NewWordChunker(250, 50, WithIDFunc(sequentialIDs()))
	require.NoError(t, err)

	var buf bytes.Buffer
	st, err := ChunkAll(context.Background(), c, docSeq(reviewDoc(300), reviewDoc(5), reviewDoc(100)), &buf)
	require.NoError(t, err)
	assert.Equal(t, Stats{Documents: 3, Skipped: 1, Chunks: 3}, st)

	chunks, err := ReadChunks(&buf)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, []string{"chunk-1", "chunk-2", "chunk-3"}, []string{chunks[0].ChunkID, chunks[1].ChunkID, chunks[2].ChunkID})
	assert.Equal(t, "TripodX", chunks[2].ProductName)
}

func TestChunkAll_SourceError(t *testing.T) {
	c, err := NewWordChunker(250, 50)
	require.NoError(t, err)
	boom := errors.New("bad line")
	docs := func(yield func(domain.Document, error) bool) {
		yield(domain.Document{}, boom)
	}

	_, err = ChunkAll(context.Background(), c, docs, &bytes.Buffer{})
	assert.ErrorIs(t, err, boom)
}

func TestWriteChunkFile(t *testing.T) {
	c, err := NewWordChunker(250, 50)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "chunks", "reviews.jsonl")

	st, err := WriteChunkFile(context.Background(), path, c, docSeq(reviewDoc(500)))
	require.NoError(t, err)
	assert.Equal(t, 3, st.Chunks)

	chunks, err := ReadChunkFile(path)
	require.NoError(t, err)
	assert.Len(t, chunks, 3)
}

func TestReadChunkFile_Missing(t *testing.T) {
	_, err := ReadChunkFile(filepath.Join(t.TempDir(), "nope.jsonl"))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
