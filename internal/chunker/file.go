package chunker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"reviewrag/internal/domain"
)

// maxLineSize bounds a single JSONL record.
const maxLineSize = 16 << 20

// Stats summarises a chunking pass.
type Stats struct {
	Documents int
	Skipped   int
	Chunks    int
}

// ChunkAll chunks every document from docs and streams the chunks to w as
// JSON lines, in document order.
func ChunkAll(ctx context.Context, c Chunker, docs iter.Seq2[domain.Document, error], w io.Writer) (Stats, error) {
	var st Stats
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for doc, err := range docs {
		if err != nil {
			return st, err
		}
		if err := ctx.Err(); err != nil {
			return st, err
		}
		st.Documents++
		chunks, err := c.Chunk(doc)
		if err != nil {
			return st, err
		}
		if len(chunks) == 0 {
			st.Skipped++
			continue
		}
		for i := range chunks {
			if err := enc.Encode(&chunks[i]); err != nil {
				return st, fmt.Errorf("write chunk: %w", err)
			}
		}
		st.Chunks += len(chunks)
	}
	logutil.GetLogger(ctx).Info("chunking completed",
		zap.Int("documents", st.Documents),
		zap.Int("skipped", st.Skipped),
		zap.Int("chunks", st.Chunks),
	)
	return st, nil
}

// WriteChunkFile chunks docs into path. The file is replaced atomically.
func WriteChunkFile(ctx context.Context, path string, c Chunker, docs iter.Seq2[domain.Document, error]) (Stats, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Stats{}, err
	}
	pf, err := renameio.NewPendingFile(path)
	if err != nil {
		return Stats{}, err
	}
	defer pf.Cleanup()
	bw := bufio.NewWriter(pf)
	st, err := ChunkAll(ctx, c, docs, bw)
	if err != nil {
		return st, err
	}
	if err := bw.Flush(); err != nil {
		return st, err
	}
	return st, pf.CloseAtomicallyReplace()
}

// ReadChunks decodes a JSONL chunk stream.
func ReadChunks(r io.Reader) ([]domain.Chunk, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	var chunks []domain.Chunk
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var ch domain.Chunk
		if err := json.Unmarshal(sc.Bytes(), &ch); err != nil {
			return nil, fmt.Errorf("chunk line %d: %w", line, err)
		}
		chunks = append(chunks, ch)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return chunks, nil
}

// ReadChunkFile loads all chunks from a JSONL file.
func ReadChunkFile(path string) ([]domain.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: chunk file %s not found", domain.ErrConfiguration, path)
		}
		return nil, err
	}
	defer f.Close()
	return ReadChunks(f)
}
