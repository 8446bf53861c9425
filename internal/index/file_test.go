package index

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewrag/internal/domain"
)

func TestSaveLoad_SameResults(t *testing.T) {
	m := randomMatrix(64, 16, 3)
	idx, err := Build(m)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "artifacts", "reviews.idx")
	require.NoError(t, idx.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, idx.Len(), loaded.Len())
	assert.Equal(t, idx.Dimension(), loaded.Dimension())

	for _, row := range []int{0, 13, 63} {
		q := m.Row(row)
		want, err := idx.Search(q, 5)
		require.NoError(t, err)
		got, err := loaded.Search(q, 5)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestSave_ReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reviews.idx")

	first, err := FromRows([][]float32{{1, 2}})
	require.NoError(t, err)
	require.NoError(t, first.Save(path))
	second, err := FromRows([][]float32{{1, 2}, {3, 4}})
	require.NoError(t, err)
	require.NoError(t, second.Save(path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.idx"))
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
}

func TestLoad_Corrupt(t *testing.T) {
	idx, err := Build(randomMatrix(4, 3, 4))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "reviews.idx")
	require.NoError(t, idx.Save(path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	cases := map[string][]byte{
		"flipped byte": func() []byte {
			b := append([]byte(nil), raw...)
			b[30] ^= 0xff
			return b
		}(),
		"truncated": raw[:len(raw)-6],
		"bad magic":  append([]byte("NOPE"), raw[4:]...),
		"empty":      {},
		"huge count": append(header(t, 3, 1<<40), raw[20:]...),
		"count past data": append(header(t, 3, 1<<20), raw[20:]...),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "bad.idx")
			require.NoError(t, os.WriteFile(p, data, 0o644))
			_, err := Load(p)
			assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
		})
	}
}

func header(t *testing.T, dim uint32, count uint64) []byte {
	t.Helper()
	h := fileHeader{Version: fileVersion, Metric: metricL2, Dim: dim, Count: count}
	copy(h.Magic[:], fileMagic)
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, &h))
	return buf.Bytes()
}

func TestRead_LyingHeaderDoesNotAllocate(t *testing.T) {
	for name, h := range map[string][]byte{
		"beyond any real file": header(t, 1024, 1<<30),
		"more rows than bytes": header(t, 1024, 1<<20),
	} {
		t.Run(name, func(t *testing.T) {
			data := append(h, make([]byte, 64)...)
			_, err := Read(bytes.NewReader(data))
			assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
		})
	}
}
