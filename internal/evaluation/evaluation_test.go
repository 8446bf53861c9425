package evaluation

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewrag/internal/domain"
)

type stubRetriever map[string]domain.Results

func (s stubRetriever) Retrieve(_ context.Context, q string, k int) (domain.Results, error) {
	res, ok := s[q]
	if !ok {
		return nil, errors.New("unexpected query")
	}
	if len(res) > k {
		res = res[:k]
	}
	return res, nil
}

func hit(asin, id, text string) domain.SearchResult {
	return domain.SearchResult{Chunk: domain.Chunk{ASIN: asin, ChunkID: id, Text: text}}
}

func TestEvaluate(t *testing.T) {
	r := stubRetriever{
		"tripod stable?": {hit("B1", "c1", "rock solid"), hit("B2", "c2", "wobbly legs"), hit("B3", "c3", "x")},
		"battery?":       {hit("B9", "c9", "Battery lasts"), hit("B8", "c8", "nope")},
		"price?":         {hit("B7", "c7", "meh")},
	}
	qs := &QuerySet{K: 3, Queries: []Query{
		{Query: "tripod stable?", RelevantASINs: []string{"B1"}, RelevantChunks: []string{"c3"}},
		{Query: "battery?", Keywords: []string{"battery"}},
		{Query: "price?", RelevantASINs: []string{"B0"}},
	}}

	rep, err := Evaluate(context.Background(), r, qs, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.K)
	assert.Equal(t, 2, rep.Queries[0].Relevant)
	assert.Equal(t, []bool{true, false, true}, rep.Queries[0].Flags)
	assert.Equal(t, 1, rep.Queries[1].Relevant)
	assert.InDelta(t, 3.0/9.0, rep.PrecisionAtK, 1e-9)
	assert.InDelta(t, 2.0/3.0, rep.HitRate, 1e-9)

	var buf bytes.Buffer
	require.NoError(t, rep.Write(&buf))
	assert.Contains(t, buf.String(), "PRECISION@3: 0.33")
	assert.Contains(t, buf.String(), "* 1. distance=0.0000 asin=B1 chunk=c1")
}

func TestEvaluate_PropagatesErrors(t *testing.T) {
	_, err := Evaluate(context.Background(), stubRetriever{}, &QuerySet{Queries: []Query{{Query: "?"}}}, 2)
	assert.Error(t, err)
}

func TestLoadQuerySet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
k: 5
queries:
  - query: Is the included tripod stable enough for photography?
    keywords: [tripod, stable]
  - query: Do reviewers say this product is worth the price paid?
    relevant_asins: [B000123]
`), 0o644))

	qs, err := LoadQuerySet(path)
	require.NoError(t, err)
	assert.Equal(t, 5, qs.K)
	require.Len(t, qs.Queries, 2)
	assert.Equal(t, []string{"tripod", "stable"}, qs.Queries[0].Keywords)
	assert.Equal(t, []string{"B000123"}, qs.Queries[1].RelevantASINs)
}

func TestLoadQuerySet_Invalid(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadQuerySet(filepath.Join(dir, "none.yaml"))
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("k: 3\n"), 0o644))
	_, err = LoadQuerySet(empty)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
