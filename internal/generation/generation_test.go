package generation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewrag/internal/config"
	"reviewrag/internal/domain"
)

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt("SYS", "CTX", "Is it sturdy?")
	assert.Equal(t, "SYS\n\nUse the following retrieved review excerpts as factual context:\n\nCTX\n\nQuestion: Is it sturdy?\nAnswer concisely and cite sources.", got)
	assert.Equal(t, got, Request{System: "SYS", Context: "CTX", Question: "Is it sturdy?"}.Prompt())
	assert.Contains(t, DefaultSystemInstructions, domain.NoAnswer)
}

type funcGenerator func(ctx context.Context, req Request) (string, error)

func (f funcGenerator) Name() string { return "func" }

func (f funcGenerator) Generate(ctx context.Context, req Request) (string, error) { return f(ctx, req) }

func TestWithTimeout_Deadline(t *testing.T) {
	slow := funcGenerator(func(ctx context.Context, _ Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	_, err := WithTimeout(slow, 10*time.Millisecond).Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.ErrorIs(t, err, domain.ErrGenerationTimeout)
	assert.True(t, domain.IsRetryable(err))
}

func TestWithTimeout_OtherFailure(t *testing.T) {
	broken := funcGenerator(func(context.Context, Request) (string, error) {
		return "", errors.New("quota exceeded")
	})
	_, err := WithTimeout(broken, time.Second).Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.False(t, domain.IsRetryable(err))
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestWithTimeout_Success(t *testing.T) {
	ok := funcGenerator(func(context.Context, Request) (string, error) { return "fine", nil })
	out, err := WithTimeout(ok, 0).Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "fine", out)
}

const sampleContext = "[source:B001:c1]\nProduct: TripodX\nThe legs are sturdy and lock firmly. Shipping was slow.\n\n" +
	"[source:B002:c2]\nProduct: TripodX\nThe plate feels cheap but the legs stay sturdy in wind....\n"

func TestExtractive_CitesSources(t *testing.T) {
	out, err := NewExtractive(2).Generate(context.Background(), Request{Context: sampleContext, Question: "Are the legs sturdy?"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "The legs are sturdy and lock firmly. [source:B001:c1]"))
	assert.Contains(t, out, "[source:B002:c2]")
	assert.NotContains(t, out, "Shipping")
	assert.Contains(t, out, "Sources: [source:B001:c1], [source:B002:c2]")
}

func TestExtractive_NoSupport(t *testing.T) {
	out, err := NewExtractive(3).Generate(context.Background(), Request{Context: sampleContext, Question: "battery life?"})
	require.NoError(t, err)
	assert.Equal(t, domain.NoAnswer, out)

	out, err = NewExtractive(3).Generate(context.Background(), Request{Question: "legs?"})
	require.NoError(t, err)
	assert.Equal(t, domain.NoAnswer, out)
}

func TestPassages(t *testing.T) {
	ps := passages(sampleContext)
	require.Len(t, ps, 2)
	assert.Equal(t, "[source:B001:c1]", ps[0].Source)
	assert.Equal(t, "The legs are sturdy and lock firmly. Shipping was slow.", ps[0].Text)
	assert.Equal(t, "The plate feels cheap but the legs stay sturdy in wind", ps[1].Text)
}

func TestPassages_ChunkTextKeepsItsProductLabel(t *testing.T) {
	block := "[source:B001:c1]\nProduct: TripodX\nProduct: TripodX. Review Title: Solid. Review: Legs are sturdy.\n"
	ps := passages(block)
	require.Len(t, ps, 1)
	assert.Equal(t, "Product: TripodX. Review Title: Solid. Review: Legs are sturdy.", ps[0].Text)
}

func TestOpenAI_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req["model"])
		assert.Equal(t, float64(0), req["temperature"])
		assert.Equal(t, float64(512), req["max_tokens"])
		msgs := req["messages"].([]any)
		require.Len(t, msgs, 2)
		assert.Contains(t, msgs[1].(map[string]any)["content"], "Question: sturdy?")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Yes [source:B001:c1] "}}]}`))
	}))
	defer srv.Close()

	t.Setenv("TEST_GEN_KEY", "k")
	g, err := NewOpenAI(OpenAIConfig{BaseURL: srv.URL, APIKeyEnv: "TEST_GEN_KEY", MaxTokens: 512})
	require.NoError(t, err)
	out, err := g.Generate(context.Background(), Request{System: "s", Context: "c", Question: "sturdy?"})
	require.NoError(t, err)
	assert.Equal(t, "Yes [source:B001:c1]", out)
}

func TestOpenAI_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid key"}}`))
	}))
	defer srv.Close()

	t.Setenv("TEST_GEN_KEY", "k")
	g, err := NewOpenAI(OpenAIConfig{BaseURL: srv.URL, APIKeyEnv: "TEST_GEN_KEY"})
	require.NoError(t, err)
	_, err = WithTimeout(g, time.Second).Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.Contains(t, err.Error(), "invalid key")
}

func TestOllama_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mistral", req.Model)
		assert.False(t, req.Stream)
		_, _ = w.Write([]byte(`{"response":"Sturdy. [source:B001:c1]","done":true}`))
	}))
	defer srv.Close()

	out, err := NewOllama(OllamaConfig{BaseURL: srv.URL}).Generate(context.Background(), Request{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, "Sturdy. [source:B001:c1]", out)
}

func TestOllama_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	g := WithTimeout(NewOllama(OllamaConfig{BaseURL: srv.URL}), 20*time.Millisecond)
	_, err := g.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, domain.ErrGenerationTimeout)
}

func TestNew(t *testing.T) {
	g, err := New(context.Background(), config.GeneratorConfig{Type: "extractive", MaxSentences: 3, TimeoutSecs: 5})
	require.NoError(t, err)
	assert.Equal(t, "extractive", g.Name())

	_, err = New(context.Background(), config.GeneratorConfig{Type: "oracle"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	_, err = New(context.Background(), config.GeneratorConfig{Type: "ollama"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
