package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"reviewrag/internal/domain"
)

// LogConfig mirrors the arguments of the process logger.
type LogConfig struct {
	File      string `yaml:"file"`
	Level     string `yaml:"level"`
	FileCount int    `yaml:"file_count"`
	FileSize  int    `yaml:"file_size"`
	KeepDays  int    `yaml:"keep_days"`
	Console   bool   `yaml:"console"`
}

// DataConfig holds the locations of every pipeline input and artifact.
type DataConfig struct {
	ReviewsPath    string `yaml:"reviews_path"`
	MetaPath       string `yaml:"meta_path"`
	Limit          int    `yaml:"limit"`
	ChunksPath     string `yaml:"chunks_path"`
	EmbeddingsPath string `yaml:"embeddings_path"`
	MetadataPath   string `yaml:"metadata_path"`
	IndexPath      string `yaml:"index_path"`
	ModelPath      string `yaml:"model_path"`
	QueriesPath    string `yaml:"queries_path"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type"`
	WindowWords       int    `yaml:"window_words"`
	OverlapWords      int    `yaml:"overlap_words"`
	MinDocWords       int    `yaml:"min_doc_words"`
	MinChunkChars     int    `yaml:"min_chunk_chars"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	Model             string  `yaml:"model"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	MaxRetries        int     `yaml:"max_retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// GeminiConfig configures access to the Gemini API.
type GeminiConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type         string                `yaml:"type"`
	BatchSize    int                   `yaml:"batch_size"`
	CacheSize    int                   `yaml:"cache_size"`
	CacheTTLSecs int                   `yaml:"cache_ttl_secs"`
	OpenAI       *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
	Gemini       *GeminiConfig         `yaml:"gemini,omitempty"`
}

// RetrieverConfig configures nearest-neighbour retrieval.
type RetrieverConfig struct {
	TopK int `yaml:"top_k"`
}

// ContextConfig configures the token-budgeted context block.
type ContextConfig struct {
	MaxTokens        int    `yaml:"max_tokens"`
	MinPartialTokens int    `yaml:"min_partial_tokens"`
	Tokenizer        string `yaml:"tokenizer"`
	Model            string `yaml:"model"`
}

// OpenAIGeneratorConfig configures the chat completion generator.
type OpenAIGeneratorConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// OllamaConfig configures the local Ollama generator.
type OllamaConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// GeneratorConfig selects and configures the answer generator.
type GeneratorConfig struct {
	Type         string                 `yaml:"type"`
	TimeoutSecs  int                    `yaml:"timeout_secs"`
	MaxSentences int                    `yaml:"max_sentences"`
	OpenAI       *OpenAIGeneratorConfig `yaml:"openai,omitempty"`
	Ollama       *OllamaConfig          `yaml:"ollama,omitempty"`
	Gemini       *GeminiConfig          `yaml:"gemini,omitempty"`
}

// Timeout returns the generation deadline.
func (g GeneratorConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Log       LogConfig       `yaml:"log"`
	Data      DataConfig      `yaml:"data"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Retriever RetrieverConfig `yaml:"retriever"`
	Context   ContextConfig   `yaml:"context"`
	Generator GeneratorConfig `yaml:"generator"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrConfiguration, path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/reviewrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/reviewrag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Marshal renders cfg as YAML.
func Marshal(cfg *AppConfig) ([]byte, error) {
	return yaml.Marshal(cfg)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "reviewrag", "config.yaml"), nil
}

// Default returns a configuration that runs fully offline.
func Default() *AppConfig {
	cfg := &AppConfig{
		Log:       LogConfig{Level: "info", Console: true},
		Chunker:   ChunkerConfig{Type: "word"},
		Embedder:  EmbedderConfig{Type: "tfidf"},
		Generator: GeneratorConfig{Type: "extractive"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	d := &cfg.Data
	if d.ReviewsPath == "" {
		d.ReviewsPath = "data/reviews.jsonl"
	}
	if d.QueriesPath == "" {
		d.QueriesPath = "data/queries.yaml"
	}
	if d.ChunksPath == "" {
		d.ChunksPath = "data/chunks.jsonl"
	}
	if d.EmbeddingsPath == "" {
		d.EmbeddingsPath = "data/embeddings.bin"
	}
	if d.MetadataPath == "" {
		d.MetadataPath = "data/metadata.jsonl"
	}
	if d.IndexPath == "" {
		d.IndexPath = "data/reviews.idx"
	}
	if d.ModelPath == "" {
		d.ModelPath = "data/tfidf.json"
	}

	c := &cfg.Chunker
	if c.Type == "" {
		c.Type = "word"
	}
	if c.WindowWords == 0 {
		c.WindowWords = 250
	}
	if c.OverlapWords == 0 {
		c.OverlapWords = 50
	}
	if c.MinDocWords == 0 {
		c.MinDocWords = 40
	}
	if c.MinChunkChars == 0 {
		c.MinChunkChars = 40
	}
	if c.SentencesPerChunk == 0 {
		c.SentencesPerChunk = 5
	}

	e := &cfg.Embedder
	if e.Type == "" {
		e.Type = "tfidf"
	}
	if e.BatchSize == 0 {
		e.BatchSize = 32
	}
	if e.CacheSize == 0 {
		e.CacheSize = 1024
	}
	if e.CacheTTLSecs == 0 {
		e.CacheTTLSecs = 600
	}
	if e.Type == "openai" {
		if e.OpenAI == nil {
			e.OpenAI = &OpenAIEmbedderConfig{}
		}
		if e.OpenAI.BaseURL == "" {
			e.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if e.OpenAI.APIKeyEnv == "" {
			e.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if e.OpenAI.Model == "" {
			e.OpenAI.Model = "text-embedding-3-small"
		}
		if e.OpenAI.TimeoutSecs == 0 {
			e.OpenAI.TimeoutSecs = 30
		}
		if e.OpenAI.MaxRetries == 0 {
			e.OpenAI.MaxRetries = 5
		}
		if e.OpenAI.RequestsPerSecond == 0 {
			e.OpenAI.RequestsPerSecond = 5
		}
	}
	if e.Type == "gemini" {
		if e.Gemini == nil {
			e.Gemini = &GeminiConfig{}
		}
		if e.Gemini.APIKeyEnv == "" {
			e.Gemini.APIKeyEnv = "GEMINI_API_KEY"
		}
		if e.Gemini.Model == "" {
			e.Gemini.Model = "text-embedding-004"
		}
	}

	if cfg.Retriever.TopK == 0 {
		cfg.Retriever.TopK = 5
	}

	x := &cfg.Context
	if x.MaxTokens == 0 {
		x.MaxTokens = 3000
	}
	if x.MinPartialTokens == 0 {
		x.MinPartialTokens = 50
	}
	if x.Tokenizer == "" {
		x.Tokenizer = "words"
	}
	if x.Model == "" {
		x.Model = "gpt-4o-mini"
	}

	g := &cfg.Generator
	if g.Type == "" {
		g.Type = "extractive"
	}
	if g.TimeoutSecs == 0 {
		g.TimeoutSecs = 120
	}
	if g.MaxSentences == 0 {
		g.MaxSentences = 5
	}
	switch g.Type {
	case "openai":
		if g.OpenAI == nil {
			g.OpenAI = &OpenAIGeneratorConfig{}
		}
		if g.OpenAI.BaseURL == "" {
			g.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if g.OpenAI.APIKeyEnv == "" {
			g.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if g.OpenAI.Model == "" {
			g.OpenAI.Model = "gpt-4o-mini"
		}
		if g.OpenAI.MaxTokens == 0 {
			g.OpenAI.MaxTokens = 512
		}
	case "ollama":
		if g.Ollama == nil {
			g.Ollama = &OllamaConfig{}
		}
		if g.Ollama.BaseURL == "" {
			g.Ollama.BaseURL = "http://localhost:11434"
		}
		if g.Ollama.Model == "" {
			g.Ollama.Model = "mistral"
		}
	case "gemini":
		if g.Gemini == nil {
			g.Gemini = &GeminiConfig{}
		}
		if g.Gemini.APIKeyEnv == "" {
			g.Gemini.APIKeyEnv = "GEMINI_API_KEY"
		}
		if g.Gemini.Model == "" {
			g.Gemini.Model = "gemini-2.0-flash"
		}
	}
}

// Validate reports the first invalid setting as domain.ErrConfiguration.
func (c *AppConfig) Validate() error {
	switch c.Chunker.Type {
	case "word":
		if c.Chunker.OverlapWords <= 0 || c.Chunker.WindowWords <= c.Chunker.OverlapWords {
			return invalid("chunker: window_words (%d) must exceed overlap_words (%d) > 0", c.Chunker.WindowWords, c.Chunker.OverlapWords)
		}
	case "sentence":
		if c.Chunker.OverlapSentences < 0 || c.Chunker.SentencesPerChunk <= c.Chunker.OverlapSentences {
			return invalid("chunker: sentences_per_chunk (%d) must exceed overlap_sentences (%d)", c.Chunker.SentencesPerChunk, c.Chunker.OverlapSentences)
		}
	default:
		return invalid("unknown chunker: %s", c.Chunker.Type)
	}
	if c.Chunker.MinDocWords < 0 || c.Chunker.MinChunkChars < 0 {
		return invalid("chunker: minimum sizes must not be negative")
	}

	switch c.Embedder.Type {
	case "tfidf", "openai", "gemini":
	default:
		return invalid("unknown embedder: %s", c.Embedder.Type)
	}
	if c.Embedder.BatchSize < 1 {
		return invalid("embedder: batch_size must be at least 1")
	}

	if c.Retriever.TopK < 1 {
		return invalid("retriever: top_k must be at least 1, got %d", c.Retriever.TopK)
	}
	if c.Context.MaxTokens < 0 || c.Context.MinPartialTokens < 0 {
		return invalid("context: token limits must not be negative")
	}
	switch c.Context.Tokenizer {
	case "words", "tiktoken":
	default:
		return invalid("unknown tokenizer: %s", c.Context.Tokenizer)
	}

	switch c.Generator.Type {
	case "extractive", "openai", "ollama", "gemini":
	default:
		return invalid("unknown generator: %s", c.Generator.Type)
	}
	if c.Generator.TimeoutSecs < 0 {
		return invalid("generator: timeout_secs must not be negative")
	}

	for name, p := range map[string]string{
		"chunks_path":     c.Data.ChunksPath,
		"embeddings_path": c.Data.EmbeddingsPath,
		"metadata_path":   c.Data.MetadataPath,
		"index_path":      c.Data.IndexPath,
	} {
		if p == "" {
			return invalid("data: %s is required", name)
		}
	}
	if c.Data.Limit < 0 {
		return invalid("data: limit must not be negative")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrConfiguration, fmt.Sprintf(format, args...))
}
