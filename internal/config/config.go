// Package config is the layered configuration loader for the corpusengine
// CLI: defaults, then a YAML file, then environment variables, using
// github.com/spf13/viper the way the teacher's internal/config/config.go and
// loader.go do it, generalized from the teacher's
// Embedding/Paths/Chunking sections to this repo's
// Embedding/Store/Chunking/Query/Loader/Watch sections.
package config

import "time"

// Config is the complete corpusengine configuration.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Chunking  ChunkingConfig  `yaml:"chunking" mapstructure:"chunking"`
	Query     QueryConfig     `yaml:"query" mapstructure:"query"`
	Loader    LoaderConfig    `yaml:"loader" mapstructure:"loader"`
	Watch     WatchConfig     `yaml:"watch" mapstructure:"watch"`
}

// EmbeddingConfig selects and sizes the embedder (spec.md §4.3). Only the
// "mock" provider ships in this repo; model weights and inference runtimes
// are explicitly out of scope, so Provider exists to let a caller plug in
// their own Embedder without reshaping this config.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"`
	Dimension int    `yaml:"dimension" mapstructure:"dimension"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	CacheSize int    `yaml:"cache_size" mapstructure:"cache_size"` // 0 disables the Caching decorator
}

// StoreConfig configures the SQLite-backed store (spec.md §5).
type StoreConfig struct {
	Path         string        `yaml:"path" mapstructure:"path"`
	MaxOpenConns int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	BusyTimeout  time.Duration `yaml:"busy_timeout" mapstructure:"busy_timeout"`
	NodeID       uint16        `yaml:"node_id" mapstructure:"node_id"`
}

// ChunkingConfig holds the default CollectionSettings applied to a
// collection created without explicit overrides (spec.md §3).
type ChunkingConfig struct {
	MaxTokens          int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	MinTokens          int     `yaml:"min_tokens" mapstructure:"min_tokens"`
	OverlapTokens      int     `yaml:"overlap_tokens" mapstructure:"overlap_tokens"`
	DefaultTopK        int     `yaml:"default_top_k" mapstructure:"default_top_k"`
	DefaultHybridAlpha float64 `yaml:"default_hybrid_alpha" mapstructure:"default_hybrid_alpha"`
}

// QueryConfig holds the query.Config defaults (spec.md §4.5).
type QueryConfig struct {
	VectorK          int     `yaml:"vector_k" mapstructure:"vector_k"`
	KeywordK         int     `yaml:"keyword_k" mapstructure:"keyword_k"`
	RRFK             float64 `yaml:"rrf_k" mapstructure:"rrf_k"`
	FinalK           int     `yaml:"final_k" mapstructure:"final_k"`
	HybridAlpha      float64 `yaml:"hybrid_alpha" mapstructure:"hybrid_alpha"`
	ExpandContext    bool    `yaml:"expand_context" mapstructure:"expand_context"`
	MaxContextTokens int     `yaml:"max_context_tokens" mapstructure:"max_context_tokens"`
}

// LoaderConfig restricts which file paths and hosts internal/loader will
// fetch from (spec.md §6).
type LoaderConfig struct {
	AllowPatterns []string `yaml:"allow_patterns" mapstructure:"allow_patterns"`
}

// WatchConfig configures the optional internal/watch filesystem watcher.
type WatchConfig struct {
	Enabled    bool          `yaml:"enabled" mapstructure:"enabled"`
	Dirs       []string      `yaml:"dirs" mapstructure:"dirs"`
	Extensions []string      `yaml:"extensions" mapstructure:"extensions"`
	Debounce   time.Duration `yaml:"debounce" mapstructure:"debounce"`
	MaxDirs    int           `yaml:"max_dirs" mapstructure:"max_dirs"`
	MaxDepth   int           `yaml:"max_depth" mapstructure:"max_depth"`
}

// Default returns a configuration with sensible defaults, mirroring the
// teacher's config.Default().
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:  "mock",
			Dimension: 384,
			MaxTokens: 8192,
			CacheSize: 1024,
		},
		Store: StoreConfig{
			Path:         ".corpusengine/corpus.db",
			MaxOpenConns: 8,
			BusyTimeout:  5 * time.Second,
			NodeID:       1,
		},
		Chunking: ChunkingConfig{
			MaxTokens:          800,
			MinTokens:          64,
			OverlapTokens:      0,
			DefaultTopK:        10,
			DefaultHybridAlpha: 0.5,
		},
		Query: QueryConfig{
			VectorK:          50,
			KeywordK:         50,
			RRFK:             60,
			FinalK:           10,
			HybridAlpha:      0.5,
			ExpandContext:    true,
			MaxContextTokens: 4000,
		},
		Loader: LoaderConfig{
			AllowPatterns: nil,
		},
		Watch: WatchConfig{
			Enabled:    false,
			Extensions: []string{".md", ".txt", ".go", ".py", ".rst"},
			Debounce:   500 * time.Millisecond,
			MaxDirs:    1000,
			MaxDepth:   10,
		},
	}
}
