package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader loads configuration from defaults, a config file, and environment
// variables, in that priority order (env wins), mirroring the teacher's
// config.Loader.
type Loader interface {
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a configuration loader rooted at rootDir, which is
// searched for a .corpusengine/config.yml or .yaml file.
func NewLoader(rootDir string) Loader {
	return &loader{rootDir: rootDir}
}

// Load reads defaults, overlays .corpusengine/config.{yml,yaml} if present,
// then overlays CORPUSENGINE_* environment variables, and validates the
// result.
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".corpusengine")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("CORPUSENGINE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnv(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}

func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("embedding.provider")
	_ = v.BindEnv("embedding.dimension")
	_ = v.BindEnv("embedding.max_tokens")
	_ = v.BindEnv("embedding.cache_size")

	_ = v.BindEnv("store.path")
	_ = v.BindEnv("store.max_open_conns")
	_ = v.BindEnv("store.busy_timeout")
	_ = v.BindEnv("store.node_id")

	_ = v.BindEnv("chunking.max_tokens")
	_ = v.BindEnv("chunking.min_tokens")
	_ = v.BindEnv("chunking.overlap_tokens")
	_ = v.BindEnv("chunking.default_top_k")
	_ = v.BindEnv("chunking.default_hybrid_alpha")

	_ = v.BindEnv("query.vector_k")
	_ = v.BindEnv("query.keyword_k")
	_ = v.BindEnv("query.rrf_k")
	_ = v.BindEnv("query.final_k")
	_ = v.BindEnv("query.hybrid_alpha")
	_ = v.BindEnv("query.expand_context")
	_ = v.BindEnv("query.max_context_tokens")

	_ = v.BindEnv("watch.enabled")
	_ = v.BindEnv("watch.debounce")
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.dimension", d.Embedding.Dimension)
	v.SetDefault("embedding.max_tokens", d.Embedding.MaxTokens)
	v.SetDefault("embedding.cache_size", d.Embedding.CacheSize)

	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.max_open_conns", d.Store.MaxOpenConns)
	v.SetDefault("store.busy_timeout", d.Store.BusyTimeout)
	v.SetDefault("store.node_id", d.Store.NodeID)

	v.SetDefault("chunking.max_tokens", d.Chunking.MaxTokens)
	v.SetDefault("chunking.min_tokens", d.Chunking.MinTokens)
	v.SetDefault("chunking.overlap_tokens", d.Chunking.OverlapTokens)
	v.SetDefault("chunking.default_top_k", d.Chunking.DefaultTopK)
	v.SetDefault("chunking.default_hybrid_alpha", d.Chunking.DefaultHybridAlpha)

	v.SetDefault("query.vector_k", d.Query.VectorK)
	v.SetDefault("query.keyword_k", d.Query.KeywordK)
	v.SetDefault("query.rrf_k", d.Query.RRFK)
	v.SetDefault("query.final_k", d.Query.FinalK)
	v.SetDefault("query.hybrid_alpha", d.Query.HybridAlpha)
	v.SetDefault("query.expand_context", d.Query.ExpandContext)
	v.SetDefault("query.max_context_tokens", d.Query.MaxContextTokens)

	v.SetDefault("loader.allow_patterns", d.Loader.AllowPatterns)

	v.SetDefault("watch.enabled", d.Watch.Enabled)
	v.SetDefault("watch.extensions", d.Watch.Extensions)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("watch.max_dirs", d.Watch.MaxDirs)
	v.SetDefault("watch.max_depth", d.Watch.MaxDepth)
}

// Load is a convenience function using the current working directory as root.
func Load() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadFromDir loads configuration rooted at a specific directory.
func LoadFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
