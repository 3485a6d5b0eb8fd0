package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidProvider     = errors.New("invalid embedding provider")
	ErrInvalidDimension    = errors.New("invalid embedding dimension")
	ErrInvalidChunkBounds  = errors.New("invalid chunk token bounds")
	ErrInvalidTopK         = errors.New("invalid top_k")
	ErrInvalidHybridAlpha  = errors.New("invalid hybrid_alpha")
	ErrInvalidStorePath    = errors.New("invalid store path")
	ErrInvalidQuerySetting = errors.New("invalid query setting")
)

// Validate checks that cfg is complete and internally consistent, in the
// style of the teacher's config.Validate: collect every error before
// returning, rather than failing on the first one.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateEmbedding(&cfg.Embedding); err != nil {
		errs = append(errs, err)
	}
	if err := validateStore(&cfg.Store); err != nil {
		errs = append(errs, err)
	}
	if err := validateChunking(&cfg.Chunking); err != nil {
		errs = append(errs, err)
	}
	if err := validateQuery(&cfg.Query); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateEmbedding(cfg *EmbeddingConfig) error {
	var errs []error
	if strings.ToLower(cfg.Provider) != "mock" {
		errs = append(errs, fmt.Errorf("%w: only 'mock' is supported, got %q", ErrInvalidProvider, cfg.Provider))
	}
	if cfg.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("%w: must be positive, got %d", ErrInvalidDimension, cfg.Dimension))
	}
	if cfg.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("%w: embedding max_tokens must be positive, got %d", ErrInvalidChunkBounds, cfg.MaxTokens))
	}
	return joinErrors(errs)
}

func validateStore(cfg *StoreConfig) error {
	if strings.TrimSpace(cfg.Path) == "" {
		return fmt.Errorf("%w: store path is required", ErrInvalidStorePath)
	}
	if cfg.MaxOpenConns <= 0 {
		return fmt.Errorf("%w: max_open_conns must be positive, got %d", ErrInvalidStorePath, cfg.MaxOpenConns)
	}
	return nil
}

func validateChunking(cfg *ChunkingConfig) error {
	var errs []error
	if cfg.MaxTokens <= 0 || cfg.MinTokens <= 0 {
		errs = append(errs, fmt.Errorf("%w: max_tokens and min_tokens must be positive", ErrInvalidChunkBounds))
	}
	if cfg.MinTokens > cfg.MaxTokens {
		errs = append(errs, fmt.Errorf("%w: min_tokens (%d) exceeds max_tokens (%d)", ErrInvalidChunkBounds, cfg.MinTokens, cfg.MaxTokens))
	}
	if cfg.OverlapTokens < 0 || cfg.OverlapTokens >= cfg.MaxTokens {
		errs = append(errs, fmt.Errorf("%w: overlap_tokens must be in [0, max_tokens)", ErrInvalidChunkBounds))
	}
	if cfg.DefaultTopK <= 0 {
		errs = append(errs, fmt.Errorf("%w: default_top_k must be positive, got %d", ErrInvalidTopK, cfg.DefaultTopK))
	}
	if cfg.DefaultHybridAlpha < 0 || cfg.DefaultHybridAlpha > 1 {
		errs = append(errs, fmt.Errorf("%w: default_hybrid_alpha must be in [0, 1], got %f", ErrInvalidHybridAlpha, cfg.DefaultHybridAlpha))
	}
	return joinErrors(errs)
}

func validateQuery(cfg *QueryConfig) error {
	var errs []error
	if cfg.VectorK <= 0 || cfg.KeywordK <= 0 {
		errs = append(errs, fmt.Errorf("%w: vector_k and keyword_k must be positive", ErrInvalidQuerySetting))
	}
	if cfg.FinalK <= 0 {
		errs = append(errs, fmt.Errorf("%w: final_k must be positive", ErrInvalidQuerySetting))
	}
	if cfg.RRFK <= 0 {
		errs = append(errs, fmt.Errorf("%w: rrf_k must be positive", ErrInvalidQuerySetting))
	}
	if cfg.HybridAlpha < 0 || cfg.HybridAlpha > 1 {
		errs = append(errs, fmt.Errorf("%w: hybrid_alpha must be in [0, 1]", ErrInvalidHybridAlpha))
	}
	if cfg.MaxContextTokens <= 0 {
		errs = append(errs, fmt.Errorf("%w: max_context_tokens must be positive", ErrInvalidQuerySetting))
	}
	return joinErrors(errs)
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
