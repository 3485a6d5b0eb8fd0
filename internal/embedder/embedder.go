// Package embedder defines the narrow text -> unit-norm vector capability
// spec.md §4.3 describes. Only the interface and test/decorator
// implementations live here; concrete model weights and inference runtimes
// are explicitly out of spec (spec.md §1) and are the caller's concern.
package embedder

import (
	"context"

	"github.com/fenwick-labs/corpusengine/internal/model"
)

// Mode selects document vs. query encoding, which may use distinct internal
// preprocessing (spec.md §4.3's "asymmetric encoding").
type Mode string

const (
	ModeDocument Mode = "document"
	ModeQuery    Mode = "query"
)

// Embedder is the capability surface the core depends on. Implementations
// must return vectors with Euclidean norm 1.0 +/- 1e-3 (spec.md §4.3, §8).
type Embedder interface {
	// EmbedDocuments encodes texts in document mode, one vector per input,
	// in the same order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery encodes a single query string.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension is the fixed length of every vector this embedder returns.
	Dimension() int

	// MaxTokens is the embedder's context window; EmbedDocuments/EmbedQuery
	// fail with TextTooLong for inputs that exceed it.
	MaxTokens() int

	// ModelID is a stable identifier for the underlying model, stored once
	// per store (spec.md §3).
	ModelID() string
}

// validateText enforces the EmptyText/TextTooLong contract (spec.md §4.3)
// shared by every Embedder implementation.
func validateText(text string, maxTokens int, estimateTokens func(string) int) error {
	if text == "" {
		return model.NewError(model.ErrEmptyText, "embedder: input text is empty", nil)
	}
	if tokens := estimateTokens(text); tokens > maxTokens {
		detail := model.TextTooLongDetail{Tokens: tokens, Max: maxTokens}
		return model.NewError(model.ErrTextTooLong, detail.String(), nil)
	}
	return nil
}
