// Package model holds the domain entities, content-type enumeration, and
// error taxonomy shared across the whole core: Collection, Document, Chunk,
// Embedding, and Change, plus the HLC-shaped causal timestamp they all carry.
package model

import (
	"regexp"
	"time"

	"github.com/fenwick-labs/corpusengine/internal/clock"
)

// collectionNamePattern enforces spec.md §3's "alphanumeric/hyphen/underscore"
// validation rule for Collection.Name.
var collectionNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateCollectionName reports whether name satisfies spec.md §3.
func ValidateCollectionName(name string) error {
	if name == "" || !collectionNamePattern.MatchString(name) {
		return NewError(ErrInvalidCollectionName, "collection name must be non-empty and alphanumeric/hyphen/underscore: "+name, nil)
	}
	return nil
}

// CollectionSettings holds per-collection chunking bounds and query defaults
// (spec.md §3).
type CollectionSettings struct {
	MaxTokens          int     `json:"max_tokens"`
	MinTokens          int     `json:"min_tokens"`
	OverlapTokens      int     `json:"overlap_tokens"`
	DefaultTopK        int     `json:"default_top_k"`
	DefaultHybridAlpha float64 `json:"default_hybrid_alpha"`
}

// DefaultCollectionSettings mirrors the teacher's ChunkingConfig defaults
// (doc_chunk_size 800 / code_chunk_size-derived token bounds), generalized
// into the spec's max/min/overlap token knobs.
func DefaultCollectionSettings() CollectionSettings {
	return CollectionSettings{
		MaxTokens:          800,
		MinTokens:          64,
		OverlapTokens:      0,
		DefaultTopK:        10,
		DefaultHybridAlpha: 0.5,
	}
}

// Collection is a user-visible, named grouping of documents.
type Collection struct {
	Name        string
	Description string
	Settings    CollectionSettings
	CreatedAt   time.Time
	HLC         clock.Timestamp
}

// Document is one piece of ingested source material.
type Document struct {
	ID          string
	Collection  string
	SourceURI   string
	ContentHash [32]byte
	ContentType ContentType
	RawContent  []byte
	Metadata    map[string]string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	HLC         clock.Timestamp
}

// ChunkMetadata is the structured, strategy-specific metadata spec.md §3
// attaches to a chunk: line range, syntactic node info, heading path,
// strategy tag, and sliding-window overlap flags.
type ChunkMetadata struct {
	StartLine        int      `json:"start_line,omitempty"`
	EndLine          int      `json:"end_line,omitempty"`
	NodeKind         string   `json:"node_kind,omitempty"`
	NodeName         string   `json:"node_name,omitempty"`
	HeadingPath      []string `json:"heading_path,omitempty"`
	ChunkingStrategy string   `json:"chunking_strategy"`
	OverlapsPrevious bool     `json:"overlaps_previous,omitempty"`
	OverlapsNext     bool     `json:"overlaps_next,omitempty"`
}

// Chunk is the atomic retrieval unit: a contiguous span of a Document's text
// with exactly one Embedding once indexed.
type Chunk struct {
	ID          string
	DocumentID  string
	Index       int
	Text        string
	ContentHash [32]byte
	TokenCount  int
	StartOffset int
	EndOffset   int
	Metadata    ChunkMetadata
	HLC         clock.Timestamp
}

// Embedding is the dense vector for one chunk.
type Embedding struct {
	ChunkID string
	Vector  []float32
}
