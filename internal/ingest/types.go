// Package ingest drives a single document through load, detect, dedupe,
// chunk, embed, and persist (spec.md §4.6), grounded on the teacher's
// internal/indexer orchestration (change_detector.go's old/new hash-set
// diff, incremental_test.go's keep/remove/add classification) generalized
// from filesystem mtime tracking to the store's own content-hash digest.
package ingest

import (
	"context"

	"github.com/fenwick-labs/corpusengine/internal/model"
)

// State is one step of the per-document ingestion lifecycle (spec.md §4.6
// step 7): Absent -> Chunking -> Embedding -> Persisting -> Present, with
// Failed reachable from any step without committing.
type State string

const (
	StateAbsent     State = "absent"
	StateChunking   State = "chunking"
	StateEmbedding  State = "embedding"
	StatePersisting State = "persisting"
	StatePresent    State = "present"
	StateFailed     State = "failed"
)

// Loader is the narrow external-collaborator capability the coordinator
// depends on to turn a URI into bytes (spec.md §4.6 step 1). The concrete
// implementation (internal/loader) is an outer-surface package the core
// does not import, per spec.md §1's "invokes core operations" boundary.
type Loader interface {
	Load(ctx context.Context, uri string) ([]byte, error)
}

// Request is one ingest call's input (spec.md §4.6).
type Request struct {
	URI        string
	Collection string
	TypeHint   model.ContentType
	Metadata   map[string]string
}

// Outcome is one ingest call's result.
type Outcome struct {
	DocumentID string
	ChunkCount int
	State      State
	Unchanged  bool
}
