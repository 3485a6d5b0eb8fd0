// Package chunker implements the pure transformation spec.md §4.2 describes:
// (bytes, content_type, settings) -> ordered sequence of chunk drafts. All
// strategies are pure functions with no I/O, grounded on the teacher's
// internal/indexer/chunker.go and internal/indexer/parsers package.
package chunker

import (
	"sort"

	"github.com/fenwick-labs/corpusengine/internal/model"
)

// Settings bounds a single chunking run (spec.md §4.2).
type Settings struct {
	MaxTokens     int
	MinTokens     int
	OverlapTokens int
}

// Strategy names a chunking strategy, tagged onto every emitted Draft's
// metadata so a reader can tell how a chunk was produced.
type Strategy string

const (
	StrategySyntaxTree Strategy = "syntax_tree"
	StrategySemantic   Strategy = "semantic"
	StrategySliding    Strategy = "sliding_window"
	StrategyRecord     Strategy = "record"
	StrategyRecursive  Strategy = "recursive"
)

// Draft is one emitted chunk before it is assigned a document-scoped index
// and persisted.
type Draft struct {
	Text        string
	TokenCount  int
	StartOffset int
	EndOffset   int
	Metadata    model.ChunkMetadata
}

// Result is the outcome of a chunking run: the drafts plus whether a code
// parse failure forced a degrade to the recursive strategy (spec.md §7),
// which callers should log as a warning rather than treat as an error.
type Result struct {
	Drafts   []Draft
	Degraded bool
	ParseErr error
}

// Chunk runs the content-type dispatch table from spec.md §4.2 and returns
// an ordered, non-overlapping (except sliding-window) sequence of drafts.
func Chunk(content []byte, contentType model.ContentType, settings Settings) (Result, error) {
	if settings.MaxTokens <= 0 {
		return Result{}, model.NewError(model.ErrInvalidArgument, "chunker: max_tokens must be positive", nil)
	}

	var (
		drafts []Draft
		err    error
		res    Result
	)

	switch {
	case contentType.IsCode():
		drafts, err = chunkSyntaxTree(content, contentType, settings)
		if err != nil {
			// Parse failures degrade to the recursive strategy (spec.md §7):
			// a warning, not a propagated error.
			res.Degraded = true
			res.ParseErr = err
			drafts, err = chunkRecursive(content, settings)
		}
	case contentType.IsMarkup():
		drafts, err = chunkSemantic(content, contentType, settings)
	case contentType.IsChatLog():
		drafts, err = chunkSliding(content, settings)
	case contentType.IsRecord():
		drafts, err = chunkRecord(content, contentType, settings)
	default:
		drafts, err = chunkRecursive(content, settings)
	}
	if err != nil {
		return Result{}, err
	}

	if len(drafts) == 0 {
		return Result{}, model.NewError(model.ErrEmptyChunks, "chunker: no chunk met the minimum token threshold", nil)
	}

	sort.SliceStable(drafts, func(i, j int) bool {
		return drafts[i].StartOffset < drafts[j].StartOffset
	})
	res.Drafts = drafts
	return res, nil
}
