// Package query is the hybrid search planner spec.md §4.5 describes: encode
// the query, fan out to the vector and lexical indices in parallel, fuse
// with reciprocal rank fusion, expand context, dedupe, and truncate to a
// token budget. Grounded on the teacher's internal/mcp/searcher_coordinator.go
// (parallel reload/search shape) and internal/mcp/search_sqlite.go (score
// conversion, option defaults); RRF fusion itself has no teacher
// counterpart and is grounded on the nornicdb example's search.fuseRRF.
package query

import (
	"time"

	"github.com/fenwick-labs/corpusengine/internal/model"
)

// Config holds the tunable knobs of one search call (spec.md §4.5).
type Config struct {
	VectorK          int
	KeywordK         int
	RRFK             float64
	FinalK           int
	HybridAlpha      float64
	ExpandContext    bool
	MaxContextTokens int
	EnableTracing    bool
}

// DefaultConfig mirrors spec.md §4.5's stated defaults.
func DefaultConfig() Config {
	return Config{
		VectorK:          50,
		KeywordK:         50,
		RRFK:             60,
		FinalK:           10,
		HybridAlpha:      0.5,
		ExpandContext:    true,
		MaxContextTokens: 4000,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.VectorK <= 0 {
		c.VectorK = d.VectorK
	}
	if c.KeywordK <= 0 {
		c.KeywordK = d.KeywordK
	}
	if c.RRFK <= 0 {
		c.RRFK = d.RRFK
	}
	if c.FinalK <= 0 {
		c.FinalK = d.FinalK
	}
	if c.MaxContextTokens <= 0 {
		c.MaxContextTokens = d.MaxContextTokens
	}
	return c
}

// Result is one chunk in a search response, either a direct fusion hit or a
// context-expansion neighbor (spec.md §4.5 step 5).
type Result struct {
	Chunk     model.Chunk
	Score     float64
	IsContext bool
}

// StageTrace is one pipeline stage's timing and a small structured payload,
// recorded only when Config.EnableTracing is set (spec.md §4.5 "Tracing").
type StageTrace struct {
	Stage    string
	Duration time.Duration
	Detail   map[string]int
}

// Trace is the full pipeline trace attached to a Response when tracing is
// enabled.
type Trace struct {
	Stages []StageTrace
}

func (t *Trace) record(stage string, start time.Time, detail map[string]int) {
	if t == nil {
		return
	}
	t.Stages = append(t.Stages, StageTrace{Stage: stage, Duration: time.Since(start), Detail: detail})
}

// Response is the outcome of a Search call.
type Response struct {
	Results []Result
	Trace   *Trace
}
