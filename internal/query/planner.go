package query

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fenwick-labs/corpusengine/internal/embedder"
	"github.com/fenwick-labs/corpusengine/internal/model"
	"github.com/fenwick-labs/corpusengine/internal/store"
)

// Planner is the query-side capability spec.md §4.5 describes, wired to one
// Store and one Embedder. Grounded on the teacher's SearcherCoordinator,
// which also owns a searcher plus an embedding-backed search path behind one
// facade.
type Planner struct {
	store    *store.Store
	embedder embedder.Embedder
}

// New constructs a Planner over an already-open store and embedder.
func New(s *store.Store, e embedder.Embedder) *Planner {
	return &Planner{store: s, embedder: e}
}

// Search runs the full pipeline from spec.md §4.5: encode, dual lookup,
// RRF fusion, materialize, context expansion, dedupe, token-budget
// truncation.
func (p *Planner) Search(ctx context.Context, query, collection string, cfg Config) (Response, error) {
	cfg = cfg.withDefaults()

	var trace *Trace
	if cfg.EnableTracing {
		trace = &Trace{}
	}

	encodeStart := time.Now()
	qvec, err := p.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return Response{}, err
	}
	trace.record("encode_query", encodeStart, nil)

	lookupStart := time.Now()
	vectorHits, keywordHits, err := p.dualLookup(ctx, qvec, query, collection, cfg.VectorK, cfg.KeywordK)
	if err != nil {
		return Response{}, err
	}
	trace.record("dual_lookup", lookupStart, map[string]int{
		"vector_candidates":  len(vectorHits),
		"keyword_candidates": len(keywordHits),
	})

	fuseStart := time.Now()
	fusedList := fuseRRF(vectorHits, keywordHits, cfg.RRFK, cfg.HybridAlpha)
	if len(fusedList) > cfg.FinalK {
		fusedList = fusedList[:cfg.FinalK]
	}
	trace.record("fuse", fuseStart, map[string]int{"fused_count": len(fusedList)})

	materializeStart := time.Now()
	results, err := p.materialize(ctx, fusedList)
	if err != nil {
		return Response{}, err
	}
	trace.record("materialize", materializeStart, map[string]int{"fetched_count": len(results)})

	if cfg.ExpandContext {
		expandStart := time.Now()
		results, err = p.expandContext(ctx, results)
		if err != nil {
			return Response{}, err
		}
		trace.record("expand_context", expandStart, map[string]int{"expanded_count": len(results)})
	}

	results = sortByDocOrder(results)
	results = dedupeByPosition(results)

	truncateStart := time.Now()
	results = truncateToTokenBudget(results, cfg.MaxContextTokens)
	trace.record("truncate", truncateStart, map[string]int{"final_count": len(results)})

	return Response{Results: results, Trace: trace}, nil
}

// dualLookup issues the vector and keyword searches concurrently, grounded
// on the teacher's SearcherCoordinator.Reload parallel-goroutine pattern and
// the errgroup fan-out idiom spec.md §9 calls for: both branches must
// complete before fusion, and either branch's error is reported to the
// caller (no silent partial fusion from a failed branch).
func (p *Planner) dualLookup(ctx context.Context, qvec []float32, query, collection string, vectorK, keywordK int) ([]store.VectorHit, []store.KeywordHit, error) {
	g, gctx := errgroup.WithContext(ctx)

	var vectorHits []store.VectorHit
	var keywordHits []store.KeywordHit

	g.Go(func() error {
		hits, err := p.store.VectorSearch(gctx, qvec, vectorK, collection)
		if err != nil {
			return err
		}
		vectorHits = hits
		return nil
	})
	g.Go(func() error {
		hits, err := p.store.KeywordSearch(gctx, query, keywordK, collection)
		if err != nil {
			return err
		}
		keywordHits = hits
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return vectorHits, keywordHits, nil
}

// materialize turns the top fused ids into Chunk records, in fused-score
// order, skipping any id the store no longer has (spec.md §4.5 step 4: a
// materialization race with a concurrent delete is not an error).
func (p *Planner) materialize(ctx context.Context, fusedList []fused) ([]Result, error) {
	ids := make([]string, len(fusedList))
	for i, f := range fusedList {
		ids[i] = f.ChunkID
	}
	chunks, err := p.store.GetChunks(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}

	results := make([]Result, 0, len(fusedList))
	for _, f := range fusedList {
		c, ok := byID[f.ChunkID]
		if !ok {
			continue
		}
		results = append(results, Result{Chunk: c, Score: f.Score})
	}
	return results, nil
}

// expandContext materializes the preceding and following chunk of each
// direct hit's document, tagged IsContext with half the parent's score
// (spec.md §4.5 step 5).
func (p *Planner) expandContext(ctx context.Context, direct []Result) ([]Result, error) {
	out := make([]Result, len(direct))
	copy(out, direct)

	for _, r := range direct {
		for _, neighborIdx := range [2]int{r.Chunk.Index - 1, r.Chunk.Index + 1} {
			if neighborIdx < 0 {
				continue
			}
			neighbor, err := p.store.GetChunkByDocIndex(ctx, r.Chunk.DocumentID, neighborIdx)
			if err != nil {
				if model.CodeOf(err) == model.ErrChunkNotFound {
					continue
				}
				return nil, err
			}
			out = append(out, Result{Chunk: neighbor, Score: r.Score * 0.5, IsContext: true})
		}
	}
	return out, nil
}

// sortByDocOrder orders results by (doc_id, chunk_index) ascending so a
// reader sees document-order passages (spec.md §4.5 step 5).
func sortByDocOrder(results []Result) []Result {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].Chunk, results[j].Chunk
		if a.DocumentID != b.DocumentID {
			return a.DocumentID < b.DocumentID
		}
		return a.Index < b.Index
	})
	return results
}

// dedupeByPosition collapses to one entry per (doc_id, chunk_index),
// preferring the non-context copy when a chunk was both a direct hit and a
// neighbor of another hit (spec.md §4.5 step 6).
func dedupeByPosition(results []Result) []Result {
	type key struct {
		doc string
		idx int
	}
	best := make(map[key]Result, len(results))
	order := make([]key, 0, len(results))
	for _, r := range results {
		k := key{r.Chunk.DocumentID, r.Chunk.Index}
		existing, ok := best[k]
		if !ok {
			best[k] = r
			order = append(order, k)
			continue
		}
		if existing.IsContext && !r.IsContext {
			best[k] = r
		}
	}
	out := make([]Result, 0, len(order))
	for _, k := range order {
		out = append(out, best[k])
	}
	return out
}

// truncateToTokenBudget walks results in order, stopping once the next
// whole chunk would exceed the budget (spec.md §4.5 step 7: partial chunks
// are never emitted).
func truncateToTokenBudget(results []Result, maxTokens int) []Result {
	var out []Result
	budget := maxTokens
	for _, r := range results {
		if r.Chunk.TokenCount > budget {
			break
		}
		budget -= r.Chunk.TokenCount
		out = append(out, r)
	}
	return out
}

// VectorSearch is the dense-only specialized mode (spec.md §4.5
// "Specialized modes"): hybrid_alpha fixed to 1.0, context expansion off.
func (p *Planner) VectorSearch(ctx context.Context, query, collection string, k int) (Response, error) {
	cfg := DefaultConfig()
	cfg.FinalK = k
	cfg.VectorK = k
	cfg.HybridAlpha = 1.0
	cfg.ExpandContext = false
	return p.Search(ctx, query, collection, cfg)
}

// KeywordSearch is the lexical-only specialized mode: hybrid_alpha fixed to
// 0.0, context expansion off.
func (p *Planner) KeywordSearch(ctx context.Context, query, collection string, k int) (Response, error) {
	cfg := DefaultConfig()
	cfg.FinalK = k
	cfg.KeywordK = k
	cfg.HybridAlpha = 0.0
	cfg.ExpandContext = false
	return p.Search(ctx, query, collection, cfg)
}

// FindSimilar re-embeds chunkID's own text and returns the dense-only top-k
// nearest chunks, excluding the source chunk itself (spec.md §4.5
// "Specialized modes").
func (p *Planner) FindSimilar(ctx context.Context, chunkID, collection string, k int) (Response, error) {
	chunks, err := p.store.GetChunks(ctx, []string{chunkID})
	if err != nil {
		return Response{}, err
	}
	if len(chunks) == 0 {
		return Response{}, model.NewError(model.ErrChunkNotFound, "query: no such chunk: "+chunkID, nil)
	}
	source := chunks[0]

	qvec, err := p.embedder.EmbedQuery(ctx, source.Text)
	if err != nil {
		return Response{}, err
	}

	hits, err := p.store.VectorSearch(ctx, qvec, k+1, collection)
	if err != nil {
		return Response{}, err
	}
	fusedList := make([]fused, 0, len(hits))
	for i, h := range hits {
		if h.ChunkID == chunkID {
			continue
		}
		fusedList = append(fusedList, fused{ChunkID: h.ChunkID, Score: 1.0 / (1.0 + h.Distance), denseRank: i + 1})
	}
	if len(fusedList) > k {
		fusedList = fusedList[:k]
	}

	results, err := p.materialize(ctx, fusedList)
	if err != nil {
		return Response{}, err
	}
	return Response{Results: results}, nil
}
