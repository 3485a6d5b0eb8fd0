package query

import (
	"sort"

	"github.com/fenwick-labs/corpusengine/internal/store"
)

// fused is one chunk id's reciprocal-rank-fused score plus the ranks it was
// fused from, kept around only to resolve the tie-break rule in spec.md
// §4.5 step 3.
type fused struct {
	ChunkID   string
	Score     float64
	denseRank int // 1-based, 0 means absent from the dense list
	lexRank   int // 1-based, 0 means absent from the lexical list
}

// fuseRRF combines a dense (vector) and a lexical (keyword) ranking into one
// scored list, grounded on the nornicdb example's search.fuseRRF: for each
// list with weight w, every (id, rank) contributes w/(rrfK+rank); scores for
// the same id across both lists add. Dense gets weight hybridAlpha, lexical
// gets 1-hybridAlpha, per spec.md §4.5 step 3.
func fuseRRF(vectorHits []store.VectorHit, keywordHits []store.KeywordHit, rrfK, hybridAlpha float64) []fused {
	denseRank := make(map[string]int, len(vectorHits))
	for i, h := range vectorHits {
		if _, ok := denseRank[h.ChunkID]; !ok {
			denseRank[h.ChunkID] = i + 1
		}
	}
	lexRank := make(map[string]int, len(keywordHits))
	for i, h := range keywordHits {
		if _, ok := lexRank[h.ChunkID]; !ok {
			lexRank[h.ChunkID] = i + 1
		}
	}

	seen := make(map[string]bool, len(denseRank)+len(lexRank))
	var ids []string
	for _, h := range vectorHits {
		if !seen[h.ChunkID] {
			seen[h.ChunkID] = true
			ids = append(ids, h.ChunkID)
		}
	}
	for _, h := range keywordHits {
		if !seen[h.ChunkID] {
			seen[h.ChunkID] = true
			ids = append(ids, h.ChunkID)
		}
	}

	denseWeight := hybridAlpha
	lexWeight := 1 - hybridAlpha

	results := make([]fused, 0, len(ids))
	for _, id := range ids {
		var score float64
		dr := denseRank[id]
		lr := lexRank[id]
		if dr > 0 {
			score += denseWeight / (rrfK + float64(dr))
		}
		if lr > 0 {
			score += lexWeight / (rrfK + float64(lr))
		}
		results = append(results, fused{ChunkID: id, Score: score, denseRank: dr, lexRank: lr})
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.denseRank != b.denseRank {
			// rank 0 (absent) sorts after any present rank.
			if a.denseRank == 0 {
				return false
			}
			if b.denseRank == 0 {
				return true
			}
			return a.denseRank < b.denseRank
		}
		if a.lexRank != b.lexRank {
			if a.lexRank == 0 {
				return false
			}
			if b.lexRank == 0 {
				return true
			}
			return a.lexRank < b.lexRank
		}
		return a.ChunkID < b.ChunkID
	})
	return results
}
