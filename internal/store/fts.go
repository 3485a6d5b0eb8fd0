package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// KeywordHit is one (chunk_id, bm25_score) pair from a lexical query.
type KeywordHit struct {
	ChunkID string
	Score   float64
}

// sanitizeFTSQuery turns raw user input into a safe FTS5 MATCH expression:
// every whitespace-split word becomes a quoted phrase, conjoined with
// implicit AND, so the caller cannot inject boolean operators or prefix
// wildcards. Grounded on the teacher's escapeFTSQuery/BuildFTSQuery, tightened
// per spec.md §4.4's "no user-supplied boolean operators, no prefix
// wildcards" requirement.
func sanitizeFTSQuery(raw string) string {
	words := strings.Fields(raw)
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ReplaceAll(w, `"`, `""`)
		quoted = append(quoted, fmt.Sprintf(`"%s"`, w))
	}
	return strings.Join(quoted, " ")
}

// queryKeyword runs a BM25-ranked FTS5 MATCH, optionally filtered to one
// collection via a join, grounded on the teacher's QueryFTS.
func queryKeyword(db *sql.DB, query string, k int, collection string) ([]KeywordHit, error) {
	sanitized := sanitizeFTSQuery(query)
	if sanitized == "" {
		return nil, nil
	}

	var rows *sql.Rows
	var err error
	if collection == "" {
		rows, err = db.Query(`
			SELECT chunk_id, bm25(chunks_fts) AS score
			FROM chunks_fts
			WHERE chunks_fts.text MATCH ?
			ORDER BY score
			LIMIT ?`, sanitized, k)
	} else {
		rows, err = db.Query(`
			SELECT f.chunk_id, bm25(f) AS score
			FROM chunks_fts f
			JOIN chunks c ON c.id = f.chunk_id
			JOIN documents d ON d.id = c.doc_id
			WHERE f.text MATCH ? AND d.collection = ?
			ORDER BY score
			LIMIT ?`, sanitized, collection, k)
	}
	if err != nil {
		return nil, fmt.Errorf("store: query fts: %w", err)
	}
	defer rows.Close()

	var hits []KeywordHit
	for rows.Next() {
		var h KeywordHit
		if err := rows.Scan(&h.ChunkID, &h.Score); err != nil {
			return nil, fmt.Errorf("store: scan fts hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
