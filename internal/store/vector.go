package store

import (
	"database/sql"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

// initVectorExtension registers sqlite-vec with every future connection.
// Grounded verbatim on the teacher's storage.InitVectorExtension; must run
// once before any database is opened.
func initVectorExtension() {
	sqlite_vec.Auto()
}

// createVectorIndex creates the vec0 virtual table sized to dimension,
// grounded on the teacher's CreateVectorIndex.
func createVectorIndex(db *sql.DB, dimension int) error {
	ddl := fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS chunks_vec USING vec0(chunk_id TEXT PRIMARY KEY, embedding float[%d])`, dimension)
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("store: create chunks_vec: %w", err)
	}
	return nil
}

// upsertVectors writes one row per embedding, deleting any previous entry
// first since vec0 virtual tables do not support INSERT OR REPLACE,
// grounded on the teacher's UpdateVectorIndex delete-then-insert pattern.
func upsertVectors(tx *sql.Tx, chunkID string, vec []float32) error {
	if _, err := tx.Exec(`DELETE FROM chunks_vec WHERE chunk_id = ?`, chunkID); err != nil {
		return fmt.Errorf("store: delete stale vector for %s: %w", chunkID, err)
	}
	blob, err := sqlite_vec.SerializeFloat32(vec)
	if err != nil {
		return fmt.Errorf("store: serialize vector for %s: %w", chunkID, err)
	}
	if _, err := tx.Exec(`INSERT INTO chunks_vec (chunk_id, embedding) VALUES (?, ?)`, chunkID, blob); err != nil {
		return fmt.Errorf("store: insert vector for %s: %w", chunkID, err)
	}
	return nil
}

func deleteVectors(tx *sql.Tx, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`DELETE FROM chunks_vec WHERE chunk_id = ?`)
	if err != nil {
		return fmt.Errorf("store: prepare vector delete: %w", err)
	}
	defer stmt.Close()
	for _, id := range chunkIDs {
		if _, err := stmt.Exec(id); err != nil {
			return fmt.Errorf("store: delete vector %s: %w", id, err)
		}
	}
	return nil
}

// VectorHit is one (chunk_id, distance) pair from a KNN query. Lower
// distance is more similar (cosine distance over unit-norm vectors).
type VectorHit struct {
	ChunkID  string
	Distance float64
}

// queryVectorKNN performs a cosine-distance KNN search, optionally pushing a
// collection filter down into the join with documents/chunks, grounded on
// the teacher's QueryVectorSimilarity.
func queryVectorKNN(db *sql.DB, queryVec []float32, k int, collection string) ([]VectorHit, error) {
	blob, err := sqlite_vec.SerializeFloat32(queryVec)
	if err != nil {
		return nil, fmt.Errorf("store: serialize query vector: %w", err)
	}

	var rows *sql.Rows
	if collection == "" {
		rows, err = db.Query(`
			SELECT chunk_id, vec_distance_cosine(embedding, ?) AS distance
			FROM chunks_vec
			ORDER BY distance
			LIMIT ?`, blob, k)
	} else {
		rows, err = db.Query(`
			SELECT cv.chunk_id, vec_distance_cosine(cv.embedding, ?) AS distance
			FROM chunks_vec cv
			JOIN chunks c ON c.id = cv.chunk_id
			JOIN documents d ON d.id = c.doc_id
			WHERE d.collection = ?
			ORDER BY distance
			LIMIT ?`, blob, collection, k)
	}
	if err != nil {
		return nil, fmt.Errorf("store: query vector index: %w", err)
	}
	defer rows.Close()

	var hits []VectorHit
	for rows.Next() {
		var h VectorHit
		if err := rows.Scan(&h.ChunkID, &h.Distance); err != nil {
			return nil, fmt.Errorf("store: scan vector hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
