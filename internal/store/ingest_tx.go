package store

import (
	"context"
	"time"

	"github.com/fenwick-labs/corpusengine/internal/model"
)

// FreshIngest inserts a new document together with all of its chunks and
// embeddings in one transaction, per spec.md §4.6 step 5: readers never see
// a document without its full chunk/embedding set. embeddings[i] must
// correspond to chunks[i]; their ChunkID is assigned from the persisted
// chunk id and any value the caller set is overwritten.
func (s *Store) FreshIngest(ctx context.Context, doc model.Document, chunks []model.Chunk, embeddings []model.Embedding) (model.Document, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Document{}, model.NewError(model.ErrDatabase, "store: begin fresh ingest tx", err)
	}
	defer tx.Rollback()

	inserted, err := s.insertDocumentLocked(ctx, tx, doc)
	if err != nil {
		return model.Document{}, err
	}
	for i := range chunks {
		chunks[i].DocumentID = inserted.ID
	}
	if err := s.insertChunksLocked(ctx, tx, chunks); err != nil {
		return model.Document{}, err
	}
	for i := range embeddings {
		embeddings[i].ChunkID = chunks[i].ID
	}
	if err := s.insertEmbeddingsLocked(ctx, tx, embeddings); err != nil {
		return model.Document{}, err
	}

	ts := s.clock.Tick()
	inserted.HLC = ts
	if err := s.appendChange(ctx, tx, ts, model.ChangeDocumentInsert, inserted.Collection, inserted.ID, changePayload{
		Document:           &inserted,
		ChunksInserted:     chunks,
		EmbeddingsInserted: embeddings,
	}); err != nil {
		return model.Document{}, err
	}
	if err := commitOrWrap(tx); err != nil {
		return model.Document{}, err
	}
	return inserted, nil
}

// IncrementalUpdatePlan describes the chunk-level diff the ingestion
// coordinator computed between a document's old and new chunk sets
// (spec.md §4.6 step 6).
type IncrementalUpdatePlan struct {
	Document           model.Document
	RemoveChunkIDs     []string
	AddChunks          []model.Chunk
	AddEmbeddings      []model.Embedding
	ReindexedChunkIDs  []string
	ReindexedPositions []int
}

// IncrementalUpdate applies an IncrementalUpdatePlan atomically: deletes the
// removed chunks (cascading their embeddings and lexical entries), inserts
// the added chunks with embeddings, re-numbers kept chunks whose position
// changed, and advances the document's digest/updated_at/hlc.
func (s *Store) IncrementalUpdate(ctx context.Context, plan IncrementalUpdatePlan) (model.Document, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Document{}, model.NewError(model.ErrDatabase, "store: begin incremental update tx", err)
	}
	defer tx.Rollback()

	if err := s.deleteChunksLocked(ctx, tx, plan.RemoveChunkIDs); err != nil {
		return model.Document{}, err
	}
	// Park moved chunks at negative indices first, so neither the added
	// chunks nor the final re-numbering collide on (doc_id, chunk_index).
	for i, chunkID := range plan.ReindexedChunkIDs {
		if _, err := tx.ExecContext(ctx, `UPDATE chunks SET chunk_index = ? WHERE id = ?`, -(i + 1), chunkID); err != nil {
			return model.Document{}, model.NewError(model.ErrDatabase, "store: reindex kept chunk", err)
		}
	}
	if err := s.insertChunksLocked(ctx, tx, plan.AddChunks); err != nil {
		return model.Document{}, err
	}
	if err := s.insertEmbeddingsLocked(ctx, tx, plan.AddEmbeddings); err != nil {
		return model.Document{}, err
	}
	for i, chunkID := range plan.ReindexedChunkIDs {
		if _, err := tx.ExecContext(ctx, `UPDATE chunks SET chunk_index = ? WHERE id = ?`, plan.ReindexedPositions[i], chunkID); err != nil {
			return model.Document{}, model.NewError(model.ErrDatabase, "store: reindex kept chunk", err)
		}
	}

	ts := s.clock.Tick()
	doc := plan.Document
	doc.UpdatedAt = time.Now().UTC()
	doc.HLC = ts
	if _, err := tx.ExecContext(ctx, `UPDATE documents SET content_hash = ?, updated_at = ?, hlc = ? WHERE id = ?`,
		doc.ContentHash[:], formatTime(doc.UpdatedAt), ts.Bytes(), doc.ID); err != nil {
		return model.Document{}, model.NewError(model.ErrDatabase, "store: update document digest", err)
	}

	if err := s.appendChange(ctx, tx, ts, model.ChangeDocumentUpdate, doc.Collection, doc.ID, changePayload{
		Document:           &doc,
		ChunksInserted:     plan.AddChunks,
		ChunksDeleted:      plan.RemoveChunkIDs,
		EmbeddingsInserted: plan.AddEmbeddings,
		EmbeddingsDeleted:  plan.RemoveChunkIDs,
	}); err != nil {
		return model.Document{}, err
	}
	if err := commitOrWrap(tx); err != nil {
		return model.Document{}, err
	}
	return doc, nil
}
