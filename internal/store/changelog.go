package store

import (
	"context"
	"encoding/json"

	sq "github.com/Masterminds/squirrel"

	"github.com/fenwick-labs/corpusengine/internal/clock"
	"github.com/fenwick-labs/corpusengine/internal/model"
)

// changePayload is the tagged-union body of a model.Change, serialized as
// self-describing JSON, grounded on the teacher's ChunkFile/GeneratorMetadata
// envelope pattern (spec.md §6's "self-describing records with an explicit
// type tag field").
type changePayload struct {
	Collection         *model.Collection `json:"collection,omitempty"`
	Document           *model.Document   `json:"document,omitempty"`
	ChunksInserted     []model.Chunk     `json:"chunks_inserted,omitempty"`
	ChunksDeleted      []string          `json:"chunks_deleted,omitempty"`
	EmbeddingsInserted []model.Embedding `json:"embeddings_inserted,omitempty"`
	EmbeddingsDeleted  []string          `json:"embeddings_deleted,omitempty"`
}

// appendChange writes one row to the append-only sync_log, consumed
// externally by the (out-of-scope) replication collaborator (spec.md §6).
func (s *Store) appendChange(ctx context.Context, execer sq.BaseRunner, ts clock.Timestamp, kind model.ChangeKind, collection, docID string, payload changePayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return model.NewError(model.ErrInternal, "store: marshal change payload", err)
	}
	_, err = sq.Insert("sync_log").
		Columns("hlc", "kind", "collection", "doc_id", "payload").
		Values(ts.Bytes(), string(kind), collection, docID, string(body)).
		RunWith(execer).Exec()
	if err != nil {
		return model.NewError(model.ErrDatabase, "store: append change", err)
	}
	return nil
}

// GetChangesSince returns every change with hlc strictly greater than since,
// ordered ascending, for the replication collaborator to consume.
func (s *Store) GetChangesSince(ctx context.Context, since clock.Timestamp) ([]model.Change, error) {
	rows, err := sq.Select("seq", "hlc", "kind", "collection", "doc_id", "payload").
		From("sync_log").
		OrderBy("seq ASC").
		RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, model.NewError(model.ErrDatabase, "store: get changes since", err)
	}
	defer rows.Close()

	var changes []model.Change
	for rows.Next() {
		var seq int64
		var hlcBytes []byte
		var kind, collection, docID, payloadJSON string
		if err := rows.Scan(&seq, &hlcBytes, &kind, &collection, &docID, &payloadJSON); err != nil {
			return nil, model.NewError(model.ErrDatabase, "store: scan change", err)
		}
		ts, err := clock.ParseBytes(hlcBytes)
		if err != nil {
			return nil, model.NewError(model.ErrInvalidClock, "store: parse change hlc", err)
		}
		if !since.Less(ts) {
			continue
		}
		var payload changePayload
		if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
			return nil, model.NewError(model.ErrDatabase, "store: unmarshal change payload", err)
		}
		changes = append(changes, model.Change{
			Seq:                seq,
			HLC:                ts,
			Kind:               model.ChangeKind(kind),
			CollectionName:     collection,
			Document:           payload.Document,
			DocID:              docID,
			ChunksInserted:     payload.ChunksInserted,
			ChunksDeleted:      payload.ChunksDeleted,
			EmbeddingsInserted: payload.EmbeddingsInserted,
			EmbeddingsDeleted:  payload.EmbeddingsDeleted,
		})
	}
	return changes, rows.Err()
}
