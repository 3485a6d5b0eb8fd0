package model

import "github.com/fenwick-labs/corpusengine/internal/clock"

// ChangeKind tags the variant of a Change record, giving the replication
// collaborator a self-describing record instead of an opaque blob (spec.md
// §3 and §6).
type ChangeKind string

const (
	ChangeCollectionCreate ChangeKind = "collection_create"
	ChangeCollectionDelete ChangeKind = "collection_delete"
	ChangeDocumentInsert   ChangeKind = "document_insert"
	ChangeDocumentUpdate   ChangeKind = "document_update"
	ChangeDocumentDelete   ChangeKind = "document_delete"
)

// Change is one immutable entry in the durable change log, ordered by HLC.
// Only one of the payload fields is populated, selected by Kind.
type Change struct {
	Seq  int64
	HLC  clock.Timestamp
	Kind ChangeKind

	CollectionName string // collection_create, collection_delete

	Document *Document // document_insert, document_update, document_delete
	DocID    string    // document_delete

	ChunksInserted     []Chunk     // document_insert, document_update
	ChunksDeleted      []string    // document_update: chunk ids removed
	EmbeddingsInserted []Embedding // document_insert, document_update
	EmbeddingsDeleted  []string    // document_update: chunk ids whose embedding was removed
}
