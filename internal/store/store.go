// Package store is the consistency boundary: durable persistence of
// collections, documents, chunks, and embeddings behind one SQLite file,
// two synchronized secondary indices (vector + lexical), and an append-only
// change log, grounded on the teacher's internal/storage and internal/cache
// packages.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/fenwick-labs/corpusengine/internal/clock"
	"github.com/fenwick-labs/corpusengine/internal/model"
)

func init() {
	initVectorExtension()
}

// Options configures a Store.
type Options struct {
	// Dimension is the fixed embedding width for this store; only consulted
	// on first creation of a new database file.
	Dimension int
	// MaxOpenConns bounds the reader pool (spec.md §5 default 8).
	MaxOpenConns int
	// BusyTimeout is how long a writer waits on lock contention before
	// failing with a retryable Database error (spec.md §5 default 5s).
	BusyTimeout time.Duration
	// NodeID seeds the store's causal clock.
	NodeID uint16
}

func (o Options) withDefaults() Options {
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = 8
	}
	if o.BusyTimeout <= 0 {
		o.BusyTimeout = 5 * time.Second
	}
	if o.Dimension <= 0 {
		o.Dimension = 384
	}
	return o
}

// Store is the single-file embedded engine spec.md §4.4 describes: one
// *sql.DB for pooled reads, one exclusive in-process writer lock (the
// engine-level lock alone is not enough to serialize logical transactions
// that span multiple statements), and one Clock stamping every mutation.
type Store struct {
	db        *sql.DB
	writeMu   sync.Mutex
	clock     *clock.Clock
	dimension int
}

// Open opens or creates the SQLite file at path, applying WAL/synchronous/
// cache/mmap pragmas per spec.md §6, and creating the schema on first use.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	opts = opts.withDefaults()

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d", path, opts.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, model.NewError(model.ErrDatabase, "store: open", err)
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",   // ~64MiB, negative = KiB per sqlite docs
		"PRAGMA mmap_size = 268435456", // 256MiB
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, model.NewError(model.ErrDatabase, "store: apply pragma "+p, err)
		}
	}

	exists, err := schemaExists(db)
	if err != nil {
		db.Close()
		return nil, model.NewError(model.ErrDatabase, "store: check schema", err)
	}
	dimension := opts.Dimension
	if !exists {
		if err := createSchema(db, opts.Dimension); err != nil {
			db.Close()
			return nil, model.NewError(model.ErrDatabase, "store: create schema", err)
		}
	} else {
		dimension, err = loadDimension(db)
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	return &Store{db: db, clock: clock.New(opts.NodeID), dimension: dimension}, nil
}

func loadDimension(db *sql.DB) (int, error) {
	var v string
	err := db.QueryRow(`SELECT value FROM store_metadata WHERE key = 'embedding_dimension'`).Scan(&v)
	if err != nil {
		return 0, model.NewError(model.ErrDatabase, "store: load embedding dimension", err)
	}
	var dim int
	if _, err := fmt.Sscanf(v, "%d", &dim); err != nil {
		return 0, model.NewError(model.ErrDatabase, "store: parse embedding dimension", err)
	}
	return dim, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Dimension is the fixed embedding width this store was created with.
func (s *Store) Dimension() int { return s.dimension }

// Watermark returns the highest causal timestamp this store's clock has
// produced, without advancing it.
func (s *Store) Watermark() clock.Timestamp { return s.clock.Watermark() }

// WithReader scopes a short-lived read against the pool, per spec.md §5's
// "a connection MUST be released before awaiting any other operation"
// requirement: fn must not itself call back into a suspension point that
// re-enters the store on the same goroutine.
func (s *Store) WithReader(ctx context.Context, fn func(*sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return model.NewError(model.ErrDatabase, "store: acquire reader", err)
	}
	defer conn.Close()
	return fn(conn)
}

// CreateCollection inserts a new named collection, stamping a fresh causal
// timestamp with the write. Fails CollectionExists on duplicate name.
func (s *Store) CreateCollection(ctx context.Context, col model.Collection) (model.Collection, error) {
	if err := model.ValidateCollectionName(col.Name); err != nil {
		return model.Collection{}, err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ts := s.clock.Tick()
	col.HLC = ts
	if col.CreatedAt.IsZero() {
		col.CreatedAt = time.Now().UTC()
	}

	_, err := sq.Insert("collections").
		Columns("name", "description", "max_tokens", "min_tokens", "overlap_tokens", "default_top_k", "default_hybrid_alpha", "created_at", "hlc").
		Values(col.Name, col.Description, col.Settings.MaxTokens, col.Settings.MinTokens, col.Settings.OverlapTokens, col.Settings.DefaultTopK, col.Settings.DefaultHybridAlpha, formatTime(col.CreatedAt), ts.Bytes()).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		if isUniqueConstraint(err) {
			return model.Collection{}, model.NewError(model.ErrCollectionExists, "store: collection already exists: "+col.Name, err)
		}
		return model.Collection{}, model.NewError(model.ErrDatabase, "store: create collection", err)
	}
	if err := s.appendChange(ctx, s.db, ts, model.ChangeCollectionCreate, col.Name, "", changePayload{Collection: &col}); err != nil {
		return model.Collection{}, err
	}
	return col, nil
}

// GetCollection fetches a collection by name, for callers (e.g. the
// ingestion coordinator) that need its chunking/query defaults.
func (s *Store) GetCollection(ctx context.Context, name string) (model.Collection, error) {
	row := sq.Select(collectionColumns...).From("collections").Where(sq.Eq{"name": name}).RunWith(s.db).QueryRowContext(ctx)
	return scanCollection(row)
}

// DeleteCollection removes a collection and cascades to its documents,
// chunks, and embeddings via foreign-key ON DELETE CASCADE.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := sq.Delete("collections").Where(sq.Eq{"name": name}).RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return model.NewError(model.ErrDatabase, "store: delete collection", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return model.NewError(model.ErrCollectionNotFound, "store: no such collection: "+name, nil)
	}

	ts := s.clock.Tick()
	return s.appendChange(ctx, s.db, ts, model.ChangeCollectionDelete, name, "", changePayload{})
}

// InsertDocument inserts a new document row. (collection, source_uri) must
// be unique.
func (s *Store) InsertDocument(ctx context.Context, doc model.Document) (model.Document, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	doc, err := s.insertDocumentLocked(ctx, s.db, doc)
	if err != nil {
		return model.Document{}, err
	}
	if err := s.appendChange(ctx, s.db, doc.HLC, model.ChangeDocumentInsert, doc.Collection, doc.ID, changePayload{Document: &doc}); err != nil {
		return model.Document{}, err
	}
	return doc, nil
}

func (s *Store) insertDocumentLocked(ctx context.Context, execer sq.BaseRunner, doc model.Document) (model.Document, error) {
	if doc.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return model.Document{}, model.NewError(model.ErrInternal, "store: generate document id", err)
		}
		doc.ID = id.String()
	}
	ts := s.clock.Tick()
	doc.HLC = ts
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	metaJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return model.Document{}, model.NewError(model.ErrInvalidArgument, "store: marshal document metadata", err)
	}

	_, err = sq.Insert("documents").
		Columns("id", "collection", "source_uri", "content_hash", "content_type", "raw_content", "metadata", "created_at", "updated_at", "hlc").
		Values(doc.ID, doc.Collection, doc.SourceURI, doc.ContentHash[:], string(doc.ContentType), doc.RawContent, string(metaJSON), formatTime(doc.CreatedAt), formatTime(doc.UpdatedAt), ts.Bytes()).
		RunWith(execer).
		Exec()
	if err != nil {
		if isUniqueConstraint(err) {
			return model.Document{}, model.NewError(model.ErrDuplicateDocument, "store: duplicate document for "+doc.Collection+"/"+doc.SourceURI, err)
		}
		if isForeignKeyConstraint(err) {
			return model.Document{}, model.NewError(model.ErrCollectionNotFound, "store: no such collection: "+doc.Collection, err)
		}
		return model.Document{}, model.NewError(model.ErrDatabase, "store: insert document", err)
	}
	return doc, nil
}

// GetDocument fetches a document by id.
func (s *Store) GetDocument(ctx context.Context, id string) (model.Document, error) {
	row := sq.Select(documentColumns...).From("documents").Where(sq.Eq{"id": id}).RunWith(s.db).QueryRowContext(ctx)
	return scanDocument(row)
}

// GetDocumentByURI fetches a document by (collection, source_uri).
func (s *Store) GetDocumentByURI(ctx context.Context, collection, uri string) (model.Document, error) {
	row := sq.Select(documentColumns...).From("documents").
		Where(sq.Eq{"collection": collection, "source_uri": uri}).
		RunWith(s.db).QueryRowContext(ctx)
	return scanDocument(row)
}

// ListDocuments lists documents in a collection, newest first, paginated.
func (s *Store) ListDocuments(ctx context.Context, collection string, limit, offset int) ([]model.Document, error) {
	rows, err := sq.Select(documentColumns...).From("documents").
		Where(sq.Eq{"collection": collection}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).Offset(uint64(offset)).
		RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, model.NewError(model.ErrDatabase, "store: list documents", err)
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		d, err := scanDocumentRows(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document and cascades to its chunks and
// embeddings atomically.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.NewError(model.ErrDatabase, "store: begin delete document tx", err)
	}
	defer tx.Rollback()

	chunkIDs, err := chunkIDsForDocument(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := deleteVectors(tx, chunkIDs); err != nil {
		return model.NewError(model.ErrDatabase, "store: delete document vectors", err)
	}

	res, err := sq.Delete("documents").Where(sq.Eq{"id": id}).RunWith(tx).ExecContext(ctx)
	if err != nil {
		return model.NewError(model.ErrDatabase, "store: delete document", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return model.NewError(model.ErrDocumentNotFound, "store: no such document: "+id, nil)
	}

	ts := s.clock.Tick()
	if err := s.appendChange(ctx, tx, ts, model.ChangeDocumentDelete, "", id, changePayload{}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return model.NewError(model.ErrDatabase, "store: commit delete document", err)
	}
	return nil
}

// InsertChunks inserts every chunk in one transaction, keeping the lexical
// index in sync via triggers. All or nothing.
func (s *Store) InsertChunks(ctx context.Context, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.NewError(model.ErrDatabase, "store: begin insert chunks tx", err)
	}
	defer tx.Rollback()

	if err := s.insertChunksLocked(ctx, tx, chunks); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return model.NewError(model.ErrDatabase, "store: commit insert chunks", err)
	}
	return nil
}

func (s *Store) insertChunksLocked(ctx context.Context, tx *sql.Tx, chunks []model.Chunk) error {
	for i := range chunks {
		c := &chunks[i]
		if c.ID == "" {
			id, err := uuid.NewV7()
			if err != nil {
				return model.NewError(model.ErrInternal, "store: generate chunk id", err)
			}
			c.ID = id.String()
		}
		c.HLC = s.clock.Tick()
		metaJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return model.NewError(model.ErrInvalidArgument, "store: marshal chunk metadata", err)
		}
		_, err = sq.Insert("chunks").
			Columns("id", "doc_id", "chunk_index", "text", "content_hash", "token_count", "start_offset", "end_offset", "metadata", "hlc").
			Values(c.ID, c.DocumentID, c.Index, c.Text, c.ContentHash[:], c.TokenCount, c.StartOffset, c.EndOffset, string(metaJSON), c.HLC.Bytes()).
			RunWith(tx).ExecContext(ctx)
		if err != nil {
			if isUniqueConstraint(err) {
				return model.NewError(model.ErrInvalidArgument, fmt.Sprintf("store: duplicate chunk index %d for document %s", c.Index, c.DocumentID), err)
			}
			return model.NewError(model.ErrDatabase, "store: insert chunk", err)
		}
	}
	return nil
}

// DeleteChunksByDoc deletes every chunk belonging to docID.
func (s *Store) DeleteChunksByDoc(ctx context.Context, docID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.NewError(model.ErrDatabase, "store: begin delete chunks tx", err)
	}
	defer tx.Rollback()

	ids, err := chunkIDsForDocument(ctx, tx, docID)
	if err != nil {
		return err
	}
	if err := s.deleteChunksLocked(ctx, tx, ids); err != nil {
		return err
	}
	return commitOrWrap(tx)
}

// DeleteChunksByID deletes the embeddings, vector entries, and rows for the
// given chunk ids in one transaction.
func (s *Store) DeleteChunksByID(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.NewError(model.ErrDatabase, "store: begin delete chunks tx", err)
	}
	defer tx.Rollback()

	if err := s.deleteChunksLocked(ctx, tx, ids); err != nil {
		return err
	}
	return commitOrWrap(tx)
}

func (s *Store) deleteChunksLocked(ctx context.Context, tx *sql.Tx, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := deleteVectors(tx, ids); err != nil {
		return model.NewError(model.ErrDatabase, "store: delete chunk vectors", err)
	}
	if _, err := sq.Delete("chunks").Where(sq.Eq{"id": ids}).RunWith(tx).ExecContext(ctx); err != nil {
		return model.NewError(model.ErrDatabase, "store: delete chunks", err)
	}
	return nil
}

// InsertEmbeddings writes one vector per chunk id, upserting into the
// vector index. vec length must equal the store's declared dimension.
func (s *Store) InsertEmbeddings(ctx context.Context, embeddings []model.Embedding) error {
	if len(embeddings) == 0 {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.NewError(model.ErrDatabase, "store: begin insert embeddings tx", err)
	}
	defer tx.Rollback()

	if err := s.insertEmbeddingsLocked(ctx, tx, embeddings); err != nil {
		return err
	}
	return commitOrWrap(tx)
}

func (s *Store) insertEmbeddingsLocked(ctx context.Context, tx *sql.Tx, embeddings []model.Embedding) error {
	for _, e := range embeddings {
		if len(e.Vector) != s.dimension {
			return model.NewError(model.ErrInvalidArgument, fmt.Sprintf("store: embedding for chunk %s has dimension %d, want %d", e.ChunkID, len(e.Vector), s.dimension), nil)
		}
		if err := upsertVectors(tx, e.ChunkID, e.Vector); err != nil {
			return model.NewError(model.ErrDatabase, "store: insert embedding", err)
		}
	}
	return nil
}

// VectorSearch returns up to k nearest chunks by cosine distance, optionally
// scoped to one collection.
func (s *Store) VectorSearch(ctx context.Context, queryVec []float32, k int, collection string) ([]VectorHit, error) {
	hits, err := queryVectorKNN(s.db, queryVec, k, collection)
	if err != nil {
		return nil, model.NewError(model.ErrDatabase, "store: vector search", err)
	}
	return hits, nil
}

// KeywordSearch returns up to k BM25-ranked chunks, optionally scoped to one
// collection. The query is sanitized before reaching FTS5.
func (s *Store) KeywordSearch(ctx context.Context, query string, k int, collection string) ([]KeywordHit, error) {
	hits, err := queryKeyword(s.db, query, k, collection)
	if err != nil {
		return nil, model.NewError(model.ErrDatabase, "store: keyword search", err)
	}
	return hits, nil
}

// GetChunks fetches chunks by id, in no particular order. Missing ids are
// silently skipped (the query planner treats this as a materialization
// race, not an error).
func (s *Store) GetChunks(ctx context.Context, ids []string) ([]model.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := sq.Select(chunkColumns...).From("chunks").Where(sq.Eq{"id": ids}).RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, model.NewError(model.ErrDatabase, "store: get chunks", err)
	}
	defer rows.Close()

	var chunks []model.Chunk
	for rows.Next() {
		c, err := scanChunkRows(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// GetChunkByDocIndex fetches one chunk by (doc_id, chunk_index), used for
// context-window expansion. Returns ErrChunkNotFound if absent.
func (s *Store) GetChunkByDocIndex(ctx context.Context, docID string, index int) (model.Chunk, error) {
	row := sq.Select(chunkColumns...).From("chunks").
		Where(sq.Eq{"doc_id": docID, "chunk_index": index}).
		RunWith(s.db).QueryRowContext(ctx)
	return scanChunk(row)
}

// ListChunksByDoc returns every chunk of a document ordered by chunk_index.
func (s *Store) ListChunksByDoc(ctx context.Context, docID string) ([]model.Chunk, error) {
	rows, err := sq.Select(chunkColumns...).From("chunks").
		Where(sq.Eq{"doc_id": docID}).
		OrderBy("chunk_index ASC").
		RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, model.NewError(model.ErrDatabase, "store: list chunks by document", err)
	}
	defer rows.Close()

	var chunks []model.Chunk
	for rows.Next() {
		c, err := scanChunkRows(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func chunkIDsForDocument(ctx context.Context, execer sq.BaseRunner, docID string) ([]string, error) {
	rows, err := sq.Select("id").From("chunks").Where(sq.Eq{"doc_id": docID}).RunWith(execer).Query()
	if err != nil {
		return nil, model.NewError(model.ErrDatabase, "store: list chunk ids for document", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, model.NewError(model.ErrDatabase, "store: scan chunk id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func commitOrWrap(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return model.NewError(model.ErrDatabase, "store: commit transaction", err)
	}
	return nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }
