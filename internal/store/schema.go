package store

import (
	"database/sql"
	"fmt"
)

// createSchema creates every table, index, and trigger inside one
// transaction, grounded on the teacher's internal/storage/schema.go
// CreateSchema. The chunks_fts FTS5 table is created inside that
// transaction; the vec0 virtual table is created separately afterward,
// outside it.
func createSchema(db *sql.DB, dimension int) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	statements := []struct {
		name string
		ddl  string
	}{
		{"collections", createCollectionsTable},
		{"documents", createDocumentsTable},
		{"chunks", createChunksTable},
		{"chunks_fts", createChunksFTSTable},
		{"sync_log", createSyncLogTable},
		{"sync_peers", createSyncPeersTable},
		{"store_metadata", createStoreMetadataTable},
	}
	for _, s := range statements {
		if _, err := tx.Exec(s.ddl); err != nil {
			return fmt.Errorf("store: create %s: %w", s.name, err)
		}
	}

	for i, idx := range allIndexes() {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("store: create index %d: %w", i+1, err)
		}
	}

	for i, trig := range ftsTriggers() {
		if _, err := tx.Exec(trig); err != nil {
			return fmt.Errorf("store: create fts trigger %d: %w", i+1, err)
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO store_metadata (key, value) VALUES ('schema_version', '1'), ('embedding_dimension', ?)`,
		fmt.Sprintf("%d", dimension),
	); err != nil {
		return fmt.Errorf("store: bootstrap metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit schema transaction: %w", err)
	}

	if err := createVectorIndex(db, dimension); err != nil {
		return fmt.Errorf("store: create vector index: %w", err)
	}
	return nil
}

// schemaExists reports whether the store has already been initialized.
func schemaExists(db *sql.DB) (bool, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'store_metadata'`).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("store: check schema: %w", err)
	}
	return n > 0, nil
}

const createCollectionsTable = `
CREATE TABLE collections (
	name                 TEXT PRIMARY KEY,
	description          TEXT NOT NULL DEFAULT '',
	max_tokens           INTEGER NOT NULL,
	min_tokens           INTEGER NOT NULL,
	overlap_tokens       INTEGER NOT NULL,
	default_top_k        INTEGER NOT NULL,
	default_hybrid_alpha REAL NOT NULL,
	created_at           TEXT NOT NULL,
	hlc                  BLOB NOT NULL
)
`

const createDocumentsTable = `
CREATE TABLE documents (
	id           TEXT PRIMARY KEY,
	collection   TEXT NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
	source_uri   TEXT NOT NULL,
	content_hash BLOB NOT NULL,
	content_type TEXT NOT NULL,
	raw_content  BLOB,
	metadata     TEXT NOT NULL DEFAULT '{}',
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL,
	hlc          BLOB NOT NULL,
	UNIQUE (collection, source_uri)
)
`

const createChunksTable = `
CREATE TABLE chunks (
	id             TEXT PRIMARY KEY,
	doc_id         TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	chunk_index    INTEGER NOT NULL,
	text           TEXT NOT NULL,
	content_hash   BLOB NOT NULL,
	token_count    INTEGER NOT NULL,
	start_offset   INTEGER NOT NULL,
	end_offset     INTEGER NOT NULL,
	metadata       TEXT NOT NULL DEFAULT '{}',
	hlc            BLOB NOT NULL,
	UNIQUE (doc_id, chunk_index)
)
`

// chunks_fts mirrors the teacher's chunks_fts virtual table shape but with
// the Porter stemmer layered on top of the Unicode tokenizer, per spec.md
// §4.4's "Porter stemmer + Unicode-aware word splitter" requirement (the
// teacher only uses bare unicode61).
const createChunksFTSTable = `
CREATE VIRTUAL TABLE chunks_fts USING fts5(
	chunk_id UNINDEXED,
	text,
	tokenize = "porter unicode61"
)
`

const createSyncLogTable = `
CREATE TABLE sync_log (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	hlc          BLOB NOT NULL,
	kind         TEXT NOT NULL,
	collection   TEXT NOT NULL DEFAULT '',
	doc_id       TEXT NOT NULL DEFAULT '',
	payload      TEXT NOT NULL
)
`

const createSyncPeersTable = `
CREATE TABLE sync_peers (
	node_id       INTEGER PRIMARY KEY,
	address       TEXT NOT NULL DEFAULT '',
	last_sync_hlc BLOB
)
`

const createStoreMetadataTable = `
CREATE TABLE store_metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)
`

func allIndexes() []string {
	return []string{
		"CREATE INDEX idx_documents_collection ON documents(collection)",
		"CREATE INDEX idx_documents_source_uri ON documents(source_uri)",
		"CREATE INDEX idx_documents_content_hash ON documents(content_hash)",
		"CREATE INDEX idx_documents_hlc ON documents(hlc)",
		"CREATE INDEX idx_chunks_doc_id ON chunks(doc_id)",
		"CREATE INDEX idx_chunks_content_hash ON chunks(content_hash)",
		"CREATE INDEX idx_chunks_hlc ON chunks(hlc)",
		"CREATE INDEX idx_sync_log_hlc ON sync_log(hlc)",
	}
}

// ftsTriggers keeps chunks_fts synchronized with chunks, grounded verbatim
// on the teacher's createFTSTriggers pattern (delete-then-insert so
// INSERT OR REPLACE and plain UPDATE both stay consistent).
func ftsTriggers() []string {
	return []string{
		`CREATE TRIGGER chunks_fts_insert AFTER INSERT ON chunks
		BEGIN
			DELETE FROM chunks_fts WHERE chunk_id = NEW.id;
			INSERT INTO chunks_fts(chunk_id, text) VALUES (NEW.id, NEW.text);
		END`,
		`CREATE TRIGGER chunks_fts_update AFTER UPDATE OF text ON chunks
		BEGIN
			DELETE FROM chunks_fts WHERE chunk_id = OLD.id;
			INSERT INTO chunks_fts(chunk_id, text) VALUES (NEW.id, NEW.text);
		END`,
		`CREATE TRIGGER chunks_fts_delete AFTER DELETE ON chunks
		BEGIN
			DELETE FROM chunks_fts WHERE chunk_id = OLD.id;
		END`,
	}
}
