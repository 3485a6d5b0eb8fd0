package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/fenwick-labs/corpusengine/internal/clock"
	"github.com/fenwick-labs/corpusengine/internal/model"
)

var documentColumns = []string{
	"id", "collection", "source_uri", "content_hash", "content_type",
	"raw_content", "metadata", "created_at", "updated_at", "hlc",
}

var chunkColumns = []string{
	"id", "doc_id", "chunk_index", "text", "content_hash",
	"token_count", "start_offset", "end_offset", "metadata", "hlc",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row *sql.Row) (model.Document, error) {
	var d model.Document
	var hash, hlcBytes []byte
	var metaJSON string
	var createdAt, updatedAt string
	err := row.Scan(&d.ID, &d.Collection, &d.SourceURI, &hash, &d.ContentType, &d.RawContent, &metaJSON, &createdAt, &updatedAt, &hlcBytes)
	if err == sql.ErrNoRows {
		return model.Document{}, model.NewError(model.ErrDocumentNotFound, "store: document not found", nil)
	}
	if err != nil {
		return model.Document{}, model.NewError(model.ErrDatabase, "store: scan document", err)
	}
	return finishDocument(d, hash, hlcBytes, metaJSON, createdAt, updatedAt)
}

func scanDocumentRows(rows *sql.Rows) (model.Document, error) {
	var d model.Document
	var hash, hlcBytes []byte
	var metaJSON string
	var createdAt, updatedAt string
	err := rows.Scan(&d.ID, &d.Collection, &d.SourceURI, &hash, &d.ContentType, &d.RawContent, &metaJSON, &createdAt, &updatedAt, &hlcBytes)
	if err != nil {
		return model.Document{}, model.NewError(model.ErrDatabase, "store: scan document", err)
	}
	return finishDocument(d, hash, hlcBytes, metaJSON, createdAt, updatedAt)
}

func finishDocument(d model.Document, hash, hlcBytes []byte, metaJSON, createdAt, updatedAt string) (model.Document, error) {
	copy(d.ContentHash[:], hash)
	if err := json.Unmarshal([]byte(metaJSON), &d.Metadata); err != nil {
		return model.Document{}, model.NewError(model.ErrDatabase, "store: unmarshal document metadata", err)
	}
	var err error
	d.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return model.Document{}, model.NewError(model.ErrDatabase, "store: parse document created_at", err)
	}
	d.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return model.Document{}, model.NewError(model.ErrDatabase, "store: parse document updated_at", err)
	}
	d.HLC, err = clock.ParseBytes(hlcBytes)
	if err != nil {
		return model.Document{}, model.NewError(model.ErrInvalidClock, "store: parse document hlc", err)
	}
	return d, nil
}

var collectionColumns = []string{
	"name", "description", "max_tokens", "min_tokens", "overlap_tokens",
	"default_top_k", "default_hybrid_alpha", "created_at", "hlc",
}

func scanCollection(row *sql.Row) (model.Collection, error) {
	var c model.Collection
	var createdAt string
	var hlcBytes []byte
	err := row.Scan(&c.Name, &c.Description, &c.Settings.MaxTokens, &c.Settings.MinTokens,
		&c.Settings.OverlapTokens, &c.Settings.DefaultTopK, &c.Settings.DefaultHybridAlpha, &createdAt, &hlcBytes)
	if err == sql.ErrNoRows {
		return model.Collection{}, model.NewError(model.ErrCollectionNotFound, "store: collection not found", nil)
	}
	if err != nil {
		return model.Collection{}, model.NewError(model.ErrDatabase, "store: scan collection", err)
	}
	c.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return model.Collection{}, model.NewError(model.ErrDatabase, "store: parse collection created_at", err)
	}
	c.HLC, err = clock.ParseBytes(hlcBytes)
	if err != nil {
		return model.Collection{}, model.NewError(model.ErrInvalidClock, "store: parse collection hlc", err)
	}
	return c, nil
}

func scanChunk(row *sql.Row) (model.Chunk, error) {
	c, hlcBytes, hash, metaJSON, err := scanChunkCore(row)
	if err == sql.ErrNoRows {
		return model.Chunk{}, model.NewError(model.ErrChunkNotFound, "store: chunk not found", nil)
	}
	if err != nil {
		return model.Chunk{}, model.NewError(model.ErrDatabase, "store: scan chunk", err)
	}
	return finishChunk(c, hash, hlcBytes, metaJSON)
}

func scanChunkRows(rows *sql.Rows) (model.Chunk, error) {
	c, hlcBytes, hash, metaJSON, err := scanChunkCore(rows)
	if err != nil {
		return model.Chunk{}, model.NewError(model.ErrDatabase, "store: scan chunk", err)
	}
	return finishChunk(c, hash, hlcBytes, metaJSON)
}

func scanChunkCore(s rowScanner) (model.Chunk, []byte, []byte, string, error) {
	var c model.Chunk
	var hash, hlcBytes []byte
	var metaJSON string
	err := s.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Text, &hash, &c.TokenCount, &c.StartOffset, &c.EndOffset, &metaJSON, &hlcBytes)
	return c, hlcBytes, hash, metaJSON, err
}

func finishChunk(c model.Chunk, hash, hlcBytes []byte, metaJSON string) (model.Chunk, error) {
	copy(c.ContentHash[:], hash)
	if err := json.Unmarshal([]byte(metaJSON), &c.Metadata); err != nil {
		return model.Chunk{}, model.NewError(model.ErrDatabase, "store: unmarshal chunk metadata", err)
	}
	ts, err := clock.ParseBytes(hlcBytes)
	if err != nil {
		return model.Chunk{}, model.NewError(model.ErrInvalidClock, "store: parse chunk hlc", err)
	}
	c.HLC = ts
	return c, nil
}
