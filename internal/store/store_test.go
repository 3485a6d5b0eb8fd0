package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fenwick-labs/corpusengine/internal/model"
)

func openTestStore(t *testing.T, dim int) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.db")
	s, err := Open(context.Background(), path, Options{Dimension: dim, NodeID: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustCollection(t *testing.T, s *Store, name string) model.Collection {
	t.Helper()
	col, err := s.CreateCollection(context.Background(), model.Collection{
		Name:     name,
		Settings: model.DefaultCollectionSettings(),
	})
	require.NoError(t, err)
	return col
}

func mustDocument(t *testing.T, s *Store, collection, uri string) model.Document {
	t.Helper()
	doc, err := s.InsertDocument(context.Background(), model.Document{
		Collection:  collection,
		SourceURI:   uri,
		ContentType: model.ContentMarkdown,
		RawContent:  []byte("# hello"),
		Metadata:    map[string]string{},
	})
	require.NoError(t, err)
	return doc
}

func vec(dim int, seed float32) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = seed
	}
	v[0] += 0.001 // avoid the all-equal-components degenerate cosine case
	return v
}

func TestOpenCreatesSchemaAndIsReopenable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.db")
	ctx := context.Background()

	s1, err := Open(ctx, path, Options{Dimension: 8, NodeID: 1})
	require.NoError(t, err)
	require.Equal(t, 8, s1.Dimension())
	require.NoError(t, s1.Close())

	s2, err := Open(ctx, path, Options{NodeID: 1})
	require.NoError(t, err)
	defer s2.Close()
	require.Equal(t, 8, s2.Dimension(), "dimension persists across reopen, ignoring the second Options.Dimension")
}

func TestCreateCollectionRejectsInvalidNameAndDuplicate(t *testing.T) {
	s := openTestStore(t, 8)
	ctx := context.Background()

	_, err := s.CreateCollection(ctx, model.Collection{Name: "bad name"})
	require.Error(t, err)
	require.Equal(t, model.ErrInvalidCollectionName, model.CodeOf(err))

	mustCollection(t, s, "docs")
	_, err = s.CreateCollection(ctx, model.Collection{Name: "docs", Settings: model.DefaultCollectionSettings()})
	require.Error(t, err)
	require.Equal(t, model.ErrCollectionExists, model.CodeOf(err))
}

func TestGetCollectionRoundTripsSettings(t *testing.T) {
	s := openTestStore(t, 8)
	ctx := context.Background()
	created := mustCollection(t, s, "docs")

	got, err := s.GetCollection(ctx, "docs")
	require.NoError(t, err)
	require.Equal(t, created.Name, got.Name)
	require.Equal(t, created.Settings, got.Settings)

	_, err = s.GetCollection(ctx, "ghost")
	require.Error(t, err)
	require.Equal(t, model.ErrCollectionNotFound, model.CodeOf(err))
}

func TestDeleteCollectionNotFound(t *testing.T) {
	s := openTestStore(t, 8)
	err := s.DeleteCollection(context.Background(), "nope")
	require.Error(t, err)
	require.Equal(t, model.ErrCollectionNotFound, model.CodeOf(err))
}

func TestInsertDocumentRequiresExistingCollection(t *testing.T) {
	s := openTestStore(t, 8)
	_, err := s.InsertDocument(context.Background(), model.Document{
		Collection: "ghost",
		SourceURI:  "file:///a.md",
	})
	require.Error(t, err)
	require.Equal(t, model.ErrCollectionNotFound, model.CodeOf(err))
}

func TestInsertDocumentDuplicateSourceURI(t *testing.T) {
	s := openTestStore(t, 8)
	ctx := context.Background()
	mustCollection(t, s, "docs")
	mustDocument(t, s, "docs", "file:///a.md")

	_, err := s.InsertDocument(ctx, model.Document{
		Collection: "docs",
		SourceURI:  "file:///a.md",
	})
	require.Error(t, err)
	require.Equal(t, model.ErrDuplicateDocument, model.CodeOf(err))
}

func TestGetDocumentRoundTrip(t *testing.T) {
	s := openTestStore(t, 8)
	ctx := context.Background()
	mustCollection(t, s, "docs")
	inserted := mustDocument(t, s, "docs", "file:///a.md")

	byID, err := s.GetDocument(ctx, inserted.ID)
	require.NoError(t, err)
	require.Equal(t, inserted.ID, byID.ID)
	require.Equal(t, inserted.RawContent, byID.RawContent)

	byURI, err := s.GetDocumentByURI(ctx, "docs", "file:///a.md")
	require.NoError(t, err)
	require.Equal(t, inserted.ID, byURI.ID)

	_, err = s.GetDocument(ctx, "missing")
	require.Error(t, err)
	require.Equal(t, model.ErrDocumentNotFound, model.CodeOf(err))
}

func TestListDocumentsOrderedNewestFirst(t *testing.T) {
	s := openTestStore(t, 8)
	ctx := context.Background()
	mustCollection(t, s, "docs")
	d1 := mustDocument(t, s, "docs", "file:///a.md")
	d2 := mustDocument(t, s, "docs", "file:///b.md")

	docs, err := s.ListDocuments(ctx, "docs", 10, 0)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	ids := []string{docs[0].ID, docs[1].ID}
	require.Contains(t, ids, d1.ID)
	require.Contains(t, ids, d2.ID)
	require.Equal(t, d2.ID, docs[0].ID, "the later insert is listed first")
}

func TestInsertChunksRejectsDuplicateIndex(t *testing.T) {
	s := openTestStore(t, 8)
	ctx := context.Background()
	mustCollection(t, s, "docs")
	doc := mustDocument(t, s, "docs", "file:///a.md")

	err := s.InsertChunks(ctx, []model.Chunk{
		{DocumentID: doc.ID, Index: 0, Text: "one", Metadata: model.ChunkMetadata{ChunkingStrategy: "semantic"}},
	})
	require.NoError(t, err)

	err = s.InsertChunks(ctx, []model.Chunk{
		{DocumentID: doc.ID, Index: 0, Text: "dup", Metadata: model.ChunkMetadata{ChunkingStrategy: "semantic"}},
	})
	require.Error(t, err)
	require.Equal(t, model.ErrInvalidArgument, model.CodeOf(err))
}

func TestInsertEmbeddingsRejectsDimensionMismatch(t *testing.T) {
	s := openTestStore(t, 8)
	ctx := context.Background()
	mustCollection(t, s, "docs")
	doc := mustDocument(t, s, "docs", "file:///a.md")
	require.NoError(t, s.InsertChunks(ctx, []model.Chunk{
		{DocumentID: doc.ID, Index: 0, Text: "one", Metadata: model.ChunkMetadata{ChunkingStrategy: "semantic"}},
	}))
	chunks, err := s.ListChunksByDoc(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	err = s.InsertEmbeddings(ctx, []model.Embedding{{ChunkID: chunks[0].ID, Vector: make([]float32, 3)}})
	require.Error(t, err)
	require.Equal(t, model.ErrInvalidArgument, model.CodeOf(err))
}

func TestDeleteDocumentCascadesChunksAndVectors(t *testing.T) {
	s := openTestStore(t, 8)
	ctx := context.Background()
	mustCollection(t, s, "docs")
	doc := mustDocument(t, s, "docs", "file:///a.md")
	require.NoError(t, s.InsertChunks(ctx, []model.Chunk{
		{DocumentID: doc.ID, Index: 0, Text: "one", Metadata: model.ChunkMetadata{ChunkingStrategy: "semantic"}},
	}))
	chunks, err := s.ListChunksByDoc(ctx, doc.ID)
	require.NoError(t, err)
	require.NoError(t, s.InsertEmbeddings(ctx, []model.Embedding{{ChunkID: chunks[0].ID, Vector: vec(8, 0.1)}}))

	require.NoError(t, s.DeleteDocument(ctx, doc.ID))

	_, err = s.GetDocument(ctx, doc.ID)
	require.Equal(t, model.ErrDocumentNotFound, model.CodeOf(err))

	remaining, err := s.ListChunksByDoc(ctx, doc.ID)
	require.NoError(t, err)
	require.Empty(t, remaining, "cascading delete must remove orphaned chunks")

	hits, err := s.VectorSearch(ctx, vec(8, 0.1), 10, "")
	require.NoError(t, err)
	for _, h := range hits {
		require.NotEqual(t, chunks[0].ID, h.ChunkID, "vector entry must be removed with its chunk")
	}

	err = s.DeleteDocument(ctx, doc.ID)
	require.Equal(t, model.ErrDocumentNotFound, model.CodeOf(err))
}

func TestDeleteCollectionCascadesDocuments(t *testing.T) {
	s := openTestStore(t, 8)
	ctx := context.Background()
	mustCollection(t, s, "docs")
	doc := mustDocument(t, s, "docs", "file:///a.md")

	require.NoError(t, s.DeleteCollection(ctx, "docs"))

	_, err := s.GetDocument(ctx, doc.ID)
	require.Equal(t, model.ErrDocumentNotFound, model.CodeOf(err))
}

func TestVectorSearchRanksByCosineDistance(t *testing.T) {
	s := openTestStore(t, 4)
	ctx := context.Background()
	mustCollection(t, s, "docs")
	doc := mustDocument(t, s, "docs", "file:///a.md")
	require.NoError(t, s.InsertChunks(ctx, []model.Chunk{
		{DocumentID: doc.ID, Index: 0, Text: "near", Metadata: model.ChunkMetadata{ChunkingStrategy: "semantic"}},
		{DocumentID: doc.ID, Index: 1, Text: "far", Metadata: model.ChunkMetadata{ChunkingStrategy: "semantic"}},
	}))
	chunks, err := s.ListChunksByDoc(ctx, doc.ID)
	require.NoError(t, err)

	near := []float32{1, 0, 0, 0}
	far := []float32{0, 0, 0, 1}
	require.NoError(t, s.InsertEmbeddings(ctx, []model.Embedding{
		{ChunkID: chunks[0].ID, Vector: near},
		{ChunkID: chunks[1].ID, Vector: far},
	}))

	hits, err := s.VectorSearch(ctx, []float32{0.9, 0.1, 0, 0}, 2, "")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, chunks[0].ID, hits[0].ChunkID, "closer vector must rank first")
}

func TestVectorSearchScopedToCollection(t *testing.T) {
	s := openTestStore(t, 4)
	ctx := context.Background()
	mustCollection(t, s, "a")
	mustCollection(t, s, "b")
	docA := mustDocument(t, s, "a", "file:///a.md")
	docB := mustDocument(t, s, "b", "file:///b.md")
	require.NoError(t, s.InsertChunks(ctx, []model.Chunk{{DocumentID: docA.ID, Index: 0, Text: "a", Metadata: model.ChunkMetadata{ChunkingStrategy: "semantic"}}}))
	require.NoError(t, s.InsertChunks(ctx, []model.Chunk{{DocumentID: docB.ID, Index: 0, Text: "b", Metadata: model.ChunkMetadata{ChunkingStrategy: "semantic"}}}))
	chunksA, _ := s.ListChunksByDoc(ctx, docA.ID)
	chunksB, _ := s.ListChunksByDoc(ctx, docB.ID)
	v := []float32{1, 0, 0, 0}
	require.NoError(t, s.InsertEmbeddings(ctx, []model.Embedding{{ChunkID: chunksA[0].ID, Vector: v}}))
	require.NoError(t, s.InsertEmbeddings(ctx, []model.Embedding{{ChunkID: chunksB[0].ID, Vector: v}}))

	hits, err := s.VectorSearch(ctx, v, 10, "a")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, chunksA[0].ID, hits[0].ChunkID)
}

func TestKeywordSearchFindsMatchAndSanitizesInjection(t *testing.T) {
	s := openTestStore(t, 4)
	ctx := context.Background()
	mustCollection(t, s, "docs")
	doc := mustDocument(t, s, "docs", "file:///a.md")
	require.NoError(t, s.InsertChunks(ctx, []model.Chunk{
		{DocumentID: doc.ID, Index: 0, Text: "the quick brown fox", Metadata: model.ChunkMetadata{ChunkingStrategy: "semantic"}},
		{DocumentID: doc.ID, Index: 1, Text: "jumps over the lazy dog", Metadata: model.ChunkMetadata{ChunkingStrategy: "semantic"}},
	}))
	chunks, err := s.ListChunksByDoc(ctx, doc.ID)
	require.NoError(t, err)

	hits, err := s.KeywordSearch(ctx, "fox", 10, "")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, chunks[0].ID, hits[0].ChunkID)

	hits, err = s.KeywordSearch(ctx, `fox OR dog" ; DROP TABLE chunks_fts;`, 10, "")
	require.NoError(t, err, "injected boolean/SQL syntax must be treated as literal terms, not rejected")
	require.Empty(t, hits, "literal phrase match for all quoted terms finds nothing, proving no boolean OR escaped sanitization")
}

func TestGetChunksSkipsMissingIDs(t *testing.T) {
	s := openTestStore(t, 4)
	ctx := context.Background()
	mustCollection(t, s, "docs")
	doc := mustDocument(t, s, "docs", "file:///a.md")
	require.NoError(t, s.InsertChunks(ctx, []model.Chunk{
		{DocumentID: doc.ID, Index: 0, Text: "one", Metadata: model.ChunkMetadata{ChunkingStrategy: "semantic"}},
	}))
	chunks, err := s.ListChunksByDoc(ctx, doc.ID)
	require.NoError(t, err)

	got, err := s.GetChunks(ctx, []string{chunks[0].ID, "missing-id"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, chunks[0].ID, got[0].ID)
}

func TestFreshIngestIsAtomicAndWiresIDs(t *testing.T) {
	s := openTestStore(t, 4)
	ctx := context.Background()
	mustCollection(t, s, "docs")

	doc := model.Document{Collection: "docs", SourceURI: "file:///fresh.md", ContentType: model.ContentMarkdown, Metadata: map[string]string{}}
	chunks := []model.Chunk{
		{Index: 0, Text: "alpha", Metadata: model.ChunkMetadata{ChunkingStrategy: "semantic"}},
		{Index: 1, Text: "beta", Metadata: model.ChunkMetadata{ChunkingStrategy: "semantic"}},
	}
	embeddings := []model.Embedding{{Vector: vec(4, 0.1)}, {Vector: vec(4, 0.2)}}

	inserted, err := s.FreshIngest(ctx, doc, chunks, embeddings)
	require.NoError(t, err)
	require.NotEmpty(t, inserted.ID)

	persisted, err := s.ListChunksByDoc(ctx, inserted.ID)
	require.NoError(t, err)
	require.Len(t, persisted, 2)
	require.Equal(t, "alpha", persisted[0].Text)
	require.Equal(t, "beta", persisted[1].Text)

	hits, err := s.VectorSearch(ctx, vec(4, 0.1), 1, "")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, persisted[0].ID, hits[0].ChunkID)
}

func TestIncrementalUpdateAppliesDiff(t *testing.T) {
	s := openTestStore(t, 4)
	ctx := context.Background()
	mustCollection(t, s, "docs")
	doc := mustDocument(t, s, "docs", "file:///inc.md")
	require.NoError(t, s.InsertChunks(ctx, []model.Chunk{
		{DocumentID: doc.ID, Index: 0, Text: "keep", Metadata: model.ChunkMetadata{ChunkingStrategy: "semantic"}},
		{DocumentID: doc.ID, Index: 1, Text: "remove-me", Metadata: model.ChunkMetadata{ChunkingStrategy: "semantic"}},
	}))
	chunks, err := s.ListChunksByDoc(ctx, doc.ID)
	require.NoError(t, err)
	keepID, removeID := chunks[0].ID, chunks[1].ID

	newHash := doc.ContentHash
	newHash[0]++
	doc.ContentHash = newHash

	updated, err := s.IncrementalUpdate(ctx, IncrementalUpdatePlan{
		Document:           doc,
		RemoveChunkIDs:     []string{removeID},
		AddChunks:          []model.Chunk{{DocumentID: doc.ID, Index: 1, Text: "added", Metadata: model.ChunkMetadata{ChunkingStrategy: "semantic"}}},
		AddEmbeddings:      []model.Embedding{{Vector: vec(4, 0.3)}},
		ReindexedChunkIDs:  []string{keepID},
		ReindexedPositions: []int{0},
	})
	require.NoError(t, err)
	require.Equal(t, newHash, updated.ContentHash)

	final, err := s.ListChunksByDoc(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, final, 2)
	texts := map[string]bool{}
	for _, c := range final {
		texts[c.Text] = true
	}
	require.True(t, texts["keep"])
	require.True(t, texts["added"])
	require.False(t, texts["remove-me"])

	got, err := s.GetChunks(ctx, []string{removeID})
	require.NoError(t, err)
	require.Empty(t, got, "removed chunk must not be retrievable")
}

func TestGetChangesSinceOrdersAndFiltersByWatermark(t *testing.T) {
	s := openTestStore(t, 4)
	ctx := context.Background()
	mustCollection(t, s, "docs")
	before := s.Watermark()
	mustDocument(t, s, "docs", "file:///a.md")
	mustDocument(t, s, "docs", "file:///b.md")

	changes, err := s.GetChangesSince(ctx, before)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	for i := 1; i < len(changes); i++ {
		require.True(t, changes[i-1].HLC.Compare(changes[i].HLC) <= 0, "changes must be ordered by HLC")
	}

	after := s.Watermark()
	none, err := s.GetChangesSince(ctx, after)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestWithReaderUsesPooledConnection(t *testing.T) {
	s := openTestStore(t, 4)
	ctx := context.Background()
	mustCollection(t, s, "docs")

	var name string
	err := s.WithReader(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, "SELECT name FROM collections WHERE name = ?", "docs").Scan(&name)
	})
	require.NoError(t, err)
	require.Equal(t, "docs", name)
}
