package ingest

import (
	"context"
	"crypto/sha256"
	"log"
	"net/url"
	"path/filepath"

	"github.com/fenwick-labs/corpusengine/internal/chunker"
	"github.com/fenwick-labs/corpusengine/internal/embedder"
	"github.com/fenwick-labs/corpusengine/internal/model"
	"github.com/fenwick-labs/corpusengine/internal/store"
)

// Coordinator drives the load -> detect -> dedupe -> chunk -> embed ->
// persist protocol of spec.md §4.6 over one store and one embedder.
type Coordinator struct {
	loader   Loader
	embedder embedder.Embedder
	store    *store.Store
}

// New constructs a Coordinator.
func New(l Loader, e embedder.Embedder, s *store.Store) *Coordinator {
	return &Coordinator{loader: l, embedder: e, store: s}
}

// Ingest runs the full protocol for one document (spec.md §4.6 steps 1-7).
func (c *Coordinator) Ingest(ctx context.Context, req Request) (Outcome, error) {
	data, err := c.loader.Load(ctx, req.URI)
	if err != nil {
		return Outcome{State: StateFailed}, model.NewError(model.ErrLoadFailed, "ingest: load "+req.URI, err)
	}

	contentType := model.DetectContentType(req.TypeHint, extractExtension(req.URI), data)
	digest := sha256.Sum256(data)

	existing, err := c.store.GetDocumentByURI(ctx, req.Collection, req.URI)
	switch {
	case err == nil:
		if existing.ContentHash == digest {
			chunks, listErr := c.store.ListChunksByDoc(ctx, existing.ID)
			if listErr != nil {
				return Outcome{State: StateFailed}, listErr
			}
			return Outcome{DocumentID: existing.ID, ChunkCount: len(chunks), State: StatePresent, Unchanged: true}, nil
		}
		return c.incrementalUpdate(ctx, req, existing, data, contentType, digest)
	case model.CodeOf(err) == model.ErrDocumentNotFound:
		return c.freshIngest(ctx, req, data, contentType, digest)
	default:
		return Outcome{State: StateFailed}, err
	}
}

// freshIngest implements spec.md §4.6 step 5: chunk, embed every chunk in
// document mode, then persist the document/chunks/embeddings atomically via
// store.FreshIngest. State never reaches Present unless every earlier step
// succeeded.
func (c *Coordinator) freshIngest(ctx context.Context, req Request, data []byte, contentType model.ContentType, digest [32]byte) (Outcome, error) {
	settings, err := c.chunkSettings(ctx, req.Collection)
	if err != nil {
		return Outcome{State: StateFailed}, err
	}

	result, err := chunker.Chunk(data, contentType, settings)
	if err != nil {
		return Outcome{State: StateFailed}, err
	}
	if result.Degraded {
		log.Printf("ingest: %s: parse failed, degraded to recursive-split: %v", req.URI, result.ParseErr)
	}

	chunks := draftsToChunks(result.Drafts)
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := c.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return Outcome{State: StateFailed}, err
	}
	embeddings := make([]model.Embedding, len(vectors))
	for i, v := range vectors {
		embeddings[i] = model.Embedding{Vector: v}
	}

	doc := model.Document{
		Collection:  req.Collection,
		SourceURI:   req.URI,
		ContentHash: digest,
		ContentType: contentType,
		RawContent:  data,
		Metadata:    req.Metadata,
	}
	inserted, err := c.store.FreshIngest(ctx, doc, chunks, embeddings)
	if err != nil {
		return Outcome{State: StateFailed}, err
	}
	return Outcome{DocumentID: inserted.ID, ChunkCount: len(chunks), State: StatePresent}, nil
}

// incrementalUpdate implements spec.md §4.6 step 6: chunk the new content,
// classify chunks against the document's existing chunks by content hash
// into keep/remove/add sets, embed only the add set, and apply the diff in
// one store transaction.
func (c *Coordinator) incrementalUpdate(ctx context.Context, req Request, existing model.Document, data []byte, contentType model.ContentType, digest [32]byte) (Outcome, error) {
	settings, err := c.chunkSettings(ctx, existing.Collection)
	if err != nil {
		return Outcome{State: StateFailed}, err
	}

	result, err := chunker.Chunk(data, contentType, settings)
	if err != nil {
		return Outcome{State: StateFailed}, err
	}
	if result.Degraded {
		log.Printf("ingest: %s: parse failed, degraded to recursive-split: %v", req.URI, result.ParseErr)
	}
	newChunks := draftsToChunks(result.Drafts)
	for i := range newChunks {
		newChunks[i].DocumentID = existing.ID
	}

	oldChunks, err := c.store.ListChunksByDoc(ctx, existing.ID)
	if err != nil {
		return Outcome{State: StateFailed}, err
	}

	// Keyed by content hash, per spec.md §4.6 step 6; a document whose chunker
	// produces two byte-identical chunks collapses them to one entry here,
	// so one copy may be dropped as "removed" even though its text survives
	// in the new version under a sibling index.
	oldByHash := make(map[[32]byte]model.Chunk, len(oldChunks))
	for _, ch := range oldChunks {
		oldByHash[ch.ContentHash] = ch
	}
	newHashes := make(map[[32]byte]bool, len(newChunks))
	for _, ch := range newChunks {
		newHashes[ch.ContentHash] = true
	}

	var removeIDs []string
	for hash, old := range oldByHash {
		if !newHashes[hash] {
			removeIDs = append(removeIDs, old.ID)
		}
	}

	var addChunks []model.Chunk
	var addTexts []string
	var reindexedIDs []string
	var reindexedPositions []int
	for _, nc := range newChunks {
		if old, ok := oldByHash[nc.ContentHash]; ok {
			if old.Index != nc.Index {
				reindexedIDs = append(reindexedIDs, old.ID)
				reindexedPositions = append(reindexedPositions, nc.Index)
			}
			continue
		}
		addChunks = append(addChunks, nc)
		addTexts = append(addTexts, nc.Text)
	}

	var addEmbeddings []model.Embedding
	if len(addTexts) > 0 {
		vectors, err := c.embedder.EmbedDocuments(ctx, addTexts)
		if err != nil {
			return Outcome{State: StateFailed}, err
		}
		addEmbeddings = make([]model.Embedding, len(vectors))
		for i, v := range vectors {
			addEmbeddings[i] = model.Embedding{Vector: v}
		}
	}

	doc := existing
	doc.ContentHash = digest
	doc.Metadata = req.Metadata

	plan := store.IncrementalUpdatePlan{
		Document:           doc,
		RemoveChunkIDs:     removeIDs,
		AddChunks:          addChunks,
		AddEmbeddings:      addEmbeddings,
		ReindexedChunkIDs:  reindexedIDs,
		ReindexedPositions: reindexedPositions,
	}
	updated, err := c.store.IncrementalUpdate(ctx, plan)
	if err != nil {
		return Outcome{State: StateFailed}, err
	}

	chunkCount := len(oldChunks) - len(removeIDs) + len(addChunks)
	return Outcome{DocumentID: updated.ID, ChunkCount: chunkCount, State: StatePresent}, nil
}

func (c *Coordinator) chunkSettings(ctx context.Context, collection string) (chunker.Settings, error) {
	col, err := c.store.GetCollection(ctx, collection)
	if err != nil {
		return chunker.Settings{}, err
	}
	return chunker.Settings{
		MaxTokens:     col.Settings.MaxTokens,
		MinTokens:     col.Settings.MinTokens,
		OverlapTokens: col.Settings.OverlapTokens,
	}, nil
}

// draftsToChunks assigns document-scoped indices 0..n-1 and content hashes
// to a chunker.Result's drafts, per spec.md §4.6 step 5.
func draftsToChunks(drafts []chunker.Draft) []model.Chunk {
	chunks := make([]model.Chunk, len(drafts))
	for i, d := range drafts {
		chunks[i] = model.Chunk{
			Index:       i,
			Text:        d.Text,
			ContentHash: sha256.Sum256([]byte(d.Text)),
			TokenCount:  d.TokenCount,
			StartOffset: d.StartOffset,
			EndOffset:   d.EndOffset,
			Metadata:    d.Metadata,
		}
	}
	return chunks
}

// extractExtension pulls a file extension out of a URI for content-type
// detection (spec.md §4.6 step 2), tolerating both file://, http(s)://, and
// bare path forms.
func extractExtension(uri string) string {
	if u, err := url.Parse(uri); err == nil && u.Path != "" {
		return filepath.Ext(u.Path)
	}
	return filepath.Ext(uri)
}
