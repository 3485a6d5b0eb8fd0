package mcpserver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	mcpsdk "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenwick-labs/corpusengine/internal/embedder"
	"github.com/fenwick-labs/corpusengine/internal/ingest"
	"github.com/fenwick-labs/corpusengine/internal/model"
	"github.com/fenwick-labs/corpusengine/internal/query"
	"github.com/fenwick-labs/corpusengine/internal/store"
)

type fakeLoader struct{ content map[string][]byte }

func (f *fakeLoader) Load(ctx context.Context, uri string) ([]byte, error) {
	data, ok := f.content[uri]
	if !ok {
		return nil, model.NewError(model.ErrLoadFailed, "fakeLoader: no content for "+uri, nil)
	}
	return data, nil
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.db")
	s, err := store.Open(context.Background(), path, store.Options{Dimension: 8, NodeID: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func callToolRequest(args map[string]interface{}) mcpsdk.CallToolRequest {
	return mcpsdk.CallToolRequest{Params: mcpsdk.CallToolParams{Arguments: args}}
}

func TestSearchHandlerRequiresQuery(t *testing.T) {
	s := openTestStore(t)
	planner := query.New(s, embedder.NewMock(8, 8192))
	handler := searchHandler(planner, "docs")

	result, err := handler(context.Background(), callToolRequest(map[string]interface{}{}))
	require.NoError(t, err)
	require.True(t, result.IsError)
}

func TestSearchHandlerRejectsUnknownMode(t *testing.T) {
	s := openTestStore(t)
	planner := query.New(s, embedder.NewMock(8, 8192))
	handler := searchHandler(planner, "docs")

	result, err := handler(context.Background(), callToolRequest(map[string]interface{}{
		"query": "hello",
		"mode":  "fuzzy",
	}))
	require.NoError(t, err)
	require.True(t, result.IsError)
}

func TestSearchHandlerReturnsJSONResults(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	_, err := s.CreateCollection(ctx, model.Collection{Name: "docs", Settings: model.DefaultCollectionSettings()})
	require.NoError(t, err)

	e := embedder.NewMock(8, 8192)
	coordinator := ingest.New(&fakeLoader{content: map[string][]byte{
		"file:///a.txt": []byte("hello world, this is a searchable document about gophers"),
	}}, e, s)
	_, err = coordinator.Ingest(ctx, ingest.Request{URI: "file:///a.txt", Collection: "docs", Metadata: map[string]string{}})
	require.NoError(t, err)

	planner := query.New(s, e)
	handler := searchHandler(planner, "docs")

	result, err := handler(ctx, callToolRequest(map[string]interface{}{
		"query": "gophers",
		"mode":  "keyword",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	textContent, ok := mcpsdk.AsTextContent(result.Content[0])
	require.True(t, ok)
	var resp SearchResponse
	require.NoError(t, json.Unmarshal([]byte(textContent.Text), &resp))
	assert.NotEmpty(t, resp.Results)
}

func TestIngestHandlerRequiresURI(t *testing.T) {
	s := openTestStore(t)
	coordinator := ingest.New(&fakeLoader{}, embedder.NewMock(8, 8192), s)
	handler := ingestHandler(coordinator, "docs")

	result, err := handler(context.Background(), callToolRequest(map[string]interface{}{}))
	require.NoError(t, err)
	require.True(t, result.IsError)
}

func TestIngestHandlerIngestsAndReturnsOutcome(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	_, err := s.CreateCollection(ctx, model.Collection{Name: "docs", Settings: model.DefaultCollectionSettings()})
	require.NoError(t, err)

	loader := &fakeLoader{content: map[string][]byte{"file:///a.txt": []byte("hello world")}}
	coordinator := ingest.New(loader, embedder.NewMock(8, 8192), s)
	handler := ingestHandler(coordinator, "docs")

	result, err := handler(ctx, callToolRequest(map[string]interface{}{"uri": "file:///a.txt"}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	textContent, ok := mcpsdk.AsTextContent(result.Content[0])
	require.True(t, ok)
	var resp IngestResponse
	require.NoError(t, json.Unmarshal([]byte(textContent.Text), &resp))
	assert.Equal(t, "present", resp.State)
	assert.Greater(t, resp.ChunkCount, 0)
}
