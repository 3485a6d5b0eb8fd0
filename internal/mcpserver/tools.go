package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/fenwick-labs/corpusengine/internal/ingest"
	"github.com/fenwick-labs/corpusengine/internal/query"
)

// addSearchTool registers corpus_search, grounded on the teacher's
// AddCortexSearchTool: parse arguments out of the untyped params map,
// dispatch to the capability, marshal the result as a JSON text block.
func addSearchTool(s *server.MCPServer, planner *query.Planner, defaultCollection string) {
	tool := mcp.NewTool(
		"corpus_search",
		mcp.WithDescription("Search an ingested collection for relevant chunks using hybrid dense+lexical retrieval, dense-only vector search, or lexical-only keyword search."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Natural language (or keyword) search query")),
		mcp.WithString("collection", mcp.Description("Collection to search; defaults to the server's configured default collection")),
		mcp.WithString("mode", mcp.Description("One of 'hybrid' (default), 'vector', or 'keyword'")),
		mcp.WithNumber("top_k", mcp.Description("Maximum number of results to return (default 10)")),
	)
	s.AddTool(tool, searchHandler(planner, defaultCollection))
}

func searchHandler(planner *query.Planner, defaultCollection string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		req := SearchRequest{Collection: defaultCollection, Mode: "hybrid", TopK: 10}
		if q, ok := argsMap["query"].(string); ok {
			req.Query = q
		}
		if req.Query == "" {
			return mcp.NewToolResultError("query parameter is required"), nil
		}
		if c, ok := argsMap["collection"].(string); ok && c != "" {
			req.Collection = c
		}
		if m, ok := argsMap["mode"].(string); ok && m != "" {
			req.Mode = m
		}
		if k, ok := argsMap["top_k"].(float64); ok && k > 0 {
			req.TopK = int(k)
		}

		var resp query.Response
		var err error
		switch req.Mode {
		case "vector":
			resp, err = planner.VectorSearch(ctx, req.Query, req.Collection, req.TopK)
		case "keyword":
			resp, err = planner.KeywordSearch(ctx, req.Query, req.Collection, req.TopK)
		case "hybrid", "":
			cfg := query.DefaultConfig()
			cfg.FinalK = req.TopK
			resp, err = planner.Search(ctx, req.Query, req.Collection, cfg)
		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown mode %q: must be hybrid, vector, or keyword", req.Mode)), nil
		}
		if err != nil {
			return nil, fmt.Errorf("corpus_search: %w", err)
		}

		out := SearchResponse{Results: make([]SearchResultItem, len(resp.Results)), Total: len(resp.Results)}
		for i, r := range resp.Results {
			out.Results[i] = SearchResultItem{
				ChunkID:    r.Chunk.ID,
				DocumentID: r.Chunk.DocumentID,
				Text:       r.Chunk.Text,
				Score:      r.Score,
				IsContext:  r.IsContext,
			}
		}

		data, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("corpus_search: marshal response: %w", err)
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

// addIngestTool registers corpus_ingest, letting an MCP client add or
// refresh one document without shelling out to the CLI.
func addIngestTool(s *server.MCPServer, coordinator *ingest.Coordinator, defaultCollection string) {
	tool := mcp.NewTool(
		"corpus_ingest",
		mcp.WithDescription("Ingest or refresh one document (file://, http(s)://, or data: URI) into a collection."),
		mcp.WithString("uri", mcp.Required(), mcp.Description("Source URI to load")),
		mcp.WithString("collection", mcp.Description("Target collection; defaults to the server's configured default collection")),
	)
	s.AddTool(tool, ingestHandler(coordinator, defaultCollection))
}

func ingestHandler(coordinator *ingest.Coordinator, defaultCollection string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		req := IngestRequest{Collection: defaultCollection}
		if u, ok := argsMap["uri"].(string); ok {
			req.URI = u
		}
		if req.URI == "" {
			return mcp.NewToolResultError("uri parameter is required"), nil
		}
		if c, ok := argsMap["collection"].(string); ok && c != "" {
			req.Collection = c
		}

		outcome, err := coordinator.Ingest(ctx, ingest.Request{URI: req.URI, Collection: req.Collection, Metadata: map[string]string{}})
		if err != nil {
			return nil, fmt.Errorf("corpus_ingest: %w", err)
		}

		resp := IngestResponse{
			DocumentID: outcome.DocumentID,
			ChunkCount: outcome.ChunkCount,
			State:      string(outcome.State),
			Unchanged:  outcome.Unchanged,
		}
		data, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("corpus_ingest: marshal response: %w", err)
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}
