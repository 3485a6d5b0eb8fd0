// Package mcpserver is the thin Model Context Protocol tool surface over
// internal/query and internal/ingest, grounded on the teacher's
// internal/mcp/{server,tool,models}.go and built on
// github.com/mark3labs/mcp-go.
package mcpserver

// SearchRequest is the JSON request schema for the corpus_search tool.
type SearchRequest struct {
	Query      string `json:"query"`
	Collection string `json:"collection"`
	Mode       string `json:"mode,omitempty"` // "hybrid" (default), "vector", "keyword"
	TopK       int    `json:"top_k,omitempty"`
}

// SearchResultItem is one chunk in a SearchResponse.
type SearchResultItem struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
	IsContext  bool    `json:"is_context"`
}

// SearchResponse is the JSON response schema for the corpus_search tool.
type SearchResponse struct {
	Results []SearchResultItem `json:"results"`
	Total   int                `json:"total"`
}

// IngestRequest is the JSON request schema for the corpus_ingest tool.
type IngestRequest struct {
	URI        string `json:"uri"`
	Collection string `json:"collection"`
}

// IngestResponse is the JSON response schema for the corpus_ingest tool.
type IngestResponse struct {
	DocumentID string `json:"document_id"`
	ChunkCount int    `json:"chunk_count"`
	State      string `json:"state"`
	Unchanged  bool   `json:"unchanged"`
}
