package mcpserver

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/fenwick-labs/corpusengine/internal/ingest"
	"github.com/fenwick-labs/corpusengine/internal/query"
)

// Server wraps the mark3labs/mcp-go stdio server and registers this repo's
// tool surface over one Planner and one Coordinator, grounded on the
// teacher's internal/mcp/server.go lifecycle (construct tools, serve
// stdio, shut down on signal).
type Server struct {
	mcp         *server.MCPServer
	defaultColl string
}

// New builds a Server with the corpus_search and corpus_ingest tools
// registered. defaultCollection is used when a tool call omits "collection".
func New(planner *query.Planner, coordinator *ingest.Coordinator, defaultCollection string) *Server {
	mcpServer := server.NewMCPServer(
		"corpusengine-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	addSearchTool(mcpServer, planner, defaultCollection)
	addIngestTool(mcpServer, coordinator, defaultCollection)

	return &Server{mcp: mcpServer, defaultColl: defaultCollection}
}

// Serve blocks, serving MCP requests over stdio until ctx is cancelled or
// SIGINT/SIGTERM is received.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("mcpserver: serving on stdio")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("mcpserver: stdio server: %w", err)
		}
	}()

	select {
	case <-sigCh:
		log.Printf("mcpserver: received shutdown signal")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
