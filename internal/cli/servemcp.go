package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/corpusengine/internal/mcpserver"
)

var serveMCPCollection string

var serveMCPCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Serve corpus_search and corpus_ingest as a Model Context Protocol server over stdio",
	RunE:  runServeMCP,
}

func init() {
	rootCmd.AddCommand(serveMCPCmd)
	serveMCPCmd.Flags().StringVarP(&serveMCPCollection, "collection", "c", "default", "default collection for tool calls that omit one")
}

func runServeMCP(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := mcpserver.New(a.planner, a.coordinator, serveMCPCollection)
	if err := srv.Serve(ctx); err != nil {
		return fmt.Errorf("serve-mcp: %w", err)
	}
	return nil
}
