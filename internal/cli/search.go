package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/corpusengine/internal/query"
)

var (
	searchCollection string
	searchMode       string
	searchTopK       int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search a collection with hybrid vector+keyword retrieval",
	Long: `Search encodes the query, runs it against the vector and keyword
indices, fuses the results with reciprocal rank fusion, and prints the
top matches. --mode selects hybrid (default), vector, or keyword.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchCollection, "collection", "c", "default", "collection to search")
	searchCmd.Flags().StringVarP(&searchMode, "mode", "m", "hybrid", "search mode: hybrid, vector, or keyword")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 10, "number of results to return")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	queryText := args[0]

	var resp query.Response
	switch searchMode {
	case "vector":
		resp, err = a.planner.VectorSearch(ctx, queryText, searchCollection, searchTopK)
	case "keyword":
		resp, err = a.planner.KeywordSearch(ctx, queryText, searchCollection, searchTopK)
	case "hybrid", "":
		cfg := query.DefaultConfig()
		cfg.FinalK = searchTopK
		resp, err = a.planner.Search(ctx, queryText, searchCollection, cfg)
	default:
		return fmt.Errorf("search: unknown mode %q (want hybrid, vector, or keyword)", searchMode)
	}
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if len(resp.Results) == 0 {
		fmt.Println("no results")
		return nil
	}
	for i, r := range resp.Results {
		marker := ""
		if r.IsContext {
			marker = " (context)"
		}
		fmt.Printf("%d. [%.4f]%s %s\n", i+1, r.Score, marker, r.Chunk.ID)
		fmt.Printf("   %s\n", truncateText(r.Chunk.Text, 200))
	}
	return nil
}

func truncateText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
