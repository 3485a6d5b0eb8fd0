package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/corpusengine/internal/model"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "Manage collections",
}

var collectionsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new collection",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionsCreate,
}

var collectionsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a collection's settings",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionsShow,
}

var collectionsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a collection and everything in it",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionsDelete,
}

var collectionsListDocsCmd = &cobra.Command{
	Use:   "list-documents <name>",
	Short: "List documents in a collection",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionsListDocs,
}

var collectionDescription string

func init() {
	rootCmd.AddCommand(collectionsCmd)
	collectionsCmd.AddCommand(collectionsCreateCmd, collectionsShowCmd, collectionsDeleteCmd, collectionsListDocsCmd)
	collectionsCreateCmd.Flags().StringVarP(&collectionDescription, "description", "d", "", "collection description")
}

func runCollectionsCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	settings := model.DefaultCollectionSettings()
	settings.MaxTokens = a.cfg.Chunking.MaxTokens
	settings.MinTokens = a.cfg.Chunking.MinTokens
	settings.OverlapTokens = a.cfg.Chunking.OverlapTokens
	settings.DefaultTopK = a.cfg.Chunking.DefaultTopK
	settings.DefaultHybridAlpha = a.cfg.Chunking.DefaultHybridAlpha

	col, err := a.store.CreateCollection(ctx, model.Collection{
		Name:        args[0],
		Description: collectionDescription,
		Settings:    settings,
	})
	if err != nil {
		return fmt.Errorf("collections create: %w", err)
	}
	fmt.Printf("created collection %q\n", col.Name)
	return nil
}

func runCollectionsShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	col, err := a.store.GetCollection(ctx, args[0])
	if err != nil {
		return fmt.Errorf("collections show: %w", err)
	}
	fmt.Printf("name:                %s\n", col.Name)
	fmt.Printf("description:         %s\n", col.Description)
	fmt.Printf("max_tokens:          %d\n", col.Settings.MaxTokens)
	fmt.Printf("min_tokens:          %d\n", col.Settings.MinTokens)
	fmt.Printf("overlap_tokens:      %d\n", col.Settings.OverlapTokens)
	fmt.Printf("default_top_k:       %d\n", col.Settings.DefaultTopK)
	fmt.Printf("default_hybrid_alpha: %.2f\n", col.Settings.DefaultHybridAlpha)
	fmt.Printf("created_at:          %s\n", col.CreatedAt)
	return nil
}

func runCollectionsDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.DeleteCollection(ctx, args[0]); err != nil {
		return fmt.Errorf("collections delete: %w", err)
	}
	fmt.Printf("deleted collection %q\n", args[0])
	return nil
}

func runCollectionsListDocs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	docs, err := a.store.ListDocuments(ctx, args[0], 1000, 0)
	if err != nil {
		return fmt.Errorf("collections list-documents: %w", err)
	}
	if len(docs) == 0 {
		fmt.Println("no documents")
		return nil
	}
	for _, d := range docs {
		fmt.Printf("%s  %s  (%s)\n", d.ID, d.SourceURI, d.ContentType)
	}
	return nil
}
