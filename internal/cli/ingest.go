package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fenwick-labs/corpusengine/internal/ingest"
	"github.com/fenwick-labs/corpusengine/internal/watch"
)

var (
	ingestCollection string
	watchFlag        bool
	quietFlag        bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <uri> [uri...]",
	Short: "Ingest one or more documents into a collection",
	Long: `Ingest loads each URI (file://, http(s)://, or data:), chunks and embeds
its content, and persists it into the target collection. Re-running ingest
against an unchanged URI is a no-op; a changed URI is incrementally updated.

Examples:
  corpusengine ingest file:///path/to/doc.md --collection docs
  corpusengine ingest --collection docs --watch /path/to/dir
`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVarP(&ingestCollection, "collection", "c", "default", "target collection name")
	ingestCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "suppress progress output")
	ingestCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "watch the given directories for changes and re-ingest incrementally")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\ninterrupted, cancelling...")
		cancel()
	}()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	progress := newProgressReporter(quietFlag)

	if watchFlag {
		return runIngestWatch(ctx, a, args, progress)
	}

	progress.OnIngestStart(len(args))
	for _, uri := range args {
		outcome, err := a.coordinator.Ingest(ctx, ingest.Request{URI: uri, Collection: ingestCollection, Metadata: map[string]string{}})
		if err != nil {
			return fmt.Errorf("ingest %s: %w", uri, err)
		}
		progress.OnDocumentIngested(uri, outcome)
	}
	progress.OnIngestComplete()
	return nil
}

// runIngestWatch treats args as directories to watch, ingesting every
// changed file on each debounced batch, grounded on the teacher's "watch"
// flag intent in internal/cli/index.go (there left unimplemented; here
// wired end to end against internal/watch).
func runIngestWatch(ctx context.Context, a *app, dirs []string, progress *progressReporter) error {
	w, err := watch.New(dirs, watch.Options{
		Extensions: a.cfg.Watch.Extensions,
		Debounce:   a.cfg.Watch.Debounce,
		MaxDirs:    a.cfg.Watch.MaxDirs,
		MaxDepth:   a.cfg.Watch.MaxDepth,
	})
	if err != nil {
		return fmt.Errorf("ingest --watch: start watcher: %w", err)
	}
	defer w.Stop()

	w.Start(ctx, func(paths []string) {
		for _, p := range paths {
			outcome, err := a.coordinator.Ingest(ctx, ingest.Request{URI: "file://" + p, Collection: ingestCollection, Metadata: map[string]string{}})
			if err != nil {
				fmt.Fprintf(os.Stderr, "watch: ingest %s: %v\n", p, err)
				continue
			}
			progress.OnDocumentIngested(p, outcome)
		}
	})

	fmt.Fprintf(os.Stderr, "watching %v for changes (ctrl-c to stop)...\n", dirs)
	<-ctx.Done()
	return nil
}
