// Package cli is the corpusengine command tree: ingest, search, collections,
// serve-mcp, and version, built with github.com/spf13/cobra the way the
// teacher's internal/cli/root.go wires its own commands, with
// internal/config replacing its bespoke viper setup.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgDir  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "corpusengine",
	Short: "corpusengine indexes documents for hybrid semantic search",
	Long: `corpusengine ingests documents into collections, chunking and embedding
them for retrieval, and serves hybrid vector+keyword search over the
command line or as a Model Context Protocol server.`,
}

// Execute runs the root command; it is the only entry point main.main calls.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "dir", "", "project root directory (default: current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// projectRoot resolves the --dir flag, defaulting to the working directory.
func projectRoot() (string, error) {
	if cfgDir != "" {
		return cfgDir, nil
	}
	return os.Getwd()
}
