// Command corpusengine is the corpusengine CLI: ingest, search, collections,
// serve-mcp, and version. See internal/cli for the command tree.
package main

import "github.com/fenwick-labs/corpusengine/internal/cli"

// version and commit are set via -ldflags "-X main.version=... -X main.commit=..."
// at release build time; they flow into internal/cli's reported version.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	cli.Version = version
	cli.GitCommit = commit
	cli.Execute()
}
