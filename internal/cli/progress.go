package cli

import (
	"fmt"
	"log"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/fenwick-labs/corpusengine/internal/ingest"
)

// progressReporter renders ingest progress with a bar, grounded on the
// teacher's internal/cli/progress.go CLIProgressReporter.
type progressReporter struct {
	quiet     bool
	bar       *progressbar.ProgressBar
	startTime time.Time
	total     int
	done      int
}

func newProgressReporter(quiet bool) *progressReporter {
	return &progressReporter{quiet: quiet, startTime: time.Now()}
}

func (p *progressReporter) OnIngestStart(total int) {
	if p.quiet {
		return
	}
	p.total = total
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Ingesting documents"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("docs/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)
}

func (p *progressReporter) OnDocumentIngested(uri string, outcome ingest.Outcome) {
	p.done++
	if p.quiet {
		return
	}
	if p.bar != nil {
		p.bar.Add(1)
		return
	}
	status := "ingested"
	if outcome.Unchanged {
		status = "unchanged"
	}
	log.Printf("%s: %s (%d chunks, %s)\n", uri, status, outcome.ChunkCount, outcome.State)
}

func (p *progressReporter) OnIngestComplete() {
	if p.quiet {
		return
	}
	fmt.Printf("ingested %d document(s) in %s\n", p.done, time.Since(p.startTime).Round(time.Millisecond))
}
