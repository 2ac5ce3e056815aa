package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/bamsammich/fastcopy/internal/stats"
)

const plainProgressInterval = 5 * time.Second

// plainPresenter writes log lines to stdout as they arrive and, unless
// progress is off, a progress line to stderr every few seconds.
type plainPresenter struct {
	w        io.Writer
	errW     io.Writer
	stats    stats.ReadTicker
	progress bool

	copied  int64
	total   int64
	success bool
}

func (p *plainPresenter) Run(events <-chan Event) error {
	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	var progressC <-chan time.Time
	if p.progress {
		progressTicker := time.NewTicker(plainProgressInterval)
		defer progressTicker.Stop()
		progressC = progressTicker.C
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.handleEvent(ev)
		case <-secTicker.C:
			p.stats.Tick()
		case <-progressC:
			p.printProgress()
		}
	}
}

func (p *plainPresenter) handleEvent(ev Event) {
	switch ev.Type {
	case Fatal:
		fmt.Fprintf(p.errW, "fatal: %s\n", ev.Message)
	case TotalKnown:
		p.total = ev.Total
	case Progress:
		p.copied, p.total = ev.Copied, ev.Total
	case Log:
		fmt.Fprintln(p.w, ev.Message)
	case Finished:
		p.success = ev.Success
	}
}

func (p *plainPresenter) printProgress() {
	fps := p.stats.RollingFilesPerSec(10)
	if p.total > 0 {
		pct := float64(p.copied) / float64(p.total) * 100
		fmt.Fprintf(p.errW, "progress: %.0f%% %s/%s files %s eta %s\n",
			pct,
			FormatCount(p.copied), FormatCount(p.total),
			FormatFileRate(fps),
			FormatETA(p.stats.ETA()),
		)
		return
	}
	fmt.Fprintf(p.errW, "progress: %s files copied %s\n",
		FormatCount(p.copied),
		FormatFileRate(fps),
	)
}

func (p *plainPresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot(), p.success)
}
