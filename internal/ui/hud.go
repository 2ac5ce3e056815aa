package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bamsammich/fastcopy/internal/stats"
)

// clearLine returns the cursor to column 0 and erases the line.
const clearLine = "\r\033[K"

const (
	sparklineWidth   = 12
	progressBarWidth = 20
	hudMinInterval   = 50 * time.Millisecond // don't redraw faster than this
)

// hudPresenter keeps a single status line at the bottom of the terminal,
// redrawn in place. Log lines scroll above it.
type hudPresenter struct {
	w     io.Writer
	stats stats.ReadTicker
	width int

	copied   int64
	total    int64
	success  bool
	frame    int
	drawn    bool
	lastDraw time.Time
}

func (p *hudPresenter) Run(events <-chan Event) error {
	// Fire first tick quickly to seed the ring buffer, then switch to 1s.
	secTicker := time.NewTicker(250 * time.Millisecond)
	defer secTicker.Stop()
	firstTickDone := false

	// Redraw while no events flow (one large file in every worker).
	redrawTicker := time.NewTicker(100 * time.Millisecond)
	defer redrawTicker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				p.clear()
				return nil
			}
			p.handleEvent(ev)

		case <-redrawTicker.C:
			p.draw()

		case <-secTicker.C:
			p.stats.Tick()
			if !firstTickDone {
				firstTickDone = true
				secTicker.Reset(time.Second)
			}
		}
	}
}

func (p *hudPresenter) handleEvent(ev Event) {
	switch ev.Type {
	case Fatal:
		p.println(styleFail.Render("fatal: " + ev.Message))
	case TotalKnown:
		p.total = ev.Total
		p.draw()
	case Progress:
		p.copied, p.total = ev.Copied, ev.Total
		p.maybeDraw()
	case Log:
		p.println(styleLog(ev.Message))
	case Finished:
		p.success = ev.Success
		p.clear()
	}
}

// println prints a line above the status line and redraws it.
func (p *hudPresenter) println(line string) {
	wasDrawn := p.drawn
	p.clear()
	fmt.Fprintln(p.w, line)
	if wasDrawn {
		p.draw()
	}
}

func styleLog(msg string) string {
	if strings.HasPrefix(msg, "error:") {
		return styleErrorLine.Render(msg)
	}
	return msg
}

func (p *hudPresenter) maybeDraw() {
	if time.Since(p.lastDraw) < hudMinInterval {
		return
	}
	p.draw()
}

func (p *hudPresenter) draw() {
	line := lipgloss.NewStyle().MaxWidth(p.width).Render(p.statusLine())
	fmt.Fprint(p.w, clearLine+line)
	p.drawn = true
	p.lastDraw = time.Now()
	p.frame++
}

func (p *hudPresenter) clear() {
	if !p.drawn {
		return
	}
	fmt.Fprint(p.w, clearLine)
	p.drawn = false
}

// statusLine renders e.g.
//
//	 42%  ▪▪▪▪▪▪▪▪□□□□□□□□□□□□  1,204 / 2,870 files  ▂▃▅▇█▆  350 files/s  eta 5s
//
// or, while the total is unknown,
//
//	copying  □□□▪▪▪▪□□□□□□□□□□□□□  1,204 files  ▂▃▅▇█▆  350 files/s
func (p *hudPresenter) statusLine() string {
	spark := styleSparkline.Render(Sparkline(p.stats.SparklineData(sparklineWidth), sparklineWidth))
	rate := FormatFileRate(p.stats.RollingFilesPerSec(5))

	if p.total > 0 {
		pct := float64(p.copied) / float64(p.total)
		filled, empty := barCells(pct, progressBarWidth)
		bar := styleBarFilled.Render(strings.Repeat(string(barFilled), filled)) +
			styleBarEmpty.Render(strings.Repeat(string(barEmpty), empty))
		return fmt.Sprintf("%s  %s  %s / %s files  %s  %s  %s",
			styleStatusLabel.Render(fmt.Sprintf("%3.0f%%", min(pct, 1)*100)),
			bar,
			FormatCount(p.copied), FormatCount(p.total),
			spark, rate,
			styleMuted.Render("eta "+FormatETA(p.stats.ETA())),
		)
	}

	return fmt.Sprintf("%s  %s  %s files  %s  %s",
		styleStatusLabel.Render("copying"),
		styleBarFilled.Render(IndeterminateBar(p.frame, progressBarWidth)),
		FormatCount(p.copied),
		spark, rate,
	)
}

// Summary returns the completion line with a colored verdict icon.
func (p *hudPresenter) Summary() string {
	icon := styleOK.Render(iconOK)
	if !p.success {
		icon = styleFail.Render(iconFail)
	}
	return summaryLine(icon, p.stats.Snapshot())
}
