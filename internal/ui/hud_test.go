package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/fastcopy/internal/stats"
)

func newTestHud(out *bytes.Buffer, width int) *hudPresenter {
	return &hudPresenter{w: out, stats: stats.NewCollector(), width: width}
}

func runEvents(t *testing.T, p Presenter, evs ...Event) {
	t.Helper()
	events := make(chan Event, len(evs))
	for _, ev := range evs {
		events <- ev
	}
	close(events)
	require.NoError(t, p.Run(events))
}

func TestHudPresenterKnownTotal(t *testing.T) {
	var out bytes.Buffer
	p := newTestHud(&out, 200)

	runEvents(t, p,
		Event{Type: TotalKnown, Total: 4},
		Event{Type: Progress, Copied: 1, Total: 4},
	)

	output := out.String()
	assert.Contains(t, output, clearLine)
	assert.Contains(t, output, "0 / 4 files")
	assert.Contains(t, output, "%")
	assert.Contains(t, output, "eta")
	// Run leaves the status line erased.
	assert.True(t, strings.HasSuffix(output, clearLine))
}

func TestHudPresenterUnknownTotal(t *testing.T) {
	var out bytes.Buffer
	p := newTestHud(&out, 200)

	p.copied = 3
	p.draw()

	output := out.String()
	assert.Contains(t, output, "copying")
	assert.Contains(t, output, "3 files")
	assert.NotContains(t, output, "%")
	assert.NotContains(t, output, "eta")
}

func TestHudPresenterLogLinesScrollAbove(t *testing.T) {
	var out bytes.Buffer
	p := newTestHud(&out, 200)

	runEvents(t, p,
		Event{Type: TotalKnown, Total: 2},
		Event{Type: Log, Message: "error: /src/a -> /dst/a: permission denied"},
		Event{Type: Progress, Copied: 2, Total: 2},
		Event{Type: Log, Message: "finished with 1 errors (2 files processed)"},
		Event{Type: Finished, Success: false},
	)

	output := out.String()
	errIdx := strings.Index(output, "error: /src/a -> /dst/a: permission denied\n")
	require.GreaterOrEqual(t, errIdx, 0)
	// The status line is cleared before the log line is printed.
	assert.Equal(t, clearLine, output[errIdx-len(clearLine):errIdx])
	assert.Contains(t, output, "finished with 1 errors (2 files processed)\n")
	assert.False(t, p.success)
}

func TestHudPresenterFatal(t *testing.T) {
	var out bytes.Buffer
	p := newTestHud(&out, 200)

	runEvents(t, p,
		Event{Type: Fatal, Message: "source does not exist"},
		Event{Type: Finished, Success: false},
	)

	assert.Contains(t, out.String(), "fatal: source does not exist\n")
}

func TestHudPresenterTruncatesToWidth(t *testing.T) {
	var out bytes.Buffer
	p := newTestHud(&out, 30)
	p.total = 1_000_000
	p.copied = 500_000

	p.draw()

	line := strings.TrimPrefix(out.String(), clearLine)
	assert.LessOrEqual(t, lipgloss.Width(line), 30)
}

func TestHudPresenterSummary(t *testing.T) {
	var out bytes.Buffer
	collector := stats.NewCollector()
	collector.AddDone(5)
	collector.AddSkipped(2)
	p := &hudPresenter{w: &out, stats: collector, width: 80}

	runEvents(t, p, Event{Type: Finished, Success: true})

	summary := p.Summary()
	assert.Contains(t, summary, iconOK)
	assert.Contains(t, summary, "files 5")
	assert.Contains(t, summary, "skipped 2")
	assert.Contains(t, summary, "errors 0")
}

func TestHudPresenterSummaryFailed(t *testing.T) {
	var out bytes.Buffer
	collector := stats.NewCollector()
	collector.AddDone(3)
	collector.AddFailed(1)
	p := &hudPresenter{w: &out, stats: collector, width: 80}

	runEvents(t, p, Event{Type: Finished, Success: false})

	summary := p.Summary()
	assert.Contains(t, summary, iconFail)
	assert.Contains(t, summary, "errors 1")
}

func TestStyleLogHighlightsErrorsOnly(t *testing.T) {
	assert.Equal(t, "all good", styleLog("all good"))
	assert.Contains(t, styleLog("error: boom"), "error: boom")
}
