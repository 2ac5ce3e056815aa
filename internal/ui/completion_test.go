package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bamsammich/fastcopy/internal/stats"
)

func TestCompletionSummary(t *testing.T) {
	snap := stats.Snapshot{
		FilesDone:    48917,
		FilesFailed:  2,
		FilesSkipped: 12,
		BytesCopied:  2 * 1024 * 1024,
		Elapsed:      2 * time.Second,
	}

	assert.Equal(t,
		"done ✗  files 48,917  skipped 12  size 2.0 MiB  avg 1.00 MB/s  time 2s  errors 2",
		CompletionSummary(snap, false))
	assert.Contains(t, CompletionSummary(snap, true), "done ✓")
}

func TestCompletionSummaryZeroElapsed(t *testing.T) {
	assert.Contains(t, CompletionSummary(stats.Snapshot{}, true), "avg 0 B/s")
}
