package ui

import (
	"fmt"

	"github.com/bamsammich/fastcopy/internal/stats"
)

const (
	iconOK   = "✓"
	iconFail = "✗"
)

// CompletionSummary builds the final summary line from a snapshot.
// Format: done ✓  files 48,917  skipped 12  size 2.1 GiB  avg 641 MB/s  time 3m 17s  errors 0
func CompletionSummary(snap stats.Snapshot, ok bool) string {
	icon := iconOK
	if !ok {
		icon = iconFail
	}
	return summaryLine(icon, snap)
}

func summaryLine(icon string, snap stats.Snapshot) string {
	avgSpeed := 0.0
	if secs := snap.Elapsed.Seconds(); secs > 0 {
		avgSpeed = float64(snap.BytesCopied) / secs
	}

	return fmt.Sprintf("done %s  files %s  skipped %s  size %s  avg %s  time %s  errors %s",
		icon,
		FormatCount(snap.FilesDone),
		FormatCount(snap.FilesSkipped),
		FormatBytes(snap.BytesCopied),
		FormatRate(avgSpeed),
		FormatDuration(snap.Elapsed),
		FormatCount(snap.FilesFailed),
	)
}
