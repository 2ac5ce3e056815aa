package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bamsammich/fastcopy/internal/stats"
)

const (
	barFilled = '▪'
	barEmpty  = '□'

	// marqueeWidth is the size of the moving block in an indeterminate bar.
	marqueeWidth = 4
)

// FormatRate formats a bytes-per-second rate as a human-readable string.
func FormatRate(bytesPerSec float64) string {
	if bytesPerSec <= 0 {
		return "0 B/s"
	}
	units := []string{"B/s", "KB/s", "MB/s", "GB/s", "TB/s"}
	val := bytesPerSec
	for _, u := range units {
		if val < 1024 {
			return trimFloat(val) + " " + u
		}
		val /= 1024
	}
	return fmt.Sprintf("%.1f PB/s", val)
}

// FormatFileRate formats a files-per-second rate.
func FormatFileRate(filesPerSec float64) string {
	if filesPerSec <= 0 {
		return "0 files/s"
	}
	if filesPerSec >= 1000 {
		return FormatCount(int64(filesPerSec)) + " files/s"
	}
	return trimFloat(filesPerSec) + " files/s"
}

// trimFloat prints fewer decimals the larger the value gets.
func trimFloat(v float64) string {
	switch {
	case v < 10:
		return fmt.Sprintf("%.2f", v)
	case v < 100:
		return fmt.Sprintf("%.1f", v)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}

// FormatETA formats a remaining-time estimate; "--" when unknown.
func FormatETA(d time.Duration) string {
	if d <= 0 {
		return "--"
	}
	return FormatDuration(d)
}

// FormatDuration formats elapsed time concisely.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// FormatCount formats an integer with comma separators.
func FormatCount(n int64) string {
	if n < 0 {
		return "-" + FormatCount(-n)
	}
	digits := strconv.FormatInt(n, 10)
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// FormatBytes wraps stats.FormatBytes for UI use.
func FormatBytes(b int64) string {
	return stats.FormatBytes(b)
}

// barCells splits width into filled and empty cells for a fraction pct.
func barCells(pct float64, width int) (filled, empty int) {
	if width <= 0 {
		return 0, 0
	}
	pct = min(max(pct, 0), 1)
	filled = min(int(pct*float64(width)), width)
	return filled, width - filled
}

// ProgressBar renders a progress bar of the given width using ▪/□ characters.
func ProgressBar(pct float64, width int) string {
	filled, empty := barCells(pct, width)
	return strings.Repeat(string(barFilled), filled) + strings.Repeat(string(barEmpty), empty)
}

// IndeterminateBar renders a bar for an unknown total: a short block of
// filled cells that bounces between the edges as frame advances.
func IndeterminateBar(frame, width int) string {
	if width <= 0 {
		return ""
	}
	block := min(marqueeWidth, width)
	pos := 0
	if span := width - block; span > 0 {
		pos = frame % (2 * span)
		if pos < 0 {
			pos += 2 * span
		}
		if pos > span {
			pos = 2*span - pos
		}
	}

	cells := []rune(strings.Repeat(string(barEmpty), width))
	for i := pos; i < pos+block; i++ {
		cells[i] = barFilled
	}
	return string(cells)
}
