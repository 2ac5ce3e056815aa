package ui

import "strings"

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders the last width samples of data as block characters,
// scaled against the largest sample. Missing samples pad on the left.
func Sparkline(data []float64, width int) string {
	if width <= 0 {
		return ""
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}

	peak := 0.0
	for _, v := range data {
		peak = max(peak, v)
	}

	top := len(sparkBlocks) - 1
	var b strings.Builder
	b.Grow(width * 3)
	for range width - len(data) {
		b.WriteRune(sparkBlocks[0])
	}
	for _, v := range data {
		level := 0
		if peak > 0 && v > 0 {
			level = min(int(v/peak*float64(top)), top)
		}
		b.WriteRune(sparkBlocks[level])
	}
	return b.String()
}
