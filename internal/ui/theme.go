package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/bamsammich/fastcopy/internal/config"
)

// Catppuccin Mocha palette, overridable from the [theme] config table.
var (
	ColorGreen  = lipgloss.Color("#a6e3a1")
	ColorYellow = lipgloss.Color("#f9e2af")
	ColorRed    = lipgloss.Color("#f38ba8")
	ColorMuted  = lipgloss.Color("#5a6278")
)

var (
	styleOK          lipgloss.Style
	styleFail        lipgloss.Style
	styleMuted       lipgloss.Style
	styleSparkline   lipgloss.Style
	styleBarFilled   lipgloss.Style
	styleBarEmpty    lipgloss.Style
	styleErrorLine   lipgloss.Style
	styleStatusLabel lipgloss.Style
)

func init() {
	rebuildStyles()
}

func rebuildStyles() {
	styleOK = lipgloss.NewStyle().Foreground(ColorGreen).Bold(true)
	styleFail = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
	styleMuted = lipgloss.NewStyle().Foreground(ColorMuted)
	styleSparkline = lipgloss.NewStyle().Foreground(ColorYellow)
	styleBarFilled = lipgloss.NewStyle().Foreground(ColorGreen)
	styleBarEmpty = lipgloss.NewStyle().Foreground(ColorMuted)
	styleErrorLine = lipgloss.NewStyle().Foreground(ColorRed)
	styleStatusLabel = lipgloss.NewStyle().Bold(true)
}

// ApplyTheme overrides colors from the config file and rebuilds all styles.
func ApplyTheme(tc config.ThemeConfig) {
	if tc.Green != nil {
		ColorGreen = lipgloss.Color(*tc.Green)
	}
	if tc.Yellow != nil {
		ColorYellow = lipgloss.Color(*tc.Yellow)
	}
	if tc.Red != nil {
		ColorRed = lipgloss.Color(*tc.Red)
	}
	if tc.Muted != nil {
		ColorMuted = lipgloss.Color(*tc.Muted)
	}
	rebuildStyles()
}
