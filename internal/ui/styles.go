package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// Palette - Night Harbor
var (
	ColorBg      = lipgloss.Color("#0F1722")
	ColorSurface = lipgloss.Color("#1C2A3D")
	ColorBorder  = lipgloss.Color("#2C4563")
	ColorText    = lipgloss.Color("#D8E4F5")
	ColorTextDim = lipgloss.Color("#86A3C2")
	ColorAccent  = lipgloss.Color("#57B6F7")
	ColorGreen   = lipgloss.Color("#56D08C")
	ColorYellow  = lipgloss.Color("#EFD983")
	ColorRed     = lipgloss.Color("#F37E7E")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	cardTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText)

	cardBodyStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)

	iconBarStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)

	badgeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorYellow)

	detailStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Foreground(ColorText)

	helpStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)
)

// fadeColor blends a foreground hex color toward the background by
// 1-alpha, simulating opacity on a terminal that has none. alpha 1
// returns the color untouched, alpha 0 disappears into the background.
func fadeColor(hex string, alpha float64) lipgloss.Color {
	if alpha >= 1 {
		return lipgloss.Color(hex)
	}
	if alpha < 0 {
		alpha = 0
	}
	fg, err := colorful.Hex(hex)
	if err != nil {
		return lipgloss.Color(hex)
	}
	bg, err := colorful.Hex(string(ColorBg))
	if err != nil {
		return lipgloss.Color(hex)
	}
	return lipgloss.Color(fg.BlendRgb(bg, 1-alpha).Hex())
}
