package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/prospectly/leaddeck/internal/card"
)

// boxLines builds the plain-text rows of a card box: rounded border,
// bold-ish title row, body rows. Styling is applied after the strip
// transforms so the compositor works on plain runes.
func boxLines(title string, body []string, w int) []string {
	inner := w - 2
	if inner < 1 {
		inner = 1
	}
	pad := func(s string) string {
		s = runewidth.Truncate(s, inner-2, "…")
		return "│ " + s + strings.Repeat(" ", inner-2-runewidth.StringWidth(s)) + " │"
	}

	lines := make([]string, 0, len(body)+3)
	lines = append(lines, "╭"+strings.Repeat("─", inner)+"╮")
	lines = append(lines, pad(title))
	for _, b := range body {
		lines = append(lines, pad(b))
	}
	lines = append(lines, "╰"+strings.Repeat("─", inner)+"╯")
	return lines
}

// applyDismiss shifts the card rightward by offset cells and fades it.
// Overflow past the card's slot is clipped.
func applyDismiss(lines []string, w, offset int, fade float64, accent string) []string {
	if offset < 0 {
		offset = 0
	}
	style := lipgloss.NewStyle().Foreground(fadeColor(accent, fade))
	out := make([]string, len(lines))
	prefix := strings.Repeat(" ", offset)
	for i, line := range lines {
		out[i] = style.Render(runewidth.Truncate(prefix+line, w, ""))
	}
	return out
}

// stripParams carries the decomposition tuning from config.
type stripParams struct {
	count     int
	delay     float64
	fadeStart float64
}

// applyStrips renders the genie decomposition at the given progress:
// each row of the card becomes a strip that is translated toward the
// icon's resting corner, shrunk, and faded. The fixed in-place icon is
// drawn beneath the strips (it shows through wherever a strip has faded
// out) so the collapse lands on the icon with no seam.
func applyStrips(lines []string, w int, progress, iconOffset float64, p stripParams, icon, accent string, showIcon bool) []string {
	h := len(lines)
	if h == 0 {
		return lines
	}

	geom := card.Geometry{CardWidth: float64(w), CardHeight: float64(h)}
	count := p.count
	if count > h {
		count = h
	}
	if count < 1 {
		count = 1
	}

	// Composite into a plain canvas first, tracking per-row alpha for
	// the final styling pass. Bottom strips render last: they lead the
	// animation and should win overlaps.
	canvas := make([]string, h)
	alphas := make([]float64, h)

	iconCol, iconRow := iconPosition(w, h, iconOffset)
	if showIcon {
		pad := iconCol
		if pad > w-runewidth.StringWidth(icon) {
			pad = w - runewidth.StringWidth(icon)
		}
		if pad < 0 {
			pad = 0
		}
		canvas[iconRow] = strings.Repeat(" ", pad) + icon
		alphas[iconRow] = 1
	}

	for row := 0; row < h; row++ {
		stripIdx := row * count / h
		tr := card.ComputeStripTransform(progress, stripIdx, count, p.delay, p.fadeStart, geom)
		if tr.Alpha <= 0 {
			continue
		}

		width := int(math.Round(float64(w) * tr.ScaleX))
		if width < 1 {
			width = 1
		}
		target := row + int(math.Round(tr.TranslateY))
		if target < 0 {
			target = 0
		}
		if target > h-1 {
			target = h - 1
		}

		// The strip keeps its center while shrinking, then the center
		// itself drifts toward the icon.
		center := float64(w)/2 + tr.TranslateX
		xOff := int(math.Round(center - float64(width)/2))
		if xOff < 0 {
			xOff = 0
		}
		if xOff > w-width {
			xOff = w - width
		}

		text := runewidth.Truncate(lines[row], width, "")
		canvas[target] = strings.Repeat(" ", xOff) + text
		alphas[target] = tr.Alpha
	}

	out := make([]string, h)
	for i, line := range canvas {
		if line == "" {
			out[i] = ""
			continue
		}
		out[i] = lipgloss.NewStyle().
			Foreground(fadeColor(accent, alphas[i])).
			Render(runewidth.Truncate(line, w, ""))
	}
	return out
}

// iconPosition is where the in-place fixed icon sits within the card's
// bounds: the top-right corner, sliding further right as the icon
// offset interpolates toward its icon bar slot.
func iconPosition(w, h int, iconOffset float64) (col, row int) {
	base := w - 4
	if base < 0 {
		base = 0
	}
	col = base + int(math.Round(iconOffset*float64(w-1-base)))
	if col > w-1 {
		col = w - 1
	}
	return col, 0
}

// styleCard renders the resting card with normal colors.
func styleCard(lines []string, accent string) []string {
	out := make([]string, len(lines))
	border := lipgloss.NewStyle().Foreground(lipgloss.Color(accent))
	for i, line := range lines {
		switch i {
		case 1:
			out[i] = cardTitleStyle.Render(line)
		default:
			if i == 0 || i == len(lines)-1 {
				out[i] = border.Render(line)
			} else {
				out[i] = cardBodyStyle.Render(line)
			}
		}
	}
	return out
}
