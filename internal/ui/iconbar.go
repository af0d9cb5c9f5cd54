package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/prospectly/leaddeck/internal/card"
)

// IconBar lays out one fixed icon per minimized card and maps clicks
// back to restore intents. It holds no state machine of its own: the
// entry list is derived from the store's snapshot order and the card
// identities, and a click simply names the card to restore.
type IconBar struct {
	entries []card.Identity
	zones   []iconZone
}

type iconZone struct {
	start, end int // inclusive column range, bar-local
	id         string
}

// SetEntries replaces the bar's contents. Order is display order.
func (b *IconBar) SetEntries(entries []card.Identity) {
	b.entries = entries
}

// Entries returns the current display list.
func (b *IconBar) Entries() []card.Identity {
	return b.entries
}

// Render draws the bar right-aligned into the given width and records
// the click zones for HitTest.
func (b *IconBar) Render(width int) string {
	b.zones = b.zones[:0]
	if width < 0 {
		width = 0
	}
	if len(b.entries) == 0 {
		return strings.Repeat(" ", width)
	}

	var segs []string
	var plain []string
	for _, e := range b.entries {
		label := e.Icon
		if e.Badge > 0 {
			label = fmt.Sprintf("%s%d", e.Icon, e.Badge)
		}
		styled := lipgloss.NewStyle().Foreground(lipgloss.Color(e.Color)).Render(e.Icon)
		if e.Badge > 0 {
			styled += badgeStyle.Render(fmt.Sprintf("%d", e.Badge))
		}
		segs = append(segs, styled)
		plain = append(plain, label)
	}

	const gap = 2
	total := 0
	for _, p := range plain {
		total += runewidth.StringWidth(p)
	}
	total += gap * (len(plain) - 1)

	pad := width - total
	if pad < 0 {
		pad = 0
	}

	// Zones are computed against the plain widths; styling adds no cells.
	col := pad
	for i, p := range plain {
		w := runewidth.StringWidth(p)
		b.zones = append(b.zones, iconZone{start: col, end: col + w - 1, id: b.entries[i].ID})
		col += w + gap
	}

	return strings.Repeat(" ", pad) + iconBarStyle.Render("") + strings.Join(segs, strings.Repeat(" ", gap))
}

// HitTest maps a bar-local column to the card id of the icon under it,
// or "" when the click missed every icon.
func (b *IconBar) HitTest(col int) string {
	for _, z := range b.zones {
		if col >= z.start && col <= z.end {
			return z.id
		}
	}
	return ""
}
