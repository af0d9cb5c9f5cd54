package ui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/require"

	"github.com/prospectly/leaddeck/internal/card"
)

func TestIconBarEmptyRendersBlank(t *testing.T) {
	var b IconBar
	out := b.Render(10)
	require.Equal(t, 10, lipgloss.Width(out))
	require.Equal(t, "", b.HitTest(5))
}

func TestIconBarRightAlignedZones(t *testing.T) {
	var b IconBar
	b.SetEntries([]card.Identity{
		{ID: "a", Icon: "◆", Color: "#57B6F7", Badge: 3},
		{ID: "b", Icon: "●", Color: "#56D08C"},
	})
	b.Render(40)

	// Labels are "◆3" (2 cells) and "●" (1 cell) with a 2-cell gap,
	// right-aligned: columns 35-36, gap 37-38, column 39.
	require.Equal(t, "a", b.HitTest(35))
	require.Equal(t, "a", b.HitTest(36))
	require.Equal(t, "", b.HitTest(37))
	require.Equal(t, "", b.HitTest(38))
	require.Equal(t, "b", b.HitTest(39))
	require.Equal(t, "", b.HitTest(0))
	require.Equal(t, "", b.HitTest(34))
}

func TestIconBarZonesFollowEntryChanges(t *testing.T) {
	var b IconBar
	b.SetEntries([]card.Identity{{ID: "a", Icon: "◆"}})
	b.Render(20)
	require.Equal(t, "a", b.HitTest(19))

	b.SetEntries([]card.Identity{{ID: "z", Icon: "●"}})
	b.Render(20)
	require.Equal(t, "z", b.HitTest(19))

	b.SetEntries(nil)
	b.Render(20)
	require.Equal(t, "", b.HitTest(19))
}

func TestIconBarOverflowClampsPadding(t *testing.T) {
	var b IconBar
	b.SetEntries([]card.Identity{
		{ID: "a", Icon: "◆"},
		{ID: "b", Icon: "●"},
		{ID: "c", Icon: "▣"},
	})
	// Narrower than the content; padding clamps to zero and zones
	// start at column 0.
	b.Render(3)
	require.Equal(t, "a", b.HitTest(0))
}
