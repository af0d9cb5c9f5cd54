package ui

import (
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/prospectly/leaddeck/internal/card"
	"github.com/prospectly/leaddeck/internal/minimized"
)

func testStore(t *testing.T) *minimized.Store {
	t.Helper()
	s, err := minimized.Open(filepath.Join(t.TempDir(), "minimized.json"))
	require.NoError(t, err)
	return s
}

func testSpecs() []CardSpec {
	return []CardSpec{
		{
			Identity: card.Identity{ID: "card-1", Icon: "◆", Color: "#57B6F7", Dismissible: true},
			Title:    "First card",
			Body:     []string{"line one", "line two"},
			Detail:   []string{"detail line"},
		},
		{
			Identity: card.Identity{ID: "card-2", Icon: "●", Color: "#56D08C"},
			Title:    "Second card",
			Body:     []string{"only line"},
		},
	}
}

func newSizedDashboard(t *testing.T, store *minimized.Store) *Dashboard {
	t.Helper()
	d := NewTestDashboard(store, testSpecs())
	d.SetSizeForTest(80, 30)
	return d
}

// stepFrames pumps frame messages until every animation has landed.
func stepFrames(t *testing.T, d *Dashboard) {
	t.Helper()
	for i := 0; i < 120; i++ {
		d.Update(FrameMsg(time.Now()))
	}
}

func press(d *Dashboard, x, y int) {
	d.Update(tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
}

func move(d *Dashboard, x, y int) {
	d.Update(tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionMotion})
}

func release(d *Dashboard, x, y int) {
	d.Update(tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
}

func TestDashboardMinimizeByDrag(t *testing.T) {
	store := testStore(t)
	d := newSizedDashboard(t, store)

	x, y, _, _, ok := d.CardRectForTest("card-1")
	require.True(t, ok)

	// Default minimize distance is 24 cells; drag 30 to full compression.
	press(d, x+40, y+1)
	move(d, x+10, y+1)
	release(d, x+10, y+1)

	ctrl := d.ControllerForTest("card-1")
	require.Equal(t, card.StateCommittingMinimize, ctrl.State())

	stepFrames(t, d)

	require.Equal(t, card.StateMinimized, ctrl.State())
	require.True(t, store.IsMinimized("card-1"))
	require.Len(t, d.IconBarForTest().Entries(), 1)
	require.Equal(t, 2, d.CardCountForTest(), "minimized cards stay in composition")
}

func TestDashboardDismissByDrag(t *testing.T) {
	store := testStore(t)
	d := newSizedDashboard(t, store)

	x, y, _, _, ok := d.CardRectForTest("card-1")
	require.True(t, ok)

	// Default dismiss threshold is 12 cells.
	press(d, x+5, y+1)
	move(d, x+40, y+1)
	release(d, x+40, y+1)

	stepFrames(t, d)

	require.Equal(t, 1, d.CardCountForTest())
	require.Nil(t, d.ControllerForTest("card-1"))
	require.False(t, store.IsMinimized("card-1"))
}

func TestDashboardDismissIneligibleCard(t *testing.T) {
	store := testStore(t)
	d := newSizedDashboard(t, store)

	x, y, _, _, ok := d.CardRectForTest("card-2")
	require.True(t, ok)

	press(d, x+5, y+1)
	move(d, x+40, y+1)
	release(d, x+40, y+1)

	stepFrames(t, d)

	require.Equal(t, 2, d.CardCountForTest())
	require.Equal(t, card.StateExpanded, d.ControllerForTest("card-2").State())
}

func TestDashboardShortDragSnapsBack(t *testing.T) {
	store := testStore(t)
	d := newSizedDashboard(t, store)

	x, y, _, _, ok := d.CardRectForTest("card-1")
	require.True(t, ok)

	// Half the minimize distance, released below the commit point.
	press(d, x+40, y+1)
	move(d, x+30, y+1)
	release(d, x+30, y+1)

	stepFrames(t, d)

	ctrl := d.ControllerForTest("card-1")
	require.Equal(t, card.StateExpanded, ctrl.State())
	require.Equal(t, 0.0, ctrl.CompressionProgress())
	require.False(t, store.IsMinimized("card-1"))
	require.Empty(t, d.IconBarForTest().Entries())
}

func TestDashboardTapOpensDetailAndEscReturns(t *testing.T) {
	store := testStore(t)
	d := newSizedDashboard(t, store)

	x, y, _, _, ok := d.CardRectForTest("card-1")
	require.True(t, ok)

	press(d, x+5, y+1)
	release(d, x+5, y+1)
	require.Equal(t, ScreenDetail, d.ScreenForTest())

	d.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, ScreenDashboard, d.ScreenForTest())
}

func TestDashboardResyncAfterDetail(t *testing.T) {
	store := testStore(t)
	d := newSizedDashboard(t, store)

	x, y, _, _, ok := d.CardRectForTest("card-1")
	require.True(t, ok)
	press(d, x+5, y+1)
	release(d, x+5, y+1)
	require.Equal(t, ScreenDetail, d.ScreenForTest())

	// An external change lands while the dashboard is unfocused.
	store.Minimize("card-2")

	d.Update(tea.KeyMsg{Type: tea.KeyEsc})

	ctrl := d.ControllerForTest("card-2")
	require.Equal(t, card.StateMinimized, ctrl.State())
	require.Equal(t, 1.0, ctrl.CompressionProgress())
	require.False(t, ctrl.Animating(), "resync is a snap, not an animation")
	require.Len(t, d.IconBarForTest().Entries(), 1)
	require.NoError(t, store.Flush())
}

func TestDashboardIconBarClickRestores(t *testing.T) {
	store := testStore(t)
	store.Minimize("card-1")
	require.NoError(t, store.Flush())

	d := newSizedDashboard(t, store)
	require.Equal(t, card.StateMinimized, d.ControllerForTest("card-1").State())

	// Rendering populates the bar's hit zones.
	_ = d.View()
	col := -1
	for c := 0; c < 80; c++ {
		if d.IconBarForTest().HitTest(c) == "card-1" {
			col = c
			break
		}
	}
	require.GreaterOrEqual(t, col, 0, "icon should be hit-testable after render")

	press(d, col, 1)
	ctrl := d.ControllerForTest("card-1")
	require.Equal(t, card.StateCommittingRestore, ctrl.State())

	stepFrames(t, d)

	require.Equal(t, card.StateExpanded, ctrl.State())
	require.False(t, store.IsMinimized("card-1"))
	require.Empty(t, d.IconBarForTest().Entries())
	require.NoError(t, store.Flush())
}

func TestDashboardLayoutCollapsesMinimizedCard(t *testing.T) {
	store := testStore(t)
	store.Minimize("card-1")
	require.NoError(t, store.Flush())

	d := newSizedDashboard(t, store)

	_, _, _, h1, ok := d.CardRectForTest("card-1")
	require.True(t, ok)
	require.Zero(t, h1, "a resting minimized card owns no hit rect")

	// The visible card moves up into the freed space, and taps land on
	// it there.
	x2, y2, _, _, ok := d.CardRectForTest("card-2")
	require.True(t, ok)
	require.Equal(t, 2, y2)

	press(d, x2+5, y2+1)
	release(d, x2+5, y2+1)
	require.Equal(t, ScreenDetail, d.ScreenForTest())
	require.Contains(t, d.View(), "Second card")
}

func TestDashboardRelayoutAfterMinimizeCommit(t *testing.T) {
	store := testStore(t)
	d := newSizedDashboard(t, store)

	x1, y1, _, _, ok := d.CardRectForTest("card-1")
	require.True(t, ok)
	_, y2Before, _, _, ok := d.CardRectForTest("card-2")
	require.True(t, ok)
	require.Greater(t, y2Before, y1)

	press(d, x1+40, y1+1)
	move(d, x1+10, y1+1)
	release(d, x1+10, y1+1)
	stepFrames(t, d)
	require.True(t, store.IsMinimized("card-1"))

	// Card 2 slides up into card 1's slot once the commit lands; a tap
	// at its new position must reach card 2, not card 1's stale rect.
	x2, y2, _, _, ok := d.CardRectForTest("card-2")
	require.True(t, ok)
	require.Equal(t, 2, y2)

	press(d, x2+5, y2+1)
	release(d, x2+5, y2+1)
	require.Equal(t, ScreenDetail, d.ScreenForTest())
	require.Contains(t, d.View(), "Second card")

	// Restoring gives card 1 its slot back and pushes card 2 down again.
	d.Update(tea.KeyMsg{Type: tea.KeyEsc})
	_ = d.View()
	col := -1
	for c := 0; c < 80; c++ {
		if d.IconBarForTest().HitTest(c) == "card-1" {
			col = c
			break
		}
	}
	require.GreaterOrEqual(t, col, 0)
	press(d, col, 1)
	stepFrames(t, d)

	_, y1After, _, h1After, ok := d.CardRectForTest("card-1")
	require.True(t, ok)
	require.Equal(t, y1, y1After)
	require.Greater(t, h1After, 0)
	_, y2After, _, _, ok := d.CardRectForTest("card-2")
	require.True(t, ok)
	require.Equal(t, y2Before, y2After)
	require.NoError(t, store.Flush())
}

func TestDashboardPointerStreamStaysOnFirstCard(t *testing.T) {
	store := testStore(t)
	d := newSizedDashboard(t, store)

	x1, y1, _, _, ok := d.CardRectForTest("card-1")
	require.True(t, ok)
	_, y2, _, _, ok := d.CardRectForTest("card-2")
	require.True(t, ok)

	// The drag starts on card 1 and wanders over card 2; only card 1
	// may react.
	press(d, x1+40, y1+1)
	move(d, x1+10, y2+1)
	release(d, x1+10, y2+1)

	stepFrames(t, d)

	require.True(t, store.IsMinimized("card-1"))
	require.False(t, store.IsMinimized("card-2"))
}

func TestDashboardViewHidesRestingMinimizedCard(t *testing.T) {
	store := testStore(t)
	store.Minimize("card-1")

	d := newSizedDashboard(t, store)
	view := d.View()
	require.NotContains(t, view, "First card")
	require.Contains(t, view, "Second card")
	require.NoError(t, store.Flush())
}

func TestDashboardQuitKey(t *testing.T) {
	store := testStore(t)
	d := newSizedDashboard(t, store)

	_, cmd := d.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	require.Equal(t, tea.Quit(), cmd())
}
