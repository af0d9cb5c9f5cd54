package ui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/prospectly/leaddeck/internal/analytics"
	"github.com/prospectly/leaddeck/internal/card"
	"github.com/prospectly/leaddeck/internal/config"
	"github.com/prospectly/leaddeck/internal/logging"
	"github.com/prospectly/leaddeck/internal/minimized"
)

// Screen identifies which page the dashboard is showing. Switching away
// from the dashboard drops card focus; switching back resynchronizes
// every card with the minimized-state store.
type Screen int

const (
	ScreenDashboard Screen = iota
	ScreenDetail
)

// CardSpec is what the composition layer supplies per card: identity
// plus rendered content. The controller never looks inside the content.
type CardSpec struct {
	Identity card.Identity
	Title    string
	Body     []string
	Detail   []string
}

// FrameMsg drives committed animations at the configured frame rate.
type FrameMsg time.Time

// reloadMsg reports an external change to the store file.
type reloadMsg struct{}

type rect struct {
	x, y, w, h int
}

func (r rect) contains(x, y int) bool {
	return x >= r.x && x < r.x+r.w && y >= r.y && y < r.y+r.h
}

// cardView pairs a card's spec with its mounted controller and layout.
type cardView struct {
	spec  CardSpec
	ctrl  *card.Controller
	rect  rect
	unsub func()
}

type keyMap struct {
	Back key.Binding
	Help key.Binding
	Quit key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Back, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Back, k.Help, k.Quit}}
}

var defaultKeys = keyMap{
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// Dashboard is the root model: a stack of swipeable notification cards,
// an icon bar for the minimized ones, and a detail page reached by
// tapping a card.
type Dashboard struct {
	cfg     *config.Config
	store   *minimized.Store
	journal *analytics.Journal
	watcher *minimized.Watcher

	cards   []*cardView
	iconBar IconBar

	screen   Screen
	detailID string

	width  int
	height int

	// active is the card that owns the live pointer stream; a stream
	// that starts on one card never migrates to another.
	active *cardView

	keys      keyMap
	help      help.Model
	animating bool

	log *slog.Logger
}

// NewDashboard builds the root model. The journal and watcher may be
// nil (CLI contexts, tests).
func NewDashboard(cfg *config.Config, store *minimized.Store, journal *analytics.Journal, watcher *minimized.Watcher, specs []CardSpec) *Dashboard {
	d := &Dashboard{
		cfg:     cfg,
		store:   store,
		journal: journal,
		watcher: watcher,
		keys:    defaultKeys,
		help:    help.New(),
		log:     logging.ForComponent(logging.CompUI),
	}

	ctrlCfg := card.Config{
		DismissThreshold:     cfg.Cards.DismissThreshold,
		MinimizeDragDistance: cfg.Cards.MinimizeDragDistance,
		CommitDuration:       time.Duration(cfg.Cards.CommitMillis) * time.Millisecond,
	}

	for _, spec := range specs {
		spec := spec
		cv := &cardView{spec: spec}
		cv.ctrl = card.NewController(spec.Identity, ctrlCfg, store, card.Hooks{
			OnDismissed: func(id string) {
				d.record(id, analytics.KindDismissed)
			},
			OnTap: func(id string) {
				d.openDetail(id)
			},
			OnMinimized: func(id string) {
				d.record(id, analytics.KindMinimized)
				d.refreshIconBar()
				d.layout()
			},
			OnRestored: func(id string) {
				d.record(id, analytics.KindRestored)
				d.refreshIconBar()
				d.layout()
			},
		})
		// Each card reacts only to its own membership changes, so an
		// external restore snaps just that card.
		cv.unsub = store.Subscribe(spec.Identity.ID, func(bool) {
			cv.ctrl.SyncToStore()
			d.refreshIconBar()
			d.layout()
		})
		d.cards = append(d.cards, cv)
	}

	d.refreshIconBar()
	return d
}

// Init starts the watcher listener.
func (d *Dashboard) Init() tea.Cmd {
	return d.listenForReload()
}

func (d *Dashboard) listenForReload() tea.Cmd {
	if d.watcher == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-d.watcher.ReloadChannel(); ok {
			return reloadMsg{}
		}
		return nil
	}
}

// Update is the single serialized timeline: gesture callbacks, frame
// steps, and store-commit continuations all run here in order.
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		d.help.Width = msg.Width
		d.layout()
		return d, nil

	case tea.KeyMsg:
		return d.handleKey(msg)

	case tea.MouseMsg:
		return d.handleMouse(msg)

	case FrameMsg:
		return d.handleFrame()

	case reloadMsg:
		if err := d.store.Reload(); err != nil {
			d.log.Warn("store reload failed", "error", err)
		}
		return d, d.listenForReload()
	}
	return d, nil
}

func (d *Dashboard) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, d.keys.Quit):
		return d, tea.Quit
	case key.Matches(msg, d.keys.Back):
		if d.screen == ScreenDetail {
			d.closeDetail()
		}
		return d, nil
	case key.Matches(msg, d.keys.Help):
		d.help.ShowAll = !d.help.ShowAll
		return d, nil
	}
	return d, nil
}

func (d *Dashboard) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if d.screen != ScreenDashboard {
		return d, nil
	}

	now := time.Now()
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return d, nil
		}
		// Icon bar row: a press there is a restore intent, routed
		// through the same Restore path as the in-place icon tap.
		if msg.Y == d.iconBarRow() {
			if id := d.iconBar.HitTest(msg.X); id != "" {
				d.restoreCard(id)
			}
			return d, d.maybeAnimate()
		}
		for _, cv := range d.cards {
			if cv.ctrl.Removed() {
				continue
			}
			if cv.rect.contains(msg.X, msg.Y) {
				d.active = cv
				cv.ctrl.HandlePointer(card.PointerEvent{
					Phase: card.PhaseDown,
					X:     float64(msg.X),
					Y:     float64(msg.Y),
					Time:  now,
				})
				break
			}
		}
		return d, nil

	case tea.MouseActionMotion:
		if d.active != nil {
			d.active.ctrl.HandlePointer(card.PointerEvent{
				Phase: card.PhaseMove,
				X:     float64(msg.X),
				Y:     float64(msg.Y),
				Time:  now,
			})
		}
		return d, nil

	case tea.MouseActionRelease:
		if d.active != nil {
			d.active.ctrl.HandlePointer(card.PointerEvent{
				Phase: card.PhaseUp,
				X:     float64(msg.X),
				Y:     float64(msg.Y),
				Time:  now,
			})
			d.active = nil
		}
		return d, d.maybeAnimate()
	}
	return d, nil
}

func (d *Dashboard) handleFrame() (tea.Model, tea.Cmd) {
	dt := time.Duration(d.cfg.Cards.FrameMillis) * time.Millisecond

	still := false
	for _, cv := range d.cards {
		if cv.ctrl.Step(dt) {
			still = true
		}
	}
	d.pruneRemoved()

	if still {
		return d, d.frameCmd()
	}
	d.animating = false
	return d, nil
}

// maybeAnimate schedules frame ticks if anything needs them and they
// are not already running.
func (d *Dashboard) maybeAnimate() tea.Cmd {
	if d.animating {
		return nil
	}
	for _, cv := range d.cards {
		if cv.ctrl.Animating() {
			d.animating = true
			return d.frameCmd()
		}
	}
	return nil
}

func (d *Dashboard) frameCmd() tea.Cmd {
	interval := time.Duration(d.cfg.Cards.FrameMillis) * time.Millisecond
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return FrameMsg(t)
	})
}

// restoreCard is the single restore entry point for icon bar clicks.
func (d *Dashboard) restoreCard(id string) {
	for _, cv := range d.cards {
		if cv.spec.Identity.ID == id {
			cv.ctrl.Restore()
			// The card needs its slot back for the restore animation.
			d.layout()
			return
		}
	}
}

// openDetail navigates to a card's detail page. The dashboard loses
// focus: ephemeral card state will be rederived from the store when we
// come back.
func (d *Dashboard) openDetail(id string) {
	d.screen = ScreenDetail
	d.detailID = id
	d.active = nil
	for _, cv := range d.cards {
		cv.ctrl.SetFocused(false)
	}
	d.record(id, analytics.KindOpened)
}

func (d *Dashboard) closeDetail() {
	d.screen = ScreenDashboard
	d.detailID = ""
	for _, cv := range d.cards {
		cv.ctrl.SetFocused(true)
	}
	d.refreshIconBar()
	d.layout()
}

// refreshIconBar rebuilds the bar from the store's snapshot order.
func (d *Dashboard) refreshIconBar() {
	byID := make(map[string]card.Identity, len(d.cards))
	for _, cv := range d.cards {
		byID[cv.spec.Identity.ID] = cv.spec.Identity
	}

	var entries []card.Identity
	for _, e := range d.store.Snapshot() {
		if ident, ok := byID[e.ID]; ok {
			entries = append(entries, ident)
		}
	}
	d.iconBar.SetEntries(entries)
}

// pruneRemoved drops dismissed cards from composition.
func (d *Dashboard) pruneRemoved() {
	kept := d.cards[:0]
	for _, cv := range d.cards {
		if cv.ctrl.Removed() {
			if cv.unsub != nil {
				cv.unsub()
			}
			continue
		}
		kept = append(kept, cv)
	}
	if len(kept) != len(d.cards) {
		d.cards = kept
		d.layout()
	}
}

func (d *Dashboard) record(id string, kind analytics.EventKind) {
	if d.journal != nil {
		d.journal.Record(id, kind)
	}
}

// Layout constants: title row, icon bar row, then cards.
const (
	titleRow   = 0
	cardsTop   = 2
	cardMargin = 1
)

func (d *Dashboard) iconBarRow() int { return 1 }

func (d *Dashboard) cardWidth() int {
	w := d.width - 2*cardMargin
	if w < 10 {
		w = 10
	}
	return w
}

// layout measures card rectangles. This is the host's layout
// measurement step: controllers get their viewport width here, and the
// strip math gets real dimensions from these rects.
func (d *Dashboard) layout() {
	y := cardsTop
	w := d.cardWidth()
	for _, cv := range d.cards {
		cv.ctrl.SetViewportWidth(float64(w))
		// A resting minimized card draws no rows: it takes no vertical
		// space and owns no hit rect until a gesture brings it back.
		if cv.ctrl.Minimized() && !cv.ctrl.GestureActive() {
			cv.rect = rect{}
			continue
		}
		h := len(cv.spec.Body) + 3 // border + title + body + border
		cv.rect = rect{x: cardMargin, y: y, w: w, h: h}
		y += h + 1
	}
}

// View renders the active screen.
func (d *Dashboard) View() string {
	if d.width == 0 {
		return ""
	}
	if d.screen == ScreenDetail {
		return d.viewDetail()
	}
	return d.viewDashboard()
}

func (d *Dashboard) viewDashboard() string {
	var b strings.Builder

	b.WriteString(" " + titleStyle.Render("leaddeck") +
		helpStyle.Render("  lead notifications") + "\n")
	b.WriteString(d.iconBar.Render(d.width-1) + "\n")

	for _, cv := range d.cards {
		lines := d.renderCard(cv)
		for _, line := range lines {
			b.WriteString(strings.Repeat(" ", cardMargin) + line + "\n")
		}
		if len(lines) > 0 {
			b.WriteString("\n")
		}
	}

	b.WriteString(helpStyle.Render(" drag right: dismiss · drag left: minimize · tap: open"))
	b.WriteString("\n" + d.help.View(d.keys))
	return b.String()
}

// renderCard draws one card according to its animation state.
func (d *Dashboard) renderCard(cv *cardView) []string {
	ctrl := cv.ctrl
	w := cv.rect.w

	// Fully minimized and resting: the inline card is invisible; the
	// icon bar owns the representation.
	if ctrl.Minimized() && !ctrl.GestureActive() {
		return nil
	}

	lines := boxLines(cv.spec.Title, cv.spec.Body, w)
	accent := cv.spec.Identity.Color
	if accent == "" {
		accent = string(ColorAccent)
	}

	switch {
	case ctrl.CompressionProgress() > 0:
		return applyStrips(lines, w,
			ctrl.CompressionProgress(), ctrl.IconOffset(),
			stripParams{
				count:     d.cfg.Cards.StripCount,
				delay:     d.cfg.Cards.DelayFraction,
				fadeStart: d.cfg.Cards.FadeStart,
			},
			cv.spec.Identity.Icon, accent, ctrl.GestureActive())
	case ctrl.HorizontalOffset() > 0:
		return applyDismiss(lines, w, int(ctrl.HorizontalOffset()), ctrl.DismissFade(), accent)
	default:
		return styleCard(lines, accent)
	}
}

func (d *Dashboard) viewDetail() string {
	for _, cv := range d.cards {
		if cv.spec.Identity.ID != d.detailID {
			continue
		}
		body := cv.spec.Detail
		if len(body) == 0 {
			body = cv.spec.Body
		}
		content := cardTitleStyle.Render(cv.spec.Title) + "\n\n" +
			strings.Join(body, "\n") + "\n\n" +
			helpStyle.Render("esc to go back")
		return detailStyle.Render(content)
	}
	return detailStyle.Render(fmt.Sprintf("card %s is gone\n\n%s",
		d.detailID, helpStyle.Render("esc to go back")))
}

var _ tea.Model = (*Dashboard)(nil)
