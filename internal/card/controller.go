package card

import (
	"log/slog"
	"time"

	"github.com/prospectly/leaddeck/internal/logging"
)

// State is the discrete phase of a card's interaction lifecycle.
type State int

const (
	StateExpanded State = iota
	StateDraggingDismiss
	StateDraggingMinimize
	StateCommittingDismiss
	StateCommittingMinimize
	StateMinimized
	StateCommittingRestore
)

func (s State) String() string {
	switch s {
	case StateExpanded:
		return "expanded"
	case StateDraggingDismiss:
		return "dragging-dismiss"
	case StateDraggingMinimize:
		return "dragging-minimize"
	case StateCommittingDismiss:
		return "committing-dismiss"
	case StateCommittingMinimize:
		return "committing-minimize"
	case StateMinimized:
		return "minimized"
	case StateCommittingRestore:
		return "committing-restore"
	}
	return "unknown"
}

// Store is the process-wide minimized-set membership the controller
// synchronizes with. Only the controller mutates its own card's entry,
// and only after a commit animation has visually landed.
type Store interface {
	IsMinimized(id string) bool
	Minimize(id string)
	Restore(id string)
}

// Hooks are the controller's outbound notifications. All are optional.
type Hooks struct {
	// OnDismissed fires once when a dismiss commit lands. The owner is
	// responsible for removing the card from composition.
	OnDismissed func(id string)

	// OnTap fires when an expanded, resting card is tapped.
	OnTap func(id string)

	// OnMinimized fires when a minimize commit lands, after the store
	// write. The icon bar adds its entry in response.
	OnMinimized func(id string)

	// OnRestored fires when a restore commit lands, after the store write.
	OnRestored func(id string)
}

// Config holds the controller's motion thresholds. Units are whatever
// the host measures pointer travel in (pixels or cells).
type Config struct {
	// DismissThreshold is the rightward travel past which a release
	// commits the dismiss.
	DismissThreshold float64

	// MinimizeDragDistance is the leftward travel that maps to full
	// compression. Release past half of it commits the minimize.
	MinimizeDragDistance float64

	// CommitDuration is the length of committed animations (dismiss,
	// minimize, restore) and of the snap-back settle.
	CommitDuration time.Duration
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		DismissThreshold:     100,
		MinimizeDragDistance: 200,
		CommitDuration:       280 * time.Millisecond,
	}
}

// animKind distinguishes in-flight animations. Only the three commit
// kinds are non-interruptible; a settle yields to a fresh pointer-down.
type animKind int

const (
	animSettle animKind = iota
	animDismiss
	animMinimize
	animRestore
)

type anim struct {
	kind     animKind
	elapsed  time.Duration
	duration time.Duration

	// Captured starting values; each frame interpolates from these
	// toward the kind's fixed target.
	fromOffset   float64
	fromFade     float64
	fromProgress float64
}

// Controller owns the continuous animation state for a single mounted
// card instance. It is not goroutine-safe: the host delivers pointer
// events, frame steps, and focus transitions on one logical timeline.
//
// The controller's ephemeral variables are rederived from the store on
// every mount and focus regain; the store is the only state that
// survives teardown.
type Controller struct {
	identity Identity
	cfg      Config
	store    Store
	hooks    Hooks
	log      *slog.Logger

	state State

	horizontalOffset    float64
	dismissFade         float64
	compressionProgress float64
	iconOffset          float64
	gestureActive       bool
	minimized           bool
	removed             bool

	viewportWidth float64
	focused       bool

	cls  classifier
	anim *anim
}

// NewController creates the controller for one card, initialized to
// resting-expanded or resting-minimized according to the store.
func NewController(id Identity, cfg Config, store Store, hooks Hooks) *Controller {
	c := &Controller{
		identity:    id,
		cfg:         cfg,
		store:       store,
		hooks:       hooks,
		log:         logging.ForComponent(logging.CompCard),
		dismissFade: 1,
		focused:     true,
	}
	c.snapToStore()
	return c
}

// Identity returns the card's immutable identity.
func (c *Controller) Identity() Identity { return c.identity }

// State returns the current discrete state.
func (c *Controller) State() State { return c.state }

// HorizontalOffset is the live dismiss-drag translation.
func (c *Controller) HorizontalOffset() float64 { return c.horizontalOffset }

// DismissFade is the opacity multiplier during a dismiss swipe.
func (c *Controller) DismissFade() float64 { return c.dismissFade }

// CompressionProgress is 0 fully expanded, 1 fully collapsed.
func (c *Controller) CompressionProgress() float64 { return c.compressionProgress }

// IconOffset is the fraction of the iconified representation's slide
// toward its resting slot. It stays coupled to compression progress:
// zero through the first half, then interpolating over the second.
func (c *Controller) IconOffset() float64 { return c.iconOffset }

// GestureActive reports whether a gesture or its commit is still
// altering state. The host shows the fixed in-place icon while true to
// mask the seam between card strips and icon.
func (c *Controller) GestureActive() bool { return c.gestureActive }

// Minimized reports whether the card is logically iconified.
func (c *Controller) Minimized() bool { return c.minimized }

// Removed reports whether a dismiss commit has landed. The owner should
// drop the card from composition once true.
func (c *Controller) Removed() bool { return c.removed }

// Committed reports whether a non-interruptible commit animation is in
// flight. Pointer input is swallowed while true.
func (c *Controller) Committed() bool {
	return c.anim != nil && c.anim.kind != animSettle
}

// Animating reports whether any animation needs further frame steps.
func (c *Controller) Animating() bool { return c.anim != nil }

// SetViewportWidth updates the measured viewport width used for the
// dismiss fade denominator and the dismiss exit target.
func (c *Controller) SetViewportWidth(w float64) {
	if w > 0 {
		c.viewportWidth = w
	}
}

func (c *Controller) viewport() float64 {
	if c.viewportWidth > 0 {
		return c.viewportWidth
	}
	return placeholderCardWidth
}

// HandlePointer feeds one pointer event into the controller. Events are
// always consumed; while a commit animation is in flight they change
// nothing.
func (c *Controller) HandlePointer(ev PointerEvent) {
	switch ev.Phase {
	case PhaseDown:
		c.pointerDown(ev)
	case PhaseMove:
		c.pointerMove(ev)
	case PhaseUp:
		c.pointerUp(ev)
	case PhaseCancel:
		c.pointerCancel()
	}
}

func (c *Controller) pointerDown(ev PointerEvent) {
	if c.Committed() || c.removed {
		return
	}
	// A pointer-down lands on a settling card: kill the settle and
	// reset fully to rest so the new gesture starts from a clean slate.
	if c.anim != nil {
		c.anim = nil
		c.resetToRest()
	}
	c.cls.begin(ev)
}

func (c *Controller) pointerMove(ev PointerEvent) {
	if c.Committed() || c.removed {
		return
	}
	c.cls.update(ev)

	kind := c.cls.kind()
	if kind == GestureNone {
		return
	}
	// Drags are inert on a minimized card; restore goes through the
	// single icon-tap path instead.
	if c.minimized {
		return
	}

	dx := c.cls.deltaX()
	switch kind {
	case GestureDismiss:
		// A reversal out of a minimize drag resets compression before
		// dismiss tracking takes over; the two never overlap.
		c.setProgress(0)
		if !c.identity.Dismissible {
			c.horizontalOffset = 0
			c.dismissFade = 1
			c.state = StateExpanded
			c.gestureActive = false
			return
		}
		c.state = StateDraggingDismiss
		c.gestureActive = true
		c.horizontalOffset = dx
		c.dismissFade = clamp01(1 - dx/(c.viewport()/2))
	case GestureMinimize:
		c.horizontalOffset = 0
		c.dismissFade = 1
		c.state = StateDraggingMinimize
		c.gestureActive = true
		c.setProgress(clamp01(-dx / c.cfg.MinimizeDragDistance))
	}
}

func (c *Controller) pointerUp(ev PointerEvent) {
	defer c.cls.end()
	if c.Committed() || c.removed {
		return
	}
	c.cls.update(ev)

	if c.cls.isTap(ev.Time) {
		c.handleTap()
		return
	}

	switch c.state {
	case StateDraggingDismiss:
		if c.horizontalOffset > c.cfg.DismissThreshold {
			c.startAnim(animDismiss)
		} else {
			c.startAnim(animSettle)
		}
	case StateDraggingMinimize:
		if c.compressionProgress > 0.5 {
			c.startAnim(animMinimize)
		} else {
			c.startAnim(animSettle)
		}
	}
}

func (c *Controller) pointerCancel() {
	c.cls.end()
	if c.Committed() || c.removed {
		return
	}
	switch c.state {
	case StateDraggingDismiss, StateDraggingMinimize:
		c.startAnim(animSettle)
	}
}

func (c *Controller) handleTap() {
	if c.minimized {
		// Tap on the in-place fixed icon: identical path to the bar.
		c.Restore()
		return
	}
	if c.state == StateExpanded && c.anim == nil {
		if c.hooks.OnTap != nil {
			c.hooks.OnTap(c.identity.ID)
		}
	}
}

// Restore starts the restore transition. It is the single restore code
// path: the icon bar and the transitional in-place icon both call it.
// A no-op on an expanded card or while any commit is in flight.
func (c *Controller) Restore() {
	if c.removed || c.Committed() || !c.minimized {
		return
	}
	c.gestureActive = true
	c.startAnim(animRestore)
}

// startAnim begins an animation from the current variable values.
func (c *Controller) startAnim(kind animKind) {
	c.anim = &anim{
		kind:         kind,
		duration:     c.cfg.CommitDuration,
		fromOffset:   c.horizontalOffset,
		fromFade:     c.dismissFade,
		fromProgress: c.compressionProgress,
	}
	if c.anim.duration <= 0 {
		c.anim.duration = DefaultConfig().CommitDuration
	}
	switch kind {
	case animDismiss:
		c.state = StateCommittingDismiss
	case animMinimize:
		c.state = StateCommittingMinimize
	case animRestore:
		c.state = StateCommittingRestore
	case animSettle:
		// The discrete transition back to rest happens immediately;
		// only the variables take time to get there.
		c.state = StateExpanded
	}
}

// Step advances the in-flight animation by dt and reports whether more
// frames are needed. Discrete transitions (store writes, flag flips,
// hooks) happen exactly once, when the animation reaches its target.
func (c *Controller) Step(dt time.Duration) bool {
	a := c.anim
	if a == nil {
		return false
	}
	a.elapsed += dt
	t := float64(a.elapsed) / float64(a.duration)
	if t > 1 {
		t = 1
	}
	e := easeOutCubic(t)

	switch a.kind {
	case animDismiss:
		c.horizontalOffset = a.fromOffset + (c.viewport()-a.fromOffset)*e
		c.dismissFade = a.fromFade * (1 - e)
	case animMinimize:
		c.setProgress(a.fromProgress + (1-a.fromProgress)*e)
	case animRestore:
		c.setProgress(a.fromProgress * (1 - e))
	case animSettle:
		c.horizontalOffset = a.fromOffset * (1 - e)
		c.dismissFade = a.fromFade + (1-a.fromFade)*e
		c.setProgress(a.fromProgress * (1 - e))
	}

	if t >= 1 {
		c.finish(a.kind)
	}
	return c.anim != nil
}

// finish performs the discrete transition for a landed animation. The
// store write happens here, after the visuals have settled, so the icon
// bar never leads the card-side animation.
func (c *Controller) finish(kind animKind) {
	c.anim = nil
	switch kind {
	case animDismiss:
		c.removed = true
		c.gestureActive = false
		c.log.Debug("card dismissed", "card", c.identity.ID)
		if c.hooks.OnDismissed != nil {
			c.hooks.OnDismissed(c.identity.ID)
		}
	case animMinimize:
		c.minimized = true
		c.setProgress(1)
		c.state = StateMinimized
		c.gestureActive = false
		c.store.Minimize(c.identity.ID)
		c.log.Debug("card minimized", "card", c.identity.ID)
		if c.hooks.OnMinimized != nil {
			c.hooks.OnMinimized(c.identity.ID)
		}
	case animRestore:
		c.minimized = false
		c.setProgress(0)
		c.state = StateExpanded
		c.gestureActive = false
		c.store.Restore(c.identity.ID)
		c.log.Debug("card restored", "card", c.identity.ID)
		if c.hooks.OnRestored != nil {
			c.hooks.OnRestored(c.identity.ID)
		}
	case animSettle:
		c.resetToRest()
	}
}

// SetFocused records screen focus transitions. Regaining focus forces
// the ephemeral variables back into agreement with the store — an
// instantaneous snap, never an animation. If a commit is in flight the
// resync defers to the commit's own completion handler, which leaves
// controller and store consistent anyway.
func (c *Controller) SetFocused(focused bool) {
	was := c.focused
	c.focused = focused
	if focused && !was {
		if c.Committed() {
			c.log.Debug("resync deferred to in-flight commit", "card", c.identity.ID)
			return
		}
		c.SyncToStore()
	}
}

// SyncToStore snaps all animation variables to the store's current
// membership for this card, bypassing any animation. Safe to call from
// a store subscription; ignored while a commit is in flight.
func (c *Controller) SyncToStore() {
	if c.removed || c.Committed() {
		return
	}
	c.anim = nil
	c.snapToStore()
}

func (c *Controller) snapToStore() {
	if c.store != nil && c.store.IsMinimized(c.identity.ID) {
		c.minimized = true
		c.state = StateMinimized
		c.horizontalOffset = 0
		c.dismissFade = 1
		c.setProgress(1)
		c.gestureActive = false
		return
	}
	c.minimized = false
	c.resetToRest()
}

func (c *Controller) resetToRest() {
	c.state = StateExpanded
	c.horizontalOffset = 0
	c.dismissFade = 1
	c.setProgress(0)
	c.gestureActive = false
}

// setProgress updates compression progress and the coupled icon slide:
// parked through the first half of the compression, then interpolating
// toward the resting slot over the second half.
func (c *Controller) setProgress(p float64) {
	c.compressionProgress = clamp01(p)
	if c.compressionProgress <= 0.5 {
		c.iconOffset = 0
	} else {
		c.iconOffset = (c.compressionProgress - 0.5) / 0.5
	}
}
