package card

import (
	"math"
	"time"
)

// PointerPhase identifies a stage in a pointer event stream.
type PointerPhase int

const (
	PhaseDown PointerPhase = iota
	PhaseMove
	PhaseUp
	PhaseCancel
)

// PointerEvent is one sample of pointer input in card-local coordinates.
// The host rendering layer is responsible for translating its own input
// events (mouse, touch) into this form.
type PointerEvent struct {
	Phase PointerPhase
	X     float64
	Y     float64
	Time  time.Time
}

// GestureKind is the classifier's current reading of the live stream.
type GestureKind int

const (
	// GestureNone means no pan has activated yet (tap still possible)
	// or the stream was rejected as vertical-dominant.
	GestureNone GestureKind = iota
	GestureTap
	GestureDismiss
	GestureMinimize
)

// Classification thresholds. The pan slop keeps jittery presses from
// starting a drag; tap limits follow typical touch-target tolerances.
const (
	tapMaxTravel   = 8.0
	tapMaxDuration = 300 * time.Millisecond
	panSlop        = 10.0
)

// classifier turns a down/move/up stream into exactly one gesture.
//
// Tap and pan are mutually exclusive: once travel exceeds the pan slop
// the tap arm is dead for the rest of the stream, and a recognized tap
// means the pan arm never activated. A stream whose movement is
// vertical-dominant at the moment the slop is exceeded is rejected
// outright and classifies as nothing.
type classifier struct {
	active   bool
	startX   float64
	startY   float64
	startAt  time.Time
	lastX    float64
	lastY    float64
	panLive  bool
	rejected bool
}

func (c *classifier) begin(ev PointerEvent) {
	c.active = true
	c.startX, c.startY = ev.X, ev.Y
	c.lastX, c.lastY = ev.X, ev.Y
	c.startAt = ev.Time
	c.panLive = false
	c.rejected = false
}

func (c *classifier) update(ev PointerEvent) {
	if !c.active || c.rejected {
		return
	}
	c.lastX, c.lastY = ev.X, ev.Y
	if c.panLive {
		return
	}
	dx := ev.X - c.startX
	dy := ev.Y - c.startY
	if math.Abs(dx) < panSlop && math.Abs(dy) < panSlop {
		return
	}
	// Slop exceeded: decide the axis once, here. Reversals after this
	// point change pan direction but never resurrect the tap arm.
	if math.Abs(dy) > math.Abs(dx) {
		c.rejected = true
		return
	}
	c.panLive = true
}

func (c *classifier) end() {
	c.active = false
}

// deltaX is the signed horizontal travel from the press origin.
func (c *classifier) deltaX() float64 {
	return c.lastX - c.startX
}

// kind reports the live classification. While neither arm has fired it
// returns GestureNone; the tap decision is only made on release via isTap.
func (c *classifier) kind() GestureKind {
	if c.rejected || !c.panLive {
		return GestureNone
	}
	if c.deltaX() >= 0 {
		return GestureDismiss
	}
	return GestureMinimize
}

// isTap reports whether the finished stream qualifies as a tap: the pan
// arm never activated, total travel stayed tiny, and the press was short.
func (c *classifier) isTap(at time.Time) bool {
	if c.panLive || c.rejected {
		return false
	}
	dx := c.lastX - c.startX
	dy := c.lastY - c.startY
	if math.Hypot(dx, dy) > tapMaxTravel {
		return false
	}
	return at.Sub(c.startAt) <= tapMaxDuration
}
