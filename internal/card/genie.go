package card

import "math"

// Geometry holds the measured bounds of a rendered card and the resting
// position of its icon. All values are in host units (pixels or cells).
type Geometry struct {
	CardWidth  float64
	CardHeight float64

	// IconCenterX/Y are relative to the card's top-left corner.
	IconCenterX float64
	IconCenterY float64
	IconSize    float64
}

// Placeholder bounds used before layout measurement has produced real
// dimensions, so the strip math never divides by zero.
const (
	placeholderCardWidth  = 80.0
	placeholderCardHeight = 6.0
	placeholderIconSize   = 4.0
)

// Defaults for the decomposition. DelayFraction staggers strip starts so
// the bottom of the card drains into the icon first; FadeStart is the
// eased local progress at which a strip begins revealing the fixed icon
// rendered beneath it.
const (
	DefaultStripCount    = 24
	DefaultDelayFraction = 0.35
	DefaultFadeStart     = 0.5
)

// StripTransform is the visual transform for one horizontal strip at a
// given compression progress.
type StripTransform struct {
	// TranslateX/Y move the strip's center toward the icon's center.
	TranslateX float64
	TranslateY float64

	// ScaleX shrinks the strip from full card width toward icon width.
	// Never zero.
	ScaleX float64

	// Alpha is the strip's opacity in [0,1].
	Alpha float64
}

// normalized returns g with placeholder dimensions substituted for any
// unmeasured (non-positive) bounds.
func (g Geometry) normalized() Geometry {
	if g.CardWidth <= 0 {
		g.CardWidth = placeholderCardWidth
	}
	if g.CardHeight <= 0 {
		g.CardHeight = placeholderCardHeight
	}
	if g.IconSize <= 0 {
		g.IconSize = placeholderIconSize
	}
	if g.IconCenterX <= 0 {
		g.IconCenterX = g.CardWidth - g.IconSize/2
	}
	if g.IconCenterY <= 0 {
		g.IconCenterY = g.CardHeight / 2
	}
	return g
}

// StripLocalProgress maps the card-wide compression progress to one
// strip's own progress. Strips near the bottom lead: strip n-1 starts
// immediately while strip 0 waits out the full delay window. The result
// is clamped to [0,1] and eased symmetrically, so evaluating with a
// decreasing global progress retraces the exact same values in reverse.
func StripLocalProgress(global float64, index, count int, delayFraction float64) float64 {
	global = clamp01(global)
	if count <= 1 {
		return easeInOut(global)
	}
	p := float64(index) / float64(count-1)
	lead := 1 - p
	delay := lead * delayFraction
	denom := 1 - delay
	if denom <= 0 {
		denom = 1
	}
	return easeInOut(clamp01((global - delay) / denom))
}

// ComputeStripTransform evaluates the genie decomposition for one strip.
// index 0 is the top strip, count-1 the bottom. The same function serves
// both directions: restore is evaluated with global decreasing from 1 to 0.
func ComputeStripTransform(global float64, index, count int, delayFraction, fadeStart float64, g Geometry) StripTransform {
	g = g.normalized()
	if count <= 0 {
		count = DefaultStripCount
	}
	eased := StripLocalProgress(global, index, count, delayFraction)

	stripH := g.CardHeight / float64(count)
	stripCX := g.CardWidth / 2
	stripCY := (float64(index) + 0.5) * stripH

	scaleFloor := 0.01
	targetScale := g.IconSize / g.CardWidth
	if targetScale < scaleFloor {
		targetScale = scaleFloor
	}

	alpha := 1.0
	if fadeStart < 1 && eased > fadeStart {
		alpha = 1 - (eased-fadeStart)/(1-fadeStart)
		if alpha < 0 {
			alpha = 0
		}
	}

	return StripTransform{
		TranslateX: (g.IconCenterX - stripCX) * eased,
		TranslateY: (g.IconCenterY - stripCY) * eased,
		ScaleX:     1 + (targetScale-1)*eased,
		Alpha:      alpha,
	}
}

// easeInOut is a symmetric smoothstep: zero slope at both ends, so strip
// motion decelerates naturally in either direction.
func easeInOut(t float64) float64 {
	return t * t * (3 - 2*t)
}

// easeOutCubic decelerates toward the target; used for commit animations.
func easeOutCubic(t float64) float64 {
	u := 1 - t
	return 1 - u*u*u
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
