package card

// Identity describes a card for the lifetime of its mounted instance.
// It is supplied by the dashboard composition layer and never mutated
// by the controller.
type Identity struct {
	// ID is the stable identifier used for minimized-set membership,
	// analytics events, and icon bar entries.
	ID string

	// Icon is the short glyph shown in the icon bar and in the fixed
	// in-place icon during the minimize transition.
	Icon string

	// Color is the accent color (hex, e.g. "#7D56F4").
	Color string

	// Dismissible controls whether a rightward swipe can remove the card.
	Dismissible bool

	// Badge is an optional count rendered on the minimized icon. Zero
	// means no badge.
	Badge int
}
