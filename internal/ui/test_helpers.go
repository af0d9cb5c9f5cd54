package ui

import (
	"github.com/prospectly/leaddeck/internal/card"
	"github.com/prospectly/leaddeck/internal/config"
	"github.com/prospectly/leaddeck/internal/minimized"
)

// Test helpers; only compiled into test builds of dependents.

// NewTestDashboard creates a Dashboard with default config and no
// journal or watcher.
func NewTestDashboard(store *minimized.Store, specs []CardSpec) *Dashboard {
	return NewDashboard(config.Default(), store, nil, nil, specs)
}

// SetSizeForTest sets the terminal size and runs layout.
func (d *Dashboard) SetSizeForTest(width, height int) {
	d.width = width
	d.height = height
	d.layout()
}

// ControllerForTest returns the controller for a card id.
func (d *Dashboard) ControllerForTest(id string) *card.Controller {
	for _, cv := range d.cards {
		if cv.spec.Identity.ID == id {
			return cv.ctrl
		}
	}
	return nil
}

// CardRectForTest returns the measured rect for a card id.
func (d *Dashboard) CardRectForTest(id string) (x, y, w, h int, ok bool) {
	for _, cv := range d.cards {
		if cv.spec.Identity.ID == id {
			return cv.rect.x, cv.rect.y, cv.rect.w, cv.rect.h, true
		}
	}
	return 0, 0, 0, 0, false
}

// ScreenForTest returns the active screen.
func (d *Dashboard) ScreenForTest() Screen {
	return d.screen
}

// IconBarForTest exposes the icon bar.
func (d *Dashboard) IconBarForTest() *IconBar {
	return &d.iconBar
}

// CardCountForTest returns the number of cards still in composition.
func (d *Dashboard) CardCountForTest() int {
	return len(d.cards)
}
