// internal/drawer/patterns.go
package drawer

import (
	"context"
	"strings"

	"github.com/navlens/navlens-cli/internal/page"
	"github.com/navlens/navlens-cli/internal/regions"
)

// patternOps binds one drawer implementation pattern to its state
// strategies. The pattern set is closed; dispatch is a table lookup, not
// runtime type inspection.
type patternOps struct {
	// isOpen is the pattern-dependent open-state predicate.
	isOpen func(ctx context.Context, c *Controller, d *regions.Descriptor) (bool, error)
	// overlaySelector matches an interfering overlay this pattern renders
	// while open (a backdrop that eats clicks). Empty when none is known.
	overlaySelector string
}

var patternTable = map[regions.Pattern]patternOps{
	regions.PatternDetailsSummary: {
		isOpen:          isOpenDetails,
		overlaySelector: `.menu-drawer__overlay, .drawer__overlay`,
	},
	regions.PatternBootstrapNavbar: {
		isOpen:          isOpenExplicitState,
		overlaySelector: `.modal-backdrop.show, .offcanvas-backdrop.show`,
	},
	regions.PatternDataAttribute: {
		isOpen:          isOpenExplicitState,
		overlaySelector: `[data-drawer-overlay]`,
	},
	regions.PatternDrawerComponent: {
		isOpen:          isOpenExplicitState,
		overlaySelector: `.drawer__overlay`,
	},
	regions.PatternClassHeuristic: {
		isOpen: isOpenExplicitState,
	},
}

// isOpenDetails prefers live drawer visibility: external-drawer variants
// let the native open attribute and the visual state desync. The
// disclosure widget's open attribute is the fallback.
func isOpenDetails(ctx context.Context, c *Controller, d *regions.Descriptor) (bool, error) {
	visible, err := c.doc.Visible(ctx, d.Drawer)
	if err == nil {
		return visible, nil
	}
	root := d.Root
	if root == "" {
		return false, err
	}
	_, open, attrErr := c.doc.Attribute(ctx, root, "open")
	if attrErr != nil {
		return false, attrErr
	}
	return open, nil
}

// openStateTokens are the class markers themes toggle on an open drawer.
var openStateTokens = map[string]bool{
	"open": true, "opened": true, "is-open": true,
	"active": true, "is-active": true,
	"show": true, "showing": true, "visible": true,
	"menu-opening": true,
}

// isOpenExplicitState checks, in order: open/active class tokens (some
// sites leave aria-hidden stale), aria-hidden on the drawer, the
// trigger's aria-expanded, and finally visibility plus on-screen
// horizontal position. An off-canvas drawer translated outside the
// viewport is closed even when its display is not none.
func isOpenExplicitState(ctx context.Context, c *Controller, d *regions.Descriptor) (bool, error) {
	class, _, err := c.doc.Attribute(ctx, d.Drawer, "class")
	if err != nil {
		return false, err
	}
	if hasOpenToken(class) {
		return true, nil
	}

	if hidden, present, err := c.doc.Attribute(ctx, d.Drawer, "aria-hidden"); err == nil && present {
		return hidden == "false", nil
	}

	if expanded, present, err := c.doc.Attribute(ctx, d.Trigger, "aria-expanded"); err == nil && present {
		return expanded == "true", nil
	}

	visible, err := c.doc.Visible(ctx, d.Drawer)
	if err != nil || !visible {
		return false, err
	}
	box, ok, err := c.doc.BoundingBox(ctx, d.Drawer)
	if err != nil || !ok {
		return false, err
	}
	metrics, err := c.doc.Metrics(ctx)
	if err != nil {
		return false, err
	}
	return onScreenHorizontally(box, metrics), nil
}

func hasOpenToken(class string) bool {
	for _, token := range strings.Fields(class) {
		if openStateTokens[strings.ToLower(token)] {
			return true
		}
	}
	return false
}

func onScreenHorizontally(box page.Box, m page.Metrics) bool {
	return box.X+box.Width > 0 && box.X < m.ViewportWidth
}

func offViewport(box page.Box, m page.Metrics) bool {
	if box.X+box.Width <= 0 || box.Y+box.Height <= 0 {
		return true
	}
	return m.ViewportWidth > 0 && box.X >= m.ViewportWidth
}
