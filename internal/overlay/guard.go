// internal/overlay/guard.go
package overlay

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/navlens/navlens-cli/internal/page"
)

// popupSelector matches the transient overlays storefronts throw at
// visitors: dialog roles, cookie consent banners and the usual
// third-party marketing popup signatures.
const popupSelector = `[role="dialog"], [role="alertdialog"], .modal.show, ` +
	`#onetrust-banner-sdk, [id*="cookie-banner"], [class*="cookie-consent"], [class*="cookie-banner"], ` +
	`[class*="newsletter-popup"], [class*="klaviyo-form"], [id*="attentive_overlay"], [class*="privy-popup"]`

// closeControlSelector matches close-button conventions inside a popup.
const closeControlSelector = `[aria-label*="close" i], button.close, .modal__close, ` +
	`[class*="close-button"], [class*="popup-close"], [data-dismiss], [data-bs-dismiss]`

// navishKeywords exclude drawer/cart panels that also carry dialog roles;
// dismissing those would destroy the state under investigation.
var navishKeywords = []string{"nav", "menu", "drawer", "cart"}

// GuardedTarget is UI that must remain open across a dismissal pass. The
// caller owns it; the guard never stores it beyond one pass.
type GuardedTarget struct {
	Name string
	// IsOpen reports the target's current open state.
	IsOpen func(ctx context.Context) (bool, error)
	// Reopen restores the target after an accidental close.
	Reopen func(ctx context.Context) error
	// Settle is honored after a successful reopen.
	Settle time.Duration
}

// Guard dismisses transient overlays without collapsing UI a caller needs
// kept open.
type Guard struct {
	log *zap.Logger
	// TierSettle separates dismissal attempts; overlay close animations
	// have no completion signal.
	TierSettle time.Duration
}

// NewGuard returns a guard with the default settle delay.
func NewGuard(log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{log: log.Named("overlay"), TierSettle: 250 * time.Millisecond}
}

// DismissWithGuards runs a best-effort dismissal pass and then verifies
// every guarded target, reopening any that were closed as a side effect.
// Faults are isolated per popup and per target; the only error returned
// is context cancellation.
func (g *Guard) DismissWithGuards(ctx context.Context, doc page.Document, targets []GuardedTarget) error {
	if err := g.dismissAll(ctx, doc); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		g.log.Debug("popup dismissal pass failed", zap.Error(err))
	}

	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		open, err := t.IsOpen(ctx)
		if err != nil {
			g.log.Warn("guarded target state check failed", zap.String("target", t.Name), zap.Error(err))
			continue
		}
		if open {
			continue
		}
		g.log.Debug("guarded target was closed by dismissal, reopening", zap.String("target", t.Name))
		if err := t.Reopen(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Isolated: one broken reopen must not block the others.
			g.log.Warn("failed to reopen guarded target", zap.String("target", t.Name), zap.Error(err))
			continue
		}
		if err := page.Settle(ctx, t.Settle); err != nil {
			return err
		}
	}
	return nil
}

func (g *Guard) dismissAll(ctx context.Context, doc page.Document) error {
	popups, err := doc.QueryAll(ctx, popupSelector)
	if err != nil {
		return err
	}
	for _, popup := range popups {
		if err := ctx.Err(); err != nil {
			return err
		}
		visible, err := doc.Visible(ctx, popup)
		if err != nil || !visible {
			continue
		}
		navish, err := isNavish(ctx, doc, popup)
		if err != nil || navish {
			continue
		}
		if err := g.dismissOne(ctx, doc, popup); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			g.log.Debug("could not dismiss popup", zap.String("node", string(popup)), zap.Error(err))
		}
	}
	return nil
}

// dismissOne walks the three-tier strategy: Escape, then an in-popup close
// control, then a click on the popup surface near its top-left corner
// (backdrop-dismiss implementations).
func (g *Guard) dismissOne(ctx context.Context, doc page.Document, popup page.NodeRef) error {
	// Tier 1: the Escape convention.
	if err := doc.Press(ctx, "Escape"); err == nil {
		if err := page.Settle(ctx, g.TierSettle); err != nil {
			return err
		}
		if gone, err := dismissed(ctx, doc, popup); err == nil && gone {
			return nil
		}
	}

	// Tier 2: close control inside the popup.
	controls, err := doc.QueryAllWithin(ctx, popup, closeControlSelector)
	if err == nil {
		for _, control := range controls {
			visible, err := doc.Visible(ctx, control)
			if err != nil || !visible {
				continue
			}
			if err := doc.Click(ctx, control); err != nil {
				continue
			}
			if err := page.Settle(ctx, g.TierSettle); err != nil {
				return err
			}
			if gone, err := dismissed(ctx, doc, popup); err == nil && gone {
				return nil
			}
			break
		}
	}

	// Tier 3: the popup's own surface.
	box, ok, err := doc.BoundingBox(ctx, popup)
	if err != nil || !ok {
		return err
	}
	if err := doc.ClickAt(ctx, box.X+5, box.Y+5); err != nil {
		return err
	}
	return page.Settle(ctx, g.TierSettle)
}

// dismissed treats a vanished or hidden popup as gone.
func dismissed(ctx context.Context, doc page.Document, popup page.NodeRef) (bool, error) {
	visible, err := doc.Visible(ctx, popup)
	if err != nil {
		// The node detached with the popup; that counts as dismissed.
		return true, nil
	}
	return !visible, nil
}

func containsAnyFold(s string, keywords []string) bool {
	s = strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func isNavish(ctx context.Context, doc page.Document, node page.NodeRef) (bool, error) {
	for _, attr := range []string{"class", "id", "aria-label"} {
		v, _, err := doc.Attribute(ctx, node, attr)
		if err != nil {
			return false, err
		}
		if containsAnyFold(v, navishKeywords) {
			return true, nil
		}
	}
	return false, nil
}
