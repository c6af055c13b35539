// internal/drawer/controller.go
package drawer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/navlens/navlens-cli/internal/overlay"
	"github.com/navlens/navlens-cli/internal/page"
	"github.com/navlens/navlens-cli/internal/regions"
)

// CloseOutcome distinguishes a verified close from the weaker-guarantee
// trigger-toggle fallback, whose post-click state is not verified.
type CloseOutcome int

const (
	CloseFailed CloseOutcome = iota
	CloseVerified
	CloseAssumed
)

func (o CloseOutcome) String() string {
	switch o {
	case CloseVerified:
		return "verified"
	case CloseAssumed:
		return "assumed"
	default:
		return "failed"
	}
}

// Success reports whether the drawer is believed closed.
func (o CloseOutcome) Success() bool { return o != CloseFailed }

// Controller drives a classified mobile navigation open and closed across
// the incompatible drawer implementations in the wild. The drawer is a
// two-state machine, Open and Closed; there is no observable transient
// state, so state-changing actions are followed by fixed settle delays.
//
// Interaction faults never escape: they resolve to outcomes and logs. The
// only error a method returns is context cancellation.
type Controller struct {
	doc   page.Document
	guard *overlay.Guard
	log   *zap.Logger

	// Guards are re-verified whenever this controller triggers an overlay
	// dismissal pass.
	Guards []overlay.GuardedTarget

	// Settle follows every state-changing action. OpenTimeout bounds the
	// post-click visibility wait; when it elapses the controller proceeds
	// after Grace anyway, because a missed visibility signal is weaker
	// evidence than an explicit negative check.
	Settle      time.Duration
	OpenTimeout time.Duration
	Grace       time.Duration
}

// NewController returns a controller with empirical default delays.
func NewController(doc page.Document, guard *overlay.Guard, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	if guard == nil {
		guard = overlay.NewGuard(log)
	}
	return &Controller{
		doc:         doc,
		guard:       guard,
		log:         log.Named("drawer"),
		Settle:      400 * time.Millisecond,
		OpenTimeout: 5 * time.Second,
		Grace:       750 * time.Millisecond,
	}
}

// IsOpen evaluates the pattern-dependent open-state predicate.
func (c *Controller) IsOpen(ctx context.Context, d *regions.Descriptor) (bool, error) {
	ops, ok := patternTable[d.Pattern]
	if !ok {
		return false, fmt.Errorf("no strategy for pattern %q", d.Pattern)
	}
	return ops.isOpen(ctx, c, d)
}

// Open opens the drawer. It is idempotent: when the drawer already
// reports open, no click is issued. Transient overlays are dismissed
// first since they frequently block the trigger.
func (c *Controller) Open(ctx context.Context, d *regions.Descriptor) error {
	open, err := c.IsOpen(ctx, d)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Debug("open-state check failed before open, assuming closed", zap.Error(err))
	}
	if open {
		return nil
	}

	if err := c.guard.DismissWithGuards(ctx, c.doc, c.Guards); err != nil {
		return err
	}

	if err := c.doc.ScrollIntoView(ctx, d.Trigger); err != nil {
		c.log.Debug("could not scroll trigger into view", zap.Error(err))
	}
	if err := c.doc.Click(ctx, d.Trigger); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Best effort: the click may still have landed (some themes
		// swallow the event mid-animation).
		c.log.Warn("trigger click failed, proceeding", zap.String("pattern", d.Pattern.String()), zap.Error(err))
	}

	if err := c.doc.WaitVisible(ctx, d.Drawer, c.OpenTimeout); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Animation timing varies by theme; a missed visibility signal is
		// not proof of failure.
		c.log.Debug("drawer did not report visible in time, proceeding after grace delay", zap.Error(err))
		return page.Settle(ctx, c.Grace)
	}
	return page.Settle(ctx, c.Settle)
}

// Close closes the drawer. Idempotent when already closed. The escalation
// order: dismiss an interfering overlay (reopening the drawer if that
// dismissal collapsed it too), click a verified close control, and only
// then fall back to re-clicking the trigger, which returns the weaker
// CloseAssumed outcome because its effect is unverified.
func (c *Controller) Close(ctx context.Context, d *regions.Descriptor) (CloseOutcome, error) {
	open, err := c.IsOpen(ctx, d)
	if err != nil {
		if ctx.Err() != nil {
			return CloseFailed, ctx.Err()
		}
		// Unknown state: run the close path anyway rather than claiming
		// a verified close on a faulted check.
		c.log.Debug("open-state check failed before close", zap.Error(err))
	} else if !open {
		return CloseVerified, nil
	}

	if err := c.clearInterferingOverlay(ctx, d); err != nil {
		return CloseFailed, err
	}

	control, found, err := c.FindCloseControl(ctx, d)
	if err != nil && ctx.Err() != nil {
		return CloseFailed, ctx.Err()
	}
	if found {
		if outcome, done, err := c.clickCloseControl(ctx, d, control); done || err != nil {
			return outcome, err
		}
	}

	// Last resort: assume the trigger toggles. Success here only means the
	// click completed; the resulting state is not verified.
	if err := c.doc.ForceClick(ctx, d.Trigger); err != nil {
		if ctx.Err() != nil {
			return CloseFailed, ctx.Err()
		}
		c.log.Debug("toggle fallback click failed", zap.Error(err))
		return CloseFailed, nil
	}
	if err := page.Settle(ctx, c.Settle); err != nil {
		return CloseFailed, err
	}
	return CloseAssumed, nil
}

// clearInterferingOverlay dismisses a pattern-specific backdrop via the
// Escape convention, and reopens the drawer when Escape collapsed it as a
// side effect. Leaving the investigation mid-state would corrupt every
// later check.
func (c *Controller) clearInterferingOverlay(ctx context.Context, d *regions.Descriptor) error {
	sel := patternTable[d.Pattern].overlaySelector
	if sel == "" {
		return nil
	}
	node, found, err := c.doc.Query(ctx, sel)
	if err != nil || !found {
		return ctx.Err()
	}
	visible, err := c.doc.Visible(ctx, node)
	if err != nil || !visible {
		return ctx.Err()
	}

	if err := c.doc.Press(ctx, "Escape"); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	}
	if err := page.Settle(ctx, c.Settle); err != nil {
		return err
	}

	stillOpen, err := c.IsOpen(ctx, d)
	if err == nil && !stillOpen {
		c.log.Debug("overlay dismissal also closed the drawer, reopening")
		return c.Open(ctx, d)
	}
	return ctx.Err()
}

// clickCloseControl clicks a located close control, with an extra settle
// when its bounding box says it is still off-screen mid-transition. done
// is true when the close is verified; false falls through to the toggle
// fallback.
func (c *Controller) clickCloseControl(ctx context.Context, d *regions.Descriptor, control page.NodeRef) (CloseOutcome, bool, error) {
	box, ok, err := c.doc.BoundingBox(ctx, control)
	if err == nil && ok {
		metrics, merr := c.doc.Metrics(ctx)
		if merr == nil && offViewport(box, metrics) {
			if err := page.Settle(ctx, c.Settle); err != nil {
				return CloseFailed, true, err
			}
		}
	}

	if err := c.doc.Click(ctx, control); err != nil {
		if ctx.Err() != nil {
			return CloseFailed, true, ctx.Err()
		}
		c.log.Debug("close control click failed, falling back to trigger toggle", zap.Error(err))
		return CloseFailed, false, nil
	}
	if err := page.Settle(ctx, c.Settle); err != nil {
		return CloseFailed, true, err
	}

	stillOpen, err := c.IsOpen(ctx, d)
	if err == nil && !stillOpen {
		return CloseVerified, true, nil
	}
	if ctx.Err() != nil {
		return CloseFailed, true, ctx.Err()
	}
	return CloseFailed, false, nil
}
