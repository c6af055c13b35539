// internal/drawer/closecontrol.go
package drawer

import (
	"context"
	"fmt"

	"github.com/navlens/navlens-cli/internal/page"
	"github.com/navlens/navlens-cli/internal/regions"
)

// closeControlSelectors are tried in priority order inside the drawer.
var closeControlSelectors = []string{
	`[aria-label*="close" i]`,
	`button[class*="close"]`,
	`.drawer__close`,
	`.menu-drawer__close-button`,
	`[data-drawer-close]`,
	`[data-dismiss], [data-bs-dismiss]`,
}

// closeLinkAttrs on the trigger associate it with a close control rendered
// outside the drawer (trigger/close pairs some themes split apart).
var closeLinkAttrs = []string{"aria-controls", "data-drawer-key", "data-drawer-trigger"}

// FindCloseControl locates the control that closes the drawer. Pure
// lookup, no side effects. Priority: a control physically inside the
// drawer matching known close-button conventions, then a sibling control
// linked to the trigger by an explicit attribute. Every candidate must be
// visible, have positive area and be enabled.
func (c *Controller) FindCloseControl(ctx context.Context, d *regions.Descriptor) (page.NodeRef, bool, error) {
	for _, sel := range closeControlSelectors {
		nodes, err := c.doc.QueryAllWithin(ctx, d.Drawer, sel)
		if err != nil {
			if ctx.Err() != nil {
				return "", false, ctx.Err()
			}
			continue
		}
		for _, node := range nodes {
			ok, err := c.actionable(ctx, node)
			if err != nil || !ok {
				continue
			}
			return node, true, nil
		}
	}

	for _, attr := range closeLinkAttrs {
		key, present, err := c.doc.Attribute(ctx, d.Trigger, attr)
		if err != nil || !present || key == "" {
			continue
		}
		sel := fmt.Sprintf(`[data-drawer-close=%q]`, key)
		node, found, err := c.doc.Query(ctx, sel)
		if err != nil || !found {
			continue
		}
		ok, err := c.actionable(ctx, node)
		if err != nil || !ok {
			continue
		}
		return node, true, nil
	}

	return "", false, nil
}

// actionable requires visible, non-zero-area and enabled.
func (c *Controller) actionable(ctx context.Context, node page.NodeRef) (bool, error) {
	visible, err := c.doc.Visible(ctx, node)
	if err != nil || !visible {
		return false, err
	}
	box, ok, err := c.doc.BoundingBox(ctx, node)
	if err != nil || !ok || box.Area() <= 0 {
		return false, err
	}
	if _, disabled, err := c.doc.Attribute(ctx, node, "disabled"); err != nil || disabled {
		return false, err
	}
	if v, present, err := c.doc.Attribute(ctx, node, "aria-disabled"); err != nil || (present && v == "true") {
		return false, err
	}
	return true, nil
}
