// internal/regions/mobilenav.go
package regions

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/navlens/navlens-cli/internal/page"
)

// Detector selector tables. Drawers are routinely hidden at rest, so only
// the trigger must be visible; the drawer just has to exist.
const (
	detailsDrawerInner   = `nav, ul, [class*="drawer"], [class*="menu"]`
	bootstrapTriggerSel  = `.navbar-toggler, [data-bs-toggle="collapse"], [data-toggle="collapse"]`
	dataAttrTriggerSel   = `[data-drawer-trigger], [data-menu-toggle], [data-mobile-menu-toggle]`
	drawerComponentSel   = `header-drawer, menu-drawer, mobile-menu, side-drawer`
	componentTriggerSel  = `button, summary, [role="button"]`
	classTriggerSel      = `button[class*="burger"], button[class*="hamburger"], [class*="menu-toggle"], [class*="nav-toggle"]`
	classDrawerSel       = `.mobile-nav, .menu-drawer, .mobile-menu, .off-canvas, [class*="drawer"]`
	drawerSharedKeyAttr  = "data-drawer-key"
	drawerAriaLinkAttr   = "aria-controls"
	bootstrapTargetAttr  = "data-bs-target"
	bootstrapLegacyAttr  = "data-target"
)

// menuIdentifiers mark a disclosure widget as navigation rather than an
// FAQ accordion or size chart.
var menuIdentifiers = []string{"menu", "nav", "burger", "hamburger", "drawer"}

// ClassifyMobileNav locates the mobile navigation trigger/drawer pair.
// Detectors run in fixed priority order, one per implementation pattern;
// the first complete pair wins. Absence is a normal outcome.
func (c *Classifier) ClassifyMobileNav(ctx context.Context) (*Descriptor, bool, error) {
	detectors := []struct {
		name string
		run  func(ctx context.Context) (*Descriptor, error)
	}{
		{name: "details-summary", run: c.detectDetailsSummary},
		{name: "bootstrap-navbar", run: c.detectBootstrapNavbar},
		{name: "data-attribute", run: c.detectDataAttribute},
		{name: "drawer-component", run: c.detectDrawerComponent},
		{name: "class-heuristic", run: c.detectClassHeuristic},
	}

	for _, d := range detectors {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		desc, err := d.run(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, false, ctx.Err()
			}
			c.log.Debug("mobile nav detector failed, trying next",
				zap.String("detector", d.name), zap.Error(err))
			continue
		}
		if desc == nil {
			continue
		}
		c.log.Debug("mobile nav detected",
			zap.String("pattern", desc.Pattern.String()),
			zap.Int("score", desc.Score),
			zap.Strings("reasons", desc.Reasons))
		return desc, true, nil
	}
	return nil, false, nil
}

// detectDetailsSummary finds a native disclosure widget with a
// menu-indicating identifier. The widget must have a discoverable drawer:
// either content inside the <details> or an external panel linked by a
// shared data key.
func (c *Classifier) detectDetailsSummary(ctx context.Context) (*Descriptor, error) {
	detailsNodes, err := c.doc.QueryAll(ctx, "details")
	if err != nil {
		return nil, err
	}
	for _, details := range detailsNodes {
		summary, ok, err := c.doc.QueryWithin(ctx, details, "summary")
		if err != nil || !ok {
			continue
		}
		visible, err := c.doc.Visible(ctx, summary)
		if err != nil || !visible {
			continue
		}
		isMenu, err := c.hasMenuIdentifier(ctx, details, summary)
		if err != nil || !isMenu {
			continue
		}

		// Inner drawer first, then an externally linked one.
		drawer, found, err := c.doc.QueryWithin(ctx, details, detailsDrawerInner)
		if err != nil {
			continue
		}
		reason := "disclosure widget with inner drawer"
		if !found {
			drawer, found, err = c.linkedDrawer(ctx, summary)
			if err != nil || !found {
				drawer, found, err = c.linkedDrawer(ctx, details)
			}
			if err != nil || !found {
				continue
			}
			reason = "disclosure widget with linked external drawer"
		}

		return &Descriptor{
			Trigger: summary,
			Drawer:  drawer,
			Root:    details,
			Pattern: PatternDetailsSummary,
			Score:   90,
			Reasons: []string{reason},
		}, nil
	}
	return nil, nil
}

func (c *Classifier) hasMenuIdentifier(ctx context.Context, nodes ...page.NodeRef) (bool, error) {
	for _, node := range nodes {
		found, err := c.classOrIDContains(ctx, node, menuIdentifiers)
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
		label, _, err := c.doc.Attribute(ctx, node, "aria-label")
		if err != nil {
			return false, err
		}
		if containsAnyFold(label, menuIdentifiers) {
			return true, nil
		}
	}
	return false, nil
}

// detectBootstrapNavbar matches collapse togglers whose target attribute
// carries the drawer selector directly.
func (c *Classifier) detectBootstrapNavbar(ctx context.Context) (*Descriptor, error) {
	triggers, err := c.doc.QueryAll(ctx, bootstrapTriggerSel)
	if err != nil {
		return nil, err
	}
	for _, trigger := range triggers {
		visible, err := c.doc.Visible(ctx, trigger)
		if err != nil || !visible {
			continue
		}
		for _, attr := range []string{bootstrapTargetAttr, bootstrapLegacyAttr} {
			target, ok, err := c.doc.Attribute(ctx, trigger, attr)
			if err != nil || !ok || target == "" {
				continue
			}
			drawer, found, err := c.doc.Query(ctx, target)
			if err != nil || !found {
				continue
			}
			return &Descriptor{
				Trigger: trigger,
				Drawer:  drawer,
				Pattern: PatternBootstrapNavbar,
				Score:   85,
				Reasons: []string{fmt.Sprintf("collapse toggler with %s", attr)},
			}, nil
		}
		// Togglers without a target attribute still count when
		// aria-controls resolves.
		if drawer, found, err := c.linkedDrawer(ctx, trigger); err == nil && found {
			return &Descriptor{
				Trigger: trigger,
				Drawer:  drawer,
				Pattern: PatternBootstrapNavbar,
				Score:   80,
				Reasons: []string{"collapse toggler linked by aria-controls"},
			}, nil
		}
	}
	return nil, nil
}

// detectDataAttribute matches explicit drawer-trigger data attributes.
func (c *Classifier) detectDataAttribute(ctx context.Context) (*Descriptor, error) {
	triggers, err := c.doc.QueryAll(ctx, dataAttrTriggerSel)
	if err != nil {
		return nil, err
	}
	for _, trigger := range triggers {
		visible, err := c.doc.Visible(ctx, trigger)
		if err != nil || !visible {
			continue
		}
		drawer, found, err := c.linkedDrawer(ctx, trigger)
		if err != nil || !found {
			continue
		}
		return &Descriptor{
			Trigger: trigger,
			Drawer:  drawer,
			Pattern: PatternDataAttribute,
			Score:   80,
			Reasons: []string{"explicit drawer trigger attribute"},
		}, nil
	}
	return nil, nil
}

// detectDrawerComponent matches custom drawer elements that bundle their
// own trigger.
func (c *Classifier) detectDrawerComponent(ctx context.Context) (*Descriptor, error) {
	components, err := c.doc.QueryAll(ctx, drawerComponentSel)
	if err != nil {
		return nil, err
	}
	for _, component := range components {
		trigger, ok, err := c.doc.QueryWithin(ctx, component, componentTriggerSel)
		if err != nil || !ok {
			continue
		}
		visible, err := c.doc.Visible(ctx, trigger)
		if err != nil || !visible {
			continue
		}
		return &Descriptor{
			Trigger: trigger,
			Drawer:  component,
			Root:    component,
			Pattern: PatternDrawerComponent,
			Score:   75,
			Reasons: []string{"drawer web component with embedded trigger"},
		}, nil
	}
	return nil, nil
}

// detectClassHeuristic is the weakest detector: burger-ish trigger classes
// paired with the first drawer-ish panel anywhere in the document.
func (c *Classifier) detectClassHeuristic(ctx context.Context) (*Descriptor, error) {
	triggers, err := c.doc.QueryAll(ctx, classTriggerSel)
	if err != nil {
		return nil, err
	}
	for _, trigger := range triggers {
		visible, err := c.doc.Visible(ctx, trigger)
		if err != nil || !visible {
			continue
		}
		drawers, err := c.doc.QueryAll(ctx, classDrawerSel)
		if err != nil || len(drawers) == 0 {
			continue
		}
		return &Descriptor{
			Trigger: trigger,
			Drawer:  drawers[0],
			Pattern: PatternClassHeuristic,
			Score:   55,
			Reasons: []string{"burger-class trigger with drawer-class panel"},
		}, nil
	}
	return nil, nil
}

// linkedDrawer resolves a trigger's explicitly linked panel: aria-controls
// referencing an id, or a shared data key.
func (c *Classifier) linkedDrawer(ctx context.Context, trigger page.NodeRef) (page.NodeRef, bool, error) {
	if id, ok, err := c.doc.Attribute(ctx, trigger, drawerAriaLinkAttr); err == nil && ok && id != "" {
		if drawer, found, err := c.doc.Query(ctx, "#"+id); err == nil && found {
			return drawer, true, nil
		}
	}
	key, ok, err := c.doc.Attribute(ctx, trigger, drawerSharedKeyAttr)
	if err != nil || !ok || key == "" {
		// Trigger attributes that carry the key as their value.
		for _, attr := range []string{"data-drawer-trigger", "data-menu-toggle", "data-mobile-menu-toggle"} {
			v, present, err := c.doc.Attribute(ctx, trigger, attr)
			if err == nil && present && v != "" {
				key, ok = v, true
				break
			}
		}
	}
	if !ok || key == "" {
		return "", false, nil
	}
	sel := fmt.Sprintf(`[%s=%q]:not(button):not(summary)`, drawerSharedKeyAttr, key)
	drawer, found, err := c.doc.Query(ctx, sel)
	if err != nil || !found {
		return "", false, err
	}
	if drawer == trigger {
		return "", false, nil
	}
	return drawer, true, nil
}
