// internal/regions/nav.go
package regions

import (
	"context"
	"fmt"

	"github.com/navlens/navlens-cli/internal/page"
)

// Selector tables for the primary navigation. The fast-path selectors were
// collected from manual analysis of reference storefront themes; the
// superset is deliberately broad, with filtering done by scoring.
const (
	navScoredSuperset   = `nav, [role="navigation"], header ul, div[class*="nav"], div[class*="menu"]`
	navAriaFallbackSel  = `[aria-label*="navigation" i], [aria-label*="main menu" i], [aria-label*="menu" i]`
	navHeaderFallback   = `header nav, header [role="navigation"], header ul`
	minPrimaryNavLinks  = 2
	maxPrimaryNavLinks  = 40
	navTopOfViewportPx  = 250.0
	navOptimalLinksLow  = 4
	navOptimalLinksHigh = 12
)

// navMismatchKeywords in class/id disqualify nav-shaped decoys.
var navMismatchKeywords = []string{"footer", "social", "breadcrumb", "pagination", "sidebar", "legal", "copyright"}

func (c *Classifier) navStrategies() []strategy {
	return []strategy{
		{name: "fast-path", run: c.navFastPath},
		{name: "scored", run: c.navScored},
		{name: "aria-fallback", run: c.navAriaFallback},
		{name: "header-fallback", run: c.navHeaderRegionFallback},
	}
}

func (c *Classifier) navFastPath(ctx context.Context) (*Candidate, error) {
	paths := []fastPath{
		{
			selector: "nav.header__inline-menu",
			reason:   "theme inline header menu",
			validate: c.validateNavContent,
		},
		{
			selector: "header nav.site-nav, nav.site-navigation",
			reason:   "site navigation element in header",
			validate: c.validateNavContent,
		},
		{
			selector: `header nav[aria-label*="main" i]`,
			reason:   "header nav labeled as main",
			validate: c.validateNavContent,
		},
	}
	return c.runFastPaths(ctx, paths)
}

// validateNavContent requires a minimum count of visible links so that an
// empty decorative <nav> cannot win on markup alone.
func (c *Classifier) validateNavContent(ctx context.Context, node page.NodeRef) (bool, error) {
	visible, _, err := c.visibleLinks(ctx, node)
	if err != nil {
		return false, err
	}
	return visible >= minPrimaryNavLinks, nil
}

func (c *Classifier) navScored(ctx context.Context) (*Candidate, error) {
	return c.runScoredPass(ctx, navScoredSuperset, c.scoreNavCandidate)
}

func (c *Classifier) scoreNavCandidate(ctx context.Context, cand *Candidate) error {
	add := func(points int, reason string) {
		cand.Score += points
		cand.Reasons = append(cand.Reasons, fmt.Sprintf("%+d %s", points, reason))
	}

	tag, err := c.doc.TagName(ctx, cand.Node)
	if err != nil {
		return err
	}
	if tag == "nav" {
		add(30, "semantic <nav> element")
	}
	role, _, err := c.doc.Attribute(ctx, cand.Node, "role")
	if err != nil {
		return err
	}
	if role == "navigation" {
		add(25, "navigation landmark role")
	}

	metrics, err := c.doc.Metrics(ctx)
	if err != nil {
		return err
	}
	box, hasBox, err := c.doc.BoundingBox(ctx, cand.Node)
	if err != nil {
		return err
	}
	if hasBox {
		switch {
		case box.Y < navTopOfViewportPx:
			add(20, "near top of viewport")
		case box.Y < metrics.ViewportHeight:
			add(10, "inside first viewport")
		}
		if metrics.DocumentHeight > 0 && box.Y > metrics.DocumentHeight*0.8 {
			add(-20, "located at bottom of document")
		}
	}

	switch {
	case cand.LinkCount >= navOptimalLinksLow && cand.LinkCount <= navOptimalLinksHigh:
		add(10, "optimal visible link count")
	case cand.LinkCount >= minPrimaryNavLinks && cand.LinkCount <= maxPrimaryNavLinks:
		add(5, "acceptable visible link count")
	case cand.LinkCount > maxPrimaryNavLinks:
		add(-15, "excessive link count")
	default:
		add(-15, "too few links")
	}

	_, catalog, err := c.visibleLinks(ctx, cand.Node)
	if err != nil {
		return err
	}
	if catalog > 0 {
		add(10, "contains catalog links")
	}

	mismatch, err := c.classOrIDContains(ctx, cand.Node, navMismatchKeywords)
	if err != nil {
		return err
	}
	if mismatch {
		add(-25, "mismatched structural keyword in class/id")
	}
	return nil
}

// navAriaFallback relaxes to label matching: any visible labeled menu-ish
// element with enough links.
func (c *Classifier) navAriaFallback(ctx context.Context) (*Candidate, error) {
	nodes, err := c.doc.QueryAll(ctx, navAriaFallbackSel)
	if err != nil {
		return nil, err
	}
	for _, node := range nodes {
		visible, err := c.doc.Visible(ctx, node)
		if err != nil || !visible {
			continue
		}
		ok, err := c.validateNavContent(ctx, node)
		if err != nil || !ok {
			continue
		}
		label, _, _ := c.doc.Attribute(ctx, node, "aria-label")
		return &Candidate{
			Node:      node,
			Score:     confidenceFloor + 1,
			Reasons:   []string{"relaxed aria-label match"},
			AriaLabel: label,
		}, nil
	}
	return nil, nil
}

// navHeaderRegionFallback is the last resort: any nav-shaped element
// inside the header region.
func (c *Classifier) navHeaderRegionFallback(ctx context.Context) (*Candidate, error) {
	nodes, err := c.doc.QueryAll(ctx, navHeaderFallback)
	if err != nil {
		return nil, err
	}
	for _, node := range nodes {
		visible, err := c.doc.Visible(ctx, node)
		if err != nil || !visible {
			continue
		}
		ok, err := c.validateNavContent(ctx, node)
		if err != nil || !ok {
			continue
		}
		return &Candidate{
			Node:    node,
			Score:   confidenceFloor + 1,
			Reasons: []string{"nav-shaped element in header region"},
		}, nil
	}
	return nil, nil
}
