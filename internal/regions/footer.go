// internal/regions/footer.go
package regions

import (
	"context"
	"fmt"

	"github.com/navlens/navlens-cli/internal/page"
)

const (
	footerScoredSuperset = `footer, [role="contentinfo"], div[class*="footer"], section[class*="footer"]`
	footerAriaFallback   = `[aria-label*="footer" i], [role="contentinfo"]`
)

// Copyright and policy phrasing that marks real site footers. A footer
// validated by content beats any higher-link-density decoy.
var (
	copyrightMarkers    = []string{"©", "&copy;", "copyright", "all rights reserved"}
	policyLinkMarkers   = []string{"privacy", "terms", "refund", "shipping policy", "impressum", "legal"}
	footerMismatchWords = []string{"header", "hero", "banner", "announcement", "breadcrumb"}
)

func (c *Classifier) footerStrategies() []strategy {
	return []strategy{
		{name: "fast-path", run: c.footerFastPath},
		{name: "scored", run: c.footerScored},
		{name: "aria-fallback", run: c.footerAriaFallbackStrategy},
	}
}

func (c *Classifier) footerFastPath(ctx context.Context) (*Candidate, error) {
	paths := []fastPath{
		{
			selector: "footer",
			reason:   "semantic <footer> with footer content",
			validate: c.validateFooterContent,
		},
		{
			selector: `[role="contentinfo"]`,
			reason:   "contentinfo landmark with footer content",
			validate: c.validateFooterContent,
		},
	}
	return c.runFastPaths(ctx, paths)
}

// validateFooterContent accepts an element whose text carries copyright
// phrasing or whose links include the usual policy pages.
func (c *Classifier) validateFooterContent(ctx context.Context, node page.NodeRef) (bool, error) {
	text, err := c.doc.Text(ctx, node)
	if err != nil {
		return false, err
	}
	if containsAnyFold(text, copyrightMarkers) {
		return true, nil
	}
	links, err := c.doc.QueryAllWithin(ctx, node, "a[href]")
	if err != nil {
		return false, err
	}
	for _, link := range links {
		linkText, err := c.doc.Text(ctx, link)
		if err != nil {
			continue
		}
		if containsAnyFold(linkText, policyLinkMarkers) {
			return true, nil
		}
	}
	return false, nil
}

func (c *Classifier) footerScored(ctx context.Context) (*Candidate, error) {
	return c.runScoredPass(ctx, footerScoredSuperset, c.scoreFooterCandidate)
}

func (c *Classifier) scoreFooterCandidate(ctx context.Context, cand *Candidate) error {
	add := func(points int, reason string) {
		cand.Score += points
		cand.Reasons = append(cand.Reasons, fmt.Sprintf("%+d %s", points, reason))
	}

	tag, err := c.doc.TagName(ctx, cand.Node)
	if err != nil {
		return err
	}
	if tag == "footer" {
		add(30, "semantic <footer> element")
	}
	role, _, err := c.doc.Attribute(ctx, cand.Node, "role")
	if err != nil {
		return err
	}
	if role == "contentinfo" {
		add(25, "contentinfo landmark role")
	}

	metrics, err := c.doc.Metrics(ctx)
	if err != nil {
		return err
	}
	box, hasBox, err := c.doc.BoundingBox(ctx, cand.Node)
	if err != nil {
		return err
	}
	if hasBox && metrics.DocumentHeight > 0 {
		switch {
		case box.Y+box.Height >= metrics.DocumentHeight*0.9:
			add(20, "at bottom of document")
		case box.Y >= metrics.DocumentHeight*0.6:
			add(10, "in lower document region")
		case box.Y < metrics.ViewportHeight:
			add(-20, "located at top of document")
		}
	}

	text, err := c.doc.Text(ctx, cand.Node)
	if err != nil {
		return err
	}
	if containsAnyFold(text, copyrightMarkers) {
		add(10, "contains copyright text")
	}
	if containsAnyFold(text, policyLinkMarkers) {
		add(10, "contains policy link text")
	}

	switch {
	case cand.LinkCount >= 3 && cand.LinkCount <= 60:
		add(5, "plausible footer link count")
	case cand.LinkCount > 60:
		add(-15, "excessive link count")
	}

	mismatch, err := c.classOrIDContains(ctx, cand.Node, footerMismatchWords)
	if err != nil {
		return err
	}
	if mismatch {
		add(-25, "mismatched structural keyword in class/id")
	}
	return nil
}

func (c *Classifier) footerAriaFallbackStrategy(ctx context.Context) (*Candidate, error) {
	nodes, err := c.doc.QueryAll(ctx, footerAriaFallback)
	if err != nil {
		return nil, err
	}
	for _, node := range nodes {
		visible, err := c.doc.Visible(ctx, node)
		if err != nil || !visible {
			continue
		}
		return &Candidate{
			Node:    node,
			Score:   confidenceFloor + 1,
			Reasons: []string{"relaxed footer landmark match"},
		}, nil
	}
	return nil, nil
}
