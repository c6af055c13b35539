// internal/regions/classifier.go
package regions

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/navlens/navlens-cli/internal/page"
)

// confidenceFloor is the minimum score a scored-pass winner must exceed.
// Fast-path and fallback strategies bypass it; they carry their own
// validators.
const confidenceFloor = 25

// Classifier locates semantic regions (primary navigation, footer, mobile
// nav) inside an arbitrary, unlabeled document. Strategies run in a fixed
// order per kind: reliable fast-path selectors first, then a scored
// candidate pass, then relaxed ARIA and structural fallbacks. The first
// strategy that produces a validated candidate wins.
type Classifier struct {
	doc page.Document
	log *zap.Logger
}

// NewClassifier returns a classifier bound to one rendered page.
func NewClassifier(doc page.Document, log *zap.Logger) *Classifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Classifier{doc: doc, log: log.Named("classifier")}
}

// strategy produces a candidate or nil. Errors from individual element
// evaluations are swallowed inside the strategy; an error escaping here
// aborts only the strategy, never the pass.
type strategy struct {
	name string
	run  func(ctx context.Context) (*Candidate, error)
}

// Classify locates the requested region. Absence is a normal outcome and
// is reported as Result{Found: false}; the method returns an error only
// for context cancellation.
func (c *Classifier) Classify(ctx context.Context, kind Kind) (Result, error) {
	if kind == KindMobileNav {
		desc, ok, err := c.ClassifyMobileNav(ctx)
		if err != nil || !ok {
			return notFound, err
		}
		return Result{Found: true, Node: desc.Trigger, Score: desc.Score, Reasons: desc.Reasons}, nil
	}

	var strategies []strategy
	switch kind {
	case KindPrimaryNav:
		strategies = c.navStrategies()
	case KindFooter:
		strategies = c.footerStrategies()
	default:
		return notFound, nil
	}

	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return notFound, err
		}
		cand, err := s.run(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return notFound, ctx.Err()
			}
			c.log.Debug("strategy failed, trying next",
				zap.String("kind", kind.String()),
				zap.String("strategy", s.name),
				zap.Error(err))
			continue
		}
		if cand == nil {
			continue
		}
		c.log.Debug("region classified",
			zap.String("kind", kind.String()),
			zap.String("strategy", s.name),
			zap.Int("score", cand.Score),
			zap.Strings("reasons", cand.Reasons))
		return Result{Found: true, Node: cand.Node, Score: cand.Score, Reasons: cand.Reasons}, nil
	}

	c.log.Debug("no region found", zap.String("kind", kind.String()))
	return notFound, nil
}

// fastPath is a known, highly reliable selector paired with a content
// validator. The first visible match that validates short-circuits the
// scored pass.
type fastPath struct {
	selector string
	reason   string
	validate func(ctx context.Context, node page.NodeRef) (bool, error)
}

func (c *Classifier) runFastPaths(ctx context.Context, paths []fastPath) (*Candidate, error) {
	for _, fp := range paths {
		nodes, err := c.doc.QueryAll(ctx, fp.selector)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		for _, node := range nodes {
			visible, err := c.doc.Visible(ctx, node)
			if err != nil || !visible {
				continue
			}
			ok, err := fp.validate(ctx, node)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				c.log.Debug("fast-path validation error, skipping element",
					zap.String("selector", fp.selector), zap.Error(err))
				continue
			}
			if !ok {
				continue
			}
			return &Candidate{
				Node:    node,
				Score:   100,
				Reasons: []string{fp.reason},
			}, nil
		}
	}
	return nil, nil
}

// scoreFunc assigns an additive/subtractive score to one visible element.
type scoreFunc func(ctx context.Context, cand *Candidate) error

// runScoredPass visits every element of a broad structural superset,
// scores the visible ones, discards non-positive scores and returns the
// top candidate when it clears the confidence floor. Ties keep the
// first-encountered element: the sort is stable and the visiting order
// follows the DOM.
func (c *Classifier) runScoredPass(ctx context.Context, superset string, score scoreFunc) (*Candidate, error) {
	nodes, err := c.doc.QueryAll(ctx, superset)
	if err != nil {
		return nil, err
	}

	seen := make(map[page.NodeRef]bool, len(nodes))
	candidates := make([]*Candidate, 0, len(nodes))
	for _, node := range nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if seen[node] {
			continue
		}
		seen[node] = true

		visible, err := c.doc.Visible(ctx, node)
		if err != nil || !visible {
			// Evaluation faults discard the candidate, not the pass.
			continue
		}

		cand := &Candidate{Node: node}
		if err := c.describe(ctx, cand); err != nil {
			c.log.Debug("candidate evaluation failed, skipping", zap.Error(err))
			continue
		}
		if err := score(ctx, cand); err != nil {
			c.log.Debug("candidate scoring failed, skipping", zap.Error(err))
			continue
		}
		c.log.Debug("candidate scored",
			zap.String("class", cand.Class),
			zap.Int("score", cand.Score),
			zap.Int("links", cand.LinkCount),
			zap.Strings("reasons", cand.Reasons))
		if cand.Score <= 0 {
			continue
		}
		candidates = append(candidates, cand)
	}

	if len(candidates) == 0 {
		return nil, nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if candidates[0].Score <= confidenceFloor {
		return nil, nil
	}
	return candidates[0], nil
}

// describe fills the candidate's derived metrics.
func (c *Classifier) describe(ctx context.Context, cand *Candidate) error {
	class, _, err := c.doc.Attribute(ctx, cand.Node, "class")
	if err != nil {
		return err
	}
	cand.Class = class
	label, _, err := c.doc.Attribute(ctx, cand.Node, "aria-label")
	if err != nil {
		return err
	}
	cand.AriaLabel = label
	visible, _, err := c.visibleLinks(ctx, cand.Node)
	if err != nil {
		return err
	}
	cand.LinkCount = visible
	return nil
}

// visibleLinks counts the visible anchors inside a node, and how many of
// them point at catalog-ish destinations.
func (c *Classifier) visibleLinks(ctx context.Context, node page.NodeRef) (visible, catalog int, err error) {
	links, err := c.doc.QueryAllWithin(ctx, node, "a[href]")
	if err != nil {
		return 0, 0, err
	}
	for _, link := range links {
		ok, err := c.doc.Visible(ctx, link)
		if err != nil || !ok {
			continue
		}
		visible++
		href, _, err := c.doc.Attribute(ctx, link, "href")
		if err != nil {
			continue
		}
		if isCatalogHref(href) {
			catalog++
		}
	}
	return visible, catalog, nil
}

func isCatalogHref(href string) bool {
	href = strings.ToLower(href)
	for _, marker := range []string{"/collections", "/products", "/category", "/categories", "/shop", "/c/"} {
		if strings.Contains(href, marker) {
			return true
		}
	}
	return false
}

// classOrIDContains reports whether the element's class or id contains any
// of the given keywords, case-insensitively.
func (c *Classifier) classOrIDContains(ctx context.Context, node page.NodeRef, keywords []string) (bool, error) {
	class, _, err := c.doc.Attribute(ctx, node, "class")
	if err != nil {
		return false, err
	}
	id, _, err := c.doc.Attribute(ctx, node, "id")
	if err != nil {
		return false, err
	}
	haystack := strings.ToLower(class + " " + id)
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			return true, nil
		}
	}
	return false, nil
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
