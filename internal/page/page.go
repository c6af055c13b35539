// internal/page/page.go
package page

import (
	"context"
	"time"
)

// NodeRef is an opaque handle to a live element in the rendered document.
// It is not owned by the caller: the referenced element can be detached or
// mutated by the page at any time, and every operation on it may fail.
type NodeRef string

// Box is the bounding rectangle of an element in CSS pixels, relative to
// the top-left corner of the document.
type Box struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Area returns the box surface in square CSS pixels.
func (b Box) Area() float64 {
	return b.Width * b.Height
}

// Metrics describes the page geometry used by positional scoring signals.
type Metrics struct {
	ViewportWidth  float64
	ViewportHeight float64
	DocumentHeight float64
}

// Document is the query capability exposed by a rendered, interactive page.
// It is the only surface the classifier, controller and guard depend on;
// the browser package provides a CDP-backed implementation and pagetest
// provides a scripted fake.
//
// All methods are blocking, carry a context, and may return transient
// errors when the underlying element has been detached or the page is
// mid-mutation. Callers are expected to treat such errors as "skip", not
// as fatal.
type Document interface {
	// Query returns the first visible-or-not match for a CSS selector.
	// The boolean reports whether a match exists; absence is not an error.
	Query(ctx context.Context, selector string) (NodeRef, bool, error)
	// QueryAll returns every match for a CSS selector in DOM order.
	QueryAll(ctx context.Context, selector string) ([]NodeRef, error)
	// QueryWithin scopes Query to the subtree rooted at node.
	QueryWithin(ctx context.Context, node NodeRef, selector string) (NodeRef, bool, error)
	// QueryAllWithin scopes QueryAll to the subtree rooted at node.
	QueryAllWithin(ctx context.Context, node NodeRef, selector string) ([]NodeRef, error)

	// TagName returns the lowercase element tag name.
	TagName(ctx context.Context, node NodeRef) (string, error)
	// Attribute reads an attribute; the boolean reports presence.
	Attribute(ctx context.Context, node NodeRef, name string) (string, bool, error)
	// Text returns the trimmed visible text content of the subtree.
	Text(ctx context.Context, node NodeRef) (string, error)
	// ComputedStyle reads a single computed CSS property value.
	ComputedStyle(ctx context.Context, node NodeRef, property string) (string, error)
	// BoundingBox returns the element geometry. The boolean is false when
	// the element has no layout box (display:none, detached).
	BoundingBox(ctx context.Context, node NodeRef) (Box, bool, error)
	// Visible reports whether the element is actually rendered: attached,
	// non-zero area, not display:none / visibility:hidden / opacity:0.
	Visible(ctx context.Context, node NodeRef) (bool, error)
	// OuterHTML serializes the element subtree.
	OuterHTML(ctx context.Context, node NodeRef) (string, error)

	// Metrics returns viewport and document geometry.
	Metrics(ctx context.Context) (Metrics, error)

	// Click issues a real, non-forced simulated click. It fails when the
	// element is obscured or non-actionable.
	Click(ctx context.Context, node NodeRef) error
	// ForceClick dispatches a click event directly, bypassing hit testing.
	ForceClick(ctx context.Context, node NodeRef) error
	// ClickAt clicks document coordinates rather than an element. Used to
	// hit a popup's own surface when it has no close control.
	ClickAt(ctx context.Context, x, y float64) error
	// Press sends a key (e.g. "Escape", "Tab") to the focused element.
	Press(ctx context.Context, key string) error
	// Focus moves keyboard focus to the element.
	Focus(ctx context.Context, node NodeRef) error
	// ActiveWithin reports whether the current document.activeElement is
	// the node or one of its descendants.
	ActiveWithin(ctx context.Context, node NodeRef) (bool, error)
	// ScrollIntoView scrolls the element into the viewport.
	ScrollIntoView(ctx context.Context, node NodeRef) error
	// WaitVisible blocks until the element reports visible or the timeout
	// elapses. A timeout is returned as an error; callers decide whether
	// that is fatal.
	WaitVisible(ctx context.Context, node NodeRef, timeout time.Duration) error
}

// Settle pauses for the given duration or until the context is done.
// Drawer animations expose no completion signal, so fixed settle delays
// are used at interaction boundaries throughout the core.
func Settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
