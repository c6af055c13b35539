// internal/page/pagetest/doc.go
package pagetest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/navlens/navlens-cli/internal/page"
)

// Node is a scripted element in a fake document. Zero values are sensible:
// a node with no styles and a non-zero box is visible.
type Node struct {
	Tag    string
	Attrs  map[string]string
	Styles map[string]string
	Text   string
	HTML   string
	Box    page.Box
	Hidden bool
	// Err, when set, is returned by every operation touching this node.
	// Simulates an element detached mid-query.
	Err error
	// OnClick mutates the document in response to a click, the way a real
	// page's script would (toggle a drawer, dismiss a banner).
	OnClick func(d *Doc)

	parent *Node
	id     page.NodeRef
}

// Ref returns the node's handle.
func (n *Node) Ref() page.NodeRef { return n.id }

// Doc is an in-memory page.Document for unit tests. Selectors are not
// parsed: tests register which selector strings resolve to which nodes,
// and everything unregistered resolves to no match.
type Doc struct {
	nodes     map[page.NodeRef]*Node
	selectors map[string][]page.NodeRef
	within    map[page.NodeRef]map[string][]page.NodeRef
	onKey     []func(d *Doc, key string)
	metrics   page.Metrics
	active    page.NodeRef

	onClickAt []func(d *Doc, x, y float64)

	// Interaction records, for assertions.
	Clicks       []page.NodeRef
	ForcedClicks []page.NodeRef
	ClickAts     [][2]float64
	Keys         []string
}

var _ page.Document = (*Doc)(nil)

// New creates an empty fake document with a desktop-ish geometry.
func New() *Doc {
	return &Doc{
		nodes:     make(map[page.NodeRef]*Node),
		selectors: make(map[string][]page.NodeRef),
		within:    make(map[page.NodeRef]map[string][]page.NodeRef),
		metrics:   page.Metrics{ViewportWidth: 1280, ViewportHeight: 800, DocumentHeight: 2400},
	}
}

// SetMetrics overrides the page geometry.
func (d *Doc) SetMetrics(m page.Metrics) { d.metrics = m }

// Add registers a node under the given handle and returns it for further
// scripting. A missing box defaults to a visible 100x40 rectangle.
func (d *Doc) Add(id string, n Node) *Node {
	if n.Box == (page.Box{}) && !n.Hidden {
		n.Box = page.Box{X: 0, Y: 0, Width: 100, Height: 40}
	}
	if n.Attrs == nil {
		n.Attrs = map[string]string{}
	}
	if n.Styles == nil {
		n.Styles = map[string]string{}
	}
	n.id = page.NodeRef(id)
	d.nodes[n.id] = &n
	return &n
}

// Node returns a previously added node.
func (d *Doc) Node(id string) *Node { return d.nodes[page.NodeRef(id)] }

// Select maps a document-wide selector to the given node handles, in order.
func (d *Doc) Select(selector string, ids ...string) {
	refs := make([]page.NodeRef, len(ids))
	for i, id := range ids {
		refs[i] = page.NodeRef(id)
	}
	d.selectors[selector] = refs
}

// Unselect removes a selector registration (e.g. a dismissed banner).
func (d *Doc) Unselect(selector string) { delete(d.selectors, selector) }

// SelectWithin maps a selector scoped to root's subtree. It also marks the
// targets as descendants of root for ActiveWithin.
func (d *Doc) SelectWithin(root string, selector string, ids ...string) {
	rootRef := page.NodeRef(root)
	if d.within[rootRef] == nil {
		d.within[rootRef] = make(map[string][]page.NodeRef)
	}
	refs := make([]page.NodeRef, len(ids))
	for i, id := range ids {
		refs[i] = page.NodeRef(id)
		if child := d.nodes[refs[i]]; child != nil {
			child.parent = d.nodes[rootRef]
		}
	}
	d.within[rootRef][selector] = refs
}

// OnKey registers a handler invoked for every Press, like a page-level
// keydown listener.
func (d *Doc) OnKey(fn func(d *Doc, key string)) { d.onKey = append(d.onKey, fn) }

// OnClickAt registers a handler for coordinate clicks.
func (d *Doc) OnClickAt(fn func(d *Doc, x, y float64)) { d.onClickAt = append(d.onClickAt, fn) }

func (d *Doc) get(node page.NodeRef) (*Node, error) {
	n, ok := d.nodes[node]
	if !ok {
		return nil, fmt.Errorf("pagetest: unknown node %q", node)
	}
	if n.Err != nil {
		return nil, n.Err
	}
	return n, nil
}

func (d *Doc) isVisible(n *Node) bool {
	if n.Hidden {
		return false
	}
	if n.Box.Width <= 0 || n.Box.Height <= 0 {
		return false
	}
	if n.Styles["display"] == "none" || n.Styles["visibility"] == "hidden" {
		return false
	}
	if op, ok := n.Styles["opacity"]; ok && strings.TrimSpace(op) == "0" {
		return false
	}
	return true
}

// -- page.Document implementation --

func (d *Doc) Query(ctx context.Context, selector string) (page.NodeRef, bool, error) {
	refs, err := d.QueryAll(ctx, selector)
	if err != nil || len(refs) == 0 {
		return "", false, err
	}
	return refs[0], true, nil
}

func (d *Doc) QueryAll(ctx context.Context, selector string) ([]page.NodeRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	refs := d.selectors[selector]
	out := make([]page.NodeRef, 0, len(refs))
	for _, r := range refs {
		if _, ok := d.nodes[r]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (d *Doc) QueryWithin(ctx context.Context, node page.NodeRef, selector string) (page.NodeRef, bool, error) {
	refs, err := d.QueryAllWithin(ctx, node, selector)
	if err != nil || len(refs) == 0 {
		return "", false, err
	}
	return refs[0], true, nil
}

func (d *Doc) QueryAllWithin(ctx context.Context, node page.NodeRef, selector string) ([]page.NodeRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := d.get(node); err != nil {
		return nil, err
	}
	return d.within[node][selector], nil
}

func (d *Doc) TagName(ctx context.Context, node page.NodeRef) (string, error) {
	n, err := d.get(node)
	if err != nil {
		return "", err
	}
	return strings.ToLower(n.Tag), nil
}

func (d *Doc) Attribute(ctx context.Context, node page.NodeRef, name string) (string, bool, error) {
	n, err := d.get(node)
	if err != nil {
		return "", false, err
	}
	v, ok := n.Attrs[name]
	return v, ok, nil
}

func (d *Doc) Text(ctx context.Context, node page.NodeRef) (string, error) {
	n, err := d.get(node)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(n.Text), nil
}

func (d *Doc) ComputedStyle(ctx context.Context, node page.NodeRef, property string) (string, error) {
	n, err := d.get(node)
	if err != nil {
		return "", err
	}
	return n.Styles[property], nil
}

func (d *Doc) BoundingBox(ctx context.Context, node page.NodeRef) (page.Box, bool, error) {
	n, err := d.get(node)
	if err != nil {
		return page.Box{}, false, err
	}
	if n.Styles["display"] == "none" {
		return page.Box{}, false, nil
	}
	return n.Box, true, nil
}

func (d *Doc) Visible(ctx context.Context, node page.NodeRef) (bool, error) {
	n, err := d.get(node)
	if err != nil {
		return false, err
	}
	return d.isVisible(n), nil
}

func (d *Doc) OuterHTML(ctx context.Context, node page.NodeRef) (string, error) {
	n, err := d.get(node)
	if err != nil {
		return "", err
	}
	return n.HTML, nil
}

func (d *Doc) Metrics(ctx context.Context) (page.Metrics, error) {
	if err := ctx.Err(); err != nil {
		return page.Metrics{}, err
	}
	return d.metrics, nil
}

func (d *Doc) Click(ctx context.Context, node page.NodeRef) error {
	n, err := d.get(node)
	if err != nil {
		return err
	}
	d.Clicks = append(d.Clicks, node)
	if n.OnClick != nil {
		n.OnClick(d)
	}
	return nil
}

func (d *Doc) ForceClick(ctx context.Context, node page.NodeRef) error {
	n, err := d.get(node)
	if err != nil {
		return err
	}
	d.ForcedClicks = append(d.ForcedClicks, node)
	if n.OnClick != nil {
		n.OnClick(d)
	}
	return nil
}

func (d *Doc) ClickAt(ctx context.Context, x, y float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.ClickAts = append(d.ClickAts, [2]float64{x, y})
	for _, fn := range d.onClickAt {
		fn(d, x, y)
	}
	return nil
}

func (d *Doc) Press(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.Keys = append(d.Keys, key)
	for _, fn := range d.onKey {
		fn(d, key)
	}
	return nil
}

func (d *Doc) Focus(ctx context.Context, node page.NodeRef) error {
	if _, err := d.get(node); err != nil {
		return err
	}
	d.active = node
	return nil
}

func (d *Doc) ActiveWithin(ctx context.Context, node page.NodeRef) (bool, error) {
	if _, err := d.get(node); err != nil {
		return false, err
	}
	cur := d.nodes[d.active]
	for cur != nil {
		if cur.id == node {
			return true, nil
		}
		cur = cur.parent
	}
	return false, nil
}

func (d *Doc) ScrollIntoView(ctx context.Context, node page.NodeRef) error {
	_, err := d.get(node)
	return err
}

func (d *Doc) WaitVisible(ctx context.Context, node page.NodeRef, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := d.Visible(ctx, node)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("pagetest: node %q not visible after %s", node, timeout)
		}
		if err := page.Settle(ctx, time.Millisecond); err != nil {
			return err
		}
	}
}
