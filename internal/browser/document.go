// internal/browser/document.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	jsoniter "github.com/json-iterator/go"

	"github.com/navlens/navlens-cli/internal/page"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// tagAttribute marks elements handed out as NodeRefs. The attribute value
// is a per-page counter, so refs stay stable across queries while the
// element remains attached.
const tagAttribute = "data-navlens-id"

// jsString renders s as a JavaScript string literal.
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		// Marshal of a string cannot fail; keep the script well formed anyway.
		return `""`
	}
	return string(b)
}

// refSelector addresses a previously tagged element. Tag values are
// generated counters, so no escaping is needed.
func refSelector(node page.NodeRef) string {
	return fmt.Sprintf(`[%s=%q]`, tagAttribute, string(node))
}

// tagSnippet assigns a tracking attribute to an element if it lacks one
// and returns the value. Shared by all query scripts.
const tagSnippet = `
function tag(el) {
    if (!el.hasAttribute('data-navlens-id')) {
        window.__navlensSeq = (window.__navlensSeq || 0) + 1;
        el.setAttribute('data-navlens-id', 'nl-' + window.__navlensSeq);
    }
    return el.getAttribute('data-navlens-id');
}`

func queryScript(rootExpr, selector string, all bool) string {
	method := "querySelector"
	body := `
    const el = root.` + method + `(sel);
    return el ? [tag(el)] : [];`
	if all {
		method = "querySelectorAll"
		body = `
    return Array.from(root.` + method + `(sel), tag);`
	}
	return fmt.Sprintf(`(() => {%s
    const root = %s;
    if (!root) return null;
    const sel = %s;%s
})()`, tagSnippet, rootExpr, jsString(selector), body)
}

// resolveExpr locates a tagged element for element-scoped scripts.
func resolveExpr(node page.NodeRef) string {
	return fmt.Sprintf(`document.querySelector(%s)`, jsString(refSelector(node)))
}

func (s *Session) queryRefs(ctx context.Context, rootExpr, selector string, all bool) ([]page.NodeRef, error) {
	var ids []string
	if err := s.eval(ctx, queryScript(rootExpr, selector, all), &ids); err != nil {
		return nil, fmt.Errorf("query %q failed: %w", selector, err)
	}
	if ids == nil {
		return nil, fmt.Errorf("query root for %q is detached", selector)
	}
	refs := make([]page.NodeRef, len(ids))
	for i, id := range ids {
		refs[i] = page.NodeRef(id)
	}
	return refs, nil
}

// Query implements page.Document.
func (s *Session) Query(ctx context.Context, selector string) (page.NodeRef, bool, error) {
	refs, err := s.queryRefs(ctx, "document", selector, false)
	if err != nil || len(refs) == 0 {
		return "", false, err
	}
	return refs[0], true, nil
}

// QueryAll implements page.Document.
func (s *Session) QueryAll(ctx context.Context, selector string) ([]page.NodeRef, error) {
	return s.queryRefs(ctx, "document", selector, true)
}

// QueryWithin implements page.Document.
func (s *Session) QueryWithin(ctx context.Context, node page.NodeRef, selector string) (page.NodeRef, bool, error) {
	refs, err := s.queryRefs(ctx, resolveExpr(node), selector, false)
	if err != nil || len(refs) == 0 {
		return "", false, err
	}
	return refs[0], true, nil
}

// QueryAllWithin implements page.Document.
func (s *Session) QueryAllWithin(ctx context.Context, node page.NodeRef, selector string) ([]page.NodeRef, error) {
	return s.queryRefs(ctx, resolveExpr(node), selector, true)
}

// elementScript wraps body in a resolver for node. The body sees `el` and
// must return a JSON-serializable value; a null result means the element
// is detached.
func elementScript(node page.NodeRef, body string) string {
	return fmt.Sprintf(`(() => {
    const el = %s;
    if (!el) return null;
    %s
})()`, resolveExpr(node), body)
}

// evalElement runs an element-scoped script and decodes {ok,value} results.
func evalElement[T any](ctx context.Context, s *Session, node page.NodeRef, body string) (T, error) {
	var res *struct {
		Value T `json:"value"`
	}
	var zero T
	if err := s.eval(ctx, elementScript(node, body), &res); err != nil {
		return zero, err
	}
	if res == nil {
		return zero, fmt.Errorf("element %s is detached", node)
	}
	return res.Value, nil
}

// TagName implements page.Document.
func (s *Session) TagName(ctx context.Context, node page.NodeRef) (string, error) {
	return evalElement[string](ctx, s, node, `return {value: el.tagName.toLowerCase()};`)
}

// Attribute implements page.Document.
func (s *Session) Attribute(ctx context.Context, node page.NodeRef, name string) (string, bool, error) {
	type attr struct {
		Present bool   `json:"present"`
		Text    string `json:"text"`
	}
	body := fmt.Sprintf(`
    const name = %s;
    return {value: {present: el.hasAttribute(name), text: el.getAttribute(name) || ""}};`, jsString(name))
	v, err := evalElement[attr](ctx, s, node, body)
	if err != nil {
		return "", false, err
	}
	return v.Text, v.Present, nil
}

// Text implements page.Document.
func (s *Session) Text(ctx context.Context, node page.NodeRef) (string, error) {
	v, err := evalElement[string](ctx, s, node, `return {value: el.innerText !== undefined ? el.innerText : el.textContent || ""};`)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(v), nil
}

// ComputedStyle implements page.Document.
func (s *Session) ComputedStyle(ctx context.Context, node page.NodeRef, property string) (string, error) {
	body := fmt.Sprintf(`return {value: window.getComputedStyle(el).getPropertyValue(%s)};`, jsString(property))
	return evalElement[string](ctx, s, node, body)
}

// BoundingBox implements page.Document.
func (s *Session) BoundingBox(ctx context.Context, node page.NodeRef) (page.Box, bool, error) {
	type rect struct {
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
		HasBox bool    `json:"hasBox"`
	}
	// Rects are viewport-relative; add the scroll offset so boxes are in
	// document coordinates as positional scoring expects.
	body := `
    const r = el.getBoundingClientRect();
    return {value: {
        x: r.x + window.scrollX,
        y: r.y + window.scrollY,
        width: r.width,
        height: r.height,
        hasBox: r.width > 0 || r.height > 0
    }};`
	v, err := evalElement[rect](ctx, s, node, body)
	if err != nil {
		return page.Box{}, false, err
	}
	if !v.HasBox {
		return page.Box{}, false, nil
	}
	return page.Box{X: v.X, Y: v.Y, Width: v.Width, Height: v.Height}, true, nil
}

// Visible implements page.Document.
func (s *Session) Visible(ctx context.Context, node page.NodeRef) (bool, error) {
	body := `
    if (!el.isConnected) return {value: false};
    const style = window.getComputedStyle(el);
    if (style.display === 'none' || style.visibility === 'hidden' || style.opacity === '0') {
        return {value: false};
    }
    const r = el.getBoundingClientRect();
    return {value: r.width > 0 && r.height > 0};`
	return evalElement[bool](ctx, s, node, body)
}

// OuterHTML implements page.Document.
func (s *Session) OuterHTML(ctx context.Context, node page.NodeRef) (string, error) {
	return evalElement[string](ctx, s, node, `return {value: el.outerHTML};`)
}

// Metrics implements page.Document.
func (s *Session) Metrics(ctx context.Context) (page.Metrics, error) {
	var m struct {
		ViewportWidth  float64 `json:"viewportWidth"`
		ViewportHeight float64 `json:"viewportHeight"`
		DocumentHeight float64 `json:"documentHeight"`
	}
	script := `(() => ({
    viewportWidth: window.innerWidth,
    viewportHeight: window.innerHeight,
    documentHeight: document.documentElement.scrollHeight
}))()`
	if err := s.eval(ctx, script, &m); err != nil {
		return page.Metrics{}, fmt.Errorf("failed to read page metrics: %w", err)
	}
	return page.Metrics{
		ViewportWidth:  m.ViewportWidth,
		ViewportHeight: m.ViewportHeight,
		DocumentHeight: m.DocumentHeight,
	}, nil
}

// Click implements page.Document.
func (s *Session) Click(ctx context.Context, node page.NodeRef) error {
	return s.run(ctx, chromedp.Click(refSelector(node), chromedp.ByQuery))
}

// ForceClick implements page.Document.
func (s *Session) ForceClick(ctx context.Context, node page.NodeRef) error {
	_, err := evalElement[bool](ctx, s, node, `el.click(); return {value: true};`)
	return err
}

// ClickAt implements page.Document.
func (s *Session) ClickAt(ctx context.Context, x, y float64) error {
	return s.run(ctx, chromedp.MouseClickXY(x, y))
}

// keyForName maps DOM key names to the raw key strings chromedp expects.
func keyForName(key string) (string, error) {
	switch key {
	case "Escape":
		return kb.Escape, nil
	case "Tab":
		return kb.Tab, nil
	case "Enter":
		return kb.Enter, nil
	case "Backspace":
		return kb.Backspace, nil
	case "ArrowUp":
		return kb.ArrowUp, nil
	case "ArrowDown":
		return kb.ArrowDown, nil
	case "ArrowLeft":
		return kb.ArrowLeft, nil
	case "ArrowRight":
		return kb.ArrowRight, nil
	}
	if len([]rune(key)) == 1 {
		return key, nil
	}
	return "", fmt.Errorf("unsupported key %q", key)
}

// Press implements page.Document.
func (s *Session) Press(ctx context.Context, key string) error {
	raw, err := keyForName(key)
	if err != nil {
		return err
	}
	return s.run(ctx, chromedp.KeyEvent(raw))
}

// Focus implements page.Document.
func (s *Session) Focus(ctx context.Context, node page.NodeRef) error {
	return s.run(ctx, chromedp.Focus(refSelector(node), chromedp.ByQuery))
}

// ActiveWithin implements page.Document.
func (s *Session) ActiveWithin(ctx context.Context, node page.NodeRef) (bool, error) {
	return evalElement[bool](ctx, s, node, `return {value: el.contains(document.activeElement)};`)
}

// ScrollIntoView implements page.Document.
func (s *Session) ScrollIntoView(ctx context.Context, node page.NodeRef) error {
	_, err := evalElement[bool](ctx, s, node, `el.scrollIntoView({block: 'center', inline: 'nearest'}); return {value: true};`)
	return err
}

// WaitVisible implements page.Document.
func (s *Session) WaitVisible(ctx context.Context, node page.NodeRef, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	// Poll rather than chromedp.WaitVisible: the CDP wait only checks the
	// DOM visible flag, not opacity, which drawer transitions rely on.
	for {
		visible, err := s.Visible(waitCtx, node)
		if err == nil && visible {
			return nil
		}
		if err := page.Settle(waitCtx, 50*time.Millisecond); err != nil {
			return fmt.Errorf("element %s did not become visible within %v: %w", node, timeout, err)
		}
	}
}

var _ page.Document = (*Session)(nil)
