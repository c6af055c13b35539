package checks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/navlens/navlens-cli/internal/drawer"
	"github.com/navlens/navlens-cli/internal/findings"
	"github.com/navlens/navlens-cli/internal/overlay"
	"github.com/navlens/navlens-cli/internal/page"
	"github.com/navlens/navlens-cli/internal/page/pagetest"
	"github.com/navlens/navlens-cli/internal/regions"
)

func navInput(doc *pagetest.Doc) *Input {
	doc.Add("nav", pagetest.Node{Tag: "nav", Box: page.Box{Width: 1280, Height: 60}})
	return &Input{
		Doc:   doc,
		Page:  "https://shop.example/",
		RunID: "run-1",
		Nav:   regions.Result{Found: true, Node: "nav", Score: 100},
	}
}

// drawerInput wires a details/summary drawer whose Escape handling is
// controlled by the fixture.
func drawerInput(doc *pagetest.Doc, escapeCloses bool) *Input {
	root := doc.Add("details", pagetest.Node{Tag: "details"})
	dr := doc.Add("drawer", pagetest.Node{Tag: "nav", Hidden: true, Box: page.Box{Width: 320, Height: 600}})
	doc.Add("trigger", pagetest.Node{
		Tag: "summary",
		Box: page.Box{X: 8, Y: 8, Width: 44, Height: 44},
		OnClick: func(d *pagetest.Doc) {
			dr.Hidden = !dr.Hidden
			if dr.Hidden {
				delete(root.Attrs, "open")
			} else {
				root.Attrs["open"] = ""
			}
		},
	})
	if escapeCloses {
		doc.OnKey(func(d *pagetest.Doc, key string) {
			if key == "Escape" && !dr.Hidden {
				dr.Hidden = true
				delete(root.Attrs, "open")
			}
		})
	}

	ctrl := drawer.NewController(doc, overlay.NewGuard(zap.NewNop()), zap.NewNop())
	ctrl.Settle = time.Millisecond
	ctrl.Grace = time.Millisecond
	ctrl.OpenTimeout = 50 * time.Millisecond

	return &Input{
		Doc:   doc,
		Page:  "https://shop.example/",
		RunID: "run-1",
		Mobile: &regions.Descriptor{
			Trigger: "trigger",
			Drawer:  "drawer",
			Root:    "details",
			Pattern: regions.PatternDetailsSummary,
		},
		Drawer: ctrl,
	}
}

func TestTouchTargetFlagsSmallNavLinks(t *testing.T) {
	doc := pagetest.New()
	in := navInput(doc)
	doc.Add("small-link", pagetest.Node{Tag: "a", Box: page.Box{X: 10, Y: 10, Width: 80, Height: 18}})
	doc.Add("ok-link", pagetest.Node{Tag: "a", Box: page.Box{X: 120, Y: 5, Width: 80, Height: 48}})
	doc.SelectWithin("nav", interactiveSelector, "small-link", "ok-link")

	out, err := TouchTarget{}.Run(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "touch-target", out[0].Check)
	assert.Equal(t, findings.SeverityMinor, out[0].Severity)
	assert.Equal(t, "small-link", out[0].Selector)
	assert.JSONEq(t, `{"width": 80, "height": 18}`, string(out[0].Details))
}

func TestTouchTargetFlagsSmallMobileTrigger(t *testing.T) {
	doc := pagetest.New()
	in := drawerInput(doc, true)
	doc.Node("trigger").Box = page.Box{X: 8, Y: 8, Width: 24, Height: 24}

	out, err := TouchTarget{}.Run(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, findings.SeverityMajor, out[0].Severity)
	assert.Equal(t, "mobile-nav", out[0].Region)
}

func TestTouchTargetIgnoresHiddenLinks(t *testing.T) {
	doc := pagetest.New()
	in := navInput(doc)
	doc.Add("hidden-link", pagetest.Node{Tag: "a", Hidden: true})
	doc.SelectWithin("nav", interactiveSelector, "hidden-link")

	out, err := TouchTarget{}.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestKeyboardReachPasses(t *testing.T) {
	doc := pagetest.New()
	in := navInput(doc)
	doc.Add("link", pagetest.Node{Tag: "a", Box: page.Box{Width: 80, Height: 44}})
	doc.SelectWithin("nav", `a[href]`, "link")

	out, err := KeyboardReach{}.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestKeyboardReachFlagsNegativeTabindex(t *testing.T) {
	doc := pagetest.New()
	in := navInput(doc)
	doc.Add("link", pagetest.Node{
		Tag:   "a",
		Attrs: map[string]string{"tabindex": "-1"},
		Box:   page.Box{Width: 80, Height: 44},
	})
	doc.SelectWithin("nav", `a[href]`, "link")

	out, err := KeyboardReach{}.Run(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, findings.SeverityMajor, out[0].Severity)
	assert.Contains(t, out[0].Message, "tabindex")
}

func TestKeyboardReachSkipsWithoutNav(t *testing.T) {
	doc := pagetest.New()
	in := &Input{Doc: doc, Page: "https://shop.example/", RunID: "run-1"}

	out, err := KeyboardReach{}.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestEscapeClosePasses(t *testing.T) {
	doc := pagetest.New()
	in := drawerInput(doc, true)

	out, err := EscapeClose{}.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestEscapeCloseFlagsStuckDrawer(t *testing.T) {
	doc := pagetest.New()
	in := drawerInput(doc, false)

	out, err := EscapeClose{}.Run(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "escape-close", out[0].Check)
	assert.Equal(t, findings.SeverityMajor, out[0].Severity)

	// The check cleaned up after itself.
	open, err := in.Drawer.IsOpen(context.Background(), in.Mobile)
	require.NoError(t, err)
	assert.False(t, open)
}

func TestFocusContainmentPasses(t *testing.T) {
	doc := pagetest.New()
	in := drawerInput(doc, true)
	doc.Add("drawer-link", pagetest.Node{Tag: "a", Box: page.Box{Width: 200, Height: 44}})
	doc.SelectWithin("drawer", interactiveSelector, "drawer-link")

	out, err := FocusContainment{}.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestFocusContainmentFlagsEscapedFocus(t *testing.T) {
	doc := pagetest.New()
	in := drawerInput(doc, true)
	doc.Add("drawer-link", pagetest.Node{Tag: "a", Box: page.Box{Width: 200, Height: 44}})
	doc.Add("outside", pagetest.Node{Tag: "a", Box: page.Box{Width: 80, Height: 44}})
	doc.SelectWithin("drawer", interactiveSelector, "drawer-link")
	// Tab jumps straight out of the drawer.
	doc.OnKey(func(d *pagetest.Doc, key string) {
		if key == "Tab" {
			_ = d.Focus(context.Background(), "outside")
		}
	})

	out, err := FocusContainment{}.Run(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "focus-containment", out[0].Check)
	assert.Contains(t, out[0].Message, "focus escaped")
}

func TestFocusContainmentFlagsEmptyDrawer(t *testing.T) {
	doc := pagetest.New()
	in := drawerInput(doc, true)

	out, err := FocusContainment{}.Run(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Message, "no focusable controls")
}

func TestContrastFlagsLowRatio(t *testing.T) {
	doc := pagetest.New()
	in := navInput(doc)
	doc.Node("nav").Styles["background-color"] = "rgb(255, 255, 255)"
	doc.Add("faint-link", pagetest.Node{
		Tag:    "a",
		Styles: map[string]string{"color": "rgb(200, 200, 200)", "background-color": "transparent"},
		Box:    page.Box{Width: 80, Height: 44},
	})
	doc.Add("solid-link", pagetest.Node{
		Tag:    "a",
		Styles: map[string]string{"color": "rgb(0, 0, 0)", "background-color": "transparent"},
		Box:    page.Box{X: 100, Width: 80, Height: 44},
	})
	doc.SelectWithin("nav", `a[href]`, "faint-link", "solid-link")

	out, err := Contrast{}.Run(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "faint-link", out[0].Selector)
	assert.Contains(t, out[0].Message, "contrast")
}

func TestContrastSkipsUnresolvableBackground(t *testing.T) {
	doc := pagetest.New()
	in := navInput(doc)
	doc.Add("link", pagetest.Node{
		Tag:    "a",
		Styles: map[string]string{"color": "rgb(200, 200, 200)", "background-color": "transparent"},
		Box:    page.Box{Width: 80, Height: 44},
	})
	doc.SelectWithin("nav", `a[href]`, "link")

	out, err := Contrast{}.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, out, "no opaque backdrop means no verdict")
}

type failingCheck struct{}

func (failingCheck) Name() string { return "failing" }
func (failingCheck) Run(ctx context.Context, in *Input) ([]findings.Finding, error) {
	return nil, errors.New("boom")
}

func TestRunnerIsolatesCheckFaults(t *testing.T) {
	doc := pagetest.New()
	in := navInput(doc)
	doc.Add("small-link", pagetest.Node{Tag: "a", Box: page.Box{Width: 80, Height: 18}})
	doc.SelectWithin("nav", interactiveSelector, "small-link")

	r := NewRunner(zap.NewNop(), failingCheck{}, &TouchTarget{})
	out, err := r.RunAll(context.Background(), in)
	require.NoError(t, err)
	assert.Len(t, out, 1, "the failing check must not suppress later checks")
}

func TestRunnerStopsOnCancellation(t *testing.T) {
	doc := pagetest.New()
	in := navInput(doc)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(zap.NewNop(), &TouchTarget{})
	_, err := r.RunAll(ctx, in)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindingsCarryRunIdentity(t *testing.T) {
	doc := pagetest.New()
	in := navInput(doc)
	doc.Add("small-link", pagetest.Node{Tag: "a", Box: page.Box{Width: 80, Height: 18}})
	doc.SelectWithin("nav", interactiveSelector, "small-link")

	out, err := TouchTarget{}.Run(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.NotEmpty(t, out[0].ID)
	assert.Equal(t, "run-1", out[0].RunID)
	assert.Equal(t, "https://shop.example/", out[0].Page)
	assert.False(t, out[0].ObservedAt.IsZero())
}
