// internal/overlay/guard_test.go
package overlay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/navlens/navlens-cli/internal/page"
	"github.com/navlens/navlens-cli/internal/page/pagetest"
)

func newTestGuard() *Guard {
	g := NewGuard(zap.NewNop())
	g.TierSettle = time.Millisecond
	return g
}

func TestDismissViaEscape(t *testing.T) {
	doc := pagetest.New()
	modal := doc.Add("modal", pagetest.Node{
		Tag:   "div",
		Attrs: map[string]string{"role": "dialog"},
		Box:   page.Box{X: 300, Y: 200, Width: 600, Height: 400},
	})
	doc.Select(popupSelector, "modal")
	doc.OnKey(func(d *pagetest.Doc, key string) {
		if key == "Escape" {
			modal.Hidden = true
		}
	})

	g := newTestGuard()
	require.NoError(t, g.DismissWithGuards(context.Background(), doc, nil))
	assert.True(t, modal.Hidden)
	assert.Equal(t, []string{"Escape"}, doc.Keys)
	assert.Empty(t, doc.Clicks, "escape sufficed, no click tiers needed")
}

func TestDismissViaCloseControl(t *testing.T) {
	doc := pagetest.New()
	modal := doc.Add("modal", pagetest.Node{
		Tag:   "div",
		Attrs: map[string]string{"role": "dialog"},
		Box:   page.Box{X: 300, Y: 200, Width: 600, Height: 400},
	})
	doc.Add("close-btn", pagetest.Node{
		Tag:   "button",
		Attrs: map[string]string{"aria-label": "Close dialog"},
		Box:   page.Box{X: 860, Y: 210, Width: 32, Height: 32},
		OnClick: func(d *pagetest.Doc) {
			modal.Hidden = true
		},
	})
	doc.Select(popupSelector, "modal")
	doc.SelectWithin("modal", closeControlSelector, "close-btn")

	g := newTestGuard()
	require.NoError(t, g.DismissWithGuards(context.Background(), doc, nil))
	assert.True(t, modal.Hidden)
	assert.Contains(t, doc.Clicks, page.NodeRef("close-btn"))
	assert.Empty(t, doc.ClickAts, "close control sufficed, surface click not needed")
}

func TestDismissViaSurfaceClick(t *testing.T) {
	doc := pagetest.New()
	banner := doc.Add("banner", pagetest.Node{
		Tag:   "div",
		Attrs: map[string]string{"id": "onetrust-banner-sdk"},
		Box:   page.Box{X: 0, Y: 600, Width: 1280, Height: 200},
	})
	doc.Select(popupSelector, "banner")
	doc.OnClickAt(func(d *pagetest.Doc, x, y float64) {
		banner.Hidden = true
	})

	g := newTestGuard()
	require.NoError(t, g.DismissWithGuards(context.Background(), doc, nil))
	assert.True(t, banner.Hidden)
	require.Len(t, doc.ClickAts, 1)
	assert.Equal(t, [2]float64{5, 605}, doc.ClickAts[0], "surface click lands near the top-left corner")
}

func TestNavishDialogIsLeftAlone(t *testing.T) {
	doc := pagetest.New()
	drawer := doc.Add("cart-drawer", pagetest.Node{
		Tag:   "aside",
		Attrs: map[string]string{"role": "dialog", "class": "cart-drawer is-open"},
		Box:   page.Box{X: 960, Y: 0, Width: 320, Height: 800},
	})
	doc.Select(popupSelector, "cart-drawer")

	g := newTestGuard()
	require.NoError(t, g.DismissWithGuards(context.Background(), doc, nil))
	assert.False(t, drawer.Hidden)
	assert.Empty(t, doc.Keys, "navigation-like panels must never be dismissed")
	assert.Empty(t, doc.ClickAts)
}

func TestHiddenPopupIsSkipped(t *testing.T) {
	doc := pagetest.New()
	doc.Add("modal", pagetest.Node{
		Tag:    "div",
		Attrs:  map[string]string{"role": "dialog"},
		Hidden: true,
	})
	doc.Select(popupSelector, "modal")

	g := newTestGuard()
	require.NoError(t, g.DismissWithGuards(context.Background(), doc, nil))
	assert.Empty(t, doc.Keys)
	assert.Empty(t, doc.ClickAts)
}

// A modal overlay whose Escape handler also collapses the mobile-nav
// drawer: after the pass the drawer must be open again because the guard
// reopened it.
func TestGuardReopensCollateralDamage(t *testing.T) {
	doc := pagetest.New()
	modal := doc.Add("modal", pagetest.Node{
		Tag:   "div",
		Attrs: map[string]string{"role": "dialog"},
		Box:   page.Box{X: 300, Y: 200, Width: 600, Height: 400},
	})
	doc.Select(popupSelector, "modal")

	drawerOpen := true
	doc.OnKey(func(d *pagetest.Doc, key string) {
		if key == "Escape" {
			modal.Hidden = true
			drawerOpen = false
		}
	})

	reopened := 0
	target := GuardedTarget{
		Name: "mobile-nav",
		IsOpen: func(ctx context.Context) (bool, error) {
			return drawerOpen, nil
		},
		Reopen: func(ctx context.Context) error {
			reopened++
			drawerOpen = true
			return nil
		},
		Settle: time.Millisecond,
	}

	g := newTestGuard()
	require.NoError(t, g.DismissWithGuards(context.Background(), doc, []GuardedTarget{target}))
	assert.True(t, modal.Hidden, "the popup itself is gone")
	assert.True(t, drawerOpen, "the drawer is open again")
	assert.Equal(t, 1, reopened)
}

func TestGuardSkipsTargetsStillOpen(t *testing.T) {
	doc := pagetest.New()

	reopened := 0
	target := GuardedTarget{
		Name:   "mobile-nav",
		IsOpen: func(ctx context.Context) (bool, error) { return true, nil },
		Reopen: func(ctx context.Context) error { reopened++; return nil },
	}

	g := newTestGuard()
	require.NoError(t, g.DismissWithGuards(context.Background(), doc, []GuardedTarget{target}))
	assert.Zero(t, reopened, "an unaffected target is not touched")
}

func TestGuardIsolatesTargetFaults(t *testing.T) {
	doc := pagetest.New()

	secondChecked := false
	targets := []GuardedTarget{
		{
			Name:   "broken",
			IsOpen: func(ctx context.Context) (bool, error) { return false, errors.New("stale handle") },
			Reopen: func(ctx context.Context) error { return nil },
		},
		{
			Name: "healthy",
			IsOpen: func(ctx context.Context) (bool, error) {
				secondChecked = true
				return true, nil
			},
			Reopen: func(ctx context.Context) error { return nil },
		},
	}

	g := newTestGuard()
	require.NoError(t, g.DismissWithGuards(context.Background(), doc, targets))
	assert.True(t, secondChecked, "one faulty target must not block the rest")
}

func TestDismissAllHandlesMultiplePopups(t *testing.T) {
	doc := pagetest.New()
	cookie := doc.Add("cookie", pagetest.Node{
		Tag:   "div",
		Attrs: map[string]string{"class": "cookie-consent-wrapper"},
		Box:   page.Box{X: 0, Y: 700, Width: 1280, Height: 100},
	})
	news := doc.Add("newsletter", pagetest.Node{
		Tag:   "div",
		Attrs: map[string]string{"class": "newsletter-popup"},
		Box:   page.Box{X: 400, Y: 250, Width: 480, Height: 300},
	})
	doc.Select(popupSelector, "cookie", "newsletter")
	doc.OnKey(func(d *pagetest.Doc, key string) {
		if key == "Escape" {
			// Escape only reaches the focused newsletter modal.
			news.Hidden = true
		}
	})
	doc.OnClickAt(func(d *pagetest.Doc, x, y float64) {
		cookie.Hidden = true
	})

	g := newTestGuard()
	require.NoError(t, g.DismissWithGuards(context.Background(), doc, nil))
	assert.True(t, cookie.Hidden)
	assert.True(t, news.Hidden)
}

func TestDismissRespectsCancellation(t *testing.T) {
	doc := pagetest.New()
	doc.Add("modal", pagetest.Node{
		Tag:   "div",
		Attrs: map[string]string{"role": "dialog"},
		Box:   page.Box{X: 300, Y: 200, Width: 600, Height: 400},
	})
	doc.Select(popupSelector, "modal")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := newTestGuard()
	err := g.DismissWithGuards(ctx, doc, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
