package checks

import (
	"context"
	"fmt"

	"github.com/navlens/navlens-cli/internal/findings"
	"github.com/navlens/navlens-cli/internal/page"
)

// focusTabPresses bounds the containment probe. Enough to walk past a
// short drawer menu; not enough to crawl a mega-menu link by link.
const focusTabPresses = 5

// FocusContainment opens the mobile drawer, focuses its first focusable
// element and tabs forward, verifying focus stays inside the drawer while
// it is open. Focus escaping an open drawer strands keyboard users on
// content hidden behind it.
type FocusContainment struct{}

func (FocusContainment) Name() string { return "focus-containment" }

func (c FocusContainment) Run(ctx context.Context, in *Input) ([]findings.Finding, error) {
	if in.Mobile == nil || in.Drawer == nil {
		return nil, nil
	}

	if err := in.Drawer.Open(ctx, in.Mobile); err != nil {
		return nil, fmt.Errorf("opening drawer: %w", err)
	}
	open, err := in.Drawer.IsOpen(ctx, in.Mobile)
	if err != nil || !open {
		return nil, err
	}
	defer func() {
		// Restore the page for later checks regardless of outcome.
		_, _ = in.Drawer.Close(context.WithoutCancel(ctx), in.Mobile)
	}()

	focusables, err := in.Doc.QueryAllWithin(ctx, in.Mobile.Drawer, interactiveSelector)
	if err != nil {
		return nil, fmt.Errorf("querying drawer focusables: %w", err)
	}
	var first page.NodeRef
	for _, node := range focusables {
		if visible, err := in.Doc.Visible(ctx, node); err == nil && visible {
			first = node
			break
		}
	}
	if first == "" {
		return []findings.Finding{newFinding(in, c.Name(), "mobile-nav", findings.SeverityMajor,
			"open mobile navigation drawer contains no focusable controls",
			"", nil)}, nil
	}

	if err := in.Doc.Focus(ctx, first); err != nil {
		return nil, fmt.Errorf("focusing drawer control: %w", err)
	}
	for i := 0; i < focusTabPresses; i++ {
		if err := in.Doc.Press(ctx, "Tab"); err != nil {
			return nil, fmt.Errorf("pressing tab: %w", err)
		}
		within, err := in.Doc.ActiveWithin(ctx, in.Mobile.Drawer)
		if err != nil {
			return nil, fmt.Errorf("checking active element: %w", err)
		}
		if !within {
			return []findings.Finding{newFinding(in, c.Name(), "mobile-nav", findings.SeverityMinor,
				fmt.Sprintf("focus escaped the open drawer after %d tab presses", i+1),
				"", map[string]string{"pattern": in.Mobile.Pattern.String()})}, nil
		}
	}
	return nil, nil
}
