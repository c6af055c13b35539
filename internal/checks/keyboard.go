package checks

import (
	"context"
	"fmt"

	"github.com/navlens/navlens-cli/internal/findings"
)

// KeyboardReach verifies the primary navigation is reachable by keyboard:
// its first visible link must accept programmatic focus and the active
// element must land inside the region. Links with tabindex="-1" are the
// usual offenders.
type KeyboardReach struct{}

func (KeyboardReach) Name() string { return "keyboard-reach" }

func (c KeyboardReach) Run(ctx context.Context, in *Input) ([]findings.Finding, error) {
	if !in.Nav.Found {
		return nil, nil
	}
	links, err := in.Doc.QueryAllWithin(ctx, in.Nav.Node, `a[href]`)
	if err != nil {
		return nil, fmt.Errorf("querying nav links: %w", err)
	}

	for _, link := range links {
		visible, err := in.Doc.Visible(ctx, link)
		if err != nil || !visible {
			continue
		}
		if tabindex, present, err := in.Doc.Attribute(ctx, link, "tabindex"); err == nil && present && tabindex == "-1" {
			return []findings.Finding{newFinding(in, c.Name(), "primary-nav", findings.SeverityMajor,
				"first visible nav link is removed from the tab order (tabindex=-1)",
				string(link), nil)}, nil
		}
		if err := in.Doc.Focus(ctx, link); err != nil {
			return []findings.Finding{newFinding(in, c.Name(), "primary-nav", findings.SeverityMajor,
				"first visible nav link rejects keyboard focus",
				string(link), nil)}, nil
		}
		within, err := in.Doc.ActiveWithin(ctx, in.Nav.Node)
		if err != nil {
			return nil, fmt.Errorf("checking active element: %w", err)
		}
		if !within {
			return []findings.Finding{newFinding(in, c.Name(), "primary-nav", findings.SeverityMajor,
				"focusing a nav link did not move the active element into the navigation",
				string(link), nil)}, nil
		}
		return nil, nil
	}
	return nil, nil
}
