package checks

import (
	"context"
	"fmt"

	"github.com/navlens/navlens-cli/internal/findings"
	"github.com/navlens/navlens-cli/internal/page"
)

// minTouchTargetPx is the minimum tap target edge recommended for touch
// interfaces (WCAG 2.5.8 / platform HIG guidance rounds to 44).
const minTouchTargetPx = 44.0

// interactiveSelector matches the clickable elements a touch user hits
// inside a navigation region.
const interactiveSelector = `a[href], button, [role="button"], summary`

// TouchTarget flags navigation controls whose hit area is smaller than
// the minimum touch target. The mobile trigger is held to the full
// minimum in both dimensions; regular nav links only need enough height,
// since horizontal text links legitimately hug their label.
type TouchTarget struct{}

func (TouchTarget) Name() string { return "touch-target" }

func (c TouchTarget) Run(ctx context.Context, in *Input) ([]findings.Finding, error) {
	var out []findings.Finding

	if in.Mobile != nil {
		box, ok, err := in.Doc.BoundingBox(ctx, in.Mobile.Trigger)
		if err == nil && ok && (box.Width < minTouchTargetPx || box.Height < minTouchTargetPx) {
			out = append(out, newFinding(in, c.Name(), "mobile-nav", findings.SeverityMajor,
				fmt.Sprintf("mobile menu trigger tap area is %.0fx%.0fpx, below the %.0fpx minimum",
					box.Width, box.Height, minTouchTargetPx),
				"", boxDetails(box)))
		}
	}

	if !in.Nav.Found {
		return out, nil
	}
	nodes, err := in.Doc.QueryAllWithin(ctx, in.Nav.Node, interactiveSelector)
	if err != nil {
		return out, fmt.Errorf("querying nav controls: %w", err)
	}
	for _, node := range nodes {
		visible, err := in.Doc.Visible(ctx, node)
		if err != nil || !visible {
			continue
		}
		box, ok, err := in.Doc.BoundingBox(ctx, node)
		if err != nil || !ok {
			continue
		}
		if box.Height < minTouchTargetPx {
			out = append(out, newFinding(in, c.Name(), "primary-nav", findings.SeverityMinor,
				fmt.Sprintf("nav control tap height is %.0fpx, below the %.0fpx minimum", box.Height, minTouchTargetPx),
				string(node), boxDetails(box)))
		}
	}
	return out, nil
}

func boxDetails(box page.Box) map[string]float64 {
	return map[string]float64{"width": box.Width, "height": box.Height}
}
