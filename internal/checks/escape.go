package checks

import (
	"context"
	"fmt"

	"github.com/navlens/navlens-cli/internal/findings"
	"github.com/navlens/navlens-cli/internal/page"
)

// EscapeClose opens the mobile navigation drawer and verifies the Escape
// key closes it, the dismissal convention keyboard users rely on. The
// drawer is restored to closed either way.
type EscapeClose struct{}

func (EscapeClose) Name() string { return "escape-close" }

func (c EscapeClose) Run(ctx context.Context, in *Input) ([]findings.Finding, error) {
	if in.Mobile == nil || in.Drawer == nil {
		return nil, nil
	}

	if err := in.Drawer.Open(ctx, in.Mobile); err != nil {
		return nil, fmt.Errorf("opening drawer: %w", err)
	}
	open, err := in.Drawer.IsOpen(ctx, in.Mobile)
	if err != nil || !open {
		// Could not establish the precondition; nothing to assert.
		return nil, err
	}

	if err := in.Doc.Press(ctx, "Escape"); err != nil {
		return nil, fmt.Errorf("pressing escape: %w", err)
	}
	if err := page.Settle(ctx, in.Drawer.Settle); err != nil {
		return nil, err
	}

	stillOpen, err := in.Drawer.IsOpen(ctx, in.Mobile)
	if err != nil {
		return nil, fmt.Errorf("checking drawer state after escape: %w", err)
	}

	var out []findings.Finding
	if stillOpen {
		out = append(out, newFinding(in, c.Name(), "mobile-nav", findings.SeverityMajor,
			"open mobile navigation drawer does not close on Escape",
			"", map[string]string{"pattern": in.Mobile.Pattern.String()}))
		if _, err := in.Drawer.Close(ctx, in.Mobile); err != nil {
			return out, err
		}
	}
	return out, nil
}
