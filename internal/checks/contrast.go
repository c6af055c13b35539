package checks

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/navlens/navlens-cli/internal/findings"
	"github.com/navlens/navlens-cli/internal/page"
)

// minContrastRatio is the WCAG AA threshold for normal-size text.
const minContrastRatio = 4.5

// contrastSampleLimit caps how many links are sampled per region; nav
// links share styling, so a handful is representative.
const contrastSampleLimit = 10

// Contrast samples text/background colors of navigation and footer links
// and flags pairs below the AA contrast ratio. Links whose own background
// is fully transparent inherit the region's background.
type Contrast struct{}

func (Contrast) Name() string { return "contrast" }

func (c Contrast) Run(ctx context.Context, in *Input) ([]findings.Finding, error) {
	var out []findings.Finding
	if in.Nav.Found {
		f, err := c.checkRegion(ctx, in, "primary-nav", in.Nav.Node)
		if err != nil {
			return out, err
		}
		out = append(out, f...)
	}
	if in.Footer.Found {
		f, err := c.checkRegion(ctx, in, "footer", in.Footer.Node)
		if err != nil {
			return out, err
		}
		out = append(out, f...)
	}
	return out, nil
}

func (c Contrast) checkRegion(ctx context.Context, in *Input, region string, root page.NodeRef) ([]findings.Finding, error) {
	regionBg, _ := c.background(ctx, in, root)

	links, err := in.Doc.QueryAllWithin(ctx, root, `a[href]`)
	if err != nil {
		return nil, fmt.Errorf("querying %s links: %w", region, err)
	}

	var out []findings.Finding
	sampled := 0
	for _, link := range links {
		if sampled >= contrastSampleLimit {
			break
		}
		visible, err := in.Doc.Visible(ctx, link)
		if err != nil || !visible {
			continue
		}

		fgRaw, err := in.Doc.ComputedStyle(ctx, link, "color")
		if err != nil {
			continue
		}
		fg, ok := ParseColor(fgRaw)
		if !ok {
			continue
		}

		bg, ok := c.background(ctx, in, link)
		if !ok {
			bg, ok = regionBg, regionBg != (Color{})
		}
		if !ok {
			// No opaque background anywhere up the sampled chain; the
			// effective backdrop is unknowable without compositing.
			continue
		}
		sampled++

		ratio := ContrastRatio(fg, bg)
		if ratio < minContrastRatio {
			out = append(out, newFinding(in, c.Name(), region, findings.SeverityMinor,
				fmt.Sprintf("link text contrast %.2f:1 is below the %.1f:1 minimum", ratio, minContrastRatio),
				string(link), map[string]any{
					"ratio":      math.Round(ratio*100) / 100,
					"foreground": fgRaw,
				}))
		}
	}
	return out, nil
}

// background returns the node's own background color when it is opaque
// enough to matter.
func (c Contrast) background(ctx context.Context, in *Input, node page.NodeRef) (Color, bool) {
	raw, err := in.Doc.ComputedStyle(ctx, node, "background-color")
	if err != nil {
		return Color{}, false
	}
	col, ok := ParseColor(raw)
	if !ok || col.A < 0.99 {
		return Color{}, false
	}
	return col, true
}

// Color is an sRGB color with channels in [0,255] and alpha in [0,1].
type Color struct {
	R, G, B float64
	A       float64
}

// ParseColor understands the computed-style color forms browsers emit:
// rgb()/rgba() and hex #rgb/#rrggbb. The keyword "transparent" parses to
// a zero-alpha color.
func ParseColor(s string) (Color, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case s == "transparent":
		return Color{A: 0}, true
	case strings.HasPrefix(s, "rgb(") || strings.HasPrefix(s, "rgba("):
		return parseRGBFunc(s)
	case strings.HasPrefix(s, "#"):
		return parseHex(s)
	}
	return Color{}, false
}

func parseRGBFunc(s string) (Color, bool) {
	start := strings.IndexByte(s, '(')
	end := strings.IndexByte(s, ')')
	if start < 0 || end < start {
		return Color{}, false
	}
	parts := strings.Split(s[start+1:end], ",")
	if len(parts) != 3 && len(parts) != 4 {
		return Color{}, false
	}
	var vals [4]float64
	vals[3] = 1
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Color{}, false
		}
		vals[i] = v
	}
	return Color{R: vals[0], G: vals[1], B: vals[2], A: vals[3]}, true
}

func parseHex(s string) (Color, bool) {
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return Color{}, false
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, false
	}
	return Color{
		R: float64(n >> 16 & 0xff),
		G: float64(n >> 8 & 0xff),
		B: float64(n & 0xff),
		A: 1,
	}, true
}

// RelativeLuminance implements the WCAG 2.x formula.
func RelativeLuminance(c Color) float64 {
	lin := func(channel float64) float64 {
		v := channel / 255
		if v <= 0.03928 {
			return v / 12.92
		}
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return 0.2126*lin(c.R) + 0.7152*lin(c.G) + 0.0722*lin(c.B)
}

// ContrastRatio returns the WCAG contrast ratio between two colors,
// always >= 1.
func ContrastRatio(a, b Color) float64 {
	la, lb := RelativeLuminance(a), RelativeLuminance(b)
	if la < lb {
		la, lb = lb, la
	}
	return (la + 0.05) / (lb + 0.05)
}
