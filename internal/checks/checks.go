// Package checks runs navigation usability checks against a classified
// page. Checks consume the classifier's results and the drawer
// controller; a check that cannot run (its region was not found) skips
// with a log instead of failing the page.
package checks

import (
	"context"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/navlens/navlens-cli/internal/drawer"
	"github.com/navlens/navlens-cli/internal/findings"
	"github.com/navlens/navlens-cli/internal/page"
	"github.com/navlens/navlens-cli/internal/regions"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Input is everything a check may inspect on one audited page. Mobile is
// nil when no mobile navigation was classified.
type Input struct {
	Doc    page.Document
	Page   string
	RunID  string
	Nav    regions.Result
	Footer regions.Result
	Mobile *regions.Descriptor
	Drawer *drawer.Controller
}

// Check is one navigation audit. Run returns the defects it observed;
// an empty slice means the page passed. Errors are reserved for faults
// that invalidate the check itself, and never abort the page.
type Check interface {
	Name() string
	Run(ctx context.Context, in *Input) ([]findings.Finding, error)
}

// Runner executes a fixed check suite against one page.
type Runner struct {
	log    *zap.Logger
	checks []Check
}

// NewRunner builds a runner over the given checks. A nil logger is
// replaced with a no-op.
func NewRunner(log *zap.Logger, checks ...Check) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{log: log.Named("checks"), checks: checks}
}

// Defaults returns the standard check suite.
func Defaults() []Check {
	return []Check{
		&TouchTarget{},
		&KeyboardReach{},
		&EscapeClose{},
		&FocusContainment{},
		&Contrast{},
	}
}

// RunAll runs every check, isolating per-check faults. Only context
// cancellation stops the pass early.
func (r *Runner) RunAll(ctx context.Context, in *Input) ([]findings.Finding, error) {
	var out []findings.Finding
	for _, c := range r.checks {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		results, err := c.Run(ctx, in)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			r.log.Warn("check failed, continuing",
				zap.String("check", c.Name()),
				zap.String("page", in.Page),
				zap.Error(err))
			continue
		}
		r.log.Debug("check completed",
			zap.String("check", c.Name()),
			zap.Int("findings", len(results)))
		out = append(out, results...)
	}
	return out, nil
}

// newFinding assembles a finding with identity and timestamp filled in.
// details is marshaled as structured evidence; a marshal fault degrades
// to no details rather than losing the finding.
func newFinding(in *Input, check, region string, sev findings.Severity, msg, selector string, details any) findings.Finding {
	f := findings.Finding{
		ID:         uuid.NewString(),
		RunID:      in.RunID,
		ObservedAt: time.Now().UTC(),
		Page:       in.Page,
		Check:      check,
		Region:     region,
		Severity:   sev,
		Message:    msg,
		Selector:   selector,
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			f.Details = raw
		}
	}
	return f
}
