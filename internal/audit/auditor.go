// internal/audit/auditor.go
package audit

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/navlens/navlens-cli/internal/checks"
	"github.com/navlens/navlens-cli/internal/config"
	"github.com/navlens/navlens-cli/internal/drawer"
	"github.com/navlens/navlens-cli/internal/findings"
	"github.com/navlens/navlens-cli/internal/overlay"
	"github.com/navlens/navlens-cli/internal/page"
	"github.com/navlens/navlens-cli/internal/regions"
	"github.com/navlens/navlens-cli/internal/reporting"
	"github.com/navlens/navlens-cli/internal/store"
)

// Session is one browsing context dedicated to a single target. All work
// within a session is strictly sequential; parallelism exists only across
// sessions.
type Session interface {
	page.Document
	Navigate(ctx context.Context, url string) error
	Close() error
}

// SessionFactory opens a fresh session. The browser manager provides the
// production implementation; tests substitute scripted documents.
type SessionFactory func(ctx context.Context) (Session, error)

// Auditor runs the full navigation audit across a set of targets and
// persists the outcome.
type Auditor struct {
	log        *zap.Logger
	cfg        *config.Config
	newSession SessionFactory
	store      *store.Store
	limiter    *rate.Limiter
	runner     *checks.Runner
}

// NewAuditor wires an auditor. The store may be nil, in which case the
// run is not persisted.
func NewAuditor(log *zap.Logger, cfg *config.Config, factory SessionFactory, st *store.Store) *Auditor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Auditor{
		log:        log.Named("audit"),
		cfg:        cfg,
		newSession: factory,
		store:      st,
		limiter:    rate.NewLimiter(rate.Limit(cfg.Network.VisitsPerSecond), cfg.Network.VisitBurst),
		runner:     checks.NewRunner(log, checks.Defaults()...),
	}
}

// Run audits every target and returns the completed run together with
// the captured region outlines. A faulty page is reported as an info
// finding, never as a run failure; only context cancellation aborts.
func (a *Auditor) Run(ctx context.Context, targets []string) (*findings.Run, reporting.RegionOutlines, error) {
	run := &findings.Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Targets:   targets,
	}
	a.log.Info("Audit run starting.",
		zap.String("run_id", run.ID),
		zap.Int("targets", len(targets)),
		zap.Int("concurrency", a.cfg.Audit.Concurrency))

	outlines := make(reporting.RegionOutlines)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Audit.Concurrency)

	for _, target := range targets {
		g.Go(func() error {
			if err := a.limiter.Wait(gctx); err != nil {
				return err
			}
			found, pageOutlines, err := a.auditTarget(gctx, run.ID, target)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				a.log.Warn("Target audit failed; recording and continuing.",
					zap.String("target", target), zap.Error(err))
				found = append(found, faultFinding(run.ID, target, err))
			}
			mu.Lock()
			run.Findings = append(run.Findings, found...)
			if len(pageOutlines) > 0 {
				outlines[target] = pageOutlines
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	run.FinishedAt = time.Now().UTC()

	// Completion order across sessions is nondeterministic; fix the
	// report order here.
	sort.SliceStable(run.Findings, func(i, j int) bool {
		if run.Findings[i].Page != run.Findings[j].Page {
			return run.Findings[i].Page < run.Findings[j].Page
		}
		return run.Findings[i].Check < run.Findings[j].Check
	})

	if a.store != nil {
		if err := a.store.SaveRun(ctx, run); err != nil {
			return nil, nil, fmt.Errorf("failed to persist run %s: %w", run.ID, err)
		}
	}
	a.log.Info("Audit run finished.",
		zap.String("run_id", run.ID),
		zap.Int("findings", len(run.Findings)))
	return run, outlines, nil
}

// auditTarget opens a session, locates the regions and runs the check
// suite against one page.
func (a *Auditor) auditTarget(ctx context.Context, runID, target string) ([]findings.Finding, map[string]string, error) {
	sess, err := a.newSession(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open session: %w", err)
	}
	defer sess.Close()

	if err := sess.Navigate(ctx, target); err != nil {
		return nil, nil, err
	}

	guard := overlay.NewGuard(a.log)
	// Initial sweep with nothing to protect yet: cookie banners and
	// newsletter modals go before classification so they cannot shadow
	// the regions.
	if err := guard.DismissWithGuards(ctx, sess, nil); err != nil {
		return nil, nil, err
	}

	cls := regions.NewClassifier(sess, a.log)
	nav, err := cls.Classify(ctx, regions.KindPrimaryNav)
	if err != nil {
		return nil, nil, fmt.Errorf("primary nav classification failed: %w", err)
	}
	footer, err := cls.Classify(ctx, regions.KindFooter)
	if err != nil {
		return nil, nil, fmt.Errorf("footer classification failed: %w", err)
	}
	mobile, mobileFound, err := cls.ClassifyMobileNav(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("mobile nav classification failed: %w", err)
	}
	if !mobileFound {
		mobile = nil
	}

	pageOutlines := a.captureOutlines(ctx, sess, nav, footer, mobile)

	in := &checks.Input{
		Doc:    sess,
		Page:   target,
		RunID:  runID,
		Nav:    nav,
		Footer: footer,
		Mobile: mobile,
		Drawer: drawer.NewController(sess, guard, a.log),
	}
	found, err := a.runner.RunAll(ctx, in)
	if err != nil {
		return nil, nil, err
	}
	return found, pageOutlines, nil
}

// captureOutlines serializes the located regions for the report's link
// outline. Capture is best effort; a detached node just drops its entry.
func (a *Auditor) captureOutlines(ctx context.Context, doc page.Document, nav, footer regions.Result, mobile *regions.Descriptor) map[string]string {
	out := make(map[string]string)
	capture := func(kind regions.Kind, node page.NodeRef) {
		html, err := doc.OuterHTML(ctx, node)
		if err != nil {
			a.log.Debug("Outline capture skipped.", zap.Stringer("region", kind), zap.Error(err))
			return
		}
		out[kind.String()] = html
	}
	if nav.Found {
		capture(regions.KindPrimaryNav, nav.Node)
	}
	if footer.Found {
		capture(regions.KindFooter, footer.Node)
	}
	if mobile != nil {
		capture(regions.KindMobileNav, mobile.Drawer)
	}
	return out
}

// faultFinding records a page that could not be audited.
func faultFinding(runID, target string, err error) findings.Finding {
	return findings.Finding{
		ID:         uuid.NewString(),
		RunID:      runID,
		ObservedAt: time.Now().UTC(),
		Page:       target,
		Check:      "page-audit",
		Region:     "page",
		Severity:   findings.SeverityInfo,
		Message:    fmt.Sprintf("page could not be audited: %v", err),
	}
}
