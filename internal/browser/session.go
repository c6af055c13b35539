// internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/navlens/navlens-cli/internal/config"
	"github.com/navlens/navlens-cli/internal/page"
)

// Session is a single browser tab. It implements page.Document, so the
// classifier, controller and guard can drive a live page through the same
// surface the scripted test fake provides.
type Session struct {
	id     string
	logger *zap.Logger
	cfg    *config.Config

	// ctx is the chromedp tab context. Per-call contexts are combined
	// with it rather than replacing it.
	ctx    context.Context
	cancel context.CancelFunc

	onClose func()

	mu       sync.Mutex
	isClosed bool
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Navigate loads the URL and waits for the document to be ready, then
// holds for the configured post-load delay so late-mounting widgets
// (cookie banners, drawer components) have a chance to attach.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return fmt.Errorf("session %s is closed", s.id)
	}
	s.mu.Unlock()

	navCtx, cancel := context.WithTimeout(ctx, s.cfg.Network.NavigationTimeout)
	defer cancel()

	s.logger.Debug("Navigating.", zap.String("session_id", s.id), zap.String("url", url))
	err := s.run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigation to %q failed: %w", url, err)
	}

	return page.Settle(ctx, s.cfg.Network.PostLoadWait)
}

// Close tears the tab down and signals the manager. Safe to call more
// than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosed {
		return nil
	}
	s.isClosed = true

	// Give the tab a moment to detach cleanly even when the caller's
	// context is already gone.
	cleanupCtx, cancel := context.WithTimeout(Detach(s.ctx), 2*time.Second)
	_ = chromedp.Run(cleanupCtx, chromedp.Stop())
	cancel()

	s.cancel()
	if s.onClose != nil {
		s.onClose()
	}
	s.logger.Debug("Session closed.", zap.String("session_id", s.id))
	return nil
}

// run executes chromedp actions bounded by both the tab context and the
// caller's context.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// eval runs a script in the page and unmarshals its JSON result into out.
// Pass nil to discard the result.
func (s *Session) eval(ctx context.Context, script string, out any) error {
	return s.run(ctx, chromedp.Evaluate(script, out))
}
