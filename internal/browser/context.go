// internal/browser/context.go
package browser

import (
	"context"
	"time"
)

// CombineContext derives a context from ctx1 that is additionally canceled
// when ctx2 is done. Used to bound a session-scoped chromedp call by a
// per-call context without losing the tab's connection values.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(ctx1)

	go func() {
		select {
		case <-ctx2.Done():
			cancel()
		case <-combinedCtx.Done():
		}
	}()

	return combinedCtx, cancel
}

// valueOnlyContext inherits values (the CDP target information) from its
// parent while ignoring the parent's deadline and cancellation.
type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }

func (valueOnlyContext) Done() <-chan struct{} { return nil }

func (valueOnlyContext) Err() error { return nil }

// Detach returns a context usable for cleanup work that must outlive the
// caller's context, such as stripping tracking attributes after a canceled
// audit step.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
