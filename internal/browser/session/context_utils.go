// internal/browser/session/context_utils.go
package session

import (
	"context"
	"time"
)

// CombineContext returns a context derived from primary that is also canceled
// when secondary is. Values and the deadline come from primary only, which is
// what chromedp needs: the tab context carries the CDP target, while the
// caller's context carries the operation's cancellation.
func CombineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}

// valueOnlyContext keeps a parent's values while dropping its deadline and
// cancellation.
type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }
func (valueOnlyContext) Done() <-chan struct{}                   { return nil }
func (valueOnlyContext) Err() error                              { return nil }

// Detach returns a context with ctx's values that is never canceled. Handle
// release on shutdown uses it so cleanup still reaches the browser after the
// run's context is gone.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
