// browser/dom/wait.go
package dom

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Probe looks for an element once. It returns nil when the element is not there yet.
type Probe func(ctx context.Context) Element

var errNotYet = errors.New("condition not met")

// Poll evaluates cond immediately and then every interval until it holds, the
// timeout elapses, or ctx is done. It reports whether cond held.
func Poll(ctx context.Context, cond func(ctx context.Context) bool, timeout, interval time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	op := func() error {
		if cond(waitCtx) {
			return nil
		}
		return errNotYet
	}
	return backoff.Retry(op, backoff.WithContext(backoff.NewConstantBackOff(interval), waitCtx)) == nil
}

// Await polls probe until it yields an element. The error wraps ErrTimeout, or
// is the caller's context error when ctx ended first.
func (i *Interactor) Await(ctx context.Context, probe Probe, timeout, interval time.Duration) (Element, error) {
	var found Element
	ok := Poll(ctx, func(ctx context.Context) bool {
		found = probe(ctx)
		return found != nil
	}, timeout, interval)
	if ok {
		return found, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
}

// WaitFor is Await without the error: nil means the budget ran out.
func (i *Interactor) WaitFor(ctx context.Context, probe Probe, timeout, interval time.Duration) Element {
	el, _ := i.Await(ctx, probe, timeout, interval)
	return el
}

// -- Probes --

// Present matches the first candidate that resolves, visible or not.
func (i *Interactor) Present(candidates []string, scope Element) Probe {
	return func(ctx context.Context) Element {
		return i.Resolve(ctx, candidates, scope)
	}
}

// VisibleMatch matches the first element, across all candidates in order, that
// passes the visibility predicate.
func (i *Interactor) VisibleMatch(candidates []string, scope Element) Probe {
	return i.filtered(candidates, scope, i.Visible)
}

// InteractableMatch matches the first element that is visible and enabled.
func (i *Interactor) InteractableMatch(candidates []string, scope Element) Probe {
	return i.filtered(candidates, scope, i.Interactable)
}

func (i *Interactor) filtered(candidates []string, scope Element, keep func(context.Context, Element) bool) Probe {
	return func(ctx context.Context) Element {
		for _, sel := range candidates {
			for _, el := range i.ResolveAll(ctx, []string{sel}, scope) {
				if keep(ctx, el) {
					return el
				}
			}
		}
		return nil
	}
}

// Sleep pauses for d unless ctx ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
