// internal/browser/session/element.go
package session

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/repairfill/internal/browser/dom"
	"github.com/xkilldash9x/repairfill/internal/browser/scripts"
)

// Element is a remote object handle. It stays valid until the session
// releases its object group.
type Element struct {
	s  *Session
	id runtime.RemoteObjectID
}

var _ dom.Element = (*Element)(nil)

// ObjectID exposes the remote object id.
func (e *Element) ObjectID() runtime.RemoteObjectID { return e.id }

// call runs fn with this bound to the element. res receives the return value
// by value; a **runtime.RemoteObject receives the handle instead.
func (e *Element) call(ctx context.Context, fn string, res interface{}, args ...interface{}) error {
	return e.s.RunActions(ctx, chromedp.CallFunctionOn(fn, res, func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
		return p.WithObjectID(e.id).WithObjectGroup(objectGroup)
	}, args...))
}

// callElement is call for functions returning an element or null.
func (e *Element) callElement(ctx context.Context, fn string, args ...interface{}) (dom.Element, error) {
	var obj *runtime.RemoteObject
	if err := e.call(ctx, fn, &obj, args...); err != nil {
		return nil, err
	}
	return e.s.element(obj), nil
}

func (e *Element) Query(ctx context.Context, selector string) (dom.Element, error) {
	xp, isXPath := dom.AsXPath(selector)
	if isXPath {
		selector = xp
	}
	el, err := e.callElement(ctx, scripts.QueryNth, selector, isXPath, 0)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	return el, nil
}

// QueryAll counts the matches and then fetches each by index.
func (e *Element) QueryAll(ctx context.Context, selector string) ([]dom.Element, error) {
	xp, isXPath := dom.AsXPath(selector)
	if isXPath {
		selector = xp
	}
	var n int
	if err := e.call(ctx, scripts.QueryCount, &n, selector, isXPath); err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	out := make([]dom.Element, 0, n)
	for i := 0; i < n; i++ {
		el, err := e.callElement(ctx, scripts.QueryNth, selector, isXPath, i)
		if err != nil {
			return nil, fmt.Errorf("query %q[%d]: %w", selector, i, err)
		}
		// The page may have changed between the count and the fetch.
		if el != nil {
			out = append(out, el)
		}
	}
	return out, nil
}

func (e *Element) Matches(ctx context.Context, selector string) (bool, error) {
	xp, isXPath := dom.AsXPath(selector)
	if isXPath {
		selector = xp
	}
	var ok bool
	err := e.call(ctx, scripts.Matches, &ok, selector, isXPath)
	return ok, err
}

// SameNode passes the other handle by object id, which CallFunctionOn's
// value arguments cannot express.
func (e *Element) SameNode(ctx context.Context, other dom.Element) (bool, error) {
	o, ok := other.(*Element)
	if !ok || o == nil {
		return false, nil
	}
	if o.id == e.id {
		return true, nil
	}
	var same bool
	err := e.s.RunActions(ctx, chromedp.CallFunctionOn(scripts.SameNode, &same, func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
		return p.WithObjectID(e.id).
			WithObjectGroup(objectGroup).
			WithArguments([]*runtime.CallArgument{{ObjectID: o.id}})
	}))
	return same, err
}

func (e *Element) Closest(ctx context.Context, selector string) (dom.Element, error) {
	return e.callElement(ctx, scripts.Closest, selector)
}

func (e *Element) State(ctx context.Context) (dom.State, error) {
	var raw string
	if err := e.call(ctx, scripts.State, &raw); err != nil {
		return dom.State{}, fmt.Errorf("failed to read element state: %w", err)
	}
	var st dom.State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return dom.State{}, fmt.Errorf("failed to decode element state: %w", err)
	}
	return st, nil
}

func (e *Element) SetValue(ctx context.Context, value string) error {
	var ok bool
	return e.call(ctx, scripts.SetValue, &ok, value)
}

func (e *Element) SetChecked(ctx context.Context, checked bool) error {
	var ok bool
	return e.call(ctx, scripts.SetChecked, &ok, checked)
}

func (e *Element) SelectIndex(ctx context.Context, index int) error {
	var ok bool
	return e.call(ctx, scripts.SelectIndex, &ok, index)
}

func (e *Element) SetText(ctx context.Context, text string) error {
	var ok bool
	return e.call(ctx, scripts.SetText, &ok, text)
}

func (e *Element) Focus(ctx context.Context) error {
	var ok bool
	return e.call(ctx, scripts.Focus, &ok)
}

func (e *Element) ScrollIntoView(ctx context.Context) error {
	var ok bool
	return e.call(ctx, scripts.ScrollIntoView, &ok)
}

func (e *Element) Click(ctx context.Context) error {
	var ok bool
	return e.call(ctx, scripts.Click, &ok)
}

func (e *Element) Dispatch(ctx context.Context, ev dom.Event) error {
	spec, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", ev.Type, err)
	}
	var ok bool
	return e.call(ctx, scripts.Dispatch, &ok, string(spec))
}

func (e *Element) InvokeHandler(ctx context.Context, attr string) (bool, error) {
	var ok bool
	err := e.call(ctx, scripts.InvokeHandler, &ok, attr)
	return ok, err
}
