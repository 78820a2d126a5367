package rodpage

import (
	"context"
	"fmt"

	"github.com/go-rod/rod/lib/proto"
	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/repairfill/internal/browser/dom"
	"github.com/xkilldash9x/repairfill/internal/browser/scripts"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Element is a remote object owned by a Page.
type Element struct {
	p   *Page
	obj *proto.RuntimeRemoteObject
}

var _ dom.Element = (*Element)(nil)

func (e *Element) run(ctx context.Context, fn string, args ...interface{}) error {
	_, err := e.p.eval(ctx, e.obj, fn, args...)
	return err
}

func selectorArgs(selector string) (string, bool) {
	if xp, ok := dom.AsXPath(selector); ok {
		return xp, true
	}
	return selector, false
}

func (e *Element) Query(ctx context.Context, selector string) (dom.Element, error) {
	sel, isXPath := selectorArgs(selector)
	el, err := e.p.evalElement(ctx, e.obj, scripts.QueryNth, sel, isXPath, 0)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	return el, nil
}

func (e *Element) QueryAll(ctx context.Context, selector string) ([]dom.Element, error) {
	sel, isXPath := selectorArgs(selector)
	res, err := e.p.eval(ctx, e.obj, scripts.QueryCount, sel, isXPath)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	n := res.Value.Int()
	out := make([]dom.Element, 0, n)
	for i := 0; i < n; i++ {
		el, err := e.p.evalElement(ctx, e.obj, scripts.QueryNth, sel, isXPath, i)
		if err != nil {
			return nil, fmt.Errorf("query %q[%d]: %w", selector, i, err)
		}
		if el != nil {
			out = append(out, el)
		}
	}
	return out, nil
}

func (e *Element) Matches(ctx context.Context, selector string) (bool, error) {
	sel, isXPath := selectorArgs(selector)
	res, err := e.p.eval(ctx, e.obj, scripts.Matches, sel, isXPath)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

// SameNode hands the other remote object to the page by id; rod encodes
// *proto.RuntimeRemoteObject arguments that way.
func (e *Element) SameNode(ctx context.Context, other dom.Element) (bool, error) {
	o, ok := other.(*Element)
	if !ok || o == nil {
		return false, nil
	}
	if o.obj.ObjectID == e.obj.ObjectID {
		return true, nil
	}
	res, err := e.p.eval(ctx, e.obj, scripts.SameNode, o.obj)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func (e *Element) Closest(ctx context.Context, selector string) (dom.Element, error) {
	return e.p.evalElement(ctx, e.obj, scripts.Closest, selector)
}

func (e *Element) State(ctx context.Context) (dom.State, error) {
	res, err := e.p.eval(ctx, e.obj, scripts.State)
	if err != nil {
		return dom.State{}, fmt.Errorf("failed to read element state: %w", err)
	}
	var st dom.State
	if err := json.UnmarshalFromString(res.Value.Str(), &st); err != nil {
		return dom.State{}, fmt.Errorf("failed to decode element state: %w", err)
	}
	return st, nil
}

func (e *Element) SetValue(ctx context.Context, value string) error {
	return e.run(ctx, scripts.SetValue, value)
}

func (e *Element) SetChecked(ctx context.Context, checked bool) error {
	return e.run(ctx, scripts.SetChecked, checked)
}

func (e *Element) SelectIndex(ctx context.Context, index int) error {
	return e.run(ctx, scripts.SelectIndex, index)
}

func (e *Element) SetText(ctx context.Context, text string) error {
	return e.run(ctx, scripts.SetText, text)
}

func (e *Element) Focus(ctx context.Context) error { return e.run(ctx, scripts.Focus) }

func (e *Element) ScrollIntoView(ctx context.Context) error {
	return e.run(ctx, scripts.ScrollIntoView)
}

func (e *Element) Click(ctx context.Context) error { return e.run(ctx, scripts.Click) }

func (e *Element) Dispatch(ctx context.Context, ev dom.Event) error {
	spec, err := json.MarshalToString(ev)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", ev.Type, err)
	}
	return e.run(ctx, scripts.Dispatch, spec)
}

func (e *Element) InvokeHandler(ctx context.Context, attr string) (bool, error) {
	res, err := e.p.eval(ctx, e.obj, scripts.InvokeHandler, attr)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}
