package htmldom

import (
	"context"
	"errors"
	"strings"

	"github.com/xkilldash9x/repairfill/internal/browser/dom"
	"github.com/xkilldash9x/repairfill/internal/browser/jsexec"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// On registers fn for events of type typ that reach an element matching
// selector, either as the target or while bubbling. It panics on an invalid
// selector.
func (d *Document) On(selector, typ string, fn Listener) {
	m := mustMatcher(selector)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, binding{matcher: m, typ: typ, fn: fn})
}

// DefineGlobal installs fn as window[name] for scripts and CallGlobal. fn runs
// inside the script runtime: it may change the document through the fixture
// helpers but must not click or dispatch through an Element.
func (d *Document) DefineGlobal(name string, fn func(d *Document)) {
	js, err := d.script()
	if err == nil {
		err = js.DefineGlobal(context.Background(), name, func() {
			d.mu.Lock()
			d.calls[name]++
			d.mu.Unlock()
			fn(d)
		})
	}
	if err != nil {
		d.logger.Error("Failed to define global.", zap.String("name", name), zap.Error(err))
	}
}

// GlobalCalls returns how many times the named global ran.
func (d *Document) GlobalCalls(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[name]
}

// Events returns a copy of every event delivered so far.
func (d *Document) Events() []Fired {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Fired(nil), d.fired...)
}

// Count returns how many events of type typ were fired at nodes matching selector.
func (d *Document) Count(selector, typ string) int {
	m := mustMatcher(selector)
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, f := range d.fired {
		if f.Event.Type == typ && m.Match(f.Target) {
			n++
		}
	}
	return n
}

// EventTypes lists, in order, the event types fired at nodes matching selector.
func (d *Document) EventTypes(selector string) []string {
	m := mustMatcher(selector)
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for _, f := range d.fired {
		if m.Match(f.Target) {
			out = append(out, f.Event.Type)
		}
	}
	return out
}

// CallGlobal calls window[name]() when it is a function and reports whether it was.
func (d *Document) CallGlobal(ctx context.Context, name string) (bool, error) {
	js, err := d.script()
	if err != nil {
		return false, err
	}
	return js.CallGlobal(ctx, name)
}

// InjectScript appends a <script> element to the body and runs its source.
func (d *Document) InjectScript(ctx context.Context, source string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	parent := d.first("body")
	if parent == nil {
		parent = d.root
	}
	script := &html.Node{Type: html.ElementNode, Data: "script"}
	script.AppendChild(&html.Node{Type: html.TextNode, Data: source})
	parent.AppendChild(script)
	d.mu.Unlock()
	js, err := d.script()
	if err != nil {
		return err
	}
	// Exceptions inside an injected script do not reach the injector.
	if err := js.Execute(ctx, source); err != nil {
		var thrown *jsexec.ScriptError
		if !errors.As(err, &thrown) {
			return err
		}
		d.logger.Debug("Injected script threw.", zap.Error(err))
	}
	return nil
}

// first is Query for callers that already hold d.mu.
func (d *Document) first(selector string) *html.Node {
	nodes, err := queryAll(d.root, selector)
	if err != nil || len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// dispatch delivers ev to target and its ancestors. A click carries the
// default activation of checkboxes and radios, and input/change follow when
// that activation changed the control. nested is set when a running script
// fired the event.
func (d *Document) dispatch(target *html.Node, ev dom.Event, nested bool) error {
	d.mu.Lock()
	d.fired = append(d.fired, Fired{Target: target, Event: ev})

	toggled := false
	if ev.Type == "click" && target.Type == html.ElementNode &&
		strings.EqualFold(target.Data, "input") && !hasAttr(target, "disabled") {
		t, _ := attr(target, "type")
		switch strings.ToLower(t) {
		case "checkbox":
			d.setChecked(target, !hasAttr(target, "checked"))
			toggled = true
		case "radio":
			if !hasAttr(target, "checked") {
				d.setChecked(target, true)
				toggled = true
			}
		}
	}

	type call struct {
		fn      Listener
		node    *html.Node
		handler string
	}
	var calls []call
	handlerAttr := "on" + ev.Type
	for p := target; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		if src, ok := attr(p, handlerAttr); ok && strings.TrimSpace(src) != "" {
			calls = append(calls, call{node: p, handler: src})
		}
		for _, b := range d.listeners {
			if b.typ == ev.Type && b.matcher.Match(p) {
				calls = append(calls, call{fn: b.fn})
			}
		}
	}
	d.mu.Unlock()

	for _, c := range calls {
		if c.fn != nil {
			c.fn(d, target, ev)
			continue
		}
		// A throwing inline handler does not stop propagation.
		if err := d.runHandler(context.Background(), c.node, ev.Type, c.handler, nested); err != nil {
			d.logger.Debug("Inline handler threw.", zap.String("event", ev.Type), zap.Error(err))
		}
	}

	if toggled {
		for _, typ := range []string{"input", "change"} {
			if err := d.dispatch(target, dom.Event{Type: typ, Kind: dom.KindBasic}, nested); err != nil {
				return err
			}
		}
	}
	return nil
}
