package htmldom

import (
	"context"

	"github.com/xkilldash9x/repairfill/internal/browser/dom"
	"github.com/xkilldash9x/repairfill/internal/browser/jsbind"
	"golang.org/x/net/html"
)

// script returns the document's runtime, creating it on first use.
func (d *Document) script() (*jsbind.DOMBridge, error) {
	d.jsOnce.Do(func() {
		d.js, d.jsErr = jsbind.NewDOMBridge(d.logger, scriptHost{d})
	})
	return d.js, d.jsErr
}

// runHandler runs an inline handler body with this bound to n.
func (d *Document) runHandler(ctx context.Context, n *html.Node, typ, src string, nested bool) error {
	js, err := d.script()
	if err != nil {
		return err
	}
	if nested {
		return js.RunNested(n, typ, src)
	}
	return js.RunHandler(ctx, n, typ, src)
}

// scriptHost gives the bridge locked access to the tree.
type scriptHost struct{ d *Document }

var _ jsbind.Host = scriptHost{}

func (h scriptHost) Root() *html.Node { return h.d.root }

func (h scriptHost) ElementByID(id string) *html.Node {
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	return h.d.byID(id)
}

func (h scriptHost) QueryAll(scope *html.Node, selector string) ([]*html.Node, error) {
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	// A bare #id resolves like getElementById so ids that are not CSS
	// identifiers still match.
	if id, ok := dom.BareID(selector); ok && scope == h.d.root {
		if n := h.d.byID(id); n != nil {
			return []*html.Node{n}, nil
		}
	}
	return queryAll(scope, selector)
}

func (h scriptHost) Matches(n *html.Node, selector string) (bool, error) {
	return h.d.wrap(n).Matches(context.Background(), selector)
}

func (h scriptHost) State(n *html.Node) dom.State {
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	return h.d.state(n)
}

func (h scriptHost) SetAttr(n *html.Node, key, value string) {
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	setAttr(n, key, value)
}

func (h scriptHost) RemoveAttr(n *html.Node, key string) {
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	removeAttr(n, key)
}

func (h scriptHost) SetValue(n *html.Node, value string) {
	_ = h.d.wrap(n).SetValue(context.Background(), value)
}

func (h scriptHost) SetChecked(n *html.Node, checked bool) {
	_ = h.d.wrap(n).SetChecked(context.Background(), checked)
}

func (h scriptHost) SetText(n *html.Node, text string) {
	_ = h.d.wrap(n).SetText(context.Background(), text)
}

func (h scriptHost) SetStyle(n *html.Node, prop, value string) {
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	setInlineStyle(n, prop, value)
}

func (h scriptHost) Append(parent, child *html.Node) {
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	if child.Parent != nil {
		child.Parent.RemoveChild(child)
	}
	parent.AppendChild(child)
}

func (h scriptHost) Detach(n *html.Node) {
	h.d.mu.Lock()
	defer h.d.mu.Unlock()
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func (h scriptHost) Click(n *html.Node) error {
	h.d.mu.Lock()
	disabled := hasAttr(n, "disabled")
	h.d.mu.Unlock()
	if disabled {
		return nil
	}
	return h.d.dispatch(n, dom.Event{Type: "click", Kind: dom.KindMouse}, true)
}

func (h scriptHost) Dispatch(n *html.Node, typ string) error {
	return h.d.dispatch(n, dom.Event{Type: typ, Kind: dom.KindBasic}, true)
}
