package htmldom

import (
	"context"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/xkilldash9x/repairfill/internal/browser/dom"
	"golang.org/x/net/html"
)

// Element is a handle to one node of a Document.
type Element struct {
	d *Document
	n *html.Node
}

var _ dom.Element = (*Element)(nil)
var _ dom.Page = (*Document)(nil)

func (d *Document) wrap(n *html.Node) *Element {
	return &Element{d: d, n: n}
}

// Node exposes the underlying node for assertions.
func (e *Element) Node() *html.Node { return e.n }

// -- dom.Page --

// Document returns the document node as the root for unscoped queries.
func (d *Document) Document(ctx context.Context) (dom.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.wrap(d.root), nil
}

// ElementByID finds the first element whose id equals id, including ids that
// are not valid CSS identifiers.
func (d *Document) ElementByID(ctx context.Context, id string) (dom.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	n := d.byID(id)
	d.mu.Unlock()
	if n == nil {
		return nil, nil
	}
	return d.wrap(n), nil
}

// byID walks the tree in document order. Callers hold d.mu.
func (d *Document) byID(id string) *html.Node {
	var found *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil && found == nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				if v, ok := attr(c, "id"); ok && v == id {
					found = c
					return
				}
			}
			walk(c)
		}
	}
	walk(d.root)
	return found
}

// -- dom.Element --

func (e *Element) Query(ctx context.Context, selector string) (dom.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.d.mu.Lock()
	nodes, err := queryAll(e.n, selector)
	e.d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return e.d.wrap(nodes[0]), nil
}

func (e *Element) QueryAll(ctx context.Context, selector string) ([]dom.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.d.mu.Lock()
	nodes, err := queryAll(e.n, selector)
	e.d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([]dom.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, e.d.wrap(n))
	}
	return out, nil
}

func (e *Element) Matches(ctx context.Context, selector string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if e.n.Type != html.ElementNode {
		return false, nil
	}
	if _, ok := dom.AsXPath(selector); ok {
		// XPath has no element-relative match; test membership in the document result.
		e.d.mu.Lock()
		defer e.d.mu.Unlock()
		nodes, err := queryAll(e.d.root, selector)
		if err != nil {
			return false, err
		}
		for _, n := range nodes {
			if n == e.n {
				return true, nil
			}
		}
		return false, nil
	}
	m, err := cascadia.ParseGroup(selector)
	if err != nil {
		return false, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	return m.Match(e.n), nil
}

func (e *Element) SameNode(ctx context.Context, other dom.Element) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	o, ok := other.(*Element)
	return ok && o != nil && o.n == e.n, nil
}

func (e *Element) Closest(ctx context.Context, selector string) (dom.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	for p := e.n; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && m.Match(p) {
			return e.d.wrap(p), nil
		}
	}
	return nil, nil
}

func (e *Element) State(ctx context.Context) (dom.State, error) {
	if err := ctx.Err(); err != nil {
		return dom.State{}, err
	}
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	return e.d.state(e.n), nil
}

func (e *Element) SetValue(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	switch strings.ToLower(e.n.Data) {
	case "textarea":
		replaceChildren(e.n, value)
	case "select":
		for i, o := range options(e.n) {
			if optionValue(o) == value {
				selectOption(e.n, i)
				return nil
			}
		}
		// A value no option carries leaves nothing selected.
		for _, o := range options(e.n) {
			removeAttr(o, "selected")
		}
	default:
		setAttr(e.n, "value", value)
	}
	return nil
}

func (e *Element) SetChecked(ctx context.Context, checked bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	e.d.setChecked(e.n, checked)
	return nil
}

// setChecked updates a control and, for radios, clears the rest of its group.
// Callers hold d.mu.
func (d *Document) setChecked(n *html.Node, checked bool) {
	if !checked {
		removeAttr(n, "checked")
		return
	}
	setAttr(n, "checked", "")
	if t, _ := attr(n, "type"); !strings.EqualFold(t, "radio") {
		return
	}
	name, ok := attr(n, "name")
	if !ok || name == "" {
		return
	}
	for _, r := range cascadia.QueryAll(d.root, mustMatcher(`input[type="radio"]`)) {
		if r == n {
			continue
		}
		if rn, _ := attr(r, "name"); rn == name {
			removeAttr(r, "checked")
		}
	}
}

func (e *Element) SelectIndex(ctx context.Context, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if !strings.EqualFold(e.n.Data, "select") {
		return fmt.Errorf("element <%s> is not a select", e.n.Data)
	}
	if index < 0 || index >= len(options(e.n)) {
		return fmt.Errorf("option index %d out of range", index)
	}
	selectOption(e.n, index)
	return nil
}

func selectOption(sel *html.Node, index int) {
	for i, o := range options(sel) {
		if i == index {
			setAttr(o, "selected", "")
		} else {
			removeAttr(o, "selected")
		}
	}
}

func (e *Element) SetText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	replaceChildren(e.n, text)
	return nil
}

func replaceChildren(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

func (e *Element) Focus(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.d.mu.Lock()
	e.d.focused = e.n
	e.d.mu.Unlock()
	return nil
}

// ScrollIntoView has nothing to do offline; every rendered box is in view.
func (e *Element) ScrollIntoView(ctx context.Context) error {
	return ctx.Err()
}

// Click mirrors HTMLElement.click(): disabled controls ignore it, everything
// else receives a click event with its default activation.
func (e *Element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.d.mu.Lock()
	disabled := hasAttr(e.n, "disabled")
	e.d.mu.Unlock()
	if disabled {
		return nil
	}
	return e.d.dispatch(e.n, dom.Event{Type: "click", Kind: dom.KindMouse}, false)
}

func (e *Element) Dispatch(ctx context.Context, ev dom.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.d.dispatch(e.n, ev, false)
}

func (e *Element) InvokeHandler(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	name = strings.ToLower(name)
	e.d.mu.Lock()
	src, ok := attr(e.n, name)
	e.d.mu.Unlock()
	if !ok || strings.TrimSpace(src) == "" {
		return false, nil
	}
	return true, e.d.runHandler(ctx, e.n, strings.TrimPrefix(name, "on"), src, false)
}

// Focused returns the node that last received focus, or nil.
func (d *Document) Focused() *html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.focused
}
