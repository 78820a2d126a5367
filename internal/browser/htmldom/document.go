// Package htmldom is an in-memory implementation of the dom.Page contract over a
// parsed HTML document. It backs the offline rehearsal command and every
// DOM-level test.
//
// The document keeps all mutable state in the node tree itself: values live in
// the value attribute, checkedness in the checked attribute and the selected
// option in the selected attribute, so HTML() renders the current form state.
//
// Visibility follows inline styles, <style> rules (matched in source order,
// without specificity), the hidden attribute and the usual non-rendered tags.
// Inline handlers, injected scripts and globals run in a goja runtime bound to
// the tree; <script> elements already present in the parsed markup do not run.
package htmldom

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/xkilldash9x/repairfill/internal/browser/dom"
	"github.com/xkilldash9x/repairfill/internal/browser/jsbind"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Listener observes an event after it reached a node matching its selector.
// target is the node the event was fired at.
type Listener func(d *Document, target *html.Node, ev dom.Event)

// Fired records one event delivered by the document.
type Fired struct {
	Target *html.Node
	Event  dom.Event
}

type binding struct {
	matcher cascadia.Matcher
	typ     string
	fn      Listener
}

// Document is a parsed, mutable HTML page. It is safe for concurrent use; a
// test may mutate it from a timer while the automation polls it.
type Document struct {
	mu        sync.Mutex
	root      *html.Node
	listeners []binding
	calls     map[string]int
	fired     []Fired
	focused   *html.Node
	viewport  dom.Rect
	logger    *zap.Logger

	jsOnce sync.Once
	js     *jsbind.DOMBridge
	jsErr  error
}

// Option configures a Document.
type Option func(*Document)

// WithViewport sets the viewport reported in element state.
func WithViewport(width, height float64) Option {
	return func(d *Document) { d.viewport = dom.Rect{Width: width, Height: height} }
}

// WithLogger sets the logger page scripts write their console output to.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Document) { d.logger = logger }
}

// Parse reads an HTML document.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	root, err := htmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	d := &Document{
		root:     root,
		calls:    make(map[string]int),
		viewport: dom.Rect{Width: 1366, Height: 900},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// ParseString parses an HTML string.
func ParseString(s string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(s), opts...)
}

// MustParse is ParseString for fixtures; it panics on error.
func MustParse(s string, opts ...Option) *Document {
	d, err := ParseString(s, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// HTML renders the current tree.
func (d *Document) HTML() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return ""
	}
	return buf.String()
}

func mustMatcher(selector string) cascadia.Matcher {
	m, err := cascadia.ParseGroup(selector)
	if err != nil {
		panic(fmt.Sprintf("htmldom: invalid selector %q: %v", selector, err))
	}
	return m
}

// queryAll runs a CSS or XPath selector below n. Callers hold d.mu.
func queryAll(n *html.Node, selector string) ([]*html.Node, error) {
	if expr, ok := dom.AsXPath(selector); ok {
		nodes, err := htmlquery.QueryAll(n, expr)
		if err != nil {
			return nil, fmt.Errorf("invalid xpath %q: %w", expr, err)
		}
		out := nodes[:0]
		for _, x := range nodes {
			if x.Type == html.ElementNode {
				out = append(out, x)
			}
		}
		return out, nil
	}
	m, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	return cascadia.QueryAll(n, m), nil
}

// -- Fixture helpers --

// Query returns the first node matching a CSS selector, or nil.
func (d *Document) Query(selector string) *html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return cascadia.Query(d.root, mustMatcher(selector))
}

// Element wraps the first node matching selector, or returns nil.
func (d *Document) Element(selector string) *Element {
	n := d.Query(selector)
	if n == nil {
		return nil
	}
	return d.wrap(n)
}

// ValueOf returns the current value of the first control matching selector.
func (d *Document) ValueOf(selector string) string {
	n := d.Query(selector)
	if n == nil {
		return ""
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state(n).Value
}

// CheckedOf reports whether the first control matching selector is checked.
func (d *Document) CheckedOf(selector string) bool {
	n := d.Query(selector)
	if n == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return hasAttr(n, "checked")
}

// SelectedText returns the label of the selected option of a <select>.
func (d *Document) SelectedText(selector string) string {
	n := d.Query(selector)
	if n == nil {
		return ""
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	st := d.state(n)
	if st.SelectedIndex < 0 || st.SelectedIndex >= len(st.Options) {
		return ""
	}
	return st.Options[st.SelectedIndex].Text
}

// VisibleOf applies the visibility predicate to the first match of selector.
func (d *Document) VisibleOf(selector string) bool {
	n := d.Query(selector)
	if n == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state(n).Visible()
}

// SetAttr sets an attribute on every node matching selector.
func (d *Document) SetAttr(selector, key, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, n := range cascadia.QueryAll(d.root, mustMatcher(selector)) {
		setAttr(n, key, value)
	}
}

// RemoveAttr removes an attribute from every node matching selector.
func (d *Document) RemoveAttr(selector, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, n := range cascadia.QueryAll(d.root, mustMatcher(selector)) {
		removeAttr(n, key)
	}
}

// Show makes every node matching selector displayed.
func (d *Document) Show(selector string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, n := range cascadia.QueryAll(d.root, mustMatcher(selector)) {
		removeAttr(n, "hidden")
		setInlineStyle(n, "display", "")
		if d.ownDisplay(n) == "none" {
			setInlineStyle(n, "display", "block")
		}
	}
}

// Hide sets display:none on every node matching selector.
func (d *Document) Hide(selector string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, n := range cascadia.QueryAll(d.root, mustMatcher(selector)) {
		setInlineStyle(n, "display", "none")
	}
}

// AppendHTML parses fragment in the context of the first node matching
// parentSelector and appends the result to it.
func (d *Document) AppendHTML(parentSelector, fragment string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	parent := cascadia.Query(d.root, mustMatcher(parentSelector))
	if parent == nil {
		return fmt.Errorf("no element matches %q", parentSelector)
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent)
	if err != nil {
		return fmt.Errorf("failed to parse fragment: %w", err)
	}
	for _, n := range nodes {
		parent.AppendChild(n)
	}
	return nil
}

// Remove detaches every node matching selector.
func (d *Document) Remove(selector string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, n := range cascadia.QueryAll(d.root, mustMatcher(selector)) {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
}

// -- Attribute helpers. Callers hold d.mu. --

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasAttr(n *html.Node, key string) bool {
	_, ok := attr(n, key)
	return ok
}

func setAttr(n *html.Node, key, value string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}

func removeAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}
