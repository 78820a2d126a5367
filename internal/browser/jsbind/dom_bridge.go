// Package jsbind exposes a document to a goja runtime as the window and
// document globals, so page scripts, inline handlers and completion hooks run
// against the same tree the automation drives.
package jsbind

import (
	"context"
	"fmt"
	"strings"

	"github.com/dop251/goja"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/repairfill/internal/browser/dom"
	"github.com/xkilldash9x/repairfill/internal/browser/jsexec"
)

// Host is the document behind a bridge. Every method takes whatever lock the
// document needs; the bridge never holds one while calling back.
type Host interface {
	Root() *html.Node
	ElementByID(id string) *html.Node
	QueryAll(scope *html.Node, selector string) ([]*html.Node, error)
	Matches(n *html.Node, selector string) (bool, error)
	State(n *html.Node) dom.State
	SetAttr(n *html.Node, key, value string)
	RemoveAttr(n *html.Node, key string)
	SetValue(n *html.Node, value string)
	SetChecked(n *html.Node, checked bool)
	SetText(n *html.Node, text string)
	SetStyle(n *html.Node, prop, value string)
	Append(parent, child *html.Node)
	Detach(n *html.Node)
	// Click and Dispatch fire events on behalf of a script that is already
	// running, so inline handlers they reach must go through RunNested.
	Click(n *html.Node) error
	Dispatch(n *html.Node, typ string) error
}

// prelude defines the event constructors scripts build events with.
const prelude = `function Event(type, init) {
	init = init || {};
	this.type = String(type);
	this.bubbles = !!init.bubbles;
	this.cancelable = !!init.cancelable;
	this.detail = init.detail;
}
var CustomEvent = Event, MouseEvent = Event, KeyboardEvent = Event, InputEvent = Event;`

// DOMBridge binds one Host to one Runtime.
type DOMBridge struct {
	rt     *jsexec.Runtime
	host   Host
	logger *zap.Logger

	// Owned by the VM; touched only while a script runs.
	vm      *goja.Runtime
	objects map[*html.Node]*goja.Object
	nodes   map[*goja.Object]*html.Node
}

// NewDOMBridge creates a runtime and installs window, document and console.
func NewDOMBridge(logger *zap.Logger, host Host) (*DOMBridge, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &DOMBridge{
		rt:      jsexec.NewRuntime(logger),
		host:    host,
		logger:  logger.Named("dom_bridge"),
		objects: make(map[*html.Node]*goja.Object),
		nodes:   make(map[*goja.Object]*html.Node),
	}
	if _, err := b.rt.Do(context.Background(), b.install); err != nil {
		return nil, fmt.Errorf("failed to initialize script runtime: %w", err)
	}
	return b, nil
}

func (b *DOMBridge) install(vm *goja.Runtime) (goja.Value, error) {
	b.vm = vm
	global := vm.GlobalObject()
	for _, name := range []string{"window", "self"} {
		if err := global.Set(name, global); err != nil {
			return nil, err
		}
	}
	if err := global.Set("document", b.newDocument(vm)); err != nil {
		return nil, err
	}
	if err := global.Set("console", b.newConsole(vm)); err != nil {
		return nil, err
	}
	_ = global.Set("alert", func(call goja.FunctionCall) goja.Value {
		b.logger.Info("[JS Alert]", zap.String("message", call.Argument(0).String()))
		return goja.Undefined()
	})
	_ = global.Set("confirm", func(call goja.FunctionCall) goja.Value {
		b.logger.Info("[JS Confirm]", zap.String("message", call.Argument(0).String()))
		return vm.ToValue(true)
	})
	return vm.RunString(prelude)
}

// Execute evaluates src in the global scope.
func (b *DOMBridge) Execute(ctx context.Context, src string) error {
	_, err := b.rt.Execute(ctx, src)
	return err
}

// RunHandler runs the body of an inline handler with this bound to n.
func (b *DOMBridge) RunHandler(ctx context.Context, n *html.Node, typ, src string) error {
	_, err := b.rt.Do(ctx, func(vm *goja.Runtime) (goja.Value, error) {
		return b.callHandler(vm, n, typ, src)
	})
	return err
}

// RunNested is RunHandler for an event a running script fired.
func (b *DOMBridge) RunNested(n *html.Node, typ, src string) error {
	if _, err := b.callHandler(b.vm, n, typ, src); err != nil {
		return jsexec.Convert(err)
	}
	return nil
}

func (b *DOMBridge) callHandler(vm *goja.Runtime, n *html.Node, typ, src string) (goja.Value, error) {
	fv, err := vm.RunString("(function(event) {\n" + src + "\n})")
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(fv)
	if !ok {
		return nil, fmt.Errorf("handler did not compile to a function")
	}
	ev := vm.NewObject()
	_ = ev.Set("type", typ)
	_ = ev.Set("target", b.wrap(vm, n))
	return fn(b.wrap(vm, n), ev)
}

// DefineGlobal installs fn as window[name]. fn runs inside the script runtime
// and must not start another script.
func (b *DOMBridge) DefineGlobal(ctx context.Context, name string, fn func()) error {
	_, err := b.rt.Do(ctx, func(vm *goja.Runtime) (goja.Value, error) {
		return nil, vm.GlobalObject().Set(name, func(goja.FunctionCall) goja.Value {
			fn()
			return goja.Undefined()
		})
	})
	return err
}

// CallGlobal calls window[name]() when it is a function and reports whether it was.
func (b *DOMBridge) CallGlobal(ctx context.Context, name string) (bool, error) {
	called := false
	_, err := b.rt.Do(ctx, func(vm *goja.Runtime) (goja.Value, error) {
		global := vm.GlobalObject()
		fn, ok := goja.AssertFunction(global.Get(name))
		if !ok {
			return nil, nil
		}
		called = true
		return fn(global)
	})
	return called, err
}

// -- document --

func (b *DOMBridge) newDocument(vm *goja.Runtime) *goja.Object {
	doc := vm.NewObject()
	_ = doc.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		return b.wrap(vm, b.host.ElementByID(call.Argument(0).String()))
	})
	_ = doc.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		return b.first(vm, b.host.Root(), call.Argument(0).String())
	})
	_ = doc.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		return b.all(vm, b.host.Root(), call.Argument(0).String())
	})
	_ = doc.Set("getElementsByTagName", func(call goja.FunctionCall) goja.Value {
		return b.all(vm, b.host.Root(), call.Argument(0).String())
	})
	_ = doc.Set("createElement", func(call goja.FunctionCall) goja.Value {
		return b.wrap(vm, &html.Node{Type: html.ElementNode, Data: strings.ToLower(call.Argument(0).String())})
	})
	_ = doc.Set("createTextNode", func(call goja.FunctionCall) goja.Value {
		return b.wrap(vm, &html.Node{Type: html.TextNode, Data: call.Argument(0).String()})
	})
	b.getter(vm, doc, "body", func() goja.Value { return b.first(vm, b.host.Root(), "body") })
	b.getter(vm, doc, "head", func() goja.Value { return b.first(vm, b.host.Root(), "head") })
	b.getter(vm, doc, "documentElement", func() goja.Value { return b.first(vm, b.host.Root(), "html") })
	return doc
}

func (b *DOMBridge) newConsole(vm *goja.Runtime) *goja.Object {
	console := vm.NewObject()
	log := func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, a := range call.Arguments {
			parts[i] = a.String()
		}
		b.logger.Debug("[JS Console]", zap.String("message", strings.Join(parts, " ")))
		return goja.Undefined()
	}
	for _, name := range []string{"log", "info", "warn", "error", "debug"} {
		_ = console.Set(name, log)
	}
	return console
}

func (b *DOMBridge) first(vm *goja.Runtime, scope *html.Node, selector string) goja.Value {
	nodes, err := b.host.QueryAll(scope, selector)
	if err != nil {
		panic(vm.NewGoError(err))
	}
	if len(nodes) == 0 {
		return goja.Null()
	}
	return b.wrap(vm, nodes[0])
}

func (b *DOMBridge) all(vm *goja.Runtime, scope *html.Node, selector string) goja.Value {
	nodes, err := b.host.QueryAll(scope, selector)
	if err != nil {
		panic(vm.NewGoError(err))
	}
	items := make([]interface{}, len(nodes))
	for i, n := range nodes {
		items[i] = b.wrap(vm, n)
	}
	return vm.NewArray(items...)
}

// -- elements --

// wrap returns the one JS object for n, so identity comparisons hold.
func (b *DOMBridge) wrap(vm *goja.Runtime, n *html.Node) goja.Value {
	if n == nil {
		return goja.Null()
	}
	if o, ok := b.objects[n]; ok {
		return o
	}
	o := vm.NewObject()
	b.objects[n] = o
	b.nodes[o] = n

	switch n.Type {
	case html.ElementNode:
		b.defineElement(vm, o, n)
	case html.TextNode:
		_ = o.Set("nodeType", 3)
		b.accessor(vm, o, "textContent", func() goja.Value { return vm.ToValue(n.Data) }, nil)
	default:
		_ = o.Set("nodeType", 9)
	}
	b.getter(vm, o, "parentNode", func() goja.Value { return b.wrap(vm, n.Parent) })
	return o
}

func (b *DOMBridge) unwrap(v goja.Value) *html.Node {
	o, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	return b.nodes[o]
}

func (b *DOMBridge) defineElement(vm *goja.Runtime, o *goja.Object, n *html.Node) {
	_ = o.Set("nodeType", 1)
	_ = o.Set("tagName", strings.ToUpper(n.Data))
	_ = o.Set("nodeName", strings.ToUpper(n.Data))

	st := func() dom.State { return b.host.State(n) }
	str := func(s string) goja.Value { return vm.ToValue(s) }

	b.attrProperty(vm, o, n, "id")
	b.attrProperty(vm, o, n, "name")
	b.attrProperty(vm, o, n, "className")
	b.accessor(vm, o, "value",
		func() goja.Value { return str(st().Value) },
		func(v goja.Value) { b.host.SetValue(n, v.String()) })
	b.accessor(vm, o, "checked",
		func() goja.Value { return vm.ToValue(st().Checked) },
		func(v goja.Value) { b.host.SetChecked(n, v.ToBoolean()) })
	b.accessor(vm, o, "disabled",
		func() goja.Value { return vm.ToValue(st().Disabled) },
		func(v goja.Value) { b.toggleAttr(n, "disabled", v.ToBoolean()) })
	b.accessor(vm, o, "hidden",
		func() goja.Value { _, ok := st().Attrs["hidden"]; return vm.ToValue(ok) },
		func(v goja.Value) { b.toggleAttr(n, "hidden", v.ToBoolean()) })
	for _, name := range []string{"textContent", "innerText"} {
		b.accessor(vm, o, name,
			func() goja.Value { return str(st().Text) },
			func(v goja.Value) { b.host.SetText(n, v.String()) })
	}
	b.getter(vm, o, "parentElement", func() goja.Value {
		if n.Parent == nil || n.Parent.Type != html.ElementNode {
			return goja.Null()
		}
		return b.wrap(vm, n.Parent)
	})
	_ = o.Set("style", b.newStyle(vm, n))
	_ = o.Set("classList", b.newClassList(vm, n))

	_ = o.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		if v, ok := st().Attrs[strings.ToLower(call.Argument(0).String())]; ok {
			return str(v)
		}
		return goja.Null()
	})
	_ = o.Set("hasAttribute", func(call goja.FunctionCall) goja.Value {
		_, ok := st().Attrs[strings.ToLower(call.Argument(0).String())]
		return vm.ToValue(ok)
	})
	_ = o.Set("setAttribute", func(call goja.FunctionCall) goja.Value {
		b.host.SetAttr(n, strings.ToLower(call.Argument(0).String()), call.Argument(1).String())
		return goja.Undefined()
	})
	_ = o.Set("removeAttribute", func(call goja.FunctionCall) goja.Value {
		b.host.RemoveAttr(n, strings.ToLower(call.Argument(0).String()))
		return goja.Undefined()
	})
	_ = o.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		return b.first(vm, n, call.Argument(0).String())
	})
	_ = o.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		return b.all(vm, n, call.Argument(0).String())
	})
	_ = o.Set("matches", func(call goja.FunctionCall) goja.Value {
		ok, err := b.host.Matches(n, call.Argument(0).String())
		if err != nil {
			panic(vm.NewGoError(err))
		}
		return vm.ToValue(ok)
	})
	_ = o.Set("closest", func(call goja.FunctionCall) goja.Value {
		sel := call.Argument(0).String()
		for p := n; p != nil; p = p.Parent {
			if p.Type != html.ElementNode {
				continue
			}
			ok, err := b.host.Matches(p, sel)
			if err != nil {
				panic(vm.NewGoError(err))
			}
			if ok {
				return b.wrap(vm, p)
			}
		}
		return goja.Null()
	})
	_ = o.Set("appendChild", func(call goja.FunctionCall) goja.Value {
		child := b.unwrap(call.Argument(0))
		if child == nil {
			panic(vm.NewTypeError("appendChild: argument is not a node"))
		}
		b.host.Append(n, child)
		if child.Type == html.ElementNode && child.Data == "script" {
			b.runInserted(vm, child)
		}
		return call.Argument(0)
	})
	_ = o.Set("remove", func(goja.FunctionCall) goja.Value {
		b.host.Detach(n)
		return goja.Undefined()
	})
	_ = o.Set("click", func(goja.FunctionCall) goja.Value {
		if err := b.host.Click(n); err != nil {
			panic(vm.NewGoError(err))
		}
		return goja.Undefined()
	})
	_ = o.Set("dispatchEvent", func(call goja.FunctionCall) goja.Value {
		typ := call.Argument(0).ToObject(vm).Get("type")
		if typ == nil || goja.IsUndefined(typ) {
			panic(vm.NewTypeError("dispatchEvent: event has no type"))
		}
		if err := b.host.Dispatch(n, typ.String()); err != nil {
			panic(vm.NewGoError(err))
		}
		return vm.ToValue(true)
	})
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	for _, name := range []string{"focus", "blur", "scrollIntoView", "addEventListener", "removeEventListener"} {
		_ = o.Set(name, noop)
	}
}

// runInserted executes a script element a running script appended. Its
// errors stay inside the page.
func (b *DOMBridge) runInserted(vm *goja.Runtime, script *html.Node) {
	var src strings.Builder
	for c := script.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			src.WriteString(c.Data)
		}
	}
	if _, err := vm.RunString(src.String()); err != nil {
		b.logger.Debug("Inserted script threw.", zap.Error(jsexec.Convert(err)))
	}
}

func (b *DOMBridge) toggleAttr(n *html.Node, key string, on bool) {
	if on {
		b.host.SetAttr(n, key, "")
	} else {
		b.host.RemoveAttr(n, key)
	}
}

// attrProperty reflects an attribute as a string property; className maps to class.
func (b *DOMBridge) attrProperty(vm *goja.Runtime, o *goja.Object, n *html.Node, prop string) {
	key := prop
	if prop == "className" {
		key = "class"
	}
	b.accessor(vm, o, prop,
		func() goja.Value { return vm.ToValue(b.host.State(n).Attrs[key]) },
		func(v goja.Value) { b.host.SetAttr(n, key, v.String()) })
}

func (b *DOMBridge) newStyle(vm *goja.Runtime, n *html.Node) *goja.Object {
	style := vm.NewObject()
	for prop, css := range map[string]string{
		"display": "display", "visibility": "visibility", "opacity": "opacity", "pointerEvents": "pointer-events",
	} {
		css := css
		b.accessor(vm, style, prop,
			func() goja.Value { return vm.ToValue(inlineStyle(b.host.State(n).Attrs["style"], css)) },
			func(v goja.Value) { b.host.SetStyle(n, css, v.String()) })
	}
	return style
}

func (b *DOMBridge) newClassList(vm *goja.Runtime, n *html.Node) *goja.Object {
	list := vm.NewObject()
	classes := func() []string { return strings.Fields(b.host.State(n).Attrs["class"]) }
	has := func(name string) bool {
		for _, c := range classes() {
			if c == name {
				return true
			}
		}
		return false
	}
	set := func(name string, on bool) {
		var out []string
		for _, c := range classes() {
			if c != name {
				out = append(out, c)
			}
		}
		if on {
			out = append(out, name)
		}
		b.host.SetAttr(n, "class", strings.Join(out, " "))
	}
	_ = list.Set("contains", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(has(call.Argument(0).String()))
	})
	_ = list.Set("add", func(call goja.FunctionCall) goja.Value {
		for _, a := range call.Arguments {
			if !has(a.String()) {
				set(a.String(), true)
			}
		}
		return goja.Undefined()
	})
	_ = list.Set("remove", func(call goja.FunctionCall) goja.Value {
		for _, a := range call.Arguments {
			set(a.String(), false)
		}
		return goja.Undefined()
	})
	_ = list.Set("toggle", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		on := !has(name)
		set(name, on)
		return vm.ToValue(on)
	})
	return list
}

// inlineStyle reads one property from a style attribute.
func inlineStyle(raw, prop string) string {
	for _, part := range strings.Split(raw, ";") {
		k, v, ok := strings.Cut(part, ":")
		if ok && strings.EqualFold(strings.TrimSpace(k), prop) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func (b *DOMBridge) getter(vm *goja.Runtime, o *goja.Object, name string, get func() goja.Value) {
	b.accessor(vm, o, name, get, nil)
}

// accessor defines name on o with a getter and, when set is non-nil, a setter.
func (b *DOMBridge) accessor(vm *goja.Runtime, o *goja.Object, name string, get func() goja.Value, set func(goja.Value)) {
	g := vm.ToValue(func(goja.FunctionCall) goja.Value { return get() })
	s := goja.Undefined()
	if set != nil {
		s = vm.ToValue(func(call goja.FunctionCall) goja.Value {
			set(call.Argument(0))
			return goja.Undefined()
		})
	}
	if err := o.DefineAccessorProperty(name, g, s, goja.FLAG_TRUE, goja.FLAG_TRUE); err != nil {
		b.logger.Error("Failed to define property.", zap.String("property", name), zap.Error(err))
	}
}
