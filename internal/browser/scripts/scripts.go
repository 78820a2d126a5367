// Package scripts holds the page-side functions the live browser backends call.
// Every function is invoked with `this` bound to an element (or the document)
// and returns either a primitive, a remote object, or a JSON string the caller
// decodes. Keeping them in one place lets the chromedp and rod backends share
// identical page semantics.
package scripts

import "fmt"

// queryPrelude resolves (sel, isXPath) relative to `this`.
const queryPrelude = `
	var root = this;
	function all(sel, isXPath) {
		if (isXPath) {
			var out = [];
			var doc = root.ownerDocument || root;
			var snap = doc.evaluate(sel, root, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
			for (var i = 0; i < snap.snapshotLength; i++) {
				var n = snap.snapshotItem(i);
				if (n.nodeType === 1) { out.push(n); }
			}
			return out;
		}
		return Array.prototype.slice.call(root.querySelectorAll(sel));
	}`

// QueryCount returns how many descendants match.
const QueryCount = `function(sel, isXPath) {` + queryPrelude + `
	return all(sel, isXPath).length;
}`

// QueryNth returns the i-th match, or null.
const QueryNth = `function(sel, isXPath, i) {` + queryPrelude + `
	return all(sel, isXPath)[i] || null;
}`

// Matches reports whether `this` matches sel. XPath is tested by membership in
// the document-wide result.
const Matches = `function(sel, isXPath) {
	if (!isXPath) { return this.matches(sel); }
	var snap = document.evaluate(sel, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
	for (var i = 0; i < snap.snapshotLength; i++) {
		if (snap.snapshotItem(i) === this) { return true; }
	}
	return false;
}`

// SameNode compares `this` with the element passed as the only argument.
const SameNode = `function(other) { return this === other; }`

// Closest returns the nearest inclusive ancestor matching a CSS selector.
const Closest = `function(sel) { return this.closest(sel); }`

// ByID looks an element up without going through CSS parsing.
const ByID = `function(id) { return document.getElementById(id); }`

// State serializes the element snapshot the automation reads.
const State = `function() {
	var el = this;
	var cs = window.getComputedStyle(el);
	var r = el.getBoundingClientRect();
	var attrs = {};
	for (var i = 0; i < el.attributes.length; i++) {
		attrs[el.attributes[i].name] = el.attributes[i].value;
	}
	var options = [];
	if (el.options) {
		for (var j = 0; j < el.options.length; j++) {
			var o = el.options[j];
			options.push({value: o.value, text: (o.text || '').trim(), disabled: !!o.disabled});
		}
	}
	return JSON.stringify({
		tag: el.tagName.toLowerCase(),
		type: (el.type || '').toLowerCase(),
		id: el.id || '',
		name: el.getAttribute('name') || '',
		value: el.value === undefined ? '' : String(el.value),
		checked: !!el.checked,
		disabled: !!el.disabled,
		contentEditable: !!el.isContentEditable,
		text: (el.innerText || el.textContent || '').trim(),
		attrs: attrs,
		options: options,
		selectedIndex: typeof el.selectedIndex === 'number' ? el.selectedIndex : -1,
		box: {x: r.left, y: r.top, width: r.width, height: r.height},
		viewport: {x: 0, y: 0, width: window.innerWidth, height: window.innerHeight},
		hasOffsetParent: el.offsetParent !== null || cs.position === 'fixed',
		display: cs.display,
		visibility: cs.visibility,
		opacity: cs.opacity,
		pointerEvents: cs.pointerEvents
	});
}`

// SetValue assigns value through the native prototype setter so frameworks
// that shadow the property still see the change.
const SetValue = `function(value) {
	var el = this;
	var proto = el instanceof HTMLTextAreaElement ? HTMLTextAreaElement.prototype
		: el instanceof HTMLSelectElement ? HTMLSelectElement.prototype
		: HTMLInputElement.prototype;
	var desc = Object.getOwnPropertyDescriptor(proto, 'value');
	if (desc && desc.set) { desc.set.call(el, value); } else { el.value = value; }
	return true;
}`

// SetChecked assigns the checked property without firing events.
const SetChecked = `function(checked) { this.checked = !!checked; return true; }`

// SelectIndex selects an option by index without firing events.
const SelectIndex = `function(i) {
	if (!this.options || i < 0 || i >= this.options.length) { throw new Error('option index out of range: ' + i); }
	this.selectedIndex = i;
	return true;
}`

// SetText replaces the text of a contenteditable element.
const SetText = `function(text) { this.textContent = text; return true; }`

// Focus, ScrollIntoView and Click call the element's own methods.
const (
	Focus          = `function() { if (this.focus) { this.focus(); } return true; }`
	ScrollIntoView = `function() { this.scrollIntoView({block: 'center', inline: 'center'}); return true; }`
	Click          = `function() { this.click(); return true; }`
)

// Dispatch fires a bubbling synthetic event described by a JSON argument.
const Dispatch = `function(spec) {
	var ev = JSON.parse(spec);
	var init = {bubbles: true, cancelable: true, composed: true, view: window};
	var e;
	switch (ev.kind) {
	case 'mouse':
		init.clientX = ev.clientX || 0; init.clientY = ev.clientY || 0; init.button = 0;
		e = new MouseEvent(ev.type, init); break;
	case 'pointer':
		init.clientX = ev.clientX || 0; init.clientY = ev.clientY || 0; init.pointerType = 'mouse'; init.isPrimary = true;
		e = typeof PointerEvent === 'function' ? new PointerEvent(ev.type, init) : new MouseEvent(ev.type, init); break;
	case 'keyboard':
		init.key = ev.key || ''; init.code = ev.code || '';
		e = new KeyboardEvent(ev.type, init);
		if (ev.keyCode) {
			Object.defineProperty(e, 'keyCode', {get: function() { return ev.keyCode; }});
			Object.defineProperty(e, 'which', {get: function() { return ev.keyCode; }});
		}
		break;
	default:
		e = new Event(ev.type, init);
	}
	this.dispatchEvent(e);
	return true;
}`

// InvokeHandler runs the source of an inline handler attribute with `this`
// bound to the element. It returns false when the attribute is absent.
const InvokeHandler = `function(attr) {
	var src = this.getAttribute(attr);
	if (!src) { return false; }
	(new Function(src)).call(this);
	return true;
}`

// CallGlobal calls window[name]() when it is a function.
const CallGlobal = `function(name) {
	if (typeof window[name] !== 'function') { return false; }
	window[name]();
	return true;
}`

// InjectScript inserts a <script> element carrying source.
const InjectScript = `function(source) {
	var s = document.createElement('script');
	s.textContent = source;
	(document.body || document.documentElement).appendChild(s);
	return true;
}`

// CompletionHook builds the source injected when the confirm button will not
// close the parts popup: call the hook when the page defines it, otherwise
// click the confirm button by id.
func CompletionHook(hook string) string {
	return fmt.Sprintf(`(function(){try{if(typeof window.%[1]s==='function'){window.%[1]s();return;}var b=document.getElementById('partsConfirm');if(b){b.click();}}catch(e){}})();`, hook)
}
