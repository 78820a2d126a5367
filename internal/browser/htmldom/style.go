package htmldom

import (
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/xkilldash9x/repairfill/internal/browser/dom"
	"golang.org/x/net/html"
)

// defaultBox is the rendered box reported for every displayed element.
var defaultBox = dom.Rect{X: 8, Y: 8, Width: 160, Height: 24}

var cssComment = regexp.MustCompile(`(?s)/\*.*?\*/`)

// nonRendered tags never produce a box.
var nonRendered = map[string]bool{
	"head": true, "script": true, "style": true, "template": true,
	"title": true, "meta": true, "link": true, "noscript": true,
}

type styleRule struct {
	matcher cascadia.Matcher
	decls   map[string]string
}

// rules collects <style> rules in source order. Callers hold d.mu.
func (d *Document) rules() []styleRule {
	var out []styleRule
	for _, s := range cascadia.QueryAll(d.root, mustMatcher("style")) {
		out = append(out, parseStyleSheet(htmlquery.InnerText(s))...)
	}
	return out
}

// parseStyleSheet reads plain "selector { prop: value }" rules. At-rules and
// selectors cascadia cannot parse are skipped.
func parseStyleSheet(src string) []styleRule {
	src = cssComment.ReplaceAllString(src, "")
	var out []styleRule
	for _, chunk := range strings.Split(src, "}") {
		open := strings.Index(chunk, "{")
		if open < 0 {
			continue
		}
		sel := strings.TrimSpace(chunk[:open])
		if sel == "" || strings.HasPrefix(sel, "@") {
			continue
		}
		m, err := cascadia.ParseGroup(sel)
		if err != nil {
			continue
		}
		out = append(out, styleRule{matcher: m, decls: parseDeclarations(chunk[open+1:])})
	}
	return out
}

func parseDeclarations(src string) map[string]string {
	decls := make(map[string]string)
	for _, part := range strings.Split(src, ";") {
		k, v, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "!important"))
		if k != "" {
			decls[k] = strings.ToLower(strings.TrimSpace(v))
		}
	}
	return decls
}

// setInlineStyle sets or, with an empty value, removes one inline property.
func setInlineStyle(n *html.Node, prop, value string) {
	raw, _ := attr(n, "style")
	var parts []string
	for _, part := range strings.Split(raw, ";") {
		k, _, ok := strings.Cut(part, ":")
		if !ok || strings.EqualFold(strings.TrimSpace(k), prop) {
			continue
		}
		parts = append(parts, strings.TrimSpace(part))
	}
	if value != "" {
		parts = append(parts, prop+": "+value)
	}
	if len(parts) == 0 {
		removeAttr(n, "style")
		return
	}
	setAttr(n, "style", strings.Join(parts, "; "))
}

// styleValue resolves prop for n from the inline style, then the last matching
// stylesheet rule. Callers hold d.mu.
func (d *Document) styleValue(n *html.Node, rules []styleRule, prop string) (string, bool) {
	if raw, ok := attr(n, "style"); ok {
		if v, ok := parseDeclarations(raw)[prop]; ok {
			return v, true
		}
	}
	for i := len(rules) - 1; i >= 0; i-- {
		if rules[i].matcher.Match(n) {
			if v, ok := rules[i].decls[prop]; ok {
				return v, true
			}
		}
	}
	return "", false
}

// ownDisplay is n's computed display, ignoring ancestors. Callers hold d.mu.
func (d *Document) ownDisplay(n *html.Node) string {
	return d.displayWith(n, d.rules())
}

func (d *Document) displayWith(n *html.Node, rules []styleRule) string {
	if n.Type != html.ElementNode {
		return ""
	}
	if v, ok := d.styleValue(n, rules, "display"); ok {
		return v
	}
	tag := strings.ToLower(n.Data)
	if nonRendered[tag] || hasAttr(n, "hidden") {
		return "none"
	}
	if tag == "input" {
		if t, _ := attr(n, "type"); strings.EqualFold(t, "hidden") {
			return "none"
		}
	}
	switch tag {
	case "div", "p", "form", "table", "tbody", "thead", "tr", "td", "th", "ul", "ol", "li", "section", "body", "html", "fieldset", "h1", "h2", "h3", "h4", "h5", "h6":
		return "block"
	}
	return "inline"
}

// inherited walks n and its ancestors for an inherited property.
func (d *Document) inherited(n *html.Node, rules []styleRule, prop, fallback string) string {
	for p := n; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		if v, ok := d.styleValue(p, rules, prop); ok && v != "inherit" {
			return v
		}
	}
	return fallback
}

// state builds the element snapshot. Callers hold d.mu.
func (d *Document) state(n *html.Node) dom.State {
	st := dom.State{SelectedIndex: -1, Viewport: d.viewport, Attrs: map[string]string{}}
	if n.Type != html.ElementNode {
		st.Text = htmlquery.InnerText(n)
		return st
	}
	rules := d.rules()
	tag := strings.ToLower(n.Data)
	st.Tag = tag
	for _, a := range n.Attr {
		if a.Namespace == "" {
			st.Attrs[a.Key] = a.Val
		}
	}
	st.ID = st.Attrs["id"]
	st.Name = st.Attrs["name"]
	st.Checked = hasAttr(n, "checked")
	st.Disabled = hasAttr(n, "disabled")
	if ce, ok := st.Attrs["contenteditable"]; ok && (ce == "" || strings.EqualFold(ce, "true")) {
		st.ContentEditable = true
	}
	st.Text = htmlquery.InnerText(n)

	switch tag {
	case "input":
		st.Type = strings.ToLower(st.Attrs["type"])
		if st.Type == "" {
			st.Type = "text"
		}
		v, ok := st.Attrs["value"]
		if !ok && (st.Type == "checkbox" || st.Type == "radio") {
			v = "on"
		}
		st.Value = v
	case "textarea":
		st.Type = "textarea"
		st.Value = htmlquery.InnerText(n)
	case "button":
		st.Type = strings.ToLower(st.Attrs["type"])
		if st.Type == "" {
			st.Type = "submit"
		}
		st.Value = st.Attrs["value"]
	case "select":
		st.Type = "select-one"
		if _, multi := st.Attrs["multiple"]; multi {
			st.Type = "select-multiple"
		}
		opts := options(n)
		for i, o := range opts {
			st.Options = append(st.Options, dom.Option{
				Value:    optionValue(o),
				Text:     strings.Join(strings.Fields(htmlquery.InnerText(o)), " "),
				Disabled: hasAttr(o, "disabled"),
			})
			if st.SelectedIndex < 0 && hasAttr(o, "selected") {
				st.SelectedIndex = i
			}
		}
		if st.SelectedIndex < 0 && len(opts) > 0 {
			st.SelectedIndex = 0
		}
		if st.SelectedIndex >= 0 {
			st.Value = st.Options[st.SelectedIndex].Value
		}
	case "option":
		st.Value = optionValue(n)
	}

	rendered := true
	for p := n; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && d.displayWith(p, rules) == "none" {
			rendered = false
			break
		}
	}
	st.Display = d.displayWith(n, rules)
	st.Visibility = d.inherited(n, rules, "visibility", "visible")
	st.PointerEvents = d.inherited(n, rules, "pointer-events", "auto")
	st.Opacity = "1"
	if v, ok := d.styleValue(n, rules, "opacity"); ok {
		st.Opacity = v
	}
	if rendered {
		st.Box = defaultBox
		st.HasOffsetParent = tag != "body" && tag != "html"
	}
	return st
}

func options(sel *html.Node) []*html.Node {
	return cascadia.QueryAll(sel, mustMatcher("option"))
}

func optionValue(o *html.Node) string {
	if v, ok := attr(o, "value"); ok {
		return v
	}
	return strings.Join(strings.Fields(htmlquery.InnerText(o)), " ")
}
