package htmldom

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// XPathOf builds an XPath for node, anchored at the nearest ancestor with an
// id. The result resolves back to node through dom.AsXPath candidates.
func XPathOf(node *html.Node) string {
	if node == nil {
		return ""
	}

	var path []string
	for n := node; n != nil && n.Type != html.DocumentNode; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		tag := strings.ToLower(n.Data)
		if tag == "" {
			continue
		}

		if id := htmlquery.SelectAttr(n, "id"); id != "" {
			path = append(path, fmt.Sprintf(`//*[@id=%s]`, xpathLiteral(id)))
			break
		}

		// XPath positions are 1-based and count same-tag siblings only.
		index := 1
		for prev := n.PrevSibling; prev != nil; prev = prev.PrevSibling {
			if prev.Type == html.ElementNode && strings.ToLower(prev.Data) == tag {
				index++
			}
		}
		path = append(path, fmt.Sprintf("%s[%d]", tag, index))
	}

	if len(path) == 0 {
		return "/"
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	xpath := strings.Join(path, "/")
	if !strings.HasPrefix(xpath, "//*[@id=") {
		xpath = "/" + xpath
	}
	return xpath
}

// xpathLiteral quotes s, falling back to concat() when s holds both quote kinds.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = "'" + p + "'"
	}
	return "concat(" + strings.Join(quoted, `, "'", `) + ")"
}

// Control is one form control as rendered in a rehearsal report.
type Control struct {
	XPath   string `json:"xpath"`
	Tag     string `json:"tag"`
	Type    string `json:"type,omitempty"`
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Value   string `json:"value,omitempty"`
	Checked bool   `json:"checked,omitempty"`
	Visible bool   `json:"visible"`
}

// Controls lists every input, select and textarea in document order.
func (d *Document) Controls() []Control {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Control
	for _, n := range cascadia.QueryAll(d.root, mustMatcher("input, select, textarea")) {
		st := d.state(n)
		c := Control{
			XPath:   XPathOf(n),
			Tag:     st.Tag,
			Type:    st.Type,
			ID:      st.ID,
			Name:    st.Name,
			Value:   st.Value,
			Checked: st.Checked,
			Visible: st.Visible(),
		}
		if st.Tag == "select" && st.SelectedIndex >= 0 && st.SelectedIndex < len(st.Options) {
			c.Value = st.Options[st.SelectedIndex].Text
		}
		out = append(out, c)
	}
	return out
}
