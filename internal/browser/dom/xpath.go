// browser/dom/xpath.go
package dom

import "strings"

// XPathPrefix marks a candidate selector as an XPath expression.
const XPathPrefix = "xpath:"

// AsXPath reports whether a candidate selector is an XPath expression and returns
// the bare expression. Candidates carrying the "xpath:" prefix, and candidates
// starting with "/" or "(", are XPath; everything else is CSS.
func AsXPath(selector string) (string, bool) {
	s := strings.TrimSpace(selector)
	if strings.HasPrefix(s, XPathPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(s, XPathPrefix)), true
	}
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, "(") {
		return s, true
	}
	return "", false
}
