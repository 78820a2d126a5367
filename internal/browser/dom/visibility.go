// browser/dom/visibility.go
package dom

import (
	"context"
	"strconv"
	"strings"
)

// Rendered reports whether the element occupies layout: a non-zero box or a
// non-null offset parent.
func (s State) Rendered() bool {
	return (s.Box.Width > 0 && s.Box.Height > 0) || s.HasOffsetParent
}

// StyleVisible reports whether computed style leaves the element showing and hit-testable.
func (s State) StyleVisible() bool {
	if strings.EqualFold(s.Display, "none") {
		return false
	}
	switch strings.ToLower(s.Visibility) {
	case "hidden", "collapse":
		return false
	}
	if op := strings.TrimSpace(s.Opacity); op != "" {
		if f, err := strconv.ParseFloat(op, 64); err == nil && f <= 0 {
			return false
		}
	}
	return !strings.EqualFold(s.PointerEvents, "none")
}

// Visible is the composite visibility predicate, without the enablement check.
func (s State) Visible() bool {
	return s.Rendered() && s.StyleVisible()
}

// IsDisabled covers the disabled property, a bare disabled attribute and aria-disabled.
func (s State) IsDisabled() bool {
	if s.Disabled {
		return true
	}
	if _, ok := s.Attrs["disabled"]; ok {
		return true
	}
	return strings.EqualFold(s.Attrs["aria-disabled"], "true")
}

// Interactable means visible and not disabled.
func (s State) Interactable() bool {
	return s.Visible() && !s.IsDisabled()
}

// Visible reads el's state and applies the visibility predicate. Nil and
// unreadable elements are not visible.
func (i *Interactor) Visible(ctx context.Context, el Element) bool {
	if el == nil {
		return false
	}
	st, err := el.State(ctx)
	return err == nil && st.Visible()
}

// Interactable reads el's state and applies the visible-and-enabled predicate.
func (i *Interactor) Interactable(ctx context.Context, el Element) bool {
	if el == nil {
		return false
	}
	st, err := el.State(ctx)
	return err == nil && st.Interactable()
}
