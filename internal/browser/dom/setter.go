// browser/dom/setter.go
package dom

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// SanitizeInteger keeps only the digits of s.
func SanitizeInteger(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SanitizeDecimal drops a trailing percent sign and keeps digits plus the first
// decimal point.
func SanitizeDecimal(s string) string {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	var b strings.Builder
	dot := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !dot:
			dot = true
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Notify publishes the given notifications on el, defaulting to input and change.
// Every type is attempted; the first failure is returned.
func (i *Interactor) Notify(ctx context.Context, el Element, types ...string) error {
	if len(types) == 0 {
		types = []string{"input", "change"}
	}
	var first error
	for _, t := range types {
		if err := el.Dispatch(ctx, Event{Type: t, Kind: KindBasic}); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// SetValue assigns value according to the element's kind and then publishes
// input and change. It reports whether the assignment took effect:
//   - number inputs are sanitized as decimals
//   - checkboxes are checked when value is non-empty
//   - radios check the same-named sibling whose value equals value, and never guess
//   - selects match option values, then trimmed labels, falling back to the first
//     option; the result reports whether a match occurred
//   - contenteditable regions receive the text directly
func (i *Interactor) SetValue(ctx context.Context, el Element, value string) bool {
	if el == nil {
		return false
	}
	st, err := el.State(ctx)
	if err != nil {
		i.logger.Debug("Could not read element state.", zap.Error(err))
		return false
	}

	switch st.Tag {
	case "input":
		switch st.Type {
		case "checkbox":
			return i.assign(ctx, el, el.SetChecked(ctx, value != ""))
		case "radio":
			return i.setRadio(ctx, el, st, value)
		case "number":
			return i.assign(ctx, el, el.SetValue(ctx, SanitizeDecimal(value)))
		default:
			return i.assign(ctx, el, el.SetValue(ctx, value))
		}
	case "textarea":
		return i.assign(ctx, el, el.SetValue(ctx, value))
	case "select":
		return i.setSelect(ctx, el, st, value)
	}
	if st.ContentEditable {
		return i.assign(ctx, el, el.SetText(ctx, value))
	}
	return false
}

// SetValueAndBlur is SetValue followed by a blur notification.
func (i *Interactor) SetValueAndBlur(ctx context.Context, el Element, value string) bool {
	ok := i.SetValue(ctx, el, value)
	if el != nil {
		_ = i.Notify(ctx, el, "blur")
	}
	return ok
}

func (i *Interactor) assign(ctx context.Context, el Element, err error) bool {
	if err != nil {
		i.logger.Debug("Value assignment failed.", zap.Error(err))
		return false
	}
	if err := i.Notify(ctx, el); err != nil {
		i.logger.Debug("Change notification failed.", zap.Error(err))
	}
	return true
}

func (i *Interactor) setRadio(ctx context.Context, el Element, st State, value string) bool {
	if value == "" {
		return false
	}
	group := []Element{el}
	if st.Name != "" {
		sel := `input[type="radio"][name=` + CSSString(st.Name) + `]`
		if all := i.ResolveAll(ctx, []string{sel}, nil); len(all) > 0 {
			group = all
		}
	}
	for _, r := range group {
		rs, err := r.State(ctx)
		if err != nil || rs.Value != value {
			continue
		}
		return i.assign(ctx, r, r.SetChecked(ctx, true))
	}
	return false
}

func (i *Interactor) setSelect(ctx context.Context, el Element, st State, value string) bool {
	idx := -1
	for n, o := range st.Options {
		if o.Value == value {
			idx = n
			break
		}
	}
	if idx < 0 {
		want := strings.TrimSpace(value)
		for n, o := range st.Options {
			if strings.TrimSpace(o.Text) == want {
				idx = n
				break
			}
		}
	}
	matched := idx >= 0
	if !matched && len(st.Options) > 0 {
		idx = 0
	}
	if idx >= 0 {
		if err := el.SelectIndex(ctx, idx); err != nil {
			i.logger.Debug("Option selection failed.", zap.Error(err))
			return false
		}
	}
	_ = i.Notify(ctx, el)
	return matched
}
