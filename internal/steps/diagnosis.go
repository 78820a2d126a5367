package steps

import (
	"context"
	"regexp"
	"strings"

	"github.com/xkilldash9x/repairfill/internal/browser/dom"
	"github.com/xkilldash9x/repairfill/internal/config"
	"go.uber.org/zap"
)

var (
	inv4Text      = regexp.MustCompile(`(?i)inv\s*4`)
	inv4Value     = regexp.MustCompile(`(?i)^INV4\|`)
	placeholderRe = regexp.MustCompile(`(?i)select`)
)

// defaultDiagnosisCodes are the compiled-in codes per part name.
var defaultDiagnosisCodes = map[string]string{
	"Sieve Tank": "INV4 - Saturated",
}

// DefaultDiagnosisFor returns the compiled-in code for a part, matching names
// the same way selections are matched to rows.
func DefaultDiagnosisFor(part string) string {
	if code, ok := defaultDiagnosisCodes[part]; ok {
		return code
	}
	want := NormalizePartName(part)
	for name, code := range defaultDiagnosisCodes {
		if NormalizePartName(name) == want {
			return code
		}
	}
	return ""
}

// DiagnosisTarget is the row whose diagnosis is being chosen.
type DiagnosisTarget struct {
	// Row scopes lookups; nil means the whole document.
	Row dom.Element
	// Control is the native <select> carrying the code.
	Control dom.Element
	// Desired is the configured code text or value, possibly empty.
	Desired string
}

// DiagnosisStrategy is one way of choosing a diagnosis code.
type DiagnosisStrategy struct {
	Name  string
	Apply func(ctx context.Context, x *Executor, t DiagnosisTarget) bool
}

// DiagnosisStrategies lists the strategies in the order they are tried.
var DiagnosisStrategies = []DiagnosisStrategy{
	{Name: "native-match", Apply: selectDesiredOption},
	{Name: "native-inv4", Apply: selectINV4Option},
	{Name: "bootstrap-dropdown", Apply: pickDropdownItem},
	{Name: "first-valid-option", Apply: selectFirstValidOption},
}

// applyDiagnosis runs the strategies until one succeeds.
func (x *Executor) applyDiagnosis(ctx context.Context, t DiagnosisTarget) bool {
	for _, s := range DiagnosisStrategies {
		if ctx.Err() != nil {
			return false
		}
		if s.Apply(ctx, x, t) {
			x.logger.Debug("Diagnosis chosen.", zap.String("strategy", s.Name), zap.String("desired", t.Desired))
			return true
		}
	}
	x.logger.Debug("No diagnosis strategy succeeded.", zap.String("desired", t.Desired))
	return false
}

// selectOptionWhere selects the first option accepted by keep and notifies.
func (x *Executor) selectOptionWhere(ctx context.Context, control dom.Element, keep func(o dom.Option) bool) bool {
	st := x.state(ctx, control)
	for i, o := range st.Options {
		if !keep(o) {
			continue
		}
		if err := control.SelectIndex(ctx, i); err != nil {
			x.logger.Debug("Option selection failed.", zap.Error(err))
			return false
		}
		_ = x.dom.Notify(ctx, control)
		return true
	}
	return false
}

// selectDesiredOption matches the desired code against option text and value,
// exactly or ignoring case.
func selectDesiredOption(ctx context.Context, x *Executor, t DiagnosisTarget) bool {
	want := strings.TrimSpace(t.Desired)
	if t.Control == nil || want == "" {
		return false
	}
	return x.selectOptionWhere(ctx, t.Control, func(o dom.Option) bool {
		text, value := strings.TrimSpace(o.Text), strings.TrimSpace(o.Value)
		return text == want || value == want || strings.EqualFold(text, want) || strings.EqualFold(value, want)
	})
}

// selectINV4Option prefers any option that looks like an INV4 code.
func selectINV4Option(ctx context.Context, x *Executor, t DiagnosisTarget) bool {
	if t.Control == nil {
		return false
	}
	return x.selectOptionWhere(ctx, t.Control, func(o dom.Option) bool {
		return inv4Text.MatchString(o.Text) || inv4Value.MatchString(o.Value)
	})
}

// pickDropdownItem drives a bootstrap-select widget that hides the native
// control: open the toggle, click the matching menu item, then notify the
// hidden select so the page's bindings see the change.
func pickDropdownItem(ctx context.Context, x *Executor, t DiagnosisTarget) bool {
	sel := x.selectors(config.StagePartsTable)
	toggle := x.dom.Resolve(ctx, sel.Get("dropdownToggle"), t.Row)
	if toggle == nil {
		return false
	}
	x.dom.Click(ctx, toggle)
	if dom.Sleep(ctx, x.timing.DropdownOpenDelay) != nil {
		return false
	}

	item := x.dropdownItem(ctx, sel.Get("dropdownItems"), t.Desired)
	if item == nil {
		return false
	}
	if err := item.Click(ctx); err != nil {
		x.logger.Debug("Dropdown item click failed.", zap.Error(err))
	}
	if dom.Sleep(ctx, x.timing.AfterDropdownDelay) != nil {
		return false
	}
	if hidden := x.dom.Resolve(ctx, []string{"select"}, t.Row); hidden != nil {
		_ = x.dom.Notify(ctx, hidden)
	}
	if x.closeModalIfPresent(ctx) {
		_ = dom.Sleep(ctx, x.timing.AfterModalDelay)
	}
	return true
}

// dropdownItem finds the menu item for desired (an INV4 item when desired is
// empty), falling back to the first item that is not disabled.
func (x *Executor) dropdownItem(ctx context.Context, candidates []string, desired string) dom.Element {
	want := strings.ToLower(strings.TrimSpace(desired))
	var items []dom.Element
	for _, c := range candidates {
		items = append(items, x.dom.ResolveAll(ctx, []string{c}, nil)...)
	}
	for _, it := range items {
		text := x.dom.Text(ctx, it)
		if want != "" && strings.ToLower(text) == want {
			return it
		}
		if want == "" && inv4Text.MatchString(text) {
			return it
		}
	}
	for _, it := range items {
		li, err := it.Closest(ctx, "li")
		if err == nil && li != nil && x.dom.Matches(ctx, li, ".disabled") {
			continue
		}
		return it
	}
	return nil
}

// selectFirstValidOption picks the first option with a value whose text is not
// a "Select..." placeholder, or the first option when none qualifies.
func selectFirstValidOption(ctx context.Context, x *Executor, t DiagnosisTarget) bool {
	if t.Control == nil {
		return false
	}
	if x.selectOptionWhere(ctx, t.Control, func(o dom.Option) bool {
		return strings.TrimSpace(o.Value) != "" && !placeholderRe.MatchString(o.Text)
	}) {
		return true
	}
	return x.selectOptionWhere(ctx, t.Control, func(dom.Option) bool { return true })
}
