// Package steps holds one executor per section of the repair form. Each step
// is a short linear procedure with its own fallback chain; sub-action misses
// are folded into the step's result struct and never returned as errors. The
// only error a step returns is the context error when the caller gives up.
package steps

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/xkilldash9x/repairfill/internal/browser/dom"
	"github.com/xkilldash9x/repairfill/internal/config"
	"go.uber.org/zap"
)

// Selectors shared by several steps.
const (
	openModalSelector  = `.modal.show, .modal.in, [role="dialog"]`
	anyModalSelector   = `.modal, [role="dialog"]`
	modalCloseSelector = `button, .btn, [data-dismiss="modal"], .close`
	buttonSelector     = `button, input[type="button"], input[type="submit"]`
	confirmButtonID    = "partsConfirm"
)

var (
	validationModalText = regexp.MustCompile(`(?i)diagnosis\s*codes?\s*cannot\s*be\s*empty`)
	closeText           = regexp.MustCompile(`(?i)close`)
	digitsPattern       = regexp.MustCompile(`\d+`)
)

// Executor runs the form steps against one page.
type Executor struct {
	logger *zap.Logger
	dom    *dom.Interactor
	timing config.AutomationConfig
	prefs  config.Preferences
}

// NewExecutor creates an executor. prefs supplies selector overrides, the part
// selections and the stored part number.
func NewExecutor(logger *zap.Logger, in *dom.Interactor, timing config.AutomationConfig, prefs config.Preferences) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		logger: logger.Named("steps"),
		dom:    in,
		timing: timing,
		prefs:  prefs,
	}
}

// WithPreferences returns a copy of the executor that uses prefs.
func (x *Executor) WithPreferences(prefs config.Preferences) *Executor {
	cp := *x
	cp.prefs = prefs
	return &cp
}

// Preferences returns the preferences the executor was built with.
func (x *Executor) Preferences() config.Preferences { return x.prefs }

// Interactor exposes the underlying DOM interactor.
func (x *Executor) Interactor() *dom.Interactor { return x.dom }

func (x *Executor) selectors(stage config.Stage) config.SelectorSet {
	return x.prefs.SelectorsFor(stage)
}

// waitPresent waits for the first candidate that resolves at all.
func (x *Executor) waitPresent(ctx context.Context, candidates []string, timeout time.Duration) dom.Element {
	if len(candidates) == 0 {
		return nil
	}
	return x.dom.WaitFor(ctx, x.dom.Present(candidates, nil), timeout, x.timing.PollInterval)
}

// releaseHandles frees remote handles pinned during an action, when the
// backend keeps any.
func (x *Executor) releaseHandles(ctx context.Context) {
	if r, ok := x.dom.Page().(dom.HandleReleaser); ok {
		if err := r.ReleaseHandles(ctx); err != nil {
			x.logger.Debug("Failed to release element handles.", zap.Error(err))
		}
	}
}

// checked reads the checked state of el. Unreadable elements count as unchecked.
func (x *Executor) checked(ctx context.Context, el dom.Element) bool {
	if el == nil {
		return false
	}
	st, err := el.State(ctx)
	return err == nil && st.Checked
}

// state reads el, returning the zero State when el is nil or unreadable.
func (x *Executor) state(ctx context.Context, el dom.Element) dom.State {
	if el == nil {
		return dom.State{}
	}
	st, err := el.State(ctx)
	if err != nil {
		return dom.State{}
	}
	return st
}

// label is the visible text of a control, falling back to its value.
func label(st dom.State) string {
	if t := strings.TrimSpace(st.Text); t != "" {
		return t
	}
	return strings.TrimSpace(st.Value)
}

// firstDigits returns the first run of digits in s, or "".
func firstDigits(s string) string {
	return digitsPattern.FindString(s)
}
