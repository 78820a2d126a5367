package steps_test

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/repairfill/internal/browser/dom"
	"github.com/xkilldash9x/repairfill/internal/browser/htmldom"
	"github.com/xkilldash9x/repairfill/internal/config"
	"github.com/xkilldash9x/repairfill/internal/steps"
)

// fastTiming shrinks every wait so fixtures that never satisfy a probe fail quickly.
func fastTiming() config.AutomationConfig {
	return config.AutomationConfig{
		WaitTimeout:        200 * time.Millisecond,
		PollInterval:       10 * time.Millisecond,
		ButtonPollInterval: 10 * time.Millisecond,
		TableWaitTimeout:   200 * time.Millisecond,
		FieldWaitTimeout:   200 * time.Millisecond,
		ControlWaitTimeout: 200 * time.Millisecond,
		ButtonWaitTimeout:  200 * time.Millisecond,
		AfterYesDelay:      time.Millisecond,
		AfterModalDelay:    time.Millisecond,
		AfterDropdownDelay: time.Millisecond,
		DropdownOpenDelay:  time.Millisecond,
		PopupRenderDelay:   time.Millisecond,
		AfterEnterDelay:    time.Millisecond,
		ConfirmAttempts:    3,
		ConfirmAttemptGap:  time.Millisecond,
		EscalationPause:    time.Millisecond,
		ConfirmClickDelay:  time.Millisecond,
		ConfirmClickWindow: 200 * time.Millisecond,
		CompletionHook:     "MFWpartsConfirmed",
		FlowRateLow:        "2.0",
		FlowRateHigh:       "5.0",
	}
}

func newExecutor(t *testing.T, markup string, prefs config.Preferences) (*steps.Executor, *htmldom.Document) {
	t.Helper()
	return newExecutorWithLogger(t, zaptest.NewLogger(t), markup, prefs)
}

func newExecutorWithLogger(t *testing.T, logger *zap.Logger, markup string, prefs config.Preferences) (*steps.Executor, *htmldom.Document) {
	t.Helper()
	doc := htmldom.MustParse(markup)
	in := dom.NewInteractor(logger, doc)
	return steps.NewExecutor(logger, in, fastTiming(), prefs), doc
}

// partRow renders one parts table row with the vendor's id scheme.
func partRow(n, name, extra string) string {
	return `<tr><td>` + name + `</td>
		<td><input type="radio" id="radPartYes` + n + `" name="part` + n + `" value="1">
		    <input type="radio" id="radPartNo` + n + `" name="part` + n + `" value="0"></td>
		<td><input type="checkbox" id="chkPC` + n + `"></td>` + extra + `</tr>`
}

func diagSelect(n string, options ...string) string {
	s := `<td><select id="cmbDC` + n + `"><option value="">-- Select --</option>`
	for _, o := range options {
		s += `<option value="` + o[:4] + `|` + n + `">` + o + `</option>`
	}
	return s + `</select></td>`
}

func partsTable(rows ...string) string {
	s := `<table id="tblParts"><tbody>`
	for _, r := range rows {
		s += r
	}
	return s + `</tbody></table>`
}
