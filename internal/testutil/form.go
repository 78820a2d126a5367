// Package testutil holds fixtures shared by the tests of the workflow,
// protocol, server and command packages.
package testutil

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/repairfill/internal/browser/dom"
	"github.com/xkilldash9x/repairfill/internal/browser/htmldom"
	"github.com/xkilldash9x/repairfill/internal/config"
	"github.com/xkilldash9x/repairfill/internal/steps"
)

// CompletionHook is the page global the fixture defines.
const CompletionHook = "MFWpartsConfirmed"

// FastTiming shrinks every wait so fixtures that never satisfy a probe fail
// quickly.
func FastTiming() config.AutomationConfig {
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
		ConfirmClickWindow: 50 * time.Millisecond,
		CompletionHook:     CompletionHook,
		Settle: config.SettleConfig{
			BeforeParts:      time.Millisecond,
			BeforePartsRetry: time.Millisecond,
			AfterParts:       time.Millisecond,
			PartsToSerial:    time.Millisecond,
			AfterSerial:      time.Millisecond,
		},
		FlowRateLow:  "2.0",
		FlowRateHigh: "5.0",
	}
}

// RepairForm is the whole multi-section form with the vendor's ids: two parts
// rows, an open serial popup and the final test results.
const RepairForm = `<!doctype html><html><body>
<section id="hours">
  <input id="txtHoursIn"><input id="txtO2In">
  <button id="start" type="button">Start</button>
</section>
<section id="confirm">
  <input type="radio" name="issue" id="radConfirmIssue"><input type="radio" name="issue" id="radDenyIssue" checked>
  <input type="radio" name="smoke" id="radSmokeYes"><input type="radio" name="smoke" id="radSmokeNo">
  <button id="btnConfirmDefective" type="button">Confirm</button>
</section>
<section id="failure">
  <input type="radio" name="q1" id="radRepairYes"><input type="radio" name="q1" id="radRepairNo">
  <input type="radio" name="q2" id="radAbuseYes"><input type="radio" name="q2" id="radAbuseNo">
  <div id="reasons"><input type="checkbox" id="1"> Worn<input type="checkbox" id="2"> Damaged</div>
  <button id="btnRepairStatus" type="button">Continue</button>
</section>
<table id="tblParts"><tbody>
  <tr><td>Compressor</td>
    <td><input type="radio" id="radPartYes1" name="part1" value="1"><input type="radio" id="radPartNo1" name="part1" value="0"></td>
    <td><input type="checkbox" id="chkPC1"></td>
    <td><select id="cmbDC1"><option value="">-- Select --</option><option value="INV2|1">INV2 - Worn</option><option value="INV3|1">INV3 - Failed</option></select></td></tr>
  <tr><td>Control Board</td>
    <td><input type="radio" id="radPartYes2" name="part2" value="1"><input type="radio" id="radPartNo2" name="part2" value="0"></td>
    <td><input type="checkbox" id="chkPC2"></td>
    <td><select id="cmbDC2"><option value="">-- Select --</option><option value="INV2|2">INV2 - Worn</option></select></td></tr>
</tbody></table>
<div class="modal show" id="partsModal" role="dialog">
  <input type="checkbox" id="chkConfirmRepair">
  <input type="text" name="serial" id="serialText">
  <button id="partsConfirm" type="button">Confirm</button>
</div>
<section id="results">
  <input id="txtFLowRateLow"><input id="txtOxygenLow">
  <input id="txtFLowRateMax"><input id="txtOxygenMax">
  <input id="txtPSI"><input id="txtHoursOut">
  <input type="radio" id="radAlarmYes" name="Alarm" value="Pass"><input type="radio" id="radAlarmNo" name="Alarm" value="Fail">
  <input type="checkbox" id="chkFilters">
</section>
</body></html>`

// NewRepairForm parses RepairForm and wires the page behavior: the confirm
// button closes the popup and the completion hook is defined.
func NewRepairForm() *htmldom.Document {
	doc := htmldom.MustParse(RepairForm)
	doc.On("#partsConfirm", "click", func(d *htmldom.Document, _ *html.Node, _ dom.Event) {
		d.Remove("#partsModal")
	})
	doc.DefineGlobal(CompletionHook, func(*htmldom.Document) {})
	return doc
}

// Selections is the preference set that marks the compressor.
func Selections() config.Preferences {
	return config.Preferences{
		Selections: []string{"Compressor"},
		PartNumber: "SN-1001",
		Values: config.OperatorValues{
			HoursIn:       "1234",
			OxygenPurity:  "95.5",
			OxygenPurity2: "95",
			OxygenPurity5: "99",
			PSI:           "50",
			HoursOut:      "1240",
		},
	}
}

// NewExecutor builds an executor over page with FastTiming.
func NewExecutor(logger *zap.Logger, page dom.Page, prefs config.Preferences) *steps.Executor {
	return steps.NewExecutor(logger, dom.NewInteractor(logger, page), FastTiming(), prefs)
}
