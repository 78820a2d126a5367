package steps

import (
	"context"

	"github.com/xkilldash9x/repairfill/internal/browser/dom"
	"github.com/xkilldash9x/repairfill/internal/config"
	"go.uber.org/zap"
)

// FillHoursAndPurity writes the hours-in and oxygen purity readings and
// submits the section. Hours keep digits only; purity keeps a decimal.
func (x *Executor) FillHoursAndPurity(ctx context.Context, values config.OperatorValues) (HoursPurityResult, error) {
	defer x.releaseHandles(ctx)
	sel := x.selectors(config.StageHoursPurity)
	var res HoursPurityResult

	hours := x.dom.Resolve(ctx, sel.Get("hoursIn"), nil)
	res.Filled.HoursIn = x.dom.SetValue(ctx, hours, dom.SanitizeInteger(values.HoursIn))

	purity := x.dom.Resolve(ctx, sel.Get("oxygenPurity"), nil)
	res.Filled.OxygenPurity = x.dom.SetValue(ctx, purity, dom.SanitizeDecimal(values.OxygenPurity))

	res.Submitted = x.nativeClick(ctx, x.dom.Resolve(ctx, sel.Get("submit"), nil), "submit")

	x.logger.Info("Hours and purity filled.",
		zap.Bool("hours_in", res.Filled.HoursIn),
		zap.Bool("oxygen_purity", res.Filled.OxygenPurity),
		zap.Bool("submitted", res.Submitted))
	return res, ctx.Err()
}

// ConfirmReportedProblem answers the two confirmation radios and submits. The
// radios are independent; a missing one does not block the other.
func (x *Executor) ConfirmReportedProblem(ctx context.Context) (ConfirmResult, error) {
	defer x.releaseHandles(ctx)
	sel := x.selectors(config.StageConfirm)
	var res ConfirmResult

	if yes := x.dom.Resolve(ctx, sel.Get("confirmIssueYes"), nil); yes != nil {
		res.SetYes = x.dom.EnsureChecked(ctx, yes, true)
	} else {
		x.logger.Debug("Confirm-issue radio not found.")
	}
	if smokeNo := x.dom.Resolve(ctx, sel.Get("smokeNo"), nil); smokeNo != nil {
		res.SetSmokeNo = x.dom.EnsureChecked(ctx, smokeNo, true)
	} else {
		x.logger.Debug("Smoke radio not found.")
	}
	res.Submitted = x.nativeClick(ctx, x.dom.Resolve(ctx, sel.Get("submit"), nil), "submit")

	x.logger.Info("Reported problem confirmed.",
		zap.Bool("set_yes", res.SetYes),
		zap.Bool("set_smoke_no", res.SetSmokeNo),
		zap.Bool("submitted", res.Submitted))
	return res, ctx.Err()
}

// nativeClick calls the element's own click(). A nil element is reported as a miss.
func (x *Executor) nativeClick(ctx context.Context, el dom.Element, field string) bool {
	if el == nil {
		x.logger.Debug("Control not found.", zap.String("field", field))
		return false
	}
	if err := el.Click(ctx); err != nil {
		x.logger.Debug("Native click failed.", zap.String("field", field), zap.Error(err))
		return false
	}
	return true
}
