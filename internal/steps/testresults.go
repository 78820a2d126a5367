package steps

import (
	"context"

	"github.com/xkilldash9x/repairfill/internal/config"
	"go.uber.org/zap"
)

// RunTestResults fills the final test readings. The two flow rates are fixed
// constants; the rest come from the operator. Each field is independent.
func (x *Executor) RunTestResults(ctx context.Context, values config.OperatorValues) (TestResultsResult, error) {
	defer x.releaseHandles(ctx)
	sel := x.selectors(config.StageTestResults)
	var res TestResultsResult

	fields := []struct {
		name  string
		value string
		out   *bool
	}{
		{"flow2", x.timing.FlowRateLow, &res.Filled.Flow2},
		{"purity2", values.OxygenPurity2, &res.Filled.Purity2},
		{"flow5", x.timing.FlowRateHigh, &res.Filled.Flow5},
		{"purity5", values.OxygenPurity5, &res.Filled.Purity5},
		{"psi", values.PSI, &res.Filled.PSI},
		{"hoursOut", values.HoursOut, &res.Filled.HoursOut},
	}
	for _, f := range fields {
		el := x.waitPresent(ctx, sel.Get(f.name), x.timing.FieldWaitTimeout)
		if el == nil {
			x.logger.Debug("Test result field not found.", zap.String("field", f.name))
			if err := ctx.Err(); err != nil {
				return res, err
			}
			continue
		}
		*f.out = x.dom.SetValueAndBlur(ctx, el, f.value)
	}

	res.AlarmPass = x.ensureControl(ctx, sel.Get("alarmPass"), "alarmPass")
	res.FiltersChecked = x.ensureControl(ctx, sel.Get("filtersConfirm"), "filtersConfirm")

	x.logger.Info("Final Test Results filled.",
		zap.Any("filled", res.Filled),
		zap.Bool("alarm_pass", res.AlarmPass),
		zap.Bool("filters_checked", res.FiltersChecked))
	return res, ctx.Err()
}

func (x *Executor) ensureControl(ctx context.Context, candidates []string, field string) bool {
	el := x.waitPresent(ctx, candidates, x.timing.ControlWaitTimeout)
	if el == nil {
		x.logger.Debug("Control not found.", zap.String("field", field))
		return false
	}
	return x.dom.EnsureChecked(ctx, el, true)
}
