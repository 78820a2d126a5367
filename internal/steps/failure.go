package steps

import (
	"context"

	"github.com/xkilldash9x/repairfill/internal/config"
	"go.uber.org/zap"
)

// RunFailureReason answers the two failure questions, checks the first failure
// reason and confirms. The reason list renders after the questions are
// answered, so the checkbox is waited for; when it never shows up the first
// checkbox inside the configured container is used instead.
func (x *Executor) RunFailureReason(ctx context.Context) (FailureReasonResult, error) {
	defer x.releaseHandles(ctx)
	sel := x.selectors(config.StageFailureReason)
	var res FailureReasonResult

	if q1 := x.dom.Resolve(ctx, sel.Get("q1Radio"), nil); q1 != nil {
		res.Q1 = x.dom.EnsureChecked(ctx, q1, true)
	}
	if q2 := x.dom.Resolve(ctx, sel.Get("q2Radio"), nil); q2 != nil {
		res.Q2 = x.dom.EnsureChecked(ctx, q2, true)
	}

	cb := x.waitPresent(ctx, sel.Get("firstCheckbox"), x.timing.WaitTimeout)
	res.Waited = true
	if cb == nil {
		if container := x.waitPresent(ctx, sel.Get("reasonsContainer"), x.timing.WaitTimeout); container != nil {
			cb = x.dom.Resolve(ctx, []string{`input[type="checkbox"]`}, container)
		}
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if cb != nil {
		res.Checkbox = x.dom.EnsureChecked(ctx, cb, true)
	} else {
		x.logger.Debug("No failure reason checkbox appeared.")
	}

	res.Confirmed = x.nativeClick(ctx, x.dom.Resolve(ctx, sel.Get("confirmBtn"), nil), "confirmBtn")

	x.logger.Info("Failure reason completed.",
		zap.Bool("q1", res.Q1),
		zap.Bool("q2", res.Q2),
		zap.Bool("checkbox", res.Checkbox),
		zap.Bool("confirmed", res.Confirmed))
	return res, ctx.Err()
}
