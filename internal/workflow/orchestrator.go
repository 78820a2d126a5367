// Package workflow drives the step executors through the whole repair form in
// a fixed order, inserting settle delays and retrying the parts table once
// when it comes back incomplete.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/repairfill/internal/browser/dom"
	"github.com/xkilldash9x/repairfill/internal/config"
	"github.com/xkilldash9x/repairfill/internal/protocol"
	"github.com/xkilldash9x/repairfill/internal/steps"
)

// ErrStageFailed marks a run halted by a stage that answered ok=false.
var ErrStageFailed = errors.New("stage failed")

// Run kinds.
const (
	KindFull           = "full"
	KindPartsAndSerial = "parts-and-serial"
)

// Stage announcements.
const (
	StatusStarted        = "Automation started"
	StatusHoursPurity    = "Filled and submitted"
	StatusConfirm        = "Problem confirmed"
	StatusFailureReason  = "Failure reason selected"
	StatusParts          = "Parts table completed"
	StatusSerial         = "Serial filled and confirmed"
	StatusPartsAndSerial = "Parts + serial completed"
	StatusTestResults    = "Final Test Results filled"
	StatusComplete       = "Automation complete"
)

// Runner executes one step request. *protocol.Dispatcher is the production runner.
type Runner interface {
	Dispatch(ctx context.Context, req protocol.StepRequest) protocol.StepResponse
}

// Input carries the operator data for a run. Blank values fall back to the
// stored preferences inside the dispatcher.
type Input struct {
	Values     config.OperatorValues
	PartNumber string
}

// Orchestrator runs the stages of the form against one tab. It is not safe for
// concurrent runs; callers serialize per tab.
type Orchestrator struct {
	logger   *zap.Logger
	runner   Runner
	settle   config.SettleConfig
	reporter Reporter
}

// NewOrchestrator creates an orchestrator. A nil reporter logs only.
func NewOrchestrator(logger *zap.Logger, runner Runner, settle config.SettleConfig, reporter Reporter) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("workflow")
	if reporter == nil {
		reporter = NewLogReporter(logger)
	}
	return &Orchestrator{logger: logger, runner: runner, settle: settle, reporter: reporter}
}

// stage is one entry of a run plan.
type stage struct {
	req    protocol.StepRequest
	before time.Duration
	status string
	retry  *RetryPolicy
}

// partsRetry re-runs an incomplete parts table once after dismissing the
// validation modal.
func (o *Orchestrator) partsRetry() *RetryPolicy {
	return &RetryPolicy{
		MaxRetries: 1,
		Wait:       o.settle.BeforePartsRetry,
		ShouldRetry: func(resp protocol.StepResponse) bool {
			var res steps.PartsTableResult
			if err := resp.DecodeResults(&res); err != nil {
				return false
			}
			return !res.Complete()
		},
		Remediate: func(ctx context.Context) {
			o.runner.Dispatch(ctx, protocol.StepRequest{Action: protocol.ActionCloseValidationModal})
		},
		OnRetry: func(attempt int) {
			o.logger.Warn("Parts table incomplete, retrying once.", zap.Int("attempt", attempt))
		},
	}
}

// Run executes the full form.
func (o *Orchestrator) Run(ctx context.Context, in Input) (*Report, error) {
	values := in.Values
	plan := []stage{
		{req: protocol.StepRequest{Action: protocol.ActionFillHoursAndPurity, Values: &values}, status: StatusHoursPurity},
		{req: protocol.StepRequest{Action: protocol.ActionConfirmProblem}, status: StatusConfirm},
		{req: protocol.StepRequest{Action: protocol.ActionRunFailureReason}, status: StatusFailureReason},
		{req: protocol.StepRequest{Action: protocol.ActionRunPartsTable}, before: o.settle.BeforeParts, status: StatusParts, retry: o.partsRetry()},
		{req: protocol.StepRequest{Action: protocol.ActionCloseValidationModal}, before: o.settle.AfterParts},
		{req: protocol.StepRequest{Action: protocol.ActionRunSerialPopup, Value: in.PartNumber}, status: StatusSerial},
		{req: protocol.StepRequest{Action: protocol.ActionConfirmParts}},
		{req: protocol.StepRequest{Action: protocol.ActionRunTestResults, Values: &values}, before: o.settle.AfterSerial, status: StatusTestResults},
	}
	return o.execute(ctx, KindFull, plan)
}

// RunPartsAndSerial runs the parts table, pauses, then the serial popup and the
// confirm click.
func (o *Orchestrator) RunPartsAndSerial(ctx context.Context, partNumber string) (*Report, error) {
	plan := []stage{
		{req: protocol.StepRequest{Action: protocol.ActionRunPartsTable}, status: StatusParts, retry: o.partsRetry()},
		{req: protocol.StepRequest{Action: protocol.ActionRunSerialPopup, Value: partNumber}, before: o.settle.PartsToSerial, status: StatusSerial},
		{req: protocol.StepRequest{Action: protocol.ActionConfirmParts}, status: StatusPartsAndSerial},
	}
	return o.execute(ctx, KindPartsAndSerial, plan)
}

func (o *Orchestrator) execute(ctx context.Context, kind string, plan []stage) (*Report, error) {
	report := newReport(kind)
	logger := o.logger.With(zap.String("run_id", report.RunID), zap.String("kind", kind))
	logger.Info("Workflow started.", zap.Int("stages", len(plan)))
	o.announce(ctx, report, "", StatusStarted, true)

	for _, st := range plan {
		action := st.req.Action
		if err := dom.Sleep(ctx, st.before); err != nil {
			return o.fail(ctx, report, action, fmt.Errorf("%s: %w", action, err))
		}

		started := time.Now()
		var (
			resp     protocol.StepResponse
			attempts = 1
			err      error
		)
		if st.retry != nil {
			resp, attempts, err = st.retry.Do(ctx, func(ctx context.Context) protocol.StepResponse {
				return o.runner.Dispatch(ctx, st.req)
			})
		} else {
			resp = o.runner.Dispatch(ctx, st.req)
		}
		report.Stages = append(report.Stages, StageReport{
			Action:   action,
			OK:       resp.OK,
			Attempts: attempts,
			Results:  resp.Results,
			Error:    resp.Error,
			Duration: time.Since(started),
		})

		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			return o.fail(ctx, report, action, fmt.Errorf("%s: %w", action, err))
		}
		if !resp.OK {
			return o.fail(ctx, report, action, fmt.Errorf("%w: %s", ErrStageFailed, resp.Error))
		}
		logger.Debug("Stage finished.", zap.String("action", string(action)), zap.Int("attempts", attempts))
		if st.status != "" {
			o.announce(ctx, report, string(action), st.status, true)
		}
	}

	report.OK = true
	report.Status = StatusComplete
	report.FinishedAt = time.Now()
	if kind == KindFull {
		o.announce(ctx, report, "", StatusComplete, true)
	}
	logger.Info("Workflow finished.", zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))
	return report, nil
}

// fail closes the report on the first failing stage and announces its error.
func (o *Orchestrator) fail(ctx context.Context, report *Report, action protocol.Action, err error) (*Report, error) {
	report.OK = false
	report.Error = err.Error()
	report.Status = err.Error()
	report.FinishedAt = time.Now()
	o.logger.Error("Workflow halted.", zap.String("run_id", report.RunID), zap.String("action", string(action)), zap.Error(err))
	// The caller's context may be gone; the failure is still announced.
	o.announce(context.WithoutCancel(ctx), report, string(action), err.Error(), false)
	return report, err
}

func (o *Orchestrator) announce(ctx context.Context, report *Report, stage, msg string, ok bool) {
	s := Status{RunID: report.RunID, Stage: stage, Message: msg, OK: ok, Time: time.Now()}
	if err := o.reporter.Publish(ctx, s); err != nil {
		o.logger.Warn("Status reporter failed.", zap.Error(err))
	}
}
