package protocol

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/xkilldash9x/repairfill/internal/config"
	"github.com/xkilldash9x/repairfill/internal/steps"
)

// Handler runs one action and returns its results.
type Handler func(ctx context.Context, req StepRequest) (interface{}, error)

// Dispatcher routes requests to the step executor.
type Dispatcher struct {
	logger   *zap.Logger
	exec     *steps.Executor
	handlers map[Action]Handler
}

// NewDispatcher registers every form action against exec.
func NewDispatcher(logger *zap.Logger, exec *steps.Executor) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		logger:   logger.Named("dispatcher"),
		exec:     exec,
		handlers: make(map[Action]Handler),
	}
	d.registerHandlers()
	return d
}

func (d *Dispatcher) registerHandlers() {
	d.handlers[ActionFillHoursAndPurity] = d.handleHoursAndPurity
	d.handlers[ActionConfirmProblem] = func(ctx context.Context, _ StepRequest) (interface{}, error) {
		return d.exec.ConfirmReportedProblem(ctx)
	}
	d.handlers[ActionRunFailureReason] = func(ctx context.Context, _ StepRequest) (interface{}, error) {
		return d.exec.RunFailureReason(ctx)
	}
	d.handlers[ActionRunPartsTable] = func(ctx context.Context, _ StepRequest) (interface{}, error) {
		return d.exec.RunPartsTable(ctx)
	}
	d.handlers[ActionGetPartsList] = func(ctx context.Context, _ StepRequest) (interface{}, error) {
		parts, err := d.exec.GetPartsList(ctx)
		if parts == nil {
			parts = []string{}
		}
		return PartsList{Parts: parts}, err
	}
	d.handlers[ActionRunSerialPopup] = func(ctx context.Context, req StepRequest) (interface{}, error) {
		return d.exec.RunSerialPopup(ctx, req.Value)
	}
	d.handlers[ActionRunTestResults] = d.handleTestResults
	d.handlers[ActionCloseValidationModal] = func(ctx context.Context, _ StepRequest) (interface{}, error) {
		return d.exec.CloseValidationModal(ctx)
	}
	d.handlers[ActionConfirmParts] = func(ctx context.Context, _ StepRequest) (interface{}, error) {
		return d.exec.ConfirmParts(ctx)
	}
}

// values merges the request's readings over the stored ones.
func (d *Dispatcher) values(req StepRequest) config.OperatorValues {
	stored := d.exec.Preferences().Values
	if req.Values == nil {
		return stored
	}
	return req.Values.Merge(stored)
}

func (d *Dispatcher) handleHoursAndPurity(ctx context.Context, req StepRequest) (interface{}, error) {
	return d.exec.FillHoursAndPurity(ctx, d.values(req))
}

func (d *Dispatcher) handleTestResults(ctx context.Context, req StepRequest) (interface{}, error) {
	return d.exec.RunTestResults(ctx, d.values(req))
}

// Actions lists the registered action tags in sorted order.
func (d *Dispatcher) Actions() []Action {
	out := make([]Action, 0, len(d.handlers))
	for a := range d.handlers {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Dispatch runs req and wraps the outcome. Step results come back with ok=true
// even when sub-actions missed; only an unknown action or a context error
// produces ok=false.
func (d *Dispatcher) Dispatch(ctx context.Context, req StepRequest) StepResponse {
	action := ParseAction(string(req.Action))
	handler, ok := d.handlers[action]
	if !ok {
		d.logger.Error("Rejected step request.", zap.String("action", string(req.Action)))
		return Failure(fmt.Errorf("%w: %q", ErrUnknownAction, req.Action))
	}
	req.Action = action

	results, err := handler(ctx, req)
	if err != nil {
		d.logger.Error("Step failed.", zap.String("action", string(action)), zap.Error(err))
		return Failure(fmt.Errorf("%s: %w", action, err))
	}
	d.logger.Debug("Step finished.", zap.String("action", string(action)))
	return Success(results)
}

// Handle decodes a wire request, dispatches it and encodes the envelope.
func (d *Dispatcher) Handle(ctx context.Context, data []byte) []byte {
	var resp StepResponse
	if req, err := DecodeRequest(data); err != nil {
		d.logger.Error("Undecodable step request.", zap.Error(err))
		resp = Failure(err)
	} else {
		resp = d.Dispatch(ctx, req)
	}
	out, err := resp.Encode()
	if err != nil {
		// Results are plain structs; this only trips on a programming error.
		out, _ = Failure(fmt.Errorf("failed to encode response: %w", err)).Encode()
	}
	return out
}
