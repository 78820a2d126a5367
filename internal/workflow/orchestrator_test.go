package workflow_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/repairfill/internal/config"
	"github.com/xkilldash9x/repairfill/internal/protocol"
	"github.com/xkilldash9x/repairfill/internal/steps"
	"github.com/xkilldash9x/repairfill/internal/testutil"
	"github.com/xkilldash9x/repairfill/internal/workflow"
)

// mockRunner records the actions it is asked to run.
type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Dispatch(ctx context.Context, req protocol.StepRequest) protocol.StepResponse {
	args := m.Called(req.Action)
	return args.Get(0).(protocol.StepResponse)
}

// recorder collects announced statuses.
type recorder struct {
	mu       sync.Mutex
	statuses []workflow.Status
}

func (r *recorder) Publish(_ context.Context, s workflow.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
	return nil
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, s := range r.statuses {
		out = append(out, s.Message)
	}
	return out
}

var completeParts = steps.PartsTableResult{SpecificYesClicked: true, DiagnosisSet: true, PrimaryCauseClicked: true}

func okEverywhere(m *mockRunner) {
	for _, a := range []protocol.Action{
		protocol.ActionFillHoursAndPurity, protocol.ActionConfirmProblem, protocol.ActionRunFailureReason,
		protocol.ActionCloseValidationModal, protocol.ActionRunSerialPopup, protocol.ActionConfirmParts,
		protocol.ActionRunTestResults,
	} {
		m.On("Dispatch", a).Return(protocol.Success(nil)).Maybe()
	}
}

func actions(r *workflow.Report) []protocol.Action {
	var out []protocol.Action
	for _, s := range r.Stages {
		out = append(out, s.Action)
	}
	return out
}

func TestOrchestratorRun(t *testing.T) {
	ctx := context.Background()

	t.Run("runs every stage in order", func(t *testing.T) {
		m := &mockRunner{}
		m.On("Dispatch", protocol.ActionRunPartsTable).Return(protocol.Success(completeParts)).Once()
		okEverywhere(m)
		rec := &recorder{}

		o := workflow.NewOrchestrator(zaptest.NewLogger(t), m, testutil.FastTiming().Settle, rec)
		report, err := o.Run(ctx, workflow.Input{})
		require.NoError(t, err)

		assert.True(t, report.OK)
		assert.Equal(t, workflow.StatusComplete, report.Status)
		_, err = uuid.Parse(report.RunID)
		assert.NoError(t, err)
		assert.Equal(t, []protocol.Action{
			protocol.ActionFillHoursAndPurity,
			protocol.ActionConfirmProblem,
			protocol.ActionRunFailureReason,
			protocol.ActionRunPartsTable,
			protocol.ActionCloseValidationModal,
			protocol.ActionRunSerialPopup,
			protocol.ActionConfirmParts,
			protocol.ActionRunTestResults,
		}, actions(report))
		assert.Equal(t, []string{
			workflow.StatusStarted,
			workflow.StatusHoursPurity,
			workflow.StatusConfirm,
			workflow.StatusFailureReason,
			workflow.StatusParts,
			workflow.StatusSerial,
			workflow.StatusTestResults,
			workflow.StatusComplete,
		}, rec.messages())
		m.AssertExpectations(t)
	})

	t.Run("incomplete parts table is retried once after the modal is dismissed", func(t *testing.T) {
		m := &mockRunner{}
		m.On("Dispatch", protocol.ActionRunPartsTable).Return(protocol.Success(steps.PartsTableResult{SpecificYesClicked: true})).Once()
		m.On("Dispatch", protocol.ActionRunPartsTable).Return(protocol.Success(completeParts)).Once()
		okEverywhere(m)

		core, logs := observer.New(zap.WarnLevel)
		o := workflow.NewOrchestrator(zap.New(core), m, testutil.FastTiming().Settle, nil)
		report, err := o.Run(ctx, workflow.Input{})
		require.NoError(t, err)

		parts, ok := report.Stage(protocol.ActionRunPartsTable)
		require.True(t, ok)
		assert.Equal(t, 2, parts.Attempts)
		assert.Equal(t, completeParts, parts.Results)
		assert.Equal(t, 1, logs.FilterMessage("Parts table incomplete, retrying once.").Len())
		// Dismissed once before the retry and once after the parts stage.
		m.AssertNumberOfCalls(t, "Dispatch", 10)
	})

	t.Run("still incomplete after the retry proceeds with its flags", func(t *testing.T) {
		m := &mockRunner{}
		partial := steps.PartsTableResult{SpecificYesClicked: true, DiagnosisSet: true}
		m.On("Dispatch", protocol.ActionRunPartsTable).Return(protocol.Success(partial)).Twice()
		okEverywhere(m)

		o := workflow.NewOrchestrator(zaptest.NewLogger(t), m, testutil.FastTiming().Settle, nil)
		report, err := o.Run(ctx, workflow.Input{})
		require.NoError(t, err)
		assert.True(t, report.OK)
		parts, _ := report.Stage(protocol.ActionRunPartsTable)
		assert.Equal(t, partial, parts.Results)
	})

	t.Run("a failed stage halts the run", func(t *testing.T) {
		m := &mockRunner{}
		m.On("Dispatch", protocol.ActionFillHoursAndPurity).Return(protocol.Success(nil))
		m.On("Dispatch", protocol.ActionConfirmProblem).Return(protocol.StepResponse{Error: "confirm-reported-problem: context deadline exceeded"})
		rec := &recorder{}

		o := workflow.NewOrchestrator(zaptest.NewLogger(t), m, testutil.FastTiming().Settle, rec)
		report, err := o.Run(ctx, workflow.Input{})
		require.Error(t, err)
		assert.ErrorIs(t, err, workflow.ErrStageFailed)
		assert.False(t, report.OK)
		assert.Len(t, report.Stages, 2)
		assert.Contains(t, report.Error, "deadline exceeded")

		msgs := rec.messages()
		assert.Contains(t, msgs[len(msgs)-1], "deadline exceeded")
		m.AssertNotCalled(t, "Dispatch", protocol.ActionRunFailureReason)
	})

	t.Run("canceled context names the stage", func(t *testing.T) {
		m := &mockRunner{}
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		o := workflow.NewOrchestrator(zaptest.NewLogger(t), m, testutil.FastTiming().Settle, nil)
		report, err := o.Run(cctx, workflow.Input{})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Contains(t, report.Error, string(protocol.ActionFillHoursAndPurity))
		assert.Empty(t, report.Stages)
	})
}

func TestOrchestratorRunPartsAndSerial(t *testing.T) {
	m := &mockRunner{}
	m.On("Dispatch", protocol.ActionRunPartsTable).Return(protocol.Success(completeParts)).Once()
	okEverywhere(m)
	rec := &recorder{}

	o := workflow.NewOrchestrator(zaptest.NewLogger(t), m, testutil.FastTiming().Settle, rec)
	report, err := o.RunPartsAndSerial(context.Background(), "SN-5")
	require.NoError(t, err)
	assert.Equal(t, workflow.KindPartsAndSerial, report.Kind)
	assert.Equal(t, []protocol.Action{
		protocol.ActionRunPartsTable, protocol.ActionRunSerialPopup, protocol.ActionConfirmParts,
	}, actions(report))
	assert.Contains(t, rec.messages(), workflow.StatusPartsAndSerial)
}

func TestOrchestratorAgainstRepairForm(t *testing.T) {
	logger := zaptest.NewLogger(t)
	doc := testutil.NewRepairForm()
	prefs := testutil.Selections()
	d := protocol.NewDispatcher(logger, testutil.NewExecutor(logger, doc, prefs))

	o := workflow.NewOrchestrator(logger, d, testutil.FastTiming().Settle, nil)
	report, err := o.Run(context.Background(), workflow.Input{Values: config.OperatorValues{PSI: "55"}})
	require.NoError(t, err)
	require.True(t, report.OK, report.Error)

	assert.Equal(t, "1234", doc.ValueOf("#txtHoursIn"))
	assert.True(t, doc.CheckedOf("#radConfirmIssue"))
	assert.True(t, doc.CheckedOf("#radSmokeNo"))
	assert.True(t, doc.CheckedOf(`[id="1"]`))
	assert.True(t, doc.CheckedOf("#radPartYes1"))
	assert.True(t, doc.CheckedOf("#radPartNo2"))
	assert.True(t, doc.CheckedOf("#chkPC1"))
	assert.False(t, doc.CheckedOf("#chkPC2"))
	assert.Equal(t, "INV2 - Worn", doc.SelectedText("#cmbDC1"))
	assert.Nil(t, doc.Query("#partsModal"))
	assert.Equal(t, "2.0", doc.ValueOf("#txtFLowRateLow"))
	assert.Equal(t, "55", doc.ValueOf("#txtPSI"))
	assert.Equal(t, "1240", doc.ValueOf("#txtHoursOut"))
	assert.True(t, doc.CheckedOf("#chkFilters"))
	assert.Equal(t, 1, doc.GlobalCalls(testutil.CompletionHook))

	serial, ok := report.Stage(protocol.ActionRunSerialPopup)
	require.True(t, ok)
	assert.Equal(t, "SN-1001", serial.Results.(steps.SerialResult).Value)
}
