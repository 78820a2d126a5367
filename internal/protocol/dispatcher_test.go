package protocol_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/repairfill/internal/browser/htmldom"
	"github.com/xkilldash9x/repairfill/internal/config"
	"github.com/xkilldash9x/repairfill/internal/protocol"
	"github.com/xkilldash9x/repairfill/internal/steps"
	"github.com/xkilldash9x/repairfill/internal/testutil"
)

func newDispatcher(t *testing.T, prefs config.Preferences) (*protocol.Dispatcher, *htmldom.Document) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	doc := testutil.NewRepairForm()
	return protocol.NewDispatcher(logger, testutil.NewExecutor(logger, doc, prefs)), doc
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("request values override stored ones", func(t *testing.T) {
		d, doc := newDispatcher(t, testutil.Selections())

		resp := d.Dispatch(ctx, protocol.StepRequest{
			Action: protocol.ActionFillHoursAndPurity,
			Values: &config.OperatorValues{HoursIn: "77"},
		})
		require.True(t, resp.OK, resp.Error)

		var res steps.HoursPurityResult
		require.NoError(t, resp.DecodeResults(&res))
		assert.True(t, res.Submitted)
		assert.Equal(t, "77", doc.ValueOf("#txtHoursIn"))
		assert.Equal(t, "95.5", doc.ValueOf("#txtO2In"))
	})

	t.Run("uppercase alias", func(t *testing.T) {
		d, doc := newDispatcher(t, config.Preferences{})
		resp := d.Dispatch(ctx, protocol.StepRequest{Action: "CONFIRM_REPORTED_PROBLEM"})
		require.True(t, resp.OK)
		assert.True(t, doc.CheckedOf("#radConfirmIssue"))
	})

	t.Run("parts list", func(t *testing.T) {
		d, _ := newDispatcher(t, config.Preferences{})
		resp := d.Dispatch(ctx, protocol.StepRequest{Action: protocol.ActionGetPartsList})
		require.True(t, resp.OK)
		assert.Equal(t, protocol.PartsList{Parts: []string{"Compressor", "Control Board"}}, resp.Results)
	})

	t.Run("serial popup takes the request value", func(t *testing.T) {
		d, doc := newDispatcher(t, testutil.Selections())
		resp := d.Dispatch(ctx, protocol.StepRequest{Action: protocol.ActionRunSerialPopup, Value: "SN-77"})
		require.True(t, resp.OK)

		res, ok := resp.Results.(steps.SerialResult)
		require.True(t, ok)
		assert.Equal(t, "SN-77", res.Value)
		assert.Equal(t, steps.TierClick, res.Tier)
		assert.Nil(t, doc.Query("#partsModal"))
	})

	t.Run("unknown action", func(t *testing.T) {
		d, _ := newDispatcher(t, config.Preferences{})
		resp := d.Dispatch(ctx, protocol.StepRequest{Action: "launch-rockets"})
		assert.False(t, resp.OK)
		assert.Contains(t, resp.Error, "unknown action")
	})

	t.Run("canceled context fails the envelope", func(t *testing.T) {
		d, _ := newDispatcher(t, config.Preferences{})
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		resp := d.Dispatch(cctx, protocol.StepRequest{Action: protocol.ActionRunTestResults})
		assert.False(t, resp.OK)
		assert.Contains(t, resp.Error, "run-test-results")
	})
}

func TestHandle(t *testing.T) {
	d, _ := newDispatcher(t, config.Preferences{})
	ctx := context.Background()

	out := d.Handle(ctx, []byte(`{"action":"CLOSE_VALIDATION_MODAL"}`))
	assert.JSONEq(t, `{"ok":true,"results":{"found":false,"closed":false}}`, string(out))

	out = d.Handle(ctx, []byte(`{`))
	assert.Contains(t, string(out), `"ok":false`)
}

func TestActions(t *testing.T) {
	d, _ := newDispatcher(t, config.Preferences{})
	assert.Len(t, d.Actions(), 9)
	assert.ElementsMatch(t, protocol.All, d.Actions())
	assert.Contains(t, protocol.Names(), "run-parts-table")
}
