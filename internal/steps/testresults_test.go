package steps_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/repairfill/internal/config"
	"github.com/xkilldash9x/repairfill/internal/steps"
)

const testResultsForm = `<form>
	<input id="txtFLowRateLow"> <input id="txtOxygenLow">
	<input id="txtFLowRateMax"> <input id="txtOxygenMax">
	<input id="txtPSI"> <input id="txtHoursOut">
	<input type="radio" id="radAlarmYes" name="Alarm" value="Pass">
	<input type="radio" id="radAlarmNo" name="Alarm" value="Fail" checked>
	<input type="checkbox" id="chkFilters">
</form>`

func TestRunTestResults(t *testing.T) {
	ctx := context.Background()
	values := config.OperatorValues{OxygenPurity2: "95", OxygenPurity5: "99", PSI: "50", HoursOut: "120"}

	t.Run("all six fields and both controls", func(t *testing.T) {
		x, doc := newExecutor(t, testResultsForm, config.Preferences{})

		res, err := x.RunTestResults(ctx, values)
		require.NoError(t, err)

		want := steps.TestResultsResult{
			Filled:         steps.TestResultsFilled{Flow2: true, Purity2: true, Flow5: true, Purity5: true, PSI: true, HoursOut: true},
			AlarmPass:      true,
			FiltersChecked: true,
		}
		if diff := cmp.Diff(want, res); diff != "" {
			t.Errorf("RunTestResults mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, "2.0", doc.ValueOf("#txtFLowRateLow"))
		assert.Equal(t, "5.0", doc.ValueOf("#txtFLowRateMax"))
		assert.Equal(t, "95", doc.ValueOf("#txtOxygenLow"))
		assert.Equal(t, "99", doc.ValueOf("#txtOxygenMax"))
		assert.Equal(t, "50", doc.ValueOf("#txtPSI"))
		assert.Equal(t, "120", doc.ValueOf("#txtHoursOut"))
		assert.True(t, doc.CheckedOf("#radAlarmYes"))
		assert.False(t, doc.CheckedOf("#radAlarmNo"))
		assert.True(t, doc.CheckedOf("#chkFilters"))
		assert.Equal(t, []string{"input", "change", "blur"}, doc.EventTypes("#txtPSI"))
	})

	t.Run("alternate spellings are tried", func(t *testing.T) {
		x, doc := newExecutor(t, `<input id="txtFlowRateLow"><input id="txtPsi">`, config.Preferences{})

		res, err := x.RunTestResults(ctx, values)
		require.NoError(t, err)
		assert.True(t, res.Filled.Flow2)
		assert.True(t, res.Filled.PSI)
		assert.False(t, res.Filled.HoursOut)
		assert.False(t, res.AlarmPass)
		assert.Equal(t, "2.0", doc.ValueOf("#txtFlowRateLow"))
		assert.Equal(t, "50", doc.ValueOf("#txtPsi"))
	})

	t.Run("a missing field does not block the others", func(t *testing.T) {
		x, doc := newExecutor(t, testResultsForm, config.Preferences{})
		doc.Remove("#txtPSI")

		res, err := x.RunTestResults(ctx, values)
		require.NoError(t, err)
		assert.False(t, res.Filled.PSI)
		assert.True(t, res.Filled.HoursOut)
		assert.True(t, res.FiltersChecked)
	})

	t.Run("selector override is tried before the default", func(t *testing.T) {
		x, doc := newExecutor(t, `<input id="psiBox">`+testResultsForm, config.Preferences{
			Selectors: map[config.Stage]config.SelectorSet{config.StageTestResults: {"psi": {"#psiBox"}}},
		})

		_, err := x.RunTestResults(ctx, values)
		require.NoError(t, err)
		assert.Equal(t, "50", doc.ValueOf("#psiBox"))
		assert.Equal(t, "", doc.ValueOf("#txtPSI"))
	})
}
