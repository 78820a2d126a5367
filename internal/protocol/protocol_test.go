package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/repairfill/internal/steps"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		in   string
		want Action
	}{
		{"fill-hours-and-purity", ActionFillHoursAndPurity},
		{"FILL_HOURS_AND_PURITY", ActionFillHoursAndPurity},
		{" RUN_SERIAL_POPUP ", ActionRunSerialPopup},
		{"GET_PARTS_LIST", ActionGetPartsList},
		// Mixed case is not an alias.
		{"Run_Parts_Table", Action("Run_Parts_Table")},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseAction(tt.in), tt.in)
	}
}

func TestDecodeRequest(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"action":"RUN_TEST_RESULTS","values":{"psi":"50","hoursOut":"120"}}`))
	require.NoError(t, err)
	assert.Equal(t, ActionRunTestResults, req.Action)
	require.NotNil(t, req.Values)
	assert.Equal(t, "50", req.Values.PSI)
	assert.Equal(t, "120", req.Values.HoursOut)

	req, err = DecodeRequest([]byte(`{"action":"run-serial-popup","value":"SN-9"}`))
	require.NoError(t, err)
	assert.Equal(t, "SN-9", req.Value)
	assert.Nil(t, req.Values)

	_, err = DecodeRequest([]byte(`{"value":"x"}`))
	assert.Error(t, err)
	_, err = DecodeRequest([]byte(`not json`))
	assert.Error(t, err)
}

func TestResponseEnvelope(t *testing.T) {
	b, err := Success(steps.ConfirmResult{SetYes: true}).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true,"results":{"setYes":true,"setSmokeNo":false,"submitted":false}}`, string(b))

	b, err = StepResponse{OK: false, Error: "boom"}.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":false,"error":"boom"}`, string(b))

	var decoded steps.ConfirmResult
	require.NoError(t, Success(steps.ConfirmResult{Submitted: true}).DecodeResults(&decoded))
	assert.True(t, decoded.Submitted)
}
