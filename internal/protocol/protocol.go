// Package protocol is the message contract between the workflow and the step
// executors. A request names an action and carries an optional payload; every
// response is an {ok, results, error} envelope.
package protocol

import (
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/repairfill/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Action names one step of the form.
type Action string

const (
	ActionFillHoursAndPurity   Action = "fill-hours-and-purity"
	ActionConfirmProblem       Action = "confirm-reported-problem"
	ActionRunFailureReason     Action = "run-failure-reason"
	ActionRunPartsTable        Action = "run-parts-table"
	ActionGetPartsList         Action = "get-parts-list"
	ActionRunSerialPopup       Action = "run-serial-popup"
	ActionRunTestResults       Action = "run-test-results"
	ActionCloseValidationModal Action = "close-validation-modal"
	ActionConfirmParts         Action = "confirm-parts"
)

// All lists every action tag in form order.
var All = []Action{
	ActionFillHoursAndPurity,
	ActionConfirmProblem,
	ActionRunFailureReason,
	ActionRunPartsTable,
	ActionGetPartsList,
	ActionRunSerialPopup,
	ActionRunTestResults,
	ActionCloseValidationModal,
	ActionConfirmParts,
}

// Names returns All as plain strings.
func Names() []string {
	out := make([]string, len(All))
	for i, a := range All {
		out[i] = string(a)
	}
	return out
}

// ErrUnknownAction is returned for an action tag nothing is registered for.
var ErrUnknownAction = errors.New("unknown action")

// ParseAction canonicalizes an action tag. The upper case spelling
// (FILL_HOURS_AND_PURITY) is an alias of the dashed one.
func ParseAction(s string) Action {
	s = strings.TrimSpace(s)
	if s == strings.ToUpper(s) {
		s = strings.ReplaceAll(strings.ToLower(s), "_", "-")
	}
	return Action(s)
}

// StepRequest asks for one action. Value carries the part number for the
// serial popup; Values carries operator readings.
type StepRequest struct {
	Action Action                 `json:"action"`
	Value  string                 `json:"value,omitempty"`
	Values *config.OperatorValues `json:"values,omitempty"`
}

// StepResponse is the envelope every action answers with.
type StepResponse struct {
	OK      bool        `json:"ok"`
	Results interface{} `json:"results,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// PartsList is the result of get-parts-list.
type PartsList struct {
	Parts []string `json:"parts"`
}

// Success wraps results in an ok envelope.
func Success(results interface{}) StepResponse {
	return StepResponse{OK: true, Results: results}
}

// Failure wraps err in a failed envelope.
func Failure(err error) StepResponse {
	return StepResponse{OK: false, Error: err.Error()}
}

// DecodeRequest reads a request from the wire and canonicalizes its action.
func DecodeRequest(data []byte) (StepRequest, error) {
	var req StepRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return StepRequest{}, fmt.Errorf("failed to decode step request: %w", err)
	}
	req.Action = ParseAction(string(req.Action))
	if req.Action == "" {
		return StepRequest{}, fmt.Errorf("step request has no action")
	}
	return req, nil
}

// Encode writes an envelope to the wire.
func (r StepResponse) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeResults copies the envelope's results into out, which is normally one
// of the steps result structs.
func (r StepResponse) DecodeResults(out interface{}) error {
	if r.Results == nil {
		return nil
	}
	b, err := json.Marshal(r.Results)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
