// File: internal/config/selectors.go
package config

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Stage names a form section. The string value doubles as the preference key its
// selector overrides are stored under.
type Stage string

const (
	StageHoursPurity   Stage = "hoursPuritySelectors"
	StageConfirm       Stage = "confirmProblemSelectors"
	StageFailureReason Stage = "failureReasonSelectors"
	StagePartsTable    Stage = "partsTableSelectors"
	StageSerialPopup   Stage = "serialPopupSelectors"
	StageTestResults   Stage = "testResultsSelectors"
)

// Stages lists every stage with configurable selectors, in workflow order.
var Stages = []Stage{
	StageHoursPurity,
	StageConfirm,
	StageFailureReason,
	StagePartsTable,
	StageSerialPopup,
	StageTestResults,
}

// Preference keys for the non-selector settings.
const (
	KeyPartsConfig     = "partsConfig"
	KeyPartsSelections = "partsSelections"
	KeyPartNumber      = "partNumberValue"
	KeyOperatorValues  = "operatorValues"
)

// SelectorSet maps a logical field name to an ordered list of candidate selectors.
type SelectorSet map[string][]string

// Get returns the candidates for a field. A missing field yields nil.
func (s SelectorSet) Get(field string) []string {
	if s == nil {
		return nil
	}
	return s[field]
}

// First returns the highest priority candidate for a field, or "".
func (s SelectorSet) First(field string) string {
	c := s.Get(field)
	if len(c) == 0 {
		return ""
	}
	return c[0]
}

// Clone returns a deep copy.
func (s SelectorSet) Clone() SelectorSet {
	out := make(SelectorSet, len(s))
	for k, v := range s {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// DefaultSelectors returns the compiled-in selector set for a stage.
// Unknown stages yield an empty set.
func DefaultSelectors(stage Stage) SelectorSet {
	switch stage {
	case StageHoursPurity:
		return SelectorSet{
			"hoursIn":      {"#txtHoursIn"},
			"oxygenPurity": {"#txtO2In"},
			"submit":       {"#start"},
		}
	case StageConfirm:
		return SelectorSet{
			"confirmIssueYes": {"#radConfirmIssue"},
			"smokeNo":         {"#radSmokeNo"},
			"submit":          {"#btnConfirmDefective"},
		}
	case StageFailureReason:
		return SelectorSet{
			"q1Radio":          {"#radRepairYes"},
			"q2Radio":          {"#radAbuseNo"},
			"firstCheckbox":    {"#1"},
			"reasonsContainer": nil,
			"confirmBtn":       {"#btnRepairStatus"},
		}
	case StagePartsTable:
		return SelectorSet{
			"tableContainer":    {"#tblParts"},
			"rowSelector":       {"tbody tr"},
			"noRadioInRow":      {`input[id^="radPartNo"]`},
			"yesRadioInRow":     {`input[id^="radPartYes"]`, `input[type="radio"][value="1"]`, `input[type="radio"][name*="Yes" i]`},
			"diagnosisInRow":    {`select[id*="cmbDC"]`, `select[name*="cmbDC"]`, `select[id*="diagnosis" i]`, `select[name*="diagnosis" i]`, `select[id*="diag" i]`, `select[name*="diag" i]`, `select[id*="code" i]`, `select[name*="code" i]`},
			"primaryCauseInRow": {`input[type="checkbox"][id^="chkPC"]`, `input[type="radio"][name*="PC"]`, `input[type="checkbox"][name*="PC"]`, `input[type="radio"][name*="pc" i]`, `input[type="checkbox"][name*="pc" i]`},
			"serialInRow":       {`input[type="text"][name*="serial"]`, `input[type="text"][name*="serial" i]`, `input[name*="serialvalue" i]`, `input[id*="serial" i]`},
			"dropdownToggle":    {".bootstrap-select button.dropdown-toggle", `button.dropdown-toggle[aria-haspopup="listbox"]`, ".dropdown button"},
			"dropdownItems":     {".dropdown-menu.show .inner li a", ".dropdown-menu .inner li a", ".dropdown-menu li a"},
		}
	case StageSerialPopup:
		return SelectorSet{
			"confirmCheckbox": {"#chkConfirmRepair"},
			"serialInput":     {`input[name="serial"]`},
			"submitBtn":       {"#partsConfirm"},
		}
	case StageTestResults:
		return SelectorSet{
			"flow2":          {"#txtFLowRateLow", "#txtFlowRateLow"},
			"purity2":        {"#txtOxygenLow"},
			"flow5":          {"#txtFLowRateMax", "#txtFlowRateMax"},
			"purity5":        {"#txtOxygenMax"},
			"psi":            {"#txtPSI", "#txtPsi"},
			"hoursOut":       {"#txtHoursOut"},
			"alarmPass":      {"#radAlarmYes", `input[type="radio"][name="Alarm"][value="Pass"]`},
			"filtersConfirm": {"#chkFilters", `input[type="checkbox"]#chkFilters`},
		}
	default:
		return SelectorSet{}
	}
}

// scopeFields name container selectors a stored blank clears, leaving the step
// to scope by its row or item selector instead.
var scopeFields = map[string]bool{
	"tableContainer":   true,
	"reasonsContainer": true,
}

// MergeSelectors shallow-merges overrides over defaults, per field. An override
// candidate is placed ahead of the defaults rather than replacing them, so a
// malformed or stale override still falls back to the compiled-in selector.
// Blank overrides are ignored, except on scope fields, where a blank clears
// the field.
func MergeSelectors(defaults, overrides SelectorSet) SelectorSet {
	merged := defaults.Clone()
	for field, candidates := range overrides {
		var kept []string
		for _, c := range candidates {
			if c = strings.TrimSpace(c); c != "" {
				kept = append(kept, c)
			}
		}
		if len(kept) == 0 {
			if scopeFields[field] {
				merged[field] = nil
			}
			continue
		}
		seen := make(map[string]bool, len(kept))
		for _, c := range kept {
			seen[c] = true
		}
		for _, d := range merged[field] {
			if !seen[d] {
				kept = append(kept, d)
			}
		}
		merged[field] = kept
	}
	return merged
}

// ParseSelectorOverrides decodes a stored override map. Each field may hold a single
// selector string or a list of candidates. Fields of any other shape are skipped.
func ParseSelectorOverrides(raw []byte) (SelectorSet, error) {
	if len(raw) == 0 {
		return SelectorSet{}, nil
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("selector overrides are not a JSON object: %w", err)
	}
	out := make(SelectorSet, len(generic))
	for field, v := range generic {
		switch tv := v.(type) {
		case string:
			out[field] = []string{tv}
		case []interface{}:
			for _, item := range tv {
				if s, ok := item.(string); ok {
					out[field] = append(out[field], s)
				}
			}
		}
	}
	return out, nil
}
