package steps

// HoursPurityFilled reports which of the two readings were written.
type HoursPurityFilled struct {
	HoursIn      bool `json:"hoursIn"`
	OxygenPurity bool `json:"oxygenPurity"`
}

// HoursPurityResult is the outcome of the hours/purity section.
type HoursPurityResult struct {
	Filled    HoursPurityFilled `json:"filled"`
	Submitted bool              `json:"submitted"`
}

// ConfirmResult is the outcome of the problem confirmation section.
type ConfirmResult struct {
	SetYes     bool `json:"setYes"`
	SetSmokeNo bool `json:"setSmokeNo"`
	Submitted  bool `json:"submitted"`
}

// FailureReasonResult is the outcome of the failure reason section.
type FailureReasonResult struct {
	Q1        bool `json:"q1"`
	Q2        bool `json:"q2"`
	Checkbox  bool `json:"checkbox"`
	Confirmed bool `json:"confirmed"`
	Waited    bool `json:"waited"`
}

// PartsTableResult is the outcome of the parts table section.
type PartsTableResult struct {
	RowsNoClicked       int  `json:"rowsNoClicked"`
	SpecificYesClicked  bool `json:"specificYesClicked"`
	DiagnosisSet        bool `json:"diagnosisSet"`
	PrimaryCauseClicked bool `json:"primaryCauseClicked"`
}

// Complete reports whether every selected part was marked, coded and given a
// primary cause.
func (r PartsTableResult) Complete() bool {
	return r.SpecificYesClicked && r.DiagnosisSet && r.PrimaryCauseClicked
}

// Confirmation tiers, in escalation order.
const (
	TierClick          = "click"
	TierInlineHandler  = "inline-handler"
	TierGlobalHook     = "global-hook"
	TierInjectedScript = "injected-script"
	TierPartsRetry     = "parts-retry"
)

// SerialResult is the outcome of the serial popup section.
type SerialResult struct {
	CheckboxClicked bool   `json:"checkboxClicked"`
	SerialFilled    bool   `json:"serialFilled"`
	Submitted       bool   `json:"submitted"`
	Value           string `json:"value"`
	// Tier names the confirmation tier that succeeded.
	Tier string `json:"tier,omitempty"`
}

// ConfirmPartsResult is the outcome of the stand-alone confirm click.
type ConfirmPartsResult struct {
	Found      bool `json:"found"`
	Clicked    bool `json:"clicked"`
	HookCalled bool `json:"hookCalled"`
}

// TestResultsFilled reports which of the six readings were written.
type TestResultsFilled struct {
	Flow2    bool `json:"flow2"`
	Purity2  bool `json:"purity2"`
	Flow5    bool `json:"flow5"`
	Purity5  bool `json:"purity5"`
	PSI      bool `json:"psi"`
	HoursOut bool `json:"hoursOut"`
}

// TestResultsResult is the outcome of the final test results section.
type TestResultsResult struct {
	Filled         TestResultsFilled `json:"filled"`
	AlarmPass      bool              `json:"alarmPass"`
	FiltersChecked bool              `json:"filtersChecked"`
}

// ModalResult is the outcome of close-validation-modal.
type ModalResult struct {
	Found  bool `json:"found"`
	Closed bool `json:"closed"`
}
