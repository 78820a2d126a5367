// File: internal/config/preferences.go
package config

import (
	"fmt"
	"strings"
)

// PartConfig holds the optional per-part overrides an operator can store for a
// part name. Every field is optional.
type PartConfig struct {
	YesSelector          string `json:"yesSelector,omitempty" yaml:"yesSelector"`
	DiagnosisSelector    string `json:"diagnosisSelector,omitempty" yaml:"diagnosisSelector"`
	DefaultDiagnosis     string `json:"defaultDiagnosis,omitempty" yaml:"defaultDiagnosis"`
	PrimaryCauseSelector string `json:"primaryCauseSelector,omitempty" yaml:"primaryCauseSelector"`
	SerialSelector       string `json:"serialSelector,omitempty" yaml:"serialSelector"`
}

// OperatorValues are the technician-entered readings the workflow types into the form.
type OperatorValues struct {
	HoursIn       string `json:"hoursIn,omitempty" yaml:"hoursIn"`
	OxygenPurity  string `json:"oxygenPurity,omitempty" yaml:"oxygenPurity"`
	OxygenPurity2 string `json:"oxygenPurity2,omitempty" yaml:"oxygenPurity2"`
	OxygenPurity5 string `json:"oxygenPurity5,omitempty" yaml:"oxygenPurity5"`
	PSI           string `json:"psi,omitempty" yaml:"psi"`
	HoursOut      string `json:"hoursOut,omitempty" yaml:"hoursOut"`
}

// Merge returns v with every blank field filled from fallback.
func (v OperatorValues) Merge(fallback OperatorValues) OperatorValues {
	pick := func(a, b string) string {
		if strings.TrimSpace(a) != "" {
			return a
		}
		return b
	}
	return OperatorValues{
		HoursIn:       pick(v.HoursIn, fallback.HoursIn),
		OxygenPurity:  pick(v.OxygenPurity, fallback.OxygenPurity),
		OxygenPurity2: pick(v.OxygenPurity2, fallback.OxygenPurity2),
		OxygenPurity5: pick(v.OxygenPurity5, fallback.OxygenPurity5),
		PSI:           pick(v.PSI, fallback.PSI),
		HoursOut:      pick(v.HoursOut, fallback.HoursOut),
	}
}

// Preferences is the externally persisted configuration the automation consumes
// as overrides. The zero value is valid and means "compiled-in defaults only".
type Preferences struct {
	Selectors  map[Stage]SelectorSet
	Parts      map[string]PartConfig
	Selections []string
	PartNumber string
	Values     OperatorValues
}

// SelectorsFor returns the effective selector set for a stage: defaults with the
// stored overrides merged on top.
func (p Preferences) SelectorsFor(stage Stage) SelectorSet {
	return MergeSelectors(DefaultSelectors(stage), p.Selectors[stage])
}

// PartConfigFor looks up the per-part configuration by exact name, then by a
// case-insensitive, whitespace-trimmed comparison.
func (p Preferences) PartConfigFor(name string) (PartConfig, bool) {
	if pc, ok := p.Parts[name]; ok {
		return pc, true
	}
	want := strings.ToLower(strings.TrimSpace(name))
	for k, pc := range p.Parts {
		if strings.ToLower(strings.TrimSpace(k)) == want {
			return pc, true
		}
	}
	return PartConfig{}, false
}

// ParsePartsConfig decodes the stored per-part map. The value may be a JSON
// object or a JSON string that itself contains an object; anything unreadable
// yields an empty map together with the decode error.
func ParsePartsConfig(raw []byte) (map[string]PartConfig, error) {
	out := map[string]PartConfig{}
	if len(raw) == 0 {
		return out, nil
	}
	var nested string
	if err := json.Unmarshal(raw, &nested); err == nil {
		raw = []byte(nested)
		if strings.TrimSpace(nested) == "" {
			return out, nil
		}
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return out, fmt.Errorf("partsConfig is not a JSON object: %w", err)
	}
	for name, v := range generic {
		// Non-object entries are ignored, the same as a missing entry.
		if _, ok := v.(map[string]interface{}); !ok {
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			continue
		}
		var pc PartConfig
		if err := json.Unmarshal(b, &pc); err != nil {
			continue
		}
		out[name] = pc
	}
	return out, nil
}

// ParseSelections decodes the stored selection list. Blank names are dropped and
// order is preserved.
func ParseSelections(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var list []interface{}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("partsSelections is not a JSON array: %w", err)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
