package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/repairfill/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LoadPreferences assembles the automation overrides from s. Absent keys keep
// the compiled-in defaults; unreadable values are logged and skipped. Only a
// failing backend is returned as an error.
func LoadPreferences(ctx context.Context, s Store, logger *zap.Logger) (config.Preferences, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var prefs config.Preferences

	read := func(key string) ([]byte, bool, error) {
		raw, err := s.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		return raw, len(raw) > 0, nil
	}

	for _, stage := range config.Stages {
		raw, ok, err := read(string(stage))
		if err != nil {
			return prefs, err
		}
		if !ok {
			continue
		}
		set, err := config.ParseSelectorOverrides(raw)
		if err != nil {
			logger.Warn("Ignoring malformed selector overrides.", zap.String("key", string(stage)), zap.Error(err))
			continue
		}
		if prefs.Selectors == nil {
			prefs.Selectors = make(map[config.Stage]config.SelectorSet)
		}
		prefs.Selectors[stage] = set
	}

	if raw, ok, err := read(config.KeyPartsConfig); err != nil {
		return prefs, err
	} else if ok {
		parts, err := config.ParsePartsConfig(raw)
		if err != nil {
			logger.Warn("Ignoring malformed parts configuration.", zap.Error(err))
		}
		prefs.Parts = parts
	}

	if raw, ok, err := read(config.KeyPartsSelections); err != nil {
		return prefs, err
	} else if ok {
		sel, err := config.ParseSelections(raw)
		if err != nil {
			logger.Warn("Ignoring malformed part selections.", zap.Error(err))
		}
		prefs.Selections = sel
	}

	if raw, ok, err := read(config.KeyPartNumber); err != nil {
		return prefs, err
	} else if ok {
		prefs.PartNumber = decodeString(raw)
	}

	if raw, ok, err := read(config.KeyOperatorValues); err != nil {
		return prefs, err
	} else if ok {
		if err := json.Unmarshal(raw, &prefs.Values); err != nil {
			logger.Warn("Ignoring malformed operator values.", zap.Error(err))
			prefs.Values = config.OperatorValues{}
		}
	}
	return prefs, nil
}

// decodeString accepts a JSON string or a bare value.
func decodeString(raw []byte) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}

// SavePreferences stores the operator-facing parts of prefs: values,
// selections and the part number. Empty fields are left untouched.
func SavePreferences(ctx context.Context, s Store, prefs config.Preferences) error {
	if prefs.Values != (config.OperatorValues{}) {
		current := prefs.Values
		if raw, err := s.Get(ctx, config.KeyOperatorValues); err == nil {
			var stored config.OperatorValues
			if json.Unmarshal(raw, &stored) == nil {
				current = current.Merge(stored)
			}
		}
		if err := SetJSON(ctx, s, config.KeyOperatorValues, current); err != nil {
			return err
		}
	}
	if len(prefs.Selections) > 0 {
		if err := SetJSON(ctx, s, config.KeyPartsSelections, prefs.Selections); err != nil {
			return err
		}
	}
	if prefs.PartNumber != "" {
		if err := SetJSON(ctx, s, config.KeyPartNumber, prefs.PartNumber); err != nil {
			return err
		}
	}
	return nil
}

// Import stores every entry of a JSON object, keeping each value's raw JSON.
// It returns the imported keys.
func Import(ctx context.Context, s Store, data []byte) ([]string, error) {
	var entries map[string]jsoniter.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("import file is not a JSON object: %w", err)
	}
	keys := make([]string, 0, len(entries))
	for k, v := range entries {
		if err := s.Set(ctx, k, v); err != nil {
			return keys, err
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
