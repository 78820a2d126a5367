package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/repairfill/internal/config"
)

func TestLoadPreferences(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store yields defaults only", func(t *testing.T) {
		prefs, err := LoadPreferences(ctx, NewMemory(), nil)
		require.NoError(t, err)
		assert.Equal(t, config.Preferences{}, prefs)
		assert.Equal(t, config.DefaultSelectors(config.StageHoursPurity), prefs.SelectorsFor(config.StageHoursPurity))
	})

	t.Run("every key is read", func(t *testing.T) {
		m := NewMemory()
		require.NoError(t, m.Set(ctx, string(config.StageHoursPurity), []byte(`{"hoursIn":"#hours"}`)))
		require.NoError(t, m.Set(ctx, config.KeyPartsConfig, []byte(`"{\"Compressor\":{\"defaultDiagnosis\":\"INV2\"}}"`)))
		require.NoError(t, m.Set(ctx, config.KeyPartsSelections, []byte(`["Compressor","Sieve Tank"]`)))
		require.NoError(t, m.Set(ctx, config.KeyPartNumber, []byte(`"SN-77"`)))
		require.NoError(t, m.Set(ctx, config.KeyOperatorValues, []byte(`{"psi":"50"}`)))

		prefs, err := LoadPreferences(ctx, m, nil)
		require.NoError(t, err)

		want := config.Preferences{
			Selectors:  map[config.Stage]config.SelectorSet{config.StageHoursPurity: {"hoursIn": {"#hours"}}},
			Parts:      map[string]config.PartConfig{"Compressor": {DefaultDiagnosis: "INV2"}},
			Selections: []string{"Compressor", "Sieve Tank"},
			PartNumber: "SN-77",
			Values:     config.OperatorValues{PSI: "50"},
		}
		if diff := cmp.Diff(want, prefs); diff != "" {
			t.Errorf("LoadPreferences mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("malformed entries are skipped with a warning", func(t *testing.T) {
		m := NewMemory()
		require.NoError(t, m.Set(ctx, string(config.StagePartsTable), []byte(`[1,2]`)))
		require.NoError(t, m.Set(ctx, config.KeyPartsSelections, []byte(`{"no":"list"}`)))
		require.NoError(t, m.Set(ctx, config.KeyPartNumber, []byte(`SN-bare`)))

		core, logs := observer.New(zap.WarnLevel)
		prefs, err := LoadPreferences(ctx, m, zap.New(core))
		require.NoError(t, err)
		assert.Nil(t, prefs.Selectors)
		assert.Empty(t, prefs.Selections)
		assert.Equal(t, "SN-bare", prefs.PartNumber)
		assert.Equal(t, 2, logs.Len())
	})

	t.Run("backend failures are returned", func(t *testing.T) {
		_, err := LoadPreferences(ctx, failingStore{NewMemory()}, nil)
		assert.Error(t, err)
	})
}

type failingStore struct{ *Memory }

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func TestSavePreferences(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, SetJSON(ctx, m, config.KeyOperatorValues, config.OperatorValues{HoursIn: "1", PSI: "40"}))

	require.NoError(t, SavePreferences(ctx, m, config.Preferences{
		Values:     config.OperatorValues{PSI: "55"},
		Selections: []string{"Compressor"},
		PartNumber: "SN-9",
	}))

	prefs, err := LoadPreferences(ctx, m, nil)
	require.NoError(t, err)
	assert.Equal(t, config.OperatorValues{HoursIn: "1", PSI: "55"}, prefs.Values)
	assert.Equal(t, []string{"Compressor"}, prefs.Selections)
	assert.Equal(t, "SN-9", prefs.PartNumber)
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	keys, err := Import(ctx, m, []byte(`{"partNumberValue":"SN-1","partsSelections":["A"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"partNumberValue", "partsSelections"}, keys)

	raw, err := m.Get(ctx, "partsSelections")
	require.NoError(t, err)
	assert.JSONEq(t, `["A"]`, string(raw))

	_, err = Import(ctx, m, []byte(`[]`))
	assert.Error(t, err)
}
