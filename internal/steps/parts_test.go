package steps_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/repairfill/internal/browser/dom"
	"github.com/xkilldash9x/repairfill/internal/browser/htmldom"
	"github.com/xkilldash9x/repairfill/internal/config"
	"github.com/xkilldash9x/repairfill/internal/steps"
	"golang.org/x/net/html"
)

func TestRunPartsTable(t *testing.T) {
	ctx := context.Background()

	t.Run("selected row is Yes and every other visible row is No", func(t *testing.T) {
		markup := partsTable(
			partRow("1", "Compressor", diagSelect("1", "INV1 - Noise")),
			partRow("2", "Control Board", diagSelect("2", "INV1 - Noise")),
			`<tr style="display:none">`+partRow("9", "Template", "")[4:],
		)
		x, doc := newExecutor(t, markup, config.Preferences{Selections: []string{"Compressor"}})

		res, err := x.RunPartsTable(ctx)
		require.NoError(t, err)

		want := steps.PartsTableResult{RowsNoClicked: 1, SpecificYesClicked: true, DiagnosisSet: true, PrimaryCauseClicked: true}
		if diff := cmp.Diff(want, res); diff != "" {
			t.Errorf("RunPartsTable mismatch (-want +got):\n%s", diff)
		}
		assert.True(t, res.Complete())
		assert.True(t, doc.CheckedOf("#radPartYes1"))
		assert.False(t, doc.CheckedOf("#radPartNo1"))
		assert.True(t, doc.CheckedOf("#radPartNo2"))
		assert.False(t, doc.CheckedOf("#radPartYes2"))
		assert.False(t, doc.CheckedOf("#radPartNo9"), "unrendered rows are left alone")
		assert.Equal(t, "INV1|1", doc.ValueOf("#cmbDC1"))
		assert.Equal(t, "", doc.ValueOf("#cmbDC2"))
		assert.True(t, doc.CheckedOf("#chkPC1"))
		assert.False(t, doc.CheckedOf("#chkPC2"))
		assert.Equal(t, 1, doc.Count("#cmbDC1", "change"))
	})

	t.Run("no selections marks every row No", func(t *testing.T) {
		x, doc := newExecutor(t, partsTable(
			partRow("1", "Compressor", ""),
			partRow("2", "Control Board", ""),
		), config.Preferences{})

		res, err := x.RunPartsTable(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, res.RowsNoClicked)
		assert.False(t, res.SpecificYesClicked)
		assert.False(t, res.DiagnosisSet)
		assert.False(t, res.Complete())
		assert.True(t, doc.CheckedOf("#radPartNo1"))
		assert.True(t, doc.CheckedOf("#radPartNo2"))
	})

	t.Run("fuzzy names and primary cause follow selection order", func(t *testing.T) {
		markup := partsTable(
			partRow("1", "Pneumatic Valve", ""),
			partRow("2", "Compressor", ""),
			partRow("3", "Sieve Tank (Refurbished)",
				diagSelect("3", "INV2 - Worn", "INV4 - Saturated")+`<td><input type="text" name="serialValue3"></td>`),
		)
		x, doc := newExecutor(t, markup, config.Preferences{
			Selections: []string{"Sieve bed Refurbished", "Pnuematic valve"},
			PartNumber: "SN-42",
		})

		res, err := x.RunPartsTable(ctx)
		require.NoError(t, err)
		assert.True(t, res.Complete())
		assert.Equal(t, 1, res.RowsNoClicked)

		assert.True(t, doc.CheckedOf("#radPartYes1"))
		assert.True(t, doc.CheckedOf("#radPartNo2"))
		assert.True(t, doc.CheckedOf("#radPartYes3"))
		assert.True(t, doc.CheckedOf("#chkPC3"), "the first selection gets the primary cause")
		assert.False(t, doc.CheckedOf("#chkPC1"))
		assert.Equal(t, "INV4 - Saturated", doc.SelectedText("#cmbDC3"))
		assert.Equal(t, "SN-42", doc.ValueOf(`input[name="serialValue3"]`))
	})

	t.Run("configured yes selector and default diagnosis win over names", func(t *testing.T) {
		markup := partsTable(
			partRow("1", "Compr. Assy", diagSelect("1", "INV1 - Noise", "INV2 - Worn")),
			partRow("2", "Control Board", ""),
		)
		x, doc := newExecutor(t, markup, config.Preferences{
			Selections: []string{"Compressor"},
			Parts: map[string]config.PartConfig{
				"Compressor": {YesSelector: "#radPartYes1", DefaultDiagnosis: "inv2 - worn"},
			},
		})

		res, err := x.RunPartsTable(ctx)
		require.NoError(t, err)
		assert.True(t, res.Complete())
		assert.Equal(t, 1, res.RowsNoClicked, "the configured row is not also marked No")
		assert.True(t, doc.CheckedOf("#radPartYes1"))
		assert.False(t, doc.CheckedOf("#radPartNo1"))
		assert.Equal(t, "INV2 - Worn", doc.SelectedText("#cmbDC1"))
	})

	t.Run("bootstrap dropdown is driven when the native select has no match", func(t *testing.T) {
		markup := partsTable(partRow("1", "Compressor", `<td>
			<div class="bootstrap-select">
				<select id="cmbDC1" style="display:none"><option value="">Nothing selected</option></select>
				<button class="dropdown-toggle" type="button">Nothing selected</button>
			</div></td>`)) + `
			<div class="dropdown-menu show"><div class="inner"><ul>
				<li class="disabled"><a>Nothing selected</a></li>
				<li><a id="inv7">INV7 - Leak</a></li>
			</ul></div></div>`
		x, doc := newExecutor(t, markup, config.Preferences{
			Selections: []string{"Compressor"},
			Parts:      map[string]config.PartConfig{"Compressor": {DefaultDiagnosis: "INV7 - Leak"}},
		})
		var picked bool
		doc.On("#inv7", "click", func(*htmldom.Document, *html.Node, dom.Event) { picked = true })

		res, err := x.RunPartsTable(ctx)
		require.NoError(t, err)
		assert.True(t, res.DiagnosisSet)
		assert.True(t, picked)
		assert.GreaterOrEqual(t, doc.Count("button.dropdown-toggle", "click"), 1)
		assert.Equal(t, 1, doc.Count("#cmbDC1", "change"), "the hidden select is notified")
	})

	t.Run("validation modal raised by Yes is dismissed", func(t *testing.T) {
		markup := partsTable(partRow("1", "Compressor", diagSelect("1", "INV1 - Noise"))) + `
			<div class="modal" id="validation" style="display:none">
				<p>Diagnosis codes cannot be empty</p>
				<button type="button" class="btn">Close</button>
			</div>`
		x, doc := newExecutor(t, markup, config.Preferences{Selections: []string{"Compressor"}})
		doc.On("#radPartYes1", "click", func(d *htmldom.Document, _ *html.Node, _ dom.Event) { d.Show("#validation") })
		doc.On("#validation button", "click", func(d *htmldom.Document, _ *html.Node, _ dom.Event) { d.Hide("#validation") })

		res, err := x.RunPartsTable(ctx)
		require.NoError(t, err)
		assert.True(t, res.Complete())
		assert.False(t, doc.VisibleOf("#validation"))
	})

	t.Run("missing table yields an empty result", func(t *testing.T) {
		x, _ := newExecutor(t, `<p>no parts here</p>`, config.Preferences{Selections: []string{"Compressor"}})
		res, err := x.RunPartsTable(ctx)
		require.NoError(t, err)
		assert.Equal(t, steps.PartsTableResult{}, res)
	})

	t.Run("canceled context is returned", func(t *testing.T) {
		x, _ := newExecutor(t, partsTable(partRow("1", "Compressor", "")), config.Preferences{})
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := x.RunPartsTable(cctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestGetPartsList(t *testing.T) {
	ctx := context.Background()
	x, _ := newExecutor(t, partsTable(
		partRow("1", "Compressor", ""),
		`<tr hidden>`+partRow("2", "Hidden Part", "")[4:],
		partRow("3", "Control Board", ""),
	), config.Preferences{})

	names, err := x.GetPartsList(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Compressor", "Control Board"}, names)

	empty, _ := newExecutor(t, `<div></div>`, config.Preferences{})
	names, err = empty.GetPartsList(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestGetPartsListBlankContainer(t *testing.T) {
	ctx := context.Background()
	markup := `<table id="otherParts"><tbody>` + partRow("1", "Compressor", "") + `</tbody></table>`

	x, _ := newExecutor(t, markup, config.Preferences{})
	names, err := x.GetPartsList(ctx)
	require.NoError(t, err)
	assert.Empty(t, names, "the default container is not on the page")

	// A stored blank container scopes by the row selector instead.
	x, _ = newExecutor(t, markup, config.Preferences{Selectors: map[config.Stage]config.SelectorSet{
		config.StagePartsTable: {"tableContainer": {""}},
	}})
	names, err = x.GetPartsList(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Compressor"}, names)
}
