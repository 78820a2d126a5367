package steps

import (
	"context"
	"unicode/utf8"

	"github.com/xkilldash9x/repairfill/internal/browser/dom"
	"github.com/xkilldash9x/repairfill/internal/config"
	"go.uber.org/zap"
)

// partRow is a view over one table row, re-derived on every run.
type partRow struct {
	// el is the <tr>; nil stands for the whole document when an explicitly
	// configured Yes control sits outside any row.
	el   dom.Element
	name string
	yes  dom.Element

	// selection is the part name that claimed the row; empty means "No".
	selection string
	conf      config.PartConfig
}

// GetPartsList returns the display names of the visible parts rows.
func (x *Executor) GetPartsList(ctx context.Context) ([]string, error) {
	defer x.releaseHandles(ctx)
	rows, err := x.visibleRows(ctx, x.selectors(config.StagePartsTable))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.name != "" {
			names = append(names, r.name)
		}
	}
	return names, nil
}

// RunPartsTable marks every visible row Yes when it matches a selected part and
// No otherwise. Each Yes row then gets a diagnosis code, the first selected
// row gets the primary cause, and sieve parts get the stored part number.
func (x *Executor) RunPartsTable(ctx context.Context) (PartsTableResult, error) {
	defer x.releaseHandles(ctx)
	sel := x.selectors(config.StagePartsTable)
	var res PartsTableResult

	rows, err := x.visibleRows(ctx, sel)
	if err != nil {
		return res, err
	}
	if rows == nil {
		x.logger.Debug("Parts table did not appear.")
		return res, ctx.Err()
	}

	rows, primary := x.claimRows(ctx, sel, rows)

	yesRows, coded := 0, 0
	for _, r := range rows {
		if r.selection == "" {
			if no := x.dom.Resolve(ctx, sel.Get("noRadioInRow"), r.el); no != nil && x.dom.EnsureChecked(ctx, no, true) {
				res.RowsNoClicked++
			}
			continue
		}
		if r.yes == nil {
			x.logger.Debug("Selected row has no Yes control.", zap.String("part", r.selection))
			continue
		}
		yesRows++
		ok, err := x.markYes(ctx, sel, r, r == primary, &res)
		if err != nil {
			return res, err
		}
		if ok {
			coded++
		}
	}
	res.DiagnosisSet = yesRows > 0 && coded == yesRows

	x.logger.Info("Parts table completed.",
		zap.Int("rows", len(rows)),
		zap.Int("rows_no", res.RowsNoClicked),
		zap.Bool("specific_yes", res.SpecificYesClicked),
		zap.Bool("diagnosis_set", res.DiagnosisSet),
		zap.Bool("primary_cause", res.PrimaryCauseClicked))
	return res, ctx.Err()
}

// visibleRows waits for the table and returns its rendered rows. A nil slice
// with a nil error means the table never appeared.
func (x *Executor) visibleRows(ctx context.Context, sel config.SelectorSet) ([]*partRow, error) {
	containerSel := sel.Get("tableContainer")
	if len(containerSel) == 0 {
		containerSel = sel.Get("rowSelector")
	}
	container := x.waitPresent(ctx, containerSel, x.timing.TableWaitTimeout)
	if container == nil {
		return nil, ctx.Err()
	}

	var els []dom.Element
	isRow := false
	for _, rs := range sel.Get("rowSelector") {
		if x.dom.Matches(ctx, container, rs) {
			isRow = true
			break
		}
	}
	if isRow {
		els = []dom.Element{container}
	} else {
		els = x.dom.ResolveAll(ctx, sel.Get("rowSelector"), container)
	}

	rows := make([]*partRow, 0, len(els))
	for _, el := range els {
		// Template rows stay in the markup but are never rendered.
		if !x.state(ctx, el).HasOffsetParent {
			continue
		}
		rows = append(rows, &partRow{el: el, name: x.partName(ctx, el)})
	}
	return rows, ctx.Err()
}

// partName extracts a row's display name: the first short cell that holds no
// form control, else the whole row text.
func (x *Executor) partName(ctx context.Context, row dom.Element) string {
	for _, cell := range x.dom.ResolveAll(ctx, []string{"td"}, row) {
		text := x.dom.Text(ctx, cell)
		if n := utf8.RuneCountInString(text); n <= 1 || n >= 200 {
			continue
		}
		if x.dom.Resolve(ctx, []string{"input, select, button"}, cell) != nil {
			continue
		}
		return text
	}
	return x.dom.Text(ctx, row)
}

// claimRows assigns each selection, in order, to a row: through the part's
// configured Yes selector when it resolves, otherwise by fuzzy name match. It
// returns the rows to visit (visible rows, then configured rows outside them)
// and the row that receives the primary cause.
func (x *Executor) claimRows(ctx context.Context, sel config.SelectorSet, rows []*partRow) ([]*partRow, *partRow) {
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.name
	}

	var primary *partRow
	for _, selection := range x.prefs.Selections {
		conf, _ := x.prefs.PartConfigFor(selection)

		var row *partRow
		if conf.YesSelector != "" {
			if yes := x.dom.Resolve(ctx, []string{conf.YesSelector}, nil); yes != nil {
				row = x.rowOf(ctx, rows, yes)
				if row.el == nil || !x.contains(rows, row) {
					rows = append(rows, row)
				}
				row.yes = yes
			}
		}
		if row == nil {
			idx := MatchPart(selection, names)
			if idx < 0 {
				x.logger.Debug("No row matches the selected part.", zap.String("part", selection))
				continue
			}
			row = rows[idx]
			if row.yes == nil {
				row.yes = x.yesControl(ctx, sel, row.el)
			}
		}
		if row.selection != "" {
			continue
		}
		row.selection = selection
		row.conf = conf
		if primary == nil && row.yes != nil {
			primary = row
		}
	}
	return rows, primary
}

// rowOf returns the visible row containing el, or a new row for el's <tr>.
func (x *Executor) rowOf(ctx context.Context, rows []*partRow, el dom.Element) *partRow {
	tr, err := el.Closest(ctx, "tr")
	if err != nil || tr == nil {
		return &partRow{}
	}
	for _, r := range rows {
		if r.el == nil {
			continue
		}
		if same, err := r.el.SameNode(ctx, tr); err == nil && same {
			return r
		}
	}
	return &partRow{el: tr, name: x.partName(ctx, tr)}
}

func (x *Executor) contains(rows []*partRow, row *partRow) bool {
	for _, r := range rows {
		if r == row {
			return true
		}
	}
	return false
}

// yesControl finds a row's Yes radio, falling back to a radPartYes id looked up
// at document level.
func (x *Executor) yesControl(ctx context.Context, sel config.SelectorSet, row dom.Element) dom.Element {
	if el := x.dom.Resolve(ctx, sel.Get("yesRadioInRow"), row); el != nil {
		return el
	}
	for _, r := range x.dom.ResolveAll(ctx, []string{`input[type="radio"][id]`}, row) {
		if m := yesIDPattern.FindString(x.state(ctx, r).ID); m != "" {
			return x.dom.ByID(ctx, m)
		}
	}
	return nil
}

// markYes checks the row's Yes control, then sets its diagnosis, primary cause
// and serial. It reports whether the row ended with a diagnosis.
func (x *Executor) markYes(ctx context.Context, sel config.SelectorSet, r *partRow, primary bool, res *PartsTableResult) (bool, error) {
	if x.dom.EnsureChecked(ctx, r.yes, true) {
		res.SpecificYesClicked = true
	}
	if err := dom.Sleep(ctx, x.timing.AfterYesDelay); err != nil {
		return false, err
	}
	if x.closeModalIfPresent(ctx) {
		if err := dom.Sleep(ctx, x.timing.AfterModalDelay); err != nil {
			return false, err
		}
	}

	yesID := x.state(ctx, r.yes).ID
	coded := true
	if control := x.diagnosisControl(ctx, sel, r, yesID); control != nil {
		x.dom.Click(ctx, control)
		if err := dom.Sleep(ctx, x.timing.AfterDropdownDelay); err != nil {
			return false, err
		}
		desired := r.conf.DefaultDiagnosis
		if desired == "" {
			desired = DefaultDiagnosisFor(r.selection)
		}
		coded = x.applyDiagnosis(ctx, DiagnosisTarget{Row: r.el, Control: control, Desired: desired})
	}

	if primary {
		if pc := x.primaryCauseControl(ctx, sel, r, yesID); pc != nil {
			res.PrimaryCauseClicked = x.dom.EnsureChecked(ctx, pc, true)
		} else {
			// Forms without a primary-cause control have nothing to mark.
			res.PrimaryCauseClicked = true
		}
	}

	x.fillRowSerial(ctx, sel, r)
	return coded, ctx.Err()
}

// inRowOrDocument resolves a configured selector inside the row first.
func (x *Executor) inRowOrDocument(ctx context.Context, selector string, row dom.Element) dom.Element {
	if selector == "" {
		return nil
	}
	if el := x.dom.Resolve(ctx, []string{selector}, row); el != nil {
		return el
	}
	return x.dom.Resolve(ctx, []string{selector}, nil)
}

func (x *Executor) diagnosisControl(ctx context.Context, sel config.SelectorSet, r *partRow, yesID string) dom.Element {
	if el := x.inRowOrDocument(ctx, r.conf.DiagnosisSelector, r.el); el != nil {
		return el
	}
	if el := x.dom.Resolve(ctx, sel.Get("diagnosisInRow"), r.el); el != nil {
		return el
	}
	if d := firstDigits(yesID); d != "" {
		return x.dom.ByID(ctx, "cmbDC"+d)
	}
	return nil
}

func (x *Executor) primaryCauseControl(ctx context.Context, sel config.SelectorSet, r *partRow, yesID string) dom.Element {
	if el := x.inRowOrDocument(ctx, r.conf.PrimaryCauseSelector, r.el); el != nil {
		return el
	}
	if el := x.dom.Resolve(ctx, sel.Get("primaryCauseInRow"), r.el); el != nil {
		return el
	}
	if d := firstDigits(yesID); d != "" {
		return x.dom.ByID(ctx, "chkPC"+d)
	}
	return nil
}

// fillRowSerial writes the stored part number into the row's serial field when
// the part is configured with one or is a sieve part.
func (x *Executor) fillRowSerial(ctx context.Context, sel config.SelectorSet, r *partRow) {
	var field dom.Element
	switch {
	case r.conf.SerialSelector != "":
		field = x.inRowOrDocument(ctx, r.conf.SerialSelector, r.el)
	case IsSievePart(r.selection):
		field = x.dom.Resolve(ctx, sel.Get("serialInRow"), r.el)
	default:
		return
	}
	if field == nil {
		x.logger.Debug("Row serial field not found.", zap.String("part", r.selection))
		return
	}
	x.dom.SetValue(ctx, field, x.prefs.PartNumber)
}
