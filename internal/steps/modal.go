package steps

import (
	"context"

	"github.com/xkilldash9x/repairfill/internal/browser/dom"
	"go.uber.org/zap"
)

// validationModal returns the dialog complaining about empty diagnosis codes, or nil.
func (x *Executor) validationModal(ctx context.Context) dom.Element {
	for _, m := range x.dom.ResolveAll(ctx, []string{anyModalSelector}, nil) {
		st := x.state(ctx, m)
		if st.Visible() && validationModalText.MatchString(st.Text) {
			return m
		}
	}
	return nil
}

// closeControl picks the control that dismisses modal: text or value mentioning
// close, a data-dismiss attribute, or the close class.
func (x *Executor) closeControl(ctx context.Context, modal dom.Element) dom.Element {
	for _, b := range x.dom.ResolveAll(ctx, []string{modalCloseSelector}, modal) {
		st := x.state(ctx, b)
		if closeText.MatchString(label(st)) {
			return b
		}
		if _, ok := st.Attr("data-dismiss"); ok {
			return b
		}
		if x.dom.Matches(ctx, b, ".close") {
			return b
		}
	}
	return nil
}

// CloseValidationModal dismisses the "diagnosis codes cannot be empty" dialog
// when the page shows one.
func (x *Executor) CloseValidationModal(ctx context.Context) (ModalResult, error) {
	var res ModalResult
	modal := x.validationModal(ctx)
	if modal == nil {
		return res, ctx.Err()
	}
	res.Found = true
	x.logger.Warn("Validation modal raised.", zap.Error(dom.ErrValidationBlocked))
	if btn := x.closeControl(ctx, modal); btn != nil {
		if err := btn.Click(ctx); err != nil {
			x.logger.Debug("Modal close click failed.", zap.Error(err))
		} else {
			res.Closed = true
		}
	}
	return res, ctx.Err()
}

// closeModalIfPresent is CloseValidationModal reduced to "was one there".
func (x *Executor) closeModalIfPresent(ctx context.Context) bool {
	res, _ := x.CloseValidationModal(ctx)
	return res.Found
}

// modalGone reports whether no open dialog is showing.
func (x *Executor) modalGone(ctx context.Context) bool {
	for _, m := range x.dom.ResolveAll(ctx, []string{openModalSelector}, nil) {
		if x.dom.Visible(ctx, m) {
			return false
		}
	}
	return true
}
