package steps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xkilldash9x/repairfill/internal/browser/dom"
	"github.com/xkilldash9x/repairfill/internal/browser/scripts"
	"github.com/xkilldash9x/repairfill/internal/config"
	"go.uber.org/zap"
)

const (
	visibleSerialSelector = `input[type="text"][name="serial"], input[name="serial"]`
	injectSettle          = 200 * time.Millisecond
)

// RunSerialPopup checks the repair confirmation, types the part number into the
// popup's serial field, and confirms the popup. When the confirm button does not
// close the popup, it escalates through the inline handler, the completion hook,
// an injected script and finally a parts-table retry.
func (x *Executor) RunSerialPopup(ctx context.Context, partNumber string) (SerialResult, error) {
	defer x.releaseHandles(ctx)
	sel := x.selectors(config.StageSerialPopup)
	res := SerialResult{Value: partNumber}
	if strings.TrimSpace(res.Value) == "" {
		res.Value = x.prefs.PartNumber
	}

	if cb := x.dom.WaitFor(ctx, x.dom.Present(sel.Get("confirmCheckbox"), nil), x.timing.ButtonWaitTimeout, x.timing.PollInterval); cb != nil {
		res.CheckboxClicked = x.dom.EnsureChecked(ctx, cb, true)
		if err := dom.Sleep(ctx, x.timing.PopupRenderDelay); err != nil {
			return res, err
		}
	} else {
		x.logger.Debug("Repair confirmation checkbox not found.")
	}

	if field := x.serialField(ctx, sel); field != nil {
		res.SerialFilled = x.dom.SetValue(ctx, field, res.Value)
		_ = field.Focus(ctx)
		_ = x.dom.Notify(ctx, field)
		x.dom.SendKey(ctx, field, "Enter")
		if err := dom.Sleep(ctx, x.timing.AfterEnterDelay); err != nil {
			return res, err
		}
	} else {
		x.logger.Debug("Serial input not found.")
	}

	tier, err := x.confirmPopup(ctx, sel)
	if err != nil {
		return res, err
	}
	res.Tier = tier
	res.Submitted = tier != ""

	x.logger.Info("Serial filled and confirmed.",
		zap.Bool("checkbox", res.CheckboxClicked),
		zap.Bool("serial_filled", res.SerialFilled),
		zap.Bool("submitted", res.Submitted),
		zap.String("tier", res.Tier))
	return res, ctx.Err()
}

// serialField waits for the serial input and swaps a hidden match for a
// visible text input of the same name.
func (x *Executor) serialField(ctx context.Context, sel config.SelectorSet) dom.Element {
	field := x.waitPresent(ctx, sel.Get("serialInput"), x.timing.FieldWaitTimeout)
	if field == nil || !x.hiddenField(ctx, field) {
		return field
	}
	if el := x.dom.VisibleMatch([]string{visibleSerialSelector}, nil)(ctx); el != nil {
		return el
	}
	return field
}

func (x *Executor) hiddenField(ctx context.Context, el dom.Element) bool {
	st := x.state(ctx, el)
	if st.Type == "hidden" || !st.HasOffsetParent {
		return true
	}
	h, err := el.Closest(ctx, "[hidden]")
	return err == nil && h != nil
}

// findConfirmButton returns the interactable confirm button: the configured
// one, the well-known id, or a control labelled exactly "confirm" in the open
// dialog.
func (x *Executor) findConfirmButton(ctx context.Context, sel config.SelectorSet) dom.Element {
	if el := x.dom.InteractableMatch(sel.Get("submitBtn"), nil)(ctx); el != nil {
		return el
	}
	if el := x.dom.InteractableMatch([]string{"#" + confirmButtonID}, nil)(ctx); el != nil {
		return el
	}
	scope := x.dom.Resolve(ctx, []string{openModalSelector}, nil)
	if scope == nil {
		return nil
	}
	for _, b := range x.dom.ResolveAll(ctx, []string{buttonSelector}, scope) {
		if strings.EqualFold(label(x.state(ctx, b)), "confirm") && x.dom.Interactable(ctx, b) {
			return b
		}
	}
	return nil
}

// pollConfirmButton waits for findConfirmButton within timeout.
func (x *Executor) pollConfirmButton(ctx context.Context, sel config.SelectorSet, timeout time.Duration) dom.Element {
	var btn dom.Element
	dom.Poll(ctx, func(ctx context.Context) bool {
		btn = x.findConfirmButton(ctx, sel)
		return btn != nil
	}, timeout, x.timing.ButtonPollInterval)
	return btn
}

// confirmTier is one rung of the confirmation ladder. It reports whether the
// popup is confirmed afterwards.
type confirmTier struct {
	name string
	run  func(ctx context.Context, btn dom.Element) bool
}

// confirmPopup clicks the confirm button and escalates until the popup closes.
// Escalation needs a confirm button; without one the popup is left alone. It
// returns the tier that succeeded, or "" when none did.
func (x *Executor) confirmPopup(ctx context.Context, sel config.SelectorSet) (string, error) {
	btn := x.pollConfirmButton(ctx, sel, x.timing.ButtonWaitTimeout)
	if btn == nil {
		if x.modalGone(ctx) {
			x.logger.Debug("No parts popup is open.")
		} else {
			x.logger.Warn("Confirm button never became interactable; popup left open.")
		}
		return "", ctx.Err()
	}

	wasOpen := !x.modalGone(ctx)
	tiers := []confirmTier{
		{TierClick, func(ctx context.Context, btn dom.Element) bool {
			return x.clickUntilClosed(ctx, btn)
		}},
		{TierInlineHandler, func(ctx context.Context, btn dom.Element) bool {
			ok, err := btn.InvokeHandler(ctx, "onclick")
			if err != nil {
				x.logger.Debug("Inline handler failed.", zap.Error(err))
			}
			return ok && err == nil
		}},
		{TierGlobalHook, func(ctx context.Context, _ dom.Element) bool {
			ok, err := x.dom.Page().CallGlobal(ctx, x.timing.CompletionHook)
			if err != nil {
				x.logger.Debug("Completion hook failed.", zap.Error(err))
			}
			return ok && err == nil
		}},
		{TierInjectedScript, func(ctx context.Context, _ dom.Element) bool {
			if err := x.dom.Page().InjectScript(ctx, scripts.CompletionHook(x.timing.CompletionHook)); err != nil {
				x.logger.Debug("Script injection failed.", zap.Error(err))
				return false
			}
			return dom.Sleep(ctx, injectSettle) == nil && x.modalGone(ctx)
		}},
		{TierPartsRetry, func(ctx context.Context, _ dom.Element) bool {
			return x.retryAfterValidation(ctx, sel)
		}},
	}

	for i, t := range tiers {
		if i > 0 {
			// A rung that reported failure may still have closed the popup.
			if wasOpen && x.modalGone(ctx) {
				return tiers[i-1].name, nil
			}
			x.logger.Warn("Serial confirm escalated.", zap.String("tier", t.name))
		}
		if t.run(ctx, btn) {
			return t.name, nil
		}
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("serial confirm at tier %s: %w", t.name, err)
		}
	}
	return "", nil
}

// clickUntilClosed activates btn up to ConfirmAttempts times.
func (x *Executor) clickUntilClosed(ctx context.Context, btn dom.Element) bool {
	for attempt := 0; attempt < x.timing.ConfirmAttempts; attempt++ {
		if attempt > 0 && dom.Sleep(ctx, x.timing.ConfirmAttemptGap) != nil {
			return false
		}
		if !x.dom.Activate(ctx, btn) {
			continue
		}
		if x.modalGone(ctx) {
			return true
		}
	}
	return false
}

// retryAfterValidation handles a confirm rejected for missing diagnosis codes:
// close the modal, redo the parts table once and confirm again.
func (x *Executor) retryAfterValidation(ctx context.Context, sel config.SelectorSet) bool {
	if x.validationModal(ctx) == nil {
		return false
	}
	x.closeModalIfPresent(ctx)
	if dom.Sleep(ctx, injectSettle) != nil {
		return false
	}
	parts, err := x.RunPartsTable(ctx)
	if err != nil {
		return false
	}
	x.logger.Warn("Parts table re-run after validation modal.", zap.Bool("complete", parts.Complete()))
	if dom.Sleep(ctx, 300*time.Millisecond) != nil {
		return false
	}
	btn := x.findConfirmButton(ctx, sel)
	if btn == nil || !x.dom.Activate(ctx, btn) {
		return false
	}
	return dom.Sleep(ctx, x.timing.EscalationPause) == nil && x.modalGone(ctx)
}

// ConfirmParts clicks the parts confirm button outside the serial popup flow
// and then calls the completion hook when the page defines it.
func (x *Executor) ConfirmParts(ctx context.Context) (ConfirmPartsResult, error) {
	defer x.releaseHandles(ctx)
	var res ConfirmPartsResult
	if err := dom.Sleep(ctx, x.timing.ConfirmClickDelay); err != nil {
		return res, err
	}

	sel := x.selectors(config.StageSerialPopup)
	btn := x.pollConfirmButton(ctx, sel, x.timing.ConfirmClickWindow)
	if btn != nil {
		res.Found = true
		_ = btn.ScrollIntoView(ctx)
		_ = btn.Focus(ctx)
		if err := btn.Click(ctx); err != nil {
			x.logger.Debug("Native confirm click failed.", zap.Error(err))
		} else {
			res.Clicked = true
		}
		if err := btn.Dispatch(ctx, dom.Event{Type: "click", Kind: dom.KindMouse}); err == nil {
			res.Clicked = true
		}
	} else {
		x.logger.Debug("Confirm button not found.")
	}

	called, err := x.dom.Page().CallGlobal(ctx, x.timing.CompletionHook)
	if err != nil {
		x.logger.Debug("Completion hook failed.", zap.Error(err))
	}
	res.HookCalled = called && err == nil

	x.logger.Info("Parts confirmed.",
		zap.Bool("found", res.Found),
		zap.Bool("clicked", res.Clicked),
		zap.Bool("hook_called", res.HookCalled))
	return res, ctx.Err()
}
