// browser/dom/click.go
package dom

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
)

// gestureSequence is replayed by Activate. Some page frameworks listen for the
// pointer events instead of the semantic click.
var gestureSequence = []struct {
	typ  string
	kind EventKind
}{
	{"pointerdown", KindPointer},
	{"mousedown", KindMouse},
	{"pointerup", KindPointer},
	{"mouseup", KindMouse},
	{"click", KindMouse},
}

// Activate scrolls el into view, focuses it, replays the full pointer and mouse
// gesture at its center and finally calls the native click. It reports false
// only when a dispatch failed.
func (i *Interactor) Activate(ctx context.Context, el Element) bool {
	if err := i.ActivateErr(ctx, el); err != nil {
		i.logger.Debug("Robust click failed.", zap.Error(err))
		return false
	}
	return true
}

// ActivateErr is Activate with the failure wrapped in ErrActivation.
func (i *Interactor) ActivateErr(ctx context.Context, el Element) error {
	if el == nil {
		return fmt.Errorf("%w: no element", ErrActivation)
	}
	_ = el.ScrollIntoView(ctx)
	_ = el.Focus(ctx)

	var x, y float64
	if st, err := el.State(ctx); err == nil {
		x, y = Center(st.Box, st.Viewport)
	}
	for _, g := range gestureSequence {
		if err := el.Dispatch(ctx, Event{Type: g.typ, Kind: g.kind, ClientX: x, ClientY: y}); err != nil {
			return fmt.Errorf("%w: %s dispatch: %v", ErrActivation, g.typ, err)
		}
	}
	if err := el.Click(ctx); err != nil {
		return fmt.Errorf("%w: native click: %v", ErrActivation, err)
	}
	return nil
}

// Center returns a point inside box, at least one pixel in from each edge, and
// clamped to the viewport when one is known.
func Center(box, viewport Rect) (float64, float64) {
	x := box.X + math.Min(math.Max(box.Width/2, 1), math.Max(box.Width-1, 0))
	y := box.Y + math.Min(math.Max(box.Height/2, 1), math.Max(box.Height-1, 0))
	if viewport.Width > 0 {
		x = math.Min(math.Max(x, 0), viewport.Width-1)
	}
	if viewport.Height > 0 {
		y = math.Min(math.Max(y, 0), viewport.Height-1)
	}
	return x, y
}

// Click is the plain activation used for buttons and menu items: focus, press,
// release, native click.
func (i *Interactor) Click(ctx context.Context, el Element) bool {
	if el == nil {
		return false
	}
	_ = el.Focus(ctx)
	_ = el.Dispatch(ctx, Event{Type: "mousedown", Kind: KindMouse})
	_ = el.Dispatch(ctx, Event{Type: "mouseup", Kind: KindMouse})
	if err := el.Click(ctx); err != nil {
		i.logger.Debug("Native click failed.", zap.Error(err))
		return false
	}
	return true
}

// KeyCode returns the legacy keyCode for a named key.
func KeyCode(key string) int {
	switch {
	case key == "Enter":
		return 13
	case key == "Escape":
		return 27
	case key == "Tab":
		return 9
	case len(key) == 1:
		return int(strings.ToUpper(key)[0])
	default:
		return 0
	}
}

// SendKey dispatches keydown, keypress and keyup for key on el.
func (i *Interactor) SendKey(ctx context.Context, el Element, key string) bool {
	if el == nil {
		return false
	}
	for _, t := range []string{"keydown", "keypress", "keyup"} {
		ev := Event{Type: t, Kind: KindKeyboard, Key: key, Code: key, KeyCode: KeyCode(key)}
		if err := el.Dispatch(ctx, ev); err != nil {
			i.logger.Debug("Key dispatch failed.", zap.String("key", key), zap.Error(fmt.Errorf("%w: %v", ErrActivation, err)))
			return false
		}
	}
	return true
}

// EnsureChecked leaves a checkbox or radio in the wanted state. It clicks the
// control only when its state differs, so page handlers observe a real toggle,
// then assigns the state directly if the handlers did not. It reports whether
// the control ends in the wanted state.
func (i *Interactor) EnsureChecked(ctx context.Context, el Element, want bool) bool {
	if el == nil {
		return false
	}
	st, err := el.State(ctx)
	if err != nil {
		return false
	}
	if st.Checked == want {
		return true
	}
	if err := el.Click(ctx); err != nil {
		i.logger.Debug("Toggle click failed.", zap.Error(err))
	}
	if st, err = el.State(ctx); err == nil && st.Checked == want {
		return true
	}
	if err := el.SetChecked(ctx, want); err != nil {
		i.logger.Debug("Direct check assignment failed.", zap.Error(err))
		return false
	}
	_ = i.Notify(ctx, el)
	st, err = el.State(ctx)
	return err == nil && st.Checked == want
}
