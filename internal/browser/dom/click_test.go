package dom_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/repairfill/internal/browser/dom"
	"github.com/xkilldash9x/repairfill/internal/browser/htmldom"
)

func TestActivate(t *testing.T) {
	ctx := context.Background()
	in, doc := newInteractor(t, `<button id="confirm">Confirm</button>`)

	var coords [][2]float64
	doc.On("#confirm", "pointerdown", func(_ *htmldom.Document, _ *html.Node, ev dom.Event) {
		coords = append(coords, [2]float64{ev.ClientX, ev.ClientY})
	})

	require.True(t, in.Activate(ctx, doc.Element("#confirm")))
	assert.Equal(t,
		[]string{"pointerdown", "mousedown", "pointerup", "mouseup", "click", "click"},
		doc.EventTypes("#confirm"),
		"the gesture replay is followed by the native click")
	require.Len(t, coords, 1)
	assert.Equal(t, [2]float64{88, 20}, coords[0])
	assert.Equal(t, "button", doc.Focused().Data)

	assert.False(t, in.Activate(ctx, nil))
	assert.ErrorIs(t, in.ActivateErr(ctx, nil), dom.ErrActivation)
}

func TestCenter(t *testing.T) {
	x, y := dom.Center(dom.Rect{X: 10, Y: 20, Width: 100, Height: 40}, dom.Rect{Width: 800, Height: 600})
	assert.Equal(t, 60.0, x)
	assert.Equal(t, 40.0, y)

	x, y = dom.Center(dom.Rect{X: 790, Y: 590, Width: 100, Height: 100}, dom.Rect{Width: 800, Height: 600})
	assert.Equal(t, 799.0, x, "clamped to the viewport")
	assert.Equal(t, 599.0, y)

	x, y = dom.Center(dom.Rect{X: 5, Y: 5}, dom.Rect{})
	assert.Equal(t, 5.0, x, "a zero box stays at its origin")
	assert.Equal(t, 5.0, y)
}

func TestClickAndKeys(t *testing.T) {
	ctx := context.Background()
	in, doc := newInteractor(t, `<input id="serial"><button id="b">b</button>`)

	assert.True(t, in.Click(ctx, doc.Element("#b")))
	assert.Equal(t, []string{"mousedown", "mouseup", "click"}, doc.EventTypes("#b"))
	assert.False(t, in.Click(ctx, nil))

	var codes []int
	doc.On("#serial", "keydown", func(_ *htmldom.Document, _ *html.Node, ev dom.Event) {
		codes = append(codes, ev.KeyCode)
	})
	assert.True(t, in.SendKey(ctx, doc.Element("#serial"), "Enter"))
	assert.Equal(t, []string{"keydown", "keypress", "keyup"}, doc.EventTypes("#serial"))
	assert.Equal(t, []int{13}, codes)

	assert.Equal(t, 27, dom.KeyCode("Escape"))
	assert.Equal(t, 9, dom.KeyCode("Tab"))
	assert.Equal(t, 65, dom.KeyCode("a"))
	assert.Equal(t, 0, dom.KeyCode("F13"))
}

func TestEnsureChecked(t *testing.T) {
	ctx := context.Background()

	t.Run("clicks only when the state differs", func(t *testing.T) {
		in, doc := newInteractor(t, `<input type="checkbox" id="cb">`)
		assert.True(t, in.EnsureChecked(ctx, doc.Element("#cb"), true))
		assert.True(t, doc.CheckedOf("#cb"))
		assert.Equal(t, 1, doc.Count("#cb", "click"))

		assert.True(t, in.EnsureChecked(ctx, doc.Element("#cb"), true))
		assert.Equal(t, 1, doc.Count("#cb", "click"), "already in the wanted state")
	})

	t.Run("handlers that undo the toggle are overridden", func(t *testing.T) {
		in, doc := newInteractor(t, `<input type="checkbox" id="cb">`)
		doc.On("#cb", "click", func(d *htmldom.Document, _ *html.Node, _ dom.Event) {
			d.RemoveAttr("#cb", "checked")
		})
		assert.True(t, in.EnsureChecked(ctx, doc.Element("#cb"), true))
		assert.True(t, doc.CheckedOf("#cb"))
	})

	t.Run("disabled control is assigned directly", func(t *testing.T) {
		in, doc := newInteractor(t, `<input type="radio" name="g" id="r" disabled>`)
		assert.True(t, in.EnsureChecked(ctx, doc.Element("#r"), true))
		assert.True(t, doc.CheckedOf("#r"))
	})

	t.Run("nil", func(t *testing.T) {
		in, _ := newInteractor(t, `<p></p>`)
		assert.False(t, in.EnsureChecked(ctx, nil, true))
	})
}

func TestVisibilityPredicate(t *testing.T) {
	cases := []struct {
		name  string
		state dom.State
		want  bool
	}{
		{"rendered box", dom.State{Box: dom.Rect{Width: 10, Height: 10}}, true},
		{"offset parent only", dom.State{HasOffsetParent: true}, true},
		{"no layout", dom.State{}, false},
		{"display none", dom.State{HasOffsetParent: true, Display: "none"}, false},
		{"visibility collapse", dom.State{HasOffsetParent: true, Visibility: "collapse"}, false},
		{"transparent", dom.State{HasOffsetParent: true, Opacity: "0"}, false},
		{"half transparent", dom.State{HasOffsetParent: true, Opacity: "0.5"}, true},
		{"pointer events none", dom.State{HasOffsetParent: true, PointerEvents: "none"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.state.Visible())
		})
	}

	assert.False(t, dom.State{HasOffsetParent: true, Attrs: map[string]string{"aria-disabled": "true"}}.Interactable())
	assert.True(t, dom.State{HasOffsetParent: true, Attrs: map[string]string{"aria-disabled": "false"}}.Interactable())
}
