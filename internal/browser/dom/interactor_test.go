package dom_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/repairfill/internal/browser/dom"
	"github.com/xkilldash9x/repairfill/internal/browser/htmldom"
)

func newInteractor(t *testing.T, markup string) (*dom.Interactor, *htmldom.Document) {
	t.Helper()
	doc := htmldom.MustParse(markup)
	return dom.NewInteractor(zaptest.NewLogger(t), doc), doc
}

func idOf(t *testing.T, el dom.Element) string {
	t.Helper()
	require.NotNil(t, el)
	st, err := el.State(context.Background())
	require.NoError(t, err)
	return st.ID
}

func TestFind(t *testing.T) {
	ctx := context.Background()
	in, _ := newInteractor(t, `<form>
		<input id="1" name="first">
		<input id="txtHoursIn" name="hours">
		<div id="scope"><input class="inner" id="innerA"></div>
		<input class="inner" id="outer">
	</form>`)

	t.Run("first matching candidate wins", func(t *testing.T) {
		el, err := in.Find(ctx, []string{"#missing", "#txtHoursIn", "input"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "txtHoursIn", idOf(t, el))
	})

	t.Run("numeric ids resolve through id lookup", func(t *testing.T) {
		assert.Equal(t, "1", idOf(t, in.Resolve(ctx, []string{"#1"}, nil)))

		all := in.ResolveAll(ctx, []string{"#1"}, nil)
		require.Len(t, all, 1)
		assert.Equal(t, "1", idOf(t, all[0]))
		assert.Equal(t, "1", idOf(t, in.VisibleMatch([]string{"#missing", "#1"}, nil)(ctx)))
		assert.Equal(t, "1", idOf(t, in.InteractableMatch([]string{"#1"}, nil)(ctx)))
	})

	t.Run("BareID", func(t *testing.T) {
		id, ok := dom.BareID(" #1 ")
		assert.True(t, ok)
		assert.Equal(t, "1", id)
		_, ok = dom.BareID("#a .b")
		assert.False(t, ok)
		_, ok = dom.BareID("input#a")
		assert.False(t, ok)
	})

	t.Run("malformed and blank candidates count as no match", func(t *testing.T) {
		el := in.Resolve(ctx, []string{"", "  ", "input[name=", "#txtHoursIn"}, nil)
		assert.Equal(t, "txtHoursIn", idOf(t, el))
	})

	t.Run("scope limits the search", func(t *testing.T) {
		scope := in.Resolve(ctx, []string{"#scope"}, nil)
		assert.Equal(t, "innerA", idOf(t, in.Resolve(ctx, []string{".inner"}, scope)))
		assert.Len(t, in.ResolveAll(ctx, []string{".inner"}, nil), 2)
		assert.Len(t, in.ResolveAll(ctx, []string{".inner"}, scope), 1)
	})

	t.Run("xpath candidates", func(t *testing.T) {
		el := in.Resolve(ctx, []string{"xpath://input[@name='hours']"}, nil)
		assert.Equal(t, "txtHoursIn", idOf(t, el))
		el = in.Resolve(ctx, []string{"//input[@name='first']"}, nil)
		assert.Equal(t, "1", idOf(t, el))
	})

	t.Run("no match wraps ErrResolution", func(t *testing.T) {
		el, err := in.Find(ctx, []string{"#nope", ".nothing"}, nil)
		assert.Nil(t, el)
		assert.True(t, errors.Is(err, dom.ErrResolution))
		assert.Nil(t, in.Resolve(ctx, []string{"#nope"}, nil))
	})

	t.Run("ByID and Text", func(t *testing.T) {
		assert.Nil(t, in.ByID(ctx, ""))
		assert.Nil(t, in.ByID(ctx, "absent"))
		assert.NotNil(t, in.ByID(ctx, "1"))
		assert.Equal(t, "", in.Text(ctx, nil))
	})

	t.Run("Matches", func(t *testing.T) {
		el := in.Resolve(ctx, []string{"#innerA"}, nil)
		assert.True(t, in.Matches(ctx, el, ".inner"))
		assert.False(t, in.Matches(ctx, el, "select"))
		assert.False(t, in.Matches(ctx, el, "input["))
		assert.False(t, in.Matches(ctx, nil, ".inner"))
	})
}

func TestCSSString(t *testing.T) {
	assert.Equal(t, `"plain"`, dom.CSSString("plain"))
	assert.Equal(t, `"a\"b\\c"`, dom.CSSString(`a"b\c`))
}

func TestAsXPath(t *testing.T) {
	tests := []struct {
		in    string
		expr  string
		xpath bool
	}{
		{"xpath: //div", "//div", true},
		{"//td[1]", "//td[1]", true},
		{"(//tr)[2]", "(//tr)[2]", true},
		{"#id", "", false},
		{"div > span", "", false},
	}
	for _, tt := range tests {
		expr, ok := dom.AsXPath(tt.in)
		assert.Equal(t, tt.xpath, ok, tt.in)
		assert.Equal(t, tt.expr, expr, tt.in)
	}
}
