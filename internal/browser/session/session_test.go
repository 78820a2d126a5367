// internal/browser/session/session_test.go
package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/repairfill/internal/browser/dom"
	"github.com/xkilldash9x/repairfill/internal/config"
	"github.com/xkilldash9x/repairfill/internal/steps"
)

const fixturePage = `<!doctype html><html><body>
<input id="txtHoursIn"><input id="txtO2In">
<button id="start" type="button" onclick="window.started = (window.started || 0) + 1">Start</button>
<input type="radio" name="issue" id="radConfirmIssue"><input type="radio" name="issue" id="radDeny" checked>
<input type="checkbox" id="1">
<table id="tblParts"><tbody><tr id="row1"><td>Compressor</td><td><input type="radio" id="radPartYes1" name="p1"></td></tr></tbody></table>
<script>window.MFWpartsConfirmed = function() { document.body.setAttribute('data-confirmed', 'yes'); };</script>
</body></html>`

// chromePath returns an installed Chrome or Chromium, skipping the test when
// there is none.
func chromePath(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping live browser test in short mode")
	}
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "chrome"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	t.Skip("no Chrome or Chromium binary found")
	return ""
}

func newLiveSession(t *testing.T) (*Session, *dom.Interactor) {
	t.Helper()
	execPath := chromePath(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, fixturePage)
	}))
	t.Cleanup(srv.Close)

	logger := zaptest.NewLogger(t)
	s, err := New(context.Background(), config.BrowserConfig{
		Headless:          true,
		ExecPath:          execPath,
		NavigationTimeout: 30 * time.Second,
		OperationTimeout:  10 * time.Second,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, s.Navigate(ctx, srv.URL))
	return s, dom.NewInteractor(logger, s)
}

func TestLiveSession(t *testing.T) {
	s, in := newLiveSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	t.Run("numeric id resolves through getElementById", func(t *testing.T) {
		el, err := in.Find(ctx, []string{"#1"}, nil)
		require.NoError(t, err)
		st, err := el.State(ctx)
		require.NoError(t, err)
		assert.Equal(t, "checkbox", st.Type)
		assert.True(t, st.Visible())
	})

	t.Run("xpath and same node", func(t *testing.T) {
		yes := in.Resolve(ctx, []string{"#radPartYes1"}, nil)
		require.NotNil(t, yes)
		row, err := yes.Closest(ctx, "tr")
		require.NoError(t, err)
		byXPath := in.Resolve(ctx, []string{`//tr[@id="row1"]`}, nil)
		require.NotNil(t, byXPath)

		same, err := row.SameNode(ctx, byXPath)
		require.NoError(t, err)
		assert.True(t, same)
		same, err = row.SameNode(ctx, yes)
		require.NoError(t, err)
		assert.False(t, same)
	})

	t.Run("hours step against the live page", func(t *testing.T) {
		x := steps.NewExecutor(zaptest.NewLogger(t), in, config.NewDefaultConfig().Automation(), config.Preferences{})
		res, err := x.FillHoursAndPurity(ctx, config.OperatorValues{HoursIn: "12abc", OxygenPurity: "98.6%"})
		require.NoError(t, err)
		assert.True(t, res.Submitted)

		hours := in.Resolve(ctx, []string{"#txtHoursIn"}, nil)
		st, err := hours.State(ctx)
		require.NoError(t, err)
		assert.Equal(t, "12", st.Value)
	})

	t.Run("radios and globals", func(t *testing.T) {
		radio := in.Resolve(ctx, []string{"#radConfirmIssue"}, nil)
		assert.True(t, in.EnsureChecked(ctx, radio, true))

		called, err := s.CallGlobal(ctx, "MFWpartsConfirmed")
		require.NoError(t, err)
		assert.True(t, called)
		called, err = s.CallGlobal(ctx, "notDefined")
		require.NoError(t, err)
		assert.False(t, called)

		body := in.Resolve(ctx, []string{"body"}, nil)
		v, ok := func() (string, bool) {
			st, err := body.State(ctx)
			require.NoError(t, err)
			return st.Attr("data-confirmed")
		}()
		assert.True(t, ok)
		assert.Equal(t, "yes", v)
	})

	t.Run("handles are released", func(t *testing.T) {
		assert.NoError(t, s.ReleaseHandles(ctx))
	})
}

func TestClosedSession(t *testing.T) {
	s := &Session{logger: zaptest.NewLogger(t), ctx: context.Background(), closed: true}
	_, err := s.Document(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
