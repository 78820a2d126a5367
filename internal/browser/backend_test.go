// internal/browser/backend_test.go
package browser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/repairfill/internal/browser/htmldom"
	"github.com/xkilldash9x/repairfill/internal/config"
)

// htmlDoc gives the embedded document a field name that does not shadow its
// promoted Document method.
type htmlDoc = htmldom.Document

// fakeTab is an in-memory backend that records navigation.
type fakeTab struct {
	*htmlDoc
	navigated []string
	navErr    error
	closed    bool
}

func (f *fakeTab) Navigate(_ context.Context, url string) error {
	f.navigated = append(f.navigated, url)
	return f.navErr
}

func (f *fakeTab) Close() error                             { f.closed = true; return nil }
func (f *fakeTab) ReleaseHandles(ctx context.Context) error { return nil }

func withOpener(t *testing.T, driver string, tab *fakeTab, openErr error) {
	t.Helper()
	prev, had := openers[driver]
	openers[driver] = func(context.Context, config.BrowserConfig, *zap.Logger) (Backend, error) {
		if openErr != nil {
			return nil, openErr
		}
		return tab, nil
	}
	t.Cleanup(func() {
		if had {
			openers[driver] = prev
		} else {
			delete(openers, driver)
		}
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("empty driver means chromedp", func(t *testing.T) {
		tab := &fakeTab{htmlDoc: htmldom.MustParse(`<p>x</p>`)}
		withOpener(t, config.DriverChromedp, tab, nil)

		b, err := Open(ctx, config.BrowserConfig{}, zaptest.NewLogger(t), "https://repairs.example/form")
		require.NoError(t, err)
		assert.Same(t, tab, b)
		assert.Equal(t, []string{"https://repairs.example/form"}, tab.navigated)
	})

	t.Run("rod without navigation", func(t *testing.T) {
		tab := &fakeTab{htmlDoc: htmldom.MustParse(`<p>x</p>`)}
		withOpener(t, config.DriverRod, tab, nil)

		_, err := Open(ctx, config.BrowserConfig{Driver: config.DriverRod}, nil, "")
		require.NoError(t, err)
		assert.Empty(t, tab.navigated)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := Open(ctx, config.BrowserConfig{Driver: "netscape"}, nil, "")
		assert.ErrorIs(t, err, ErrUnknownDriver)
	})

	t.Run("open failure is wrapped", func(t *testing.T) {
		boom := errors.New("no chrome")
		withOpener(t, config.DriverRod, nil, boom)

		_, err := Open(ctx, config.BrowserConfig{Driver: config.DriverRod}, nil, "")
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "rod")
	})

	t.Run("navigation failure closes the tab", func(t *testing.T) {
		tab := &fakeTab{htmlDoc: htmldom.MustParse(`<p>x</p>`), navErr: errors.New("net::ERR")}
		withOpener(t, config.DriverChromedp, tab, nil)

		_, err := Open(ctx, config.BrowserConfig{}, nil, "https://repairs.example")
		assert.Error(t, err)
		assert.True(t, tab.closed)
	})
}
