// internal/browser/session/allocator_test.go
package session

import (
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/repairfill/internal/config"
)

func TestFlags(t *testing.T) {
	t.Run("headless defaults", func(t *testing.T) {
		f := Flags(config.BrowserConfig{Headless: true})
		assert.Equal(t, true, f["headless"])
		assert.Equal(t, true, f["no-sandbox"])
		assert.Equal(t, true, f["disable-gpu"])
		assert.NotContains(t, f, "ignore-certificate-errors")
	})

	t.Run("headed browser keeps the gpu", func(t *testing.T) {
		f := Flags(config.BrowserConfig{Headless: false})
		assert.Equal(t, false, f["headless"])
		assert.NotContains(t, f, "disable-gpu")
	})

	t.Run("tls errors", func(t *testing.T) {
		f := Flags(config.BrowserConfig{IgnoreTLSErrors: true})
		assert.Equal(t, true, f["ignore-certificate-errors"])
		assert.Equal(t, true, f["allow-insecure-localhost"])
	})

	t.Run("custom args override computed flags", func(t *testing.T) {
		f := Flags(config.BrowserConfig{Headless: true, Args: []string{"--headless=new", "lang=de-DE", "--no-zygote", "  "}})
		assert.Equal(t, "new", f["headless"])
		assert.Equal(t, "de-DE", f["lang"])
		assert.Equal(t, true, f["no-zygote"])
		assert.NotContains(t, f, "")
	})
}

func TestAllocatorOptions(t *testing.T) {
	base := len(chromedp.DefaultExecAllocatorOptions)
	cfg := config.BrowserConfig{Headless: true}
	plain := AllocatorOptions(cfg)
	assert.Len(t, plain, base+len(Flags(cfg)))

	cfg.ExecPath = "/opt/chrome/chrome"
	cfg.UserDataDir = "/tmp/profile"
	cfg.Viewport = map[string]int{"width": 1280, "height": 800}
	assert.Len(t, AllocatorOptions(cfg), len(plain)+3)

	cfg.Viewport = map[string]int{"width": 1280}
	assert.Len(t, AllocatorOptions(cfg), len(plain)+2, "a partial viewport is ignored")
}
