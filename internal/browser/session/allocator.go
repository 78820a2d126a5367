// internal/browser/session/allocator.go
package session

import (
	"sort"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/repairfill/internal/config"
)

// Flags translates the browser configuration into Chrome command-line flags,
// keyed without the leading dashes. Entries from cfg.Args win over the
// computed ones.
func Flags(cfg config.BrowserConfig) map[string]interface{} {
	flags := map[string]interface{}{
		// Hardened hosts refuse the sandbox's namespaces.
		"no-sandbox":            true,
		"disable-dev-shm-usage": true,
		"disable-extensions":    true,
		"headless":              cfg.Headless,
	}
	if cfg.Headless {
		flags["disable-gpu"] = true
		flags["hide-scrollbars"] = true
		flags["mute-audio"] = true
	}
	if cfg.IgnoreTLSErrors {
		flags["ignore-certificate-errors"] = true
		flags["allow-insecure-localhost"] = true
	}
	for _, arg := range cfg.Args {
		arg = strings.TrimLeft(strings.TrimSpace(arg), "-")
		if arg == "" {
			continue
		}
		if key, value, ok := strings.Cut(arg, "="); ok {
			flags[key] = value
			continue
		}
		flags[arg] = true
	}
	return flags
}

// AllocatorOptions builds the exec allocator options for launching a local Chrome.
func AllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)

	flags := Flags(cfg)
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		opts = append(opts, chromedp.Flag(name, flags[name]))
	}

	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}
	if w, h := cfg.Viewport["width"], cfg.Viewport["height"]; w > 0 && h > 0 {
		opts = append(opts, chromedp.WindowSize(w, h))
	}
	return opts
}
