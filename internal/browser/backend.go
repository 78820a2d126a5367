// internal/browser/backend.go
// Package browser selects and opens the live page driver the automation runs
// against.
package browser

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/repairfill/internal/browser/dom"
	"github.com/xkilldash9x/repairfill/internal/browser/rodpage"
	"github.com/xkilldash9x/repairfill/internal/browser/session"
	"github.com/xkilldash9x/repairfill/internal/config"
)

// ErrUnknownDriver is returned for a driver name nothing is registered for.
var ErrUnknownDriver = errors.New("unknown browser driver")

// Backend is a live tab.
type Backend interface {
	dom.Page
	dom.HandleReleaser
	Navigate(ctx context.Context, url string) error
	Close() error
}

// Opener creates a backend for one driver.
type Opener func(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (Backend, error)

// openers is keyed by driver name. Tests swap entries.
var openers = map[string]Opener{
	config.DriverChromedp: func(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (Backend, error) {
		return session.New(ctx, cfg, logger)
	},
	config.DriverRod: func(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (Backend, error) {
		return rodpage.New(ctx, cfg, logger)
	},
}

// Open starts or attaches to a browser with the configured driver and, when
// url is set, navigates the tab there.
func Open(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger, url string) (Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	driver := cfg.Driver
	if driver == "" {
		driver = config.DriverChromedp
	}
	open, ok := openers[driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}

	logger.Info("Opening browser.",
		zap.String("driver", driver),
		zap.Bool("headless", cfg.Headless),
		zap.Bool("attach", cfg.RemoteURL != ""))
	b, err := open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s browser: %w", driver, err)
	}
	if url == "" {
		return b, nil
	}
	if err := b.Navigate(ctx, url); err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return b, nil
}
