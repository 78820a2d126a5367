// File: cmd/components.go
package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/repairfill/internal/browser"
	"github.com/xkilldash9x/repairfill/internal/browser/dom"
	"github.com/xkilldash9x/repairfill/internal/config"
	"github.com/xkilldash9x/repairfill/internal/events"
	"github.com/xkilldash9x/repairfill/internal/observability"
	"github.com/xkilldash9x/repairfill/internal/protocol"
	"github.com/xkilldash9x/repairfill/internal/steps"
	"github.com/xkilldash9x/repairfill/internal/store"
	"github.com/xkilldash9x/repairfill/internal/workflow"
)

// Function variables for dependency injection in tests.
var (
	openStore   = store.Open
	openBackend = browser.Open
	connectNATS = events.Connect
)

// components holds everything a command needs to drive one tab.
type components struct {
	cfg    config.Interface
	logger *zap.Logger

	Store      store.Store
	Prefs      config.Preferences
	Page       dom.Page
	Dispatcher *protocol.Dispatcher
	Events     *events.NATSReporter

	backend browser.Backend
}

// initializeComponents opens the preference store and loads the preferences.
// The page is attached separately.
func initializeComponents(ctx context.Context, cfg config.Interface) (*components, error) {
	logger := observability.GetLogger()
	c := &components{cfg: cfg, logger: logger}

	s, err := openStore(ctx, cfg.Store(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open preference store: %w", err)
	}
	c.Store = s

	prefs, err := store.LoadPreferences(ctx, s, logger)
	if err != nil {
		c.Shutdown()
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	c.Prefs = prefs
	return c, nil
}

// openBrowser opens the configured driver and attaches it.
func (c *components) openBrowser(ctx context.Context, url string) error {
	b, err := openBackend(ctx, c.cfg.Browser(), c.logger, url)
	if err != nil {
		return err
	}
	c.backend = b
	c.attach(b)
	return nil
}

// attach builds the executor and dispatcher over page.
func (c *components) attach(page dom.Page) {
	c.Page = page
	exec := steps.NewExecutor(c.logger, dom.NewInteractor(c.logger, page), c.cfg.Automation(), c.Prefs)
	c.Dispatcher = protocol.NewDispatcher(c.logger, exec)
}

// connectEvents connects the NATS reporter when one is configured.
func (c *components) connectEvents() {
	r, err := connectNATS(c.logger, c.cfg.Events())
	if err != nil {
		// Status events are best effort; the run goes ahead without them.
		c.logger.Warn("Status events disabled.", zap.Error(err))
		return
	}
	c.Events = r
}

// orchestrator wires a workflow over the dispatcher with the log reporter, the
// NATS reporter when connected, and any extra reporters.
func (c *components) orchestrator(extra ...workflow.Reporter) *workflow.Orchestrator {
	reporters := []workflow.Reporter{workflow.NewLogReporter(c.logger)}
	if c.Events != nil {
		reporters = append(reporters, c.Events)
	}
	reporters = append(reporters, extra...)
	return workflow.NewOrchestrator(c.logger, c.Dispatcher, c.cfg.Automation().Settle, workflow.NewMultiReporter(c.logger, reporters...))
}

// recordRun appends report to the run history. Failures are logged only.
func (c *components) recordRun(ctx context.Context, report *workflow.Report) {
	if report == nil {
		return
	}
	rec, err := report.Record()
	if err == nil {
		err = c.Store.RecordRun(context.WithoutCancel(ctx), rec)
	}
	if err != nil {
		c.logger.Warn("Failed to record run.", zap.String("run_id", report.RunID), zap.Error(err))
	}
}

// Shutdown releases the browser, the event connection and the store.
func (c *components) Shutdown() {
	if c.backend != nil {
		if err := c.backend.Close(); err != nil {
			c.logger.Warn("Failed to close browser.", zap.Error(err))
		}
	}
	if c.Events != nil {
		if err := c.Events.Close(); err != nil {
			c.logger.Warn("Failed to close event connection.", zap.Error(err))
		}
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			c.logger.Warn("Failed to close preference store.", zap.Error(err))
		}
	}
}
