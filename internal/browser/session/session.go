// internal/browser/session/session.go
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/repairfill/internal/browser/dom"
	"github.com/xkilldash9x/repairfill/internal/browser/scripts"
	"github.com/xkilldash9x/repairfill/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// objectGroup tags every remote object the session pins so that one
// ReleaseObjectGroup call frees them all.
const objectGroup = "repairfill"

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("browser session is closed")

// Session drives one browser tab over the DevTools protocol. It implements
// dom.Page; elements are remote object handles scoped to objectGroup.
type Session struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	// ctx is the chromedp tab context. Every action runs in a context derived
	// from it so the CDP target travels with the call.
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

var (
	_ dom.Page           = (*Session)(nil)
	_ dom.HandleReleaser = (*Session)(nil)
)

// New launches Chrome, or attaches to the one at cfg.RemoteURL, and opens a tab.
// With cfg.TargetID set the session attaches to that existing tab instead.
func New(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("session")

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if cfg.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.RemoteURL)
		logger.Info("Attaching to running browser.", zap.String("remote_url", cfg.RemoteURL))
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, AllocatorOptions(cfg)...)
		logger.Info("Launching browser.", zap.Bool("headless", cfg.Headless))
	}

	sugar := logger.Sugar()
	opts := []chromedp.ContextOption{
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Errorf),
	}
	if cfg.TargetID != "" {
		opts = append(opts, chromedp.WithTargetID(target.ID(cfg.TargetID)))
	}
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, opts...)

	// The first Run starts the browser (or attaches) and creates the tab.
	startCtx, cancelStart := context.WithTimeout(tabCtx, startTimeout(cfg))
	defer cancelStart()
	if err := chromedp.Run(startCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}

	return &Session{
		logger:      logger,
		cfg:         cfg,
		ctx:         tabCtx,
		cancel:      tabCancel,
		allocCancel: allocCancel,
	}, nil
}

func startTimeout(cfg config.BrowserConfig) time.Duration {
	if cfg.NavigationTimeout > 0 {
		return cfg.NavigationTimeout
	}
	return 30 * time.Second
}

// Context returns the tab context, for callers composing their own chromedp actions.
func (s *Session) Context() context.Context { return s.ctx }

// Close releases pinned handles and shuts the tab and, when launched here, the browser.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	releaseCtx, cancel := context.WithTimeout(Detach(s.ctx), 2*time.Second)
	defer cancel()
	if err := runtime.ReleaseObjectGroup(objectGroup).Do(releaseCtx); err != nil {
		s.logger.Debug("Failed to release object group on close.", zap.Error(err))
	}
	s.cancel()
	s.allocCancel()
	s.logger.Debug("Browser session closed.")
	return nil
}

// Navigate loads url in the tab and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx := ctx
	if s.cfg.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, s.cfg.NavigationTimeout)
		defer cancel()
	}
	if err := s.RunActions(navCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// RunActions runs chromedp actions in the tab, canceled by either the session
// or ctx, and bounded by the configured operation timeout.
func (s *Session) RunActions(ctx context.Context, actions ...chromedp.Action) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	if s.cfg.OperationTimeout > 0 {
		var cancelOp context.CancelFunc
		runCtx, cancelOp = context.WithTimeout(runCtx, s.cfg.OperationTimeout)
		defer cancelOp()
	}

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		// Report the caller's reason rather than the derived context's.
		return ctx.Err()
	}
	return err
}

// -- dom.Page --

// Document returns a handle to the document node.
func (s *Session) Document(ctx context.Context) (dom.Element, error) {
	var obj *runtime.RemoteObject
	err := s.RunActions(ctx, chromedp.Evaluate("document", &obj, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithObjectGroup(objectGroup)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve document: %w", err)
	}
	return s.element(obj), nil
}

// ElementByID calls getElementById on the document.
func (s *Session) ElementByID(ctx context.Context, id string) (dom.Element, error) {
	doc, err := s.Document(ctx)
	if err != nil {
		return nil, err
	}
	return doc.(*Element).callElement(ctx, scripts.ByID, id)
}

// CallGlobal calls window[name]() when the page defines it as a function.
func (s *Session) CallGlobal(ctx context.Context, name string) (bool, error) {
	doc, err := s.Document(ctx)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := doc.(*Element).call(ctx, scripts.CallGlobal, &ok, name); err != nil {
		return false, fmt.Errorf("global %s: %w", name, err)
	}
	return ok, nil
}

// InjectScript appends a <script> element carrying source to the page.
func (s *Session) InjectScript(ctx context.Context, source string) error {
	doc, err := s.Document(ctx)
	if err != nil {
		return err
	}
	var ok bool
	if err := doc.(*Element).call(ctx, scripts.InjectScript, &ok, source); err != nil {
		return fmt.Errorf("failed to inject script: %w", err)
	}
	return nil
}

// ReleaseHandles frees every remote object pinned since the last release.
func (s *Session) ReleaseHandles(ctx context.Context) error {
	return s.RunActions(ctx, runtime.ReleaseObjectGroup(objectGroup))
}

// element wraps a remote object, mapping null and undefined to a nil handle.
func (s *Session) element(obj *runtime.RemoteObject) dom.Element {
	if obj == nil || obj.ObjectID == "" || obj.Subtype == "null" {
		return nil
	}
	return &Element{s: s, id: obj.ObjectID}
}
