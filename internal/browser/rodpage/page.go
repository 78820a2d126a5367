// Package rodpage implements the DOM contract on top of go-rod. It shares the
// page-side functions with the chromedp backend, so both drivers see the
// same semantics; only the transport differs.
package rodpage

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/xkilldash9x/repairfill/internal/browser/dom"
	"github.com/xkilldash9x/repairfill/internal/browser/scripts"
	"github.com/xkilldash9x/repairfill/internal/browser/session"
	"github.com/xkilldash9x/repairfill/internal/config"
)

// Page is a rod tab behind dom.Page.
type Page struct {
	logger  *zap.Logger
	browser *rod.Browser
	page    *rod.Page
	owned   bool // the browser was launched here and is closed with the page

	mu     sync.Mutex
	pinned []proto.RuntimeRemoteObjectID
}

var (
	_ dom.Page           = (*Page)(nil)
	_ dom.HandleReleaser = (*Page)(nil)
)

// New launches a browser (or connects to cfg.RemoteURL) and opens a tab, or
// adopts the tab named by cfg.TargetID.
func New(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Page, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("rod")

	controlURL := cfg.RemoteURL
	owned := false
	if controlURL == "" {
		u, err := newLauncher(cfg).Context(ctx).Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		controlURL, owned = u, true
		logger.Info("Launched browser.", zap.Bool("headless", cfg.Headless))
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	var p *rod.Page
	var err error
	if cfg.TargetID != "" {
		p, err = browser.PageFromTarget(proto.TargetTargetID(cfg.TargetID))
	} else {
		p, err = browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		if owned {
			_ = browser.Close()
		}
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	if w, h := cfg.Viewport["width"], cfg.Viewport["height"]; w > 0 && h > 0 {
		if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{Width: w, Height: h, DeviceScaleFactor: 1}); err != nil {
			logger.Debug("Failed to set viewport.", zap.Error(err))
		}
	}
	if cfg.OperationTimeout > 0 {
		p = p.Timeout(cfg.OperationTimeout)
	}
	return &Page{logger: logger, browser: browser, page: p, owned: owned}, nil
}

// newLauncher maps the shared flag set onto a rod launcher.
func newLauncher(cfg config.BrowserConfig) *launcher.Launcher {
	l := launcher.New().Headless(cfg.Headless).Leakless(false)
	if cfg.ExecPath != "" {
		l = l.Bin(cfg.ExecPath)
	}
	if cfg.UserDataDir != "" {
		l = l.UserDataDir(cfg.UserDataDir)
	}
	for name, v := range session.Flags(cfg) {
		if name == "headless" {
			continue
		}
		switch tv := v.(type) {
		case bool:
			if tv {
				l = l.Set(flags.Flag(name))
			} else {
				l = l.Delete(flags.Flag(name))
			}
		default:
			l = l.Set(flags.Flag(name), fmt.Sprint(tv))
		}
	}
	return l
}

// Navigate loads url and waits for the load event.
func (p *Page) Navigate(ctx context.Context, url string) error {
	pg := p.page.Context(ctx)
	if err := pg.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return pg.WaitLoad()
}

// Close releases handles and closes the tab, and the browser when it was launched here.
func (p *Page) Close() error {
	_ = p.ReleaseHandles(context.Background())
	if p.owned {
		return p.browser.Close()
	}
	return p.page.Close()
}

// eval runs fn with this bound to obj and returns the result by value.
func (p *Page) eval(ctx context.Context, this *proto.RuntimeRemoteObject, fn string, args ...interface{}) (*proto.RuntimeRemoteObject, error) {
	return p.page.Context(ctx).Evaluate(rod.Eval(fn, args...).This(this))
}

// evalElement runs fn and wraps the returned node, or nil for null.
func (p *Page) evalElement(ctx context.Context, this *proto.RuntimeRemoteObject, fn string, args ...interface{}) (dom.Element, error) {
	res, err := p.page.Context(ctx).Evaluate(rod.Eval(fn, args...).This(this).ByObject())
	if err != nil {
		return nil, err
	}
	return p.wrap(res), nil
}

func (p *Page) wrap(obj *proto.RuntimeRemoteObject) dom.Element {
	if obj == nil || obj.ObjectID == "" || obj.Subtype == proto.RuntimeRemoteObjectSubtypeNull {
		return nil
	}
	p.mu.Lock()
	p.pinned = append(p.pinned, obj.ObjectID)
	p.mu.Unlock()
	return &Element{p: p, obj: obj}
}

func (p *Page) document(ctx context.Context) (*proto.RuntimeRemoteObject, error) {
	res, err := p.page.Context(ctx).Evaluate(rod.Eval(`() => document`).ByObject())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve document: %w", err)
	}
	p.wrap(res)
	return res, nil
}

func (p *Page) Document(ctx context.Context) (dom.Element, error) {
	doc, err := p.document(ctx)
	if err != nil {
		return nil, err
	}
	return &Element{p: p, obj: doc}, nil
}

func (p *Page) ElementByID(ctx context.Context, id string) (dom.Element, error) {
	doc, err := p.document(ctx)
	if err != nil {
		return nil, err
	}
	return p.evalElement(ctx, doc, scripts.ByID, id)
}

func (p *Page) CallGlobal(ctx context.Context, name string) (bool, error) {
	doc, err := p.document(ctx)
	if err != nil {
		return false, err
	}
	res, err := p.eval(ctx, doc, scripts.CallGlobal, name)
	if err != nil {
		return false, fmt.Errorf("global %s: %w", name, err)
	}
	return res.Value.Bool(), nil
}

func (p *Page) InjectScript(ctx context.Context, source string) error {
	doc, err := p.document(ctx)
	if err != nil {
		return err
	}
	if _, err := p.eval(ctx, doc, scripts.InjectScript, source); err != nil {
		return fmt.Errorf("failed to inject script: %w", err)
	}
	return nil
}

// ReleaseHandles frees every object pinned since the last call.
func (p *Page) ReleaseHandles(ctx context.Context) error {
	p.mu.Lock()
	ids := p.pinned
	p.pinned = nil
	p.mu.Unlock()

	pg := p.page.Context(ctx)
	var first error
	for _, id := range ids {
		if err := (proto.RuntimeReleaseObject{ObjectID: id}).Call(pg); err != nil && first == nil {
			first = err
		}
	}
	return first
}
