// Package headless contains renderers that execute JavaScript via browsers.
package headless

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/siteaudit/internal/audit"
	"github.com/JakeFAU/siteaudit/internal/metrics"
)

// ErrRendererDisabled is returned by Render once no browser is installed, or
// after Close.
var ErrRendererDisabled = errors.New("headless renderer disabled")

// Config controls the behavior of the headless renderer.
type Config struct {
	UserAgent string
	// NavigationTimeout bounds one render, including the wait for the
	// network to go idle.
	NavigationTimeout time.Duration
	// ExecPath overrides browser discovery.
	ExecPath string
}

// allocFunc starts a browser and returns a context bound to it.
type allocFunc func(cfg Config) (context.Context, context.CancelFunc, error)

// Chromedp implements audit.Renderer with a single lazily started browser.
// Renders run one at a time.
type Chromedp struct {
	cfg    Config
	logger *zap.Logger
	alloc  allocFunc

	mu        sync.Mutex
	started   bool
	disabled  bool
	browser   context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewChromedp creates a renderer. No browser is launched until the first
// Render call.
func NewChromedp(cfg Config, logger *zap.Logger) *Chromedp {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chromedp{
		cfg:    cfg,
		logger: logger.Named("headless"),
		alloc:  startBrowser,
	}
}

// CanRender reports whether the renderer is still usable.
func (c *Chromedp) CanRender() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.disabled
}

// Render navigates to url and returns the rendered DOM. The returned page has
// no status code; callers keep the one from the static fetch.
func (c *Chromedp) Render(ctx context.Context, url string) (audit.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureStarted(); err != nil {
		metrics.ObserveRender("unavailable")
		return audit.Page{}, err
	}

	taskCtx, taskCancel := chromedp.NewContext(c.browser)
	defer taskCancel()
	taskCtx, cancel := context.WithTimeout(taskCtx, c.cfg.NavigationTimeout)
	defer cancel()
	// Propagate caller cancellation into the browser tab.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	start := time.Now()
	html, finalURL, err := c.run(taskCtx, url)
	if err != nil {
		metrics.ObserveRender("error")
		return audit.Page{}, fmt.Errorf("render %s: %w", url, err)
	}
	metrics.ObserveRender("ok")
	if finalURL == "" {
		finalURL = url
	}
	page := audit.NewPage(url, finalURL, 0, []byte(html), time.Since(start))
	page.Rendered = true
	return page, nil
}

// ensureStarted launches the browser once. A launch failure disables the
// renderer for the rest of its life. Only a failure to allocate process
// resources (memory, process or file slots) is reported as exhaustion; a
// missing or unusable browser is a capability gap and the crawl continues
// with static pages. Callers hold c.mu.
func (c *Chromedp) ensureStarted() error {
	if c.disabled {
		return ErrRendererDisabled
	}
	if c.started {
		return nil
	}
	browser, cancel, err := c.alloc(c.cfg)
	if err != nil {
		c.disabled = true
		switch {
		case errors.Is(err, exec.ErrNotFound):
			c.logger.Warn("headless browser not installed, continuing with static pages", zap.Error(err))
		case allocationFailure(err):
			c.logger.Error("headless browser could not be allocated", zap.Error(err))
			return fmt.Errorf("%w: %v", audit.ErrResourceExhausted, err)
		default:
			c.logger.Warn("headless browser failed to start, continuing with static pages", zap.Error(err))
		}
		return fmt.Errorf("%w: %v", ErrRendererDisabled, err)
	}
	c.browser = browser
	c.cancel = cancel
	c.started = true
	c.logger.Debug("headless browser started")
	return nil
}

// allocationFailure reports whether err means the host ran out of memory,
// process slots, file descriptors, or disk while starting the browser.
func allocationFailure(err error) bool {
	for _, errno := range []syscall.Errno{syscall.ENOMEM, syscall.EAGAIN, syscall.EMFILE, syscall.ENFILE, syscall.ENOSPC} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

func (c *Chromedp) run(ctx context.Context, url string) (string, string, error) {
	var (
		html     string
		finalURL string
	)
	idle := newIdleWatcher()
	chromedp.ListenTarget(ctx, idle.handle)
	actions := []chromedp.Action{
		c.networkSetupAction(),
		chromedp.Navigate(url),
		idle.wait(),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(ctx, actions...); err != nil {
		return "", "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, finalURL, nil
}

func (c *Chromedp) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if c.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(c.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

// Close shuts the browser down. It is safe to call more than once.
func (c *Chromedp) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.disabled = true
		if c.cancel != nil {
			c.cancel()
			c.logger.Debug("headless browser closed")
		}
	})
	return nil
}

// startBrowser allocates a browser process and opens its first tab so that
// launch failures surface here rather than on the first navigation.
func startBrowser(cfg Config) (context.Context, context.CancelFunc, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, nil, fmt.Errorf("start browser: %w", err)
	}
	return browserCtx, func() {
		browserCancel()
		allocCancel()
	}, nil
}

// idleWatcher tracks the main frame's current document and whether the
// browser has reported it network idle.
type idleWatcher struct {
	mu      sync.Mutex
	loader  cdp.LoaderID
	idle    map[cdp.LoaderID]bool
	changed chan struct{}
}

func newIdleWatcher() *idleWatcher {
	return &idleWatcher{
		idle:    make(map[cdp.LoaderID]bool),
		changed: make(chan struct{}, 1),
	}
}

func (w *idleWatcher) handle(ev any) {
	switch e := ev.(type) {
	case *page.EventFrameNavigated:
		if e.Frame == nil || e.Frame.ParentID != "" {
			return
		}
		w.mu.Lock()
		w.loader = e.Frame.LoaderID
		w.mu.Unlock()
	case *page.EventLifecycleEvent:
		if e.Name != "networkIdle" {
			return
		}
		w.mu.Lock()
		w.idle[e.LoaderID] = true
		w.mu.Unlock()
	default:
		return
	}
	select {
	case w.changed <- struct{}{}:
	default:
	}
}

func (w *idleWatcher) ready() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loader != "" && w.idle[w.loader]
}

// wait blocks until the main frame's document is network idle or ctx ends.
func (w *idleWatcher) wait() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for !w.ready() {
			select {
			case <-w.changed:
			case <-ctx.Done():
				return fmt.Errorf("wait for network idle: %w", ctx.Err())
			}
		}
		return nil
	})
}
