// Package browser implements the page-driving capability on top of a local Chrome
// controlled through the DevTools protocol.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/get-rishabh/AutoLeads-Assignment/internal/pipeline"
)

var _ pipeline.Browser = (*Chrome)(nil)

type Options struct {
	// Headless hides the window. Manual login needs a visible browser.
	Headless bool

	// ExecPath selects the Chrome binary; empty lets chromedp search the usual places.
	ExecPath string

	// UserDataDir reuses a Chrome profile, which keeps an authenticated session
	// across runs.
	UserDataDir string
}

// Chrome drives a single tab of a Chrome process owned by this value.
type Chrome struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

// Launch starts Chrome and opens a blank tab.
func Launch(ctx context.Context, opts Options) (*Chrome, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("start-maximized", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if p := strings.TrimSpace(opts.ExecPath); p != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(p))
	}
	if d := strings.TrimSpace(opts.UserDataDir); d != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(d))
	}

	// The browser lives until Close, not until the caller's ctx ends.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	bctx, cancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(bctx, chromedp.Navigate("about:blank")); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	return &Chrome{ctx: bctx, cancel: cancel, allocCancel: allocCancel}, nil
}

// run executes actions in the tab, aborting them when ctx is done.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	return c.run(ctx, chromedp.Navigate(url))
}

func (c *Chrome) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := c.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

func (c *Chrome) ExecuteScript(ctx context.Context, js string, result any) error {
	return c.run(ctx, chromedp.Evaluate(js, result))
}

func (c *Chrome) PageSource(ctx context.Context) (string, error) {
	var html string
	if err := c.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (c *Chrome) WaitElement(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return c.run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery))
}

// Close quits Chrome. It is safe to call more than once.
func (c *Chrome) Close() error {
	err := chromedp.Cancel(c.ctx)
	c.cancel()
	c.allocCancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
