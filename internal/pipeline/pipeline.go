// Package pipeline drives a browser session through profile pages and hands the
// rendered content to the normalizer and the extraction prompter.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/get-rishabh/AutoLeads-Assignment/internal/debugdump"
	"github.com/get-rishabh/AutoLeads-Assignment/internal/normalize"
	"github.com/get-rishabh/AutoLeads-Assignment/internal/profile"
	"github.com/get-rishabh/AutoLeads-Assignment/pkg/pipeline/redact"
	"github.com/get-rishabh/AutoLeads-Assignment/pkg/pipeline/worker"
)

const (
	MsgAuthRequired    = "CAPTCHA or authentication required"
	MsgLoginRedirect   = "Redirected to login - session may have expired"
	MsgNormalizeFailed = "Failed to extract text from HTML"

	scrollHeightJS = "document.body.scrollHeight"
)

// Browser is the page-driving capability. Implementations own a single tab.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	// ExecuteScript evaluates js and decodes its value into result. A nil result
	// discards the value.
	ExecuteScript(ctx context.Context, js string, result any) error
	PageSource(ctx context.Context) (string, error)
	// WaitElement polls until an element matching the CSS selector is present.
	WaitElement(ctx context.Context, selector string, timeout time.Duration) error
	Close() error
}

// Prompter converts normalized text into a profile record.
type Prompter interface {
	Extract(ctx context.Context, cleanText, profileURL string) profile.Record
}

// ProgressFunc is called before each URL with its 1-based index.
type ProgressFunc func(index, total int, url string)

type Options struct {
	// SettleMin and SettleMax bound the pause after navigation.
	SettleMin time.Duration
	SettleMax time.Duration

	// HeadingTimeout bounds the best-effort wait for the page heading.
	HeadingTimeout time.Duration

	ScrollPasses    int
	ScrollStep      int
	ScrollPauseMin  time.Duration
	ScrollPauseMax  time.Duration
	ScrollWarmup    time.Duration
	ScrollRest      time.Duration
	MaxScrollSteps  int
	CaptureDelay    time.Duration
	BetweenPagesMin time.Duration
	BetweenPagesMax time.Duration

	Sleep  worker.SleepFunc
	Debug  debugdump.Writer
	Logger *log.Logger
}

// DefaultOptions returns the pacing used against live profile pages.
func DefaultOptions() Options {
	return Options{
		SettleMin:       4 * time.Second,
		SettleMax:       6 * time.Second,
		HeadingTimeout:  10 * time.Second,
		ScrollPasses:    3,
		ScrollStep:      400,
		ScrollPauseMin:  800 * time.Millisecond,
		ScrollPauseMax:  1500 * time.Millisecond,
		ScrollWarmup:    2 * time.Second,
		ScrollRest:      time.Second,
		MaxScrollSteps:  100,
		CaptureDelay:    2 * time.Second,
		BetweenPagesMin: 6 * time.Second,
		BetweenPagesMax: 10 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SettleMin <= 0 && o.SettleMax <= 0 {
		o.SettleMin, o.SettleMax = d.SettleMin, d.SettleMax
	}
	if o.HeadingTimeout <= 0 {
		o.HeadingTimeout = d.HeadingTimeout
	}
	if o.ScrollPasses <= 0 {
		o.ScrollPasses = d.ScrollPasses
	}
	if o.ScrollStep <= 0 {
		o.ScrollStep = d.ScrollStep
	}
	if o.ScrollPauseMin <= 0 && o.ScrollPauseMax <= 0 {
		o.ScrollPauseMin, o.ScrollPauseMax = d.ScrollPauseMin, d.ScrollPauseMax
	}
	if o.MaxScrollSteps <= 0 {
		o.MaxScrollSteps = d.MaxScrollSteps
	}
	if o.Sleep == nil {
		o.Sleep = worker.Sleep
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// Pipeline owns one browser session and processes profiles one at a time.
type Pipeline struct {
	browser  Browser
	prompter Prompter
	opts     Options
}

// New builds a Pipeline. Zero-valued timing fields in opts take DefaultOptions
// values, except ScrollWarmup, ScrollRest, CaptureDelay and the between-pages range,
// where zero disables the pause.
func New(b Browser, p Prompter, opts Options) *Pipeline {
	return &Pipeline{browser: b, prompter: p, opts: opts.withDefaults()}
}

// Close quits the browser.
func (p *Pipeline) Close() error {
	return p.browser.Close()
}

// ScrapeOne processes a single profile URL. It always returns a record; failures
// of any stage, including panics, become failure records.
func (p *Pipeline) ScrapeOne(ctx context.Context, url string) (rec profile.Record) {
	defer func() {
		if r := recover(); r != nil {
			p.opts.Logger.Error("profile processing panicked", "url", url, "panic", r)
			rec = profile.Failure(url, redact.Secrets(fmt.Sprint(r)))
		}
	}()

	if msg, err := p.openProfile(ctx, url); err != nil {
		return profile.Failure(url, redact.Secrets(err.Error()))
	} else if msg != "" {
		p.opts.Logger.Warn("profile unavailable", "url", url, "reason", msg)
		return profile.Failure(url, msg)
	}

	if err := p.sleep(ctx, p.opts.CaptureDelay); err != nil {
		return profile.Failure(url, err.Error())
	}
	markup, err := p.browser.PageSource(ctx)
	if err != nil {
		return profile.Failure(url, redact.Secrets(err.Error()))
	}

	text, err := normalize.Normalize(markup)
	if err != nil || utf8.RuneCountInString(text) < normalize.MinTextLength {
		p.opts.Logger.Warn("normalization produced too little text", "url", url, "chars", utf8.RuneCountInString(text), "err", err)
		return profile.Failure(url, MsgNormalizeFailed)
	}
	if err := p.opts.Debug.WriteCleanText(url, text); err != nil {
		p.opts.Logger.Warn("write debug artifact", "url", url, "err", err)
	}
	p.opts.Logger.Debug("normalized page", "url", url, "chars", utf8.RuneCountInString(text))

	return p.prompter.Extract(ctx, text, url)
}

// ScrapeMany processes urls in order and returns one record per URL. The only error
// is ctx's, in which case the records completed so far are returned with it.
func (p *Pipeline) ScrapeMany(ctx context.Context, urls []string, onProgress ProgressFunc) ([]profile.Record, error) {
	results, err := worker.Sequential(ctx, urls, func(ctx context.Context, url string) (profile.Record, error) {
		return p.ScrapeOne(ctx, url), nil
	}, worker.Options{
		PauseMin: p.opts.BetweenPagesMin,
		PauseMax: p.opts.BetweenPagesMax,
		OnStart: func(index, total int) {
			if onProgress != nil {
				onProgress(index, total, urls[index-1])
			}
		},
		Sleep: p.opts.Sleep,
	})

	records := make([]profile.Record, 0, len(results))
	for _, r := range results {
		records = append(records, r.Output)
	}
	return records, err
}

// openProfile navigates to url and prepares the page for capture. A non-empty msg
// reports a session-level block for this URL.
func (p *Pipeline) openProfile(ctx context.Context, url string) (msg string, err error) {
	if err := p.browser.Navigate(ctx, url); err != nil {
		return "", fmt.Errorf("navigate: %w", err)
	}
	if err := p.sleep(ctx, worker.Jitter(p.opts.SettleMin, p.opts.SettleMax)); err != nil {
		return "", err
	}

	current, err := p.browser.CurrentURL(ctx)
	if err != nil {
		return "", fmt.Errorf("current url: %w", err)
	}
	if msg := blockedReason(current); msg != "" {
		return msg, nil
	}

	if err := p.browser.WaitElement(ctx, "h1", p.opts.HeadingTimeout); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		p.opts.Logger.Warn("profile heading did not appear, continuing", "url", url, "timeout", p.opts.HeadingTimeout)
	}

	if err := p.scroll(ctx); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		p.opts.Logger.Warn("scrolling failed, continuing", "url", url, "err", err)
	}
	return "", nil
}

func blockedReason(currentURL string) string {
	switch {
	case strings.Contains(currentURL, "checkpoint"), strings.Contains(currentURL, "authwall"):
		return MsgAuthRequired
	case strings.Contains(currentURL, "login"):
		return MsgLoginRedirect
	}
	return ""
}

// scroll walks the page to the bottom several times so lazy sections render, then
// returns to the top. Each pass re-measures the page height after every step.
func (p *Pipeline) scroll(ctx context.Context) error {
	if err := p.sleep(ctx, p.opts.ScrollWarmup); err != nil {
		return err
	}
	for pass := 0; pass < p.opts.ScrollPasses; pass++ {
		var height int64
		if err := p.browser.ExecuteScript(ctx, scrollHeightJS, &height); err != nil {
			return fmt.Errorf("measure page height: %w", err)
		}

		pause := worker.Jitter(p.opts.ScrollPauseMin, p.opts.ScrollPauseMax)
		pos := int64(0)
		for steps := 0; pos < height && steps < p.opts.MaxScrollSteps; steps++ {
			pos += int64(p.opts.ScrollStep)
			if err := p.browser.ExecuteScript(ctx, scrollToJS(pos), nil); err != nil {
				return fmt.Errorf("scroll: %w", err)
			}
			if err := p.sleep(ctx, pause); err != nil {
				return err
			}
			var grown int64
			if err := p.browser.ExecuteScript(ctx, scrollHeightJS, &grown); err != nil {
				return fmt.Errorf("measure page height: %w", err)
			}
			if grown > height {
				height = grown
			}
		}
		if err := p.sleep(ctx, p.opts.ScrollRest); err != nil {
			return err
		}
	}
	if err := p.browser.ExecuteScript(ctx, scrollToJS(0), nil); err != nil {
		return fmt.Errorf("scroll to top: %w", err)
	}
	return p.sleep(ctx, p.opts.ScrollRest)
}

func scrollToJS(top int64) string {
	return fmt.Sprintf("window.scrollTo({top: %d, behavior: 'smooth'});", top)
}

func (p *Pipeline) sleep(ctx context.Context, d time.Duration) error {
	if err := p.opts.Sleep(ctx, d); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// IsProfileURL reports whether url looks like a public profile page.
func IsProfileURL(url string) bool {
	return strings.Contains(url, "linkedin.com/in/")
}
