package app

import (
	"github.com/get-rishabh/AutoLeads-Assignment/internal/browser"
	"github.com/get-rishabh/AutoLeads-Assignment/internal/config"
	"github.com/get-rishabh/AutoLeads-Assignment/internal/debugdump"
	"github.com/get-rishabh/AutoLeads-Assignment/internal/pipeline"
	"github.com/get-rishabh/AutoLeads-Assignment/pkg/pipeline/worker"
)

// PipelineOptions converts the pacing section into pipeline options.
func PipelineOptions(cfg config.Config) pipeline.Options {
	opts := pipeline.DefaultOptions()
	p := cfg.Pacing
	opts.SettleMin, opts.SettleMax = p.Settle.Min.Std(), p.Settle.Max.Std()
	opts.BetweenPagesMin, opts.BetweenPagesMax = p.BetweenPages.Min.Std(), p.BetweenPages.Max.Std()
	opts.ScrollPauseMin, opts.ScrollPauseMax = p.ScrollPause.Min.Std(), p.ScrollPause.Max.Std()
	opts.HeadingTimeout = p.HeadingTimeout.Std()
	opts.CaptureDelay = p.CaptureDelay.Std()
	opts.ScrollPasses = p.ScrollPasses
	opts.ScrollStep = p.ScrollStep
	opts.MaxScrollSteps = p.MaxScrollSteps
	opts.Debug = debugdump.Writer{Dir: cfg.Output.DebugDir}
	return opts
}

// RetryOptions converts the gemini section into LLM call retry options.
func RetryOptions(cfg config.Config) worker.RetryOptions {
	return worker.RetryOptions{
		MaxRetries:        cfg.Gemini.MaxRetries,
		RequestTimeout:    cfg.Gemini.RequestTimeout.Std(),
		Limiter:           worker.NewLimiter(cfg.Gemini.RateLimitRPS),
		BackoffJitterFrac: 0.2,
	}
}

func BrowserOptions(cfg config.Config) browser.Options {
	return browser.Options{
		Headless:    cfg.Browser.Headless,
		ExecPath:    cfg.Browser.ChromePath,
		UserDataDir: cfg.Browser.UserDataDir,
	}
}

func Output(cfg config.Config) OutputOptions {
	return OutputOptions{Dir: cfg.Output.Dir, Prefix: cfg.Output.Prefix, Format: cfg.Output.Format}
}
