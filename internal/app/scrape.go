// Package app wires configuration, the browser session, the extractor and the
// output sinks into the scrape, export and normalize commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/get-rishabh/AutoLeads-Assignment/internal/normalize"
	"github.com/get-rishabh/AutoLeads-Assignment/internal/pipeline"
	"github.com/get-rishabh/AutoLeads-Assignment/internal/profile"
	"github.com/get-rishabh/AutoLeads-Assignment/internal/store"
	"github.com/get-rishabh/AutoLeads-Assignment/pkg/pipeline/core"
	"github.com/google/uuid"
)

// ErrNoURLs is returned when the input yields no profile URLs.
var ErrNoURLs = errors.New("no profile URLs to scrape")

// ScrapeOptions configures one scrape run.
type ScrapeOptions struct {
	// Model is recorded with the run.
	Model string

	Pipeline pipeline.Options

	// SkipLogin trusts the browser session as already authenticated.
	SkipLogin bool
	// ConfirmLogin blocks until the operator has logged in on the opened login page.
	ConfirmLogin func(ctx context.Context) error

	// SkipExisting reuses successful records from Store for URLs seen before.
	SkipExisting bool
	// Store is optional; when set every run is saved to it.
	Store *store.SQLite

	// Output is optional; an empty Dir skips the export file.
	Output OutputOptions

	Progress pipeline.ProgressFunc
	Logger   *log.Logger

	// Now and NewRunID override the clock and ID source (tests).
	Now      func() time.Time
	NewRunID func() string
}

// Result summarizes a scrape run.
type Result struct {
	RunID      string
	Records    []profile.Record
	Stats      profile.Stats
	OutputPath string
}

// Scrape loads URLs from in, processes them through a pipeline built on b and p,
// and writes the records to the configured outputs. A cancelled run still writes
// the records completed so far and returns the context error.
func Scrape(ctx context.Context, in core.InputAdapter[string], b pipeline.Browser, p pipeline.Prompter, opts ScrapeOptions) (Result, error) {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewRunID == nil {
		opts.NewRunID = uuid.NewString
	}

	runID := opts.NewRunID()
	logger := opts.Logger.With("run", runID)
	started := opts.Now()

	urls, err := in.Load(ctx)
	if err != nil {
		_ = b.Close()
		return Result{RunID: runID}, fmt.Errorf("load urls: %w", err)
	}
	if len(urls) == 0 {
		_ = b.Close()
		return Result{RunID: runID}, ErrNoURLs
	}
	for _, u := range urls {
		if !pipeline.IsProfileURL(u) {
			logger.Warn("url does not look like a profile page", "url", u)
		}
	}
	logger.Info("scrape run start", "urls", len(urls), "model", opts.Model, "skipExisting", opts.SkipExisting, "skipLogin", opts.SkipLogin)

	existing := map[string]profile.Record{}
	if opts.SkipExisting && opts.Store != nil {
		if existing, err = opts.Store.SuccessfulByURL(ctx); err != nil {
			_ = b.Close()
			return Result{RunID: runID}, fmt.Errorf("load stored records: %w", err)
		}
	}
	plan := buildIncrementalPlan(urls, existing)
	logger.Info("incremental plan", "inputRows", len(urls), "cachedRows", plan.cachedRows, "rowsToScrape", len(plan.pendingURLs))

	popts := opts.Pipeline
	popts.Logger = logger
	pl := pipeline.New(b, newTracedPrompter(p, logger, opts.Model), popts)
	defer func() {
		if err := pl.Close(); err != nil {
			logger.Warn("close browser", "err", err)
		}
	}()

	scrapeStart := time.Now()
	var runErr error
	if len(plan.pendingURLs) > 0 {
		if !opts.SkipLogin {
			if err := login(ctx, pl, opts.ConfirmLogin); err != nil {
				return Result{RunID: runID}, err
			}
			logger.Info("login confirmed")
		}
		fresh, err := pl.ScrapeMany(ctx, plan.pendingURLs, opts.Progress)
		if err := plan.applyScraped(fresh); err != nil {
			return Result{RunID: runID}, err
		}
		runErr = err
	}

	res := Result{RunID: runID, Records: plan.completed()}
	res.Stats = profile.Summarize(res.Records)
	logger.Info("scrape complete",
		"total", res.Stats.Total,
		"successful", res.Stats.Successful,
		"failed", res.Stats.Failed,
		"successRate", fmt.Sprintf("%.1f%%", res.Stats.SuccessRate()),
		"duration", time.Since(scrapeStart).Round(time.Millisecond),
	)
	if runErr != nil {
		logger.Warn("scrape interrupted", "completed", len(res.Records), "total", len(urls), "err", runErr)
	}

	// Persist even after cancellation.
	persistCtx := context.WithoutCancel(ctx)
	if opts.Store != nil && len(res.Records) > 0 {
		run := store.Run{ID: runID, StartedAt: started, Model: opts.Model}
		if err := StoreOutput(opts.Store, run).Store(persistCtx, res.Records); err != nil {
			return res, fmt.Errorf("save run: %w", err)
		}
		logger.Info("run saved", "records", len(res.Records))
	}
	if opts.Output.Dir != "" && len(res.Records) > 0 {
		path := opts.Output.Path(started)
		if err := FileOutput(path, opts.Output.Format).Store(persistCtx, res.Records); err != nil {
			return res, fmt.Errorf("write output: %w", err)
		}
		res.OutputPath = path
		logger.Info("output written", "path", path, "format", formatOrDefault(opts.Output.Format))
	}
	return res, runErr
}

func login(ctx context.Context, pl *pipeline.Pipeline, confirm func(context.Context) error) error {
	if err := pl.OpenLogin(ctx); err != nil {
		return err
	}
	if confirm != nil {
		if err := confirm(ctx); err != nil {
			return fmt.Errorf("confirm login: %w", err)
		}
	}
	return pl.RequireLogin(ctx)
}

// Export writes the records of runID (the latest run when empty) to a file and
// returns its path.
func Export(ctx context.Context, st *store.SQLite, runID string, out OutputOptions, now time.Time) (string, error) {
	var run store.Run
	var err error
	if runID == "" {
		run, err = st.LatestRun(ctx)
	} else {
		run, err = st.GetRun(ctx, runID)
	}
	if err != nil {
		return "", err
	}
	records, err := st.Records(ctx, run.ID)
	if err != nil {
		return "", err
	}
	path := out.Path(now)
	if err := FileOutput(path, out.Format).Store(ctx, records); err != nil {
		return "", err
	}
	return path, nil
}

// NormalizeFile writes the normalized text of the HTML file at path to w.
func NormalizeFile(path string, w io.Writer) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	text, err := normalize.Normalize(string(b))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, text)
	return err
}
