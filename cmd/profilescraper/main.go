package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/get-rishabh/AutoLeads-Assignment/internal/app"
	"github.com/get-rishabh/AutoLeads-Assignment/internal/browser"
	"github.com/get-rishabh/AutoLeads-Assignment/internal/config"
	"github.com/get-rishabh/AutoLeads-Assignment/internal/debugdump"
	"github.com/get-rishabh/AutoLeads-Assignment/internal/extract"
	"github.com/get-rishabh/AutoLeads-Assignment/internal/store"
	"github.com/get-rishabh/AutoLeads-Assignment/internal/version"
	"github.com/get-rishabh/AutoLeads-Assignment/pkg/pipeline/core"
	localio "github.com/get-rishabh/AutoLeads-Assignment/pkg/pipeline/io/local"
	"github.com/get-rishabh/AutoLeads-Assignment/pkg/pipeline/redact"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	var code int
	switch os.Args[1] {
	case "help", "-h", "--help":
		usage(os.Stdout)
	case "scrape":
		code = runScrape(ctx, os.Args[2:])
	case "export":
		code = runExport(ctx, os.Args[2:])
	case "normalize":
		code = runNormalize(os.Args[2:])
	case "version":
		_, _ = fmt.Fprintf(os.Stdout, "profilescraper %s\n", version.Current)
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage(os.Stderr)
		code = 2
	}
	stop()
	os.Exit(code)
}

// loadConfig resolves the YAML file, then .env, then the process environment.
func loadConfig(args []string) (config.Config, error) {
	cfg, err := config.Load(configPath(args))
	if err != nil {
		return config.Config{}, err
	}
	if err := config.LoadDotenv(); err != nil {
		return config.Config{}, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// configPath finds --config before flag parsing so file values can seed flag defaults.
func configPath(args []string) string {
	for i, a := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if !strings.HasPrefix(a, "-") || name != "config" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func newLogger(level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
}

func configError(err error) int {
	_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", redact.Secrets(err.Error()))
	return 2
}

func runScrape(ctx context.Context, args []string) int {
	cfg, err := loadConfig(args)
	if err != nil {
		return configError(err)
	}

	fs := flag.NewFlagSet("scrape", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var (
		inputPath    string
		skipExisting bool
	)
	fs.String("config", "", "YAML config file (default "+config.DefaultPath+" if present)")
	fs.StringVar(&inputPath, "input", "", "File with profile URLs: one per line, or CSV with a profile_url column")
	fs.StringVar(&cfg.Output.Dir, "output-dir", cfg.Output.Dir, "Directory for the export file; empty disables it")
	fs.StringVar(&cfg.Output.Prefix, "prefix", cfg.Output.Prefix, "Export file name prefix")
	fs.StringVar(&cfg.Output.Format, "format", cfg.Output.Format, "Export format: csv, xlsx or json")
	fs.StringVar(&cfg.Output.DB, "db", cfg.Output.DB, "SQLite database recording every run")
	fs.StringVar(&cfg.Output.DebugDir, "debug-dir", cfg.Output.DebugDir, "Directory for debug artifacts (clean text, model responses)")
	fs.BoolVar(&skipExisting, "skip-existing", false, "Reuse successful records from --db for URLs scraped before")
	fs.BoolVar(&cfg.Browser.SkipLogin, "skip-login", cfg.Browser.SkipLogin, "Do not open the login page; trust the browser session")
	fs.BoolVar(&cfg.Browser.Headless, "headless", cfg.Browser.Headless, "Run Chrome headless (env: HEADLESS)")
	fs.StringVar(&cfg.Browser.ChromePath, "chrome-path", cfg.Browser.ChromePath, "Chrome executable (env: CHROME_PATH)")
	fs.StringVar(&cfg.Browser.UserDataDir, "user-data-dir", cfg.Browser.UserDataDir, "Chrome profile directory to reuse a logged-in session")
	fs.StringVar(&cfg.Gemini.Model, "gemini-model", cfg.Gemini.Model, "Gemini model name (env: GEMINI_MODEL)")
	fs.StringVar(&cfg.Gemini.BaseURL, "gemini-base-url", cfg.Gemini.BaseURL, "Gemini API base URL override (env: GEMINI_BASE_URL)")
	fs.IntVar(&cfg.Gemini.MaxRetries, "max-retries", cfg.Gemini.MaxRetries, "Max retries per profile for transient model failures (env: MAX_RETRIES)")
	requestTimeout := fs.Duration("request-timeout", cfg.Gemini.RequestTimeout.Std(), "Per-request model timeout, 0 disables (env: REQUEST_TIMEOUT)")
	fs.Float64Var(&cfg.Gemini.RateLimitRPS, "rate-limit-rps", cfg.Gemini.RateLimitRPS, "Model request rate limit (RPS), 0 disables (env: RATE_LIMIT_RPS)")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "debug, info, warn or error (env: LOG_LEVEL)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	cfg.Gemini.RequestTimeout = config.Duration(*requestTimeout)
	if err := cfg.Validate(); err != nil {
		return configError(err)
	}

	var in core.InputAdapter[string]
	switch {
	case inputPath != "":
		in = app.FileInput{Path: inputPath}
	case fs.NArg() > 0:
		in = app.InlineInput(localio.ParseProfileURLs(strings.Join(fs.Args(), " ")))
	default:
		_, _ = fmt.Fprintln(os.Stderr, "scrape requires --input or profile URLs as arguments")
		return 2
	}
	if skipExisting && cfg.Output.DB == "" {
		_, _ = fmt.Fprintln(os.Stderr, "--skip-existing requires --db")
		return 2
	}

	logger := newLogger(cfg.Log.Level)
	debug := debugdump.Writer{Dir: cfg.Output.DebugDir}

	ex, err := extract.NewGemini(ctx, extract.GeminiConfig{
		APIKey:  cfg.Gemini.APIKey,
		BaseURL: cfg.Gemini.BaseURL,
	}, extract.Options{
		Model:  cfg.Gemini.Model,
		Retry:  app.RetryOptions(cfg),
		Debug:  debug,
		Logger: logger,
	})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "gemini config error: %s\n", redact.Secrets(err.Error()))
		return 2
	}
	logger.Info("gemini client ready", "model", ex.Model())

	var st *store.SQLite
	if cfg.Output.DB != "" {
		if st, err = store.Open(ctx, cfg.Output.DB); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "open db: %s\n", err)
			return 1
		}
		defer func() {
			_ = st.Close()
		}()
	}

	chrome, err := browser.Launch(ctx, app.BrowserOptions(cfg))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "launch browser: %s\n", redact.Secrets(err.Error()))
		return 1
	}

	progress := app.NewSpinnerProgress(os.Stderr)
	res, err := app.Scrape(ctx, in, chrome, ex, app.ScrapeOptions{
		Model:        ex.Model(),
		Pipeline:     app.PipelineOptions(cfg),
		SkipLogin:    cfg.Browser.SkipLogin,
		ConfirmLogin: waitForEnter(os.Stdin, os.Stdout),
		SkipExisting: skipExisting,
		Store:        st,
		Output:       app.Output(cfg),
		Progress:     progress.Update,
		Logger:       logger,
	})
	progress.Stop()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "scrape failed: %s\n", redact.Secrets(err.Error()))
		if len(res.Records) == 0 {
			return 1
		}
	}

	_, _ = fmt.Fprintf(os.Stdout, "Processed %d profiles: %d successful, %d failed (%.1f%%)\n",
		res.Stats.Total, res.Stats.Successful, res.Stats.Failed, res.Stats.SuccessRate())
	if res.OutputPath != "" {
		_, _ = fmt.Fprintf(os.Stdout, "Results written to %s\n", res.OutputPath)
	}
	if err != nil {
		return 1
	}
	return 0
}

// waitForEnter asks the operator to log in by hand and waits for a line on r.
func waitForEnter(r io.Reader, w io.Writer) func(context.Context) error {
	return func(ctx context.Context) error {
		_, _ = fmt.Fprintln(w, "Log in to LinkedIn in the browser window, then press Enter to continue...")
		done := make(chan error, 1)
		go func() {
			_, err := bufio.NewReader(r).ReadString('\n')
			if err == io.EOF {
				err = nil
			}
			done <- err
		}()
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func runExport(ctx context.Context, args []string) int {
	cfg, err := loadConfig(args)
	if err != nil {
		return configError(err)
	}

	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.String("config", "", "YAML config file")
	runID := fs.String("run", "", "Run ID to export (default: latest run)")
	fs.StringVar(&cfg.Output.DB, "db", cfg.Output.DB, "SQLite database written by scrape --db")
	fs.StringVar(&cfg.Output.Dir, "output-dir", cfg.Output.Dir, "Directory for the export file")
	fs.StringVar(&cfg.Output.Prefix, "prefix", cfg.Output.Prefix, "Export file name prefix")
	fs.StringVar(&cfg.Output.Format, "format", cfg.Output.Format, "Export format: csv, xlsx or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := cfg.Validate(); err != nil {
		return configError(err)
	}
	if cfg.Output.DB == "" || cfg.Output.Dir == "" {
		_, _ = fmt.Fprintln(os.Stderr, "export requires --db and --output-dir")
		return 2
	}

	st, err := store.Open(ctx, cfg.Output.DB)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "open db: %s\n", err)
		return 1
	}
	defer func() {
		_ = st.Close()
	}()

	path, err := app.Export(ctx, st, *runID, app.Output(cfg), time.Now())
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "export failed: %s\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(os.Stdout, "Results written to %s\n", path)
	return 0
}

func runNormalize(args []string) int {
	fs := flag.NewFlagSet("normalize", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	inputPath := fs.String("input", "", "Saved HTML page")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *inputPath == "" && fs.NArg() > 0 {
		*inputPath = fs.Arg(0)
	}
	if *inputPath == "" {
		_, _ = fmt.Fprintln(os.Stderr, "normalize requires --input")
		return 2
	}
	if err := app.NormalizeFile(*inputPath, os.Stdout); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "normalize failed: %s\n", err)
		return 1
	}
	return 0
}

func usage(w *os.File) {
	_, _ = fmt.Fprintf(w, `profilescraper: extract structured LinkedIn profile data with Chrome and Gemini

Usage:
  profilescraper <command> [flags]

Commands:
  scrape     Scrape profile URLs and export the extracted records
  export     Re-export a stored run from the SQLite history
  normalize  Print the normalized text of a saved profile page
  version    Print the version

Examples:
  profilescraper scrape --input urls.txt --format xlsx
  profilescraper scrape --skip-login --user-data-dir ~/.chrome-li https://www.linkedin.com/in/someone
  profilescraper export --db history.db --format csv

Environment:
  GEMINI_API_KEY   Gemini API key (required for scrape; also read from .env)
  GEMINI_MODEL     Gemini model name (default gemini-2.5-pro)
  GEMINI_BASE_URL  Optional base URL override (proxies/testing)
  CHROME_PATH      Chrome executable
  HEADLESS         Run Chrome headless (true/false)
  LOG_LEVEL        debug, info, warn or error

`)
}
