// Package config loads scraper settings from a YAML file, a .env file and the
// process environment, in increasing order of precedence. Command-line flags are
// applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no config file is named explicitly. It may be absent.
const DefaultPath = "profilescraper.yaml"

// Duration is a time.Duration written as a Go duration string ("1.5s", "250ms").
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q", n.Line, s)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Range is a closed interval for randomized pauses.
type Range struct {
	Min Duration `yaml:"min"`
	Max Duration `yaml:"max"`
}

type Gemini struct {
	// APIKey comes only from the environment.
	APIKey         string   `yaml:"-"`
	Model          string   `yaml:"model"`
	BaseURL        string   `yaml:"base_url"`
	MaxRetries     int      `yaml:"max_retries"`
	RequestTimeout Duration `yaml:"request_timeout"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`
}

type Browser struct {
	Headless    bool   `yaml:"headless"`
	ChromePath  string `yaml:"chrome_path"`
	UserDataDir string `yaml:"user_data_dir"`
	SkipLogin   bool   `yaml:"skip_login"`
}

type Pacing struct {
	Settle         Range    `yaml:"settle"`
	BetweenPages   Range    `yaml:"between_pages"`
	ScrollPause    Range    `yaml:"scroll_pause"`
	HeadingTimeout Duration `yaml:"heading_timeout"`
	CaptureDelay   Duration `yaml:"capture_delay"`
	ScrollPasses   int      `yaml:"scroll_passes"`
	ScrollStep     int      `yaml:"scroll_step"`
	MaxScrollSteps int      `yaml:"max_scroll_steps"`
}

type Output struct {
	Dir      string `yaml:"dir"`
	Prefix   string `yaml:"prefix"`
	Format   string `yaml:"format"`
	DebugDir string `yaml:"debug_dir"`
	DB       string `yaml:"db"`
}

type Log struct {
	Level string `yaml:"level"`
}

type Config struct {
	Gemini  Gemini  `yaml:"gemini"`
	Browser Browser `yaml:"browser"`
	Pacing  Pacing  `yaml:"pacing"`
	Output  Output  `yaml:"output"`
	Log     Log     `yaml:"log"`
}

// Supported output formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatJSON = "json"
)

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Gemini: Gemini{Model: "gemini-2.5-pro"},
		Pacing: Pacing{
			Settle:         Range{Min: Duration(4 * time.Second), Max: Duration(6 * time.Second)},
			BetweenPages:   Range{Min: Duration(6 * time.Second), Max: Duration(10 * time.Second)},
			ScrollPause:    Range{Min: Duration(800 * time.Millisecond), Max: Duration(1500 * time.Millisecond)},
			HeadingTimeout: Duration(10 * time.Second),
			CaptureDelay:   Duration(2 * time.Second),
			ScrollPasses:   3,
			ScrollStep:     400,
			MaxScrollSteps: 100,
		},
		Output: Output{Dir: "output", Prefix: "linkedin_profiles", Format: FormatCSV},
		Log:    Log{Level: "info"},
	}
}

// Load reads path over Default(). An empty path reads DefaultPath if it exists.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = DefaultPath
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDotenv loads variables from the given .env files (default ".env") without
// overriding ones already set. Missing files are ignored.
func LoadDotenv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overlays environment variables onto c.
func (c *Config) ApplyEnv() error {
	c.Gemini.APIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if v := strings.TrimSpace(os.Getenv("GEMINI_MODEL")); v != "" {
		c.Gemini.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("GEMINI_BASE_URL")); v != "" {
		c.Gemini.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("CHROME_PATH")); v != "" {
		c.Browser.ChromePath = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		c.Log.Level = v
	}

	var err error
	if c.Gemini.MaxRetries, err = envInt("MAX_RETRIES", c.Gemini.MaxRetries); err != nil {
		return err
	}
	var timeout time.Duration
	if timeout, err = envDuration("REQUEST_TIMEOUT", c.Gemini.RequestTimeout.Std()); err != nil {
		return err
	}
	c.Gemini.RequestTimeout = Duration(timeout)
	if c.Gemini.RateLimitRPS, err = envFloat("RATE_LIMIT_RPS", c.Gemini.RateLimitRPS); err != nil {
		return err
	}
	if c.Browser.Headless, err = envBool("HEADLESS", c.Browser.Headless); err != nil {
		return err
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Gemini.Model) == "" {
		return errors.New("gemini.model is required")
	}
	if c.Gemini.MaxRetries < 0 {
		return fmt.Errorf("gemini.max_retries must be >= 0, got %d", c.Gemini.MaxRetries)
	}
	if c.Gemini.RequestTimeout < 0 {
		return errors.New("gemini.request_timeout must not be negative")
	}
	if c.Gemini.RateLimitRPS < 0 {
		return errors.New("gemini.rate_limit_rps must not be negative")
	}

	for name, r := range map[string]Range{
		"pacing.settle":        c.Pacing.Settle,
		"pacing.between_pages": c.Pacing.BetweenPages,
		"pacing.scroll_pause":  c.Pacing.ScrollPause,
	} {
		if r.Min < 0 || r.Max < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
		if r.Min > r.Max {
			return fmt.Errorf("%s: min %s exceeds max %s", name, r.Min.Std(), r.Max.Std())
		}
	}
	if c.Pacing.HeadingTimeout < 0 || c.Pacing.CaptureDelay < 0 {
		return errors.New("pacing durations must not be negative")
	}
	if c.Pacing.ScrollPasses < 0 || c.Pacing.ScrollStep < 0 || c.Pacing.MaxScrollSteps < 0 {
		return errors.New("pacing scroll settings must not be negative")
	}

	switch strings.ToLower(strings.TrimSpace(c.Output.Format)) {
	case FormatCSV, FormatXLSX, FormatJSON:
	default:
		return fmt.Errorf("output.format must be one of csv, xlsx, json; got %q", c.Output.Format)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
