package extract

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/get-rishabh/AutoLeads-Assignment/pkg/pipeline/core"
	"google.golang.org/genai"
)

const (
	DefaultModel = "gemini-2.5-pro"

	placeholderAPIKey = "your_gemini_key_here"
)

// ErrMissingAPIKey is returned by NewGemini when no usable credential is configured.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY not found: add GEMINI_API_KEY=<key> to the environment or .env file")

type GeminiConfig struct {
	APIKey string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string
}

// NewGemini builds an Extractor backed by the Gemini API.
func NewGemini(ctx context.Context, cfg GeminiConfig, opts Options) (*Extractor, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" || key == placeholderAPIKey {
		return nil, ErrMissingAPIKey
	}

	cc := &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("configure gemini: %w", err)
	}
	return New(client.Models, opts), nil
}

func classifyErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code/100 == 5 {
			return &core.TransientError{Err: err}
		}
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &core.TransientError{Err: err}
	}
	return err
}
