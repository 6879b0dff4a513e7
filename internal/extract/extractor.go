// Package extract turns normalized profile text into a structured profile record by
// prompting an LLM and parsing its JSON answer.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/get-rishabh/AutoLeads-Assignment/internal/debugdump"
	"github.com/get-rishabh/AutoLeads-Assignment/internal/profile"
	"github.com/get-rishabh/AutoLeads-Assignment/pkg/pipeline/redact"
	"github.com/get-rishabh/AutoLeads-Assignment/pkg/pipeline/worker"
	"google.golang.org/genai"
)

var (
	// ErrBlocked means the response carried no candidates, typically a safety block.
	ErrBlocked = errors.New("no candidates in response - likely blocked by safety filters")

	// ErrNoText means candidates were returned but none of their parts held text.
	ErrNoText = errors.New("No text found in response parts")
)

// Generator is the LLM capability. *genai.Models satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Options struct {
	Model string

	// Retry controls retries of transient generation failures. The zero value makes a
	// single attempt.
	Retry worker.RetryOptions

	Debug  debugdump.Writer
	Logger *log.Logger
}

type Extractor struct {
	gen    Generator
	model  string
	retry  worker.RetryOptions
	debug  debugdump.Writer
	logger *log.Logger
}

func New(gen Generator, opts Options) *Extractor {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Extractor{gen: gen, model: model, retry: opts.Retry, debug: opts.Debug, logger: logger}
}

// Model reports the model name requests are sent to.
func (e *Extractor) Model() string {
	return e.model
}

// GenerationConfig is the sampling configuration used for every extraction.
func GenerationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.1),
		TopP:            genai.Ptr[float32](0.8),
		TopK:            genai.Ptr[float32](40),
		MaxOutputTokens: 2048,
	}
}

// Extract prompts the model with cleanText and returns the parsed record. It never
// returns an error: every failure becomes a failure record for profileURL.
func (e *Extractor) Extract(ctx context.Context, cleanText, profileURL string) profile.Record {
	prompt := BuildPrompt(cleanText)

	resp, err := worker.Do(ctx, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		resp, err := e.gen.GenerateContent(ctx, e.model, genai.Text(prompt), GenerationConfig())
		if err != nil {
			return nil, classifyErr(err)
		}
		return resp, nil
	}, e.retry)
	if err != nil {
		e.logger.Error("gemini request failed", "url", profileURL, "err", redact.Secrets(err.Error()))
		return profile.Failure(profileURL, redact.Secrets(err.Error()))
	}

	text, err := ResponseText(resp)
	if err != nil {
		if errors.Is(err, ErrNoText) {
			e.dump(profileURL, debugdump.RawResponseDump, fmt.Sprintf("%+v", resp))
		}
		e.logger.Warn("no usable text in response", "url", profileURL, "err", err)
		return profile.Failure(profileURL, err.Error())
	}
	e.dump(profileURL, debugdump.ModelResponse, text)

	cleaned := StripFraming(text)
	v, err := decode(cleaned)
	if err != nil {
		e.dump(profileURL, debugdump.FailedResponse, fmt.Sprintf("Error: %v\n\nResponse:\n%s", err, cleaned))
		e.logger.Warn("unparseable model response", "url", profileURL, "err", err)
		return profile.Failure(profileURL, err.Error())
	}

	rec, err := toRecord(v, profileURL)
	if err != nil {
		e.dump(profileURL, debugdump.FailedResponse, fmt.Sprintf("Error: %v\n\nResponse:\n%s", err, cleaned))
		e.logger.Warn("model response rejected", "url", profileURL, "err", err)
		return profile.Failure(profileURL, err.Error())
	}

	e.logger.Debug("extraction successful",
		"url", profileURL,
		"name", rec.Name,
		"experiences", len(rec.Experiences),
		"educations", len(rec.Educations),
		"skills", len(rec.Skills),
	)
	return rec
}

// ResponseText recovers the response text. The primary accessor reads the first
// candidate; when it yields nothing, text from every candidate's parts is joined.
func ResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w (block reason %s)", ErrBlocked, resp.PromptFeedback.BlockReason)
		}
		return "", ErrBlocked
	}
	if text := strings.TrimSpace(resp.Text()); text != "" {
		return text, nil
	}

	var parts []string
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p != nil && p.Text != "" {
				parts = append(parts, p.Text)
			}
		}
	}
	text := strings.TrimSpace(strings.Join(parts, "\n"))
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

func (e *Extractor) dump(profileURL, kind, content string) {
	if err := e.debug.Write(profileURL, kind, content); err != nil {
		e.logger.Warn("write debug artifact", "kind", kind, "err", err)
	}
}
