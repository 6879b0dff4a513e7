package app

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/get-rishabh/AutoLeads-Assignment/internal/pipeline"
	"github.com/get-rishabh/AutoLeads-Assignment/internal/profile"
)

// tracedPrompter logs one request line and one response line per extraction.
type tracedPrompter struct {
	next   pipeline.Prompter
	logger *log.Logger
	model  string

	mu       sync.Mutex
	attempts map[string]int
}

func newTracedPrompter(next pipeline.Prompter, logger *log.Logger, model string) *tracedPrompter {
	return &tracedPrompter{
		next:     next,
		logger:   logger,
		model:    model,
		attempts: make(map[string]int),
	}
}

func (t *tracedPrompter) Extract(ctx context.Context, cleanText, profileURL string) profile.Record {
	attempt := t.nextAttempt(profileURL)

	deadlineIn := "none"
	if d, ok := ctx.Deadline(); ok {
		deadlineIn = time.Until(d).Round(time.Millisecond).String()
	}
	t.logger.Debug("extract request",
		"url", profileURL,
		"attempt", attempt,
		"model", t.model,
		"chars", utf8.RuneCountInString(cleanText),
		"deadlineIn", deadlineIn,
	)

	start := time.Now()
	rec := t.next.Extract(ctx, cleanText, profileURL)
	elapsed := time.Since(start).Round(time.Millisecond)

	if !rec.Success {
		t.logger.Warn("extract response",
			"url", profileURL,
			"attempt", attempt,
			"duration", elapsed,
			"status", "error",
			"error", rec.Error,
		)
		return rec
	}
	t.logger.Info("extract response",
		"url", profileURL,
		"attempt", attempt,
		"duration", elapsed,
		"status", "ok",
		"name", rec.Name,
		"experiences", len(rec.Experiences),
		"skills", len(rec.Skills),
	)
	return rec
}

func (t *tracedPrompter) nextAttempt(url string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempts[url]++
	return t.attempts[url]
}
