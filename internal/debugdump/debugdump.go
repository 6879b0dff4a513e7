// Package debugdump writes per-profile diagnostic artifacts (clean text, model
// responses) to a directory. A zero Writer discards everything.
package debugdump

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// PreviewLength is the size of the clean text preview artifact, in characters.
const PreviewLength = 3000

const (
	CleanText       = "clean_text"
	CleanPreview    = "clean_preview"
	ModelResponse   = "gemini_response"
	FailedResponse  = "gemini_failed"
	RawResponseDump = "gemini_full_response"
)

type Writer struct {
	Dir string
}

// Enabled reports whether artifacts are written anywhere.
func (w Writer) Enabled() bool {
	return strings.TrimSpace(w.Dir) != ""
}

// Write stores content as <slug>_<kind>.txt, where slug is derived from profileURL.
func (w Writer) Write(profileURL, kind, content string) error {
	if !w.Enabled() {
		return nil
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("debug dir: %w", err)
	}
	name := fmt.Sprintf("%s_%s.txt", Slug(profileURL), kind)
	return os.WriteFile(filepath.Join(w.Dir, name), []byte(content), 0o644)
}

// WriteCleanText stores the full clean text plus its leading preview.
func (w Writer) WriteCleanText(profileURL, text string) error {
	if err := w.Write(profileURL, CleanText, text); err != nil {
		return err
	}
	return w.Write(profileURL, CleanPreview, preview(text, PreviewLength))
}

var slugUnsafe = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Slug returns a filesystem-safe name for a profile URL, usually the public id.
func Slug(profileURL string) string {
	s := strings.TrimSpace(profileURL)
	if u, err := url.Parse(s); err == nil && u.Path != "" {
		s = u.Path
	}
	s = strings.Trim(s, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.Trim(slugUnsafe.ReplaceAllString(s, "-"), "-")
	if s == "" {
		return "profile"
	}
	return s
}

func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
