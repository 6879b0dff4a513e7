package app

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
)

// SpinnerProgress renders ScrapeMany progress as a terminal spinner.
type SpinnerProgress struct {
	s *spinner.Spinner
}

func NewSpinnerProgress(w io.Writer) *SpinnerProgress {
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(w))
	return &SpinnerProgress{s: s}
}

// Update matches pipeline.ProgressFunc.
func (p *SpinnerProgress) Update(index, total int, url string) {
	p.s.Lock()
	p.s.Suffix = fmt.Sprintf(" [%d/%d] %s", index, total, formatSpinnerMessage(url))
	p.s.Unlock()
	if !p.s.Active() {
		p.s.Start()
	}
}

func (p *SpinnerProgress) Stop() {
	p.s.Stop()
}

func formatSpinnerMessage(url string) string {
	const max = 60
	r := []rune(url)
	if len(r) <= max {
		return url
	}
	return string(r[:max-3]) + "..."
}
