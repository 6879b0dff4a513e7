package pipeline_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/get-rishabh/AutoLeads-Assignment/internal/pipeline"
	"github.com/get-rishabh/AutoLeads-Assignment/internal/profile"
)

const profilePage = `<html><body><main>
<h1>Jane Doe</h1>
<p>Staff Software Engineer at Example Corp</p>
<p>Berlin, Germany</p>
<p>Building distributed systems and developer tooling for over ten years.</p>
</main></body></html>`

type page struct {
	landing string // URL reported after navigation; defaults to the requested URL
	html    string
}

type fakeBrowser struct {
	pages   map[string]page
	height  int64
	growBy  int64
	waitErr error

	current  string
	visited  []string
	scripts  []string
	closed   bool
	navErr   error
	panicNav bool
}

func (b *fakeBrowser) Navigate(_ context.Context, url string) error {
	if b.panicNav {
		panic("browser crashed")
	}
	if b.navErr != nil {
		return b.navErr
	}
	b.visited = append(b.visited, url)
	b.current = url
	if p, ok := b.pages[url]; ok && p.landing != "" {
		b.current = p.landing
	}
	return nil
}

func (b *fakeBrowser) CurrentURL(context.Context) (string, error) { return b.current, nil }

func (b *fakeBrowser) ExecuteScript(_ context.Context, js string, result any) error {
	b.scripts = append(b.scripts, js)
	if h, ok := result.(*int64); ok {
		*h = b.height
		b.height += b.growBy
	}
	return nil
}

func (b *fakeBrowser) PageSource(context.Context) (string, error) {
	for url, p := range b.pages {
		if url == b.current || p.landing == b.current {
			return p.html, nil
		}
	}
	return "<html><body></body></html>", nil
}

func (b *fakeBrowser) WaitElement(context.Context, string, time.Duration) error { return b.waitErr }

func (b *fakeBrowser) Close() error {
	b.closed = true
	return nil
}

type fakePrompter struct {
	calls []string
	texts []string
}

func (p *fakePrompter) Extract(_ context.Context, cleanText, url string) profile.Record {
	p.calls = append(p.calls, url)
	p.texts = append(p.texts, cleanText)
	rec := profile.Record{ProfileURL: url, Name: "Jane Doe"}
	rec.FillPlaceholders()
	return rec
}

type sleepLog struct {
	durations []time.Duration
}

func (s *sleepLog) sleep(_ context.Context, d time.Duration) error {
	s.durations = append(s.durations, d)
	return nil
}

func newPipeline(b *fakeBrowser, p *fakePrompter, s *sleepLog) *pipeline.Pipeline {
	opts := pipeline.DefaultOptions()
	opts.Sleep = s.sleep
	opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	return pipeline.New(b, p, opts)
}

func TestScrapeOne_Success(t *testing.T) {
	t.Parallel()

	url := "https://www.linkedin.com/in/jane"
	b := &fakeBrowser{pages: map[string]page{url: {html: profilePage}}, height: 1000}
	p := &fakePrompter{}
	s := &sleepLog{}

	rec := newPipeline(b, p, s).ScrapeOne(context.Background(), url)
	if !rec.Success || rec.ProfileURL != url {
		t.Fatalf("unexpected record: %#v", rec)
	}
	if len(p.calls) != 1 || !strings.Contains(p.texts[0], "Jane Doe") {
		t.Fatalf("prompter not invoked with clean text: %#v", p)
	}
	if len(s.durations) == 0 || s.durations[0] < 4*time.Second || s.durations[0] > 6*time.Second {
		t.Fatalf("expected a 4-6s settle pause first, got %v", s.durations)
	}
	if last := b.scripts[len(b.scripts)-1]; last != "window.scrollTo({top: 0, behavior: 'smooth'});" {
		t.Fatalf("expected return to top last, got %q", last)
	}
}

func TestScrapeOne_ScrollPasses(t *testing.T) {
	t.Parallel()

	url := "https://www.linkedin.com/in/jane"
	b := &fakeBrowser{pages: map[string]page{url: {html: profilePage}}, height: 800}
	newPipeline(b, &fakePrompter{}, &sleepLog{}).ScrapeOne(context.Background(), url)

	var steps []string
	for _, js := range b.scripts {
		if strings.HasPrefix(js, "window.scrollTo") {
			steps = append(steps, js)
		}
	}
	// 800px at 400px per step: two steps per pass, three passes, then back to top.
	if len(steps) != 7 {
		t.Fatalf("expected 7 scroll calls, got %d: %v", len(steps), steps)
	}
	if steps[0] != "window.scrollTo({top: 400, behavior: 'smooth'});" || steps[1] != "window.scrollTo({top: 800, behavior: 'smooth'});" {
		t.Fatalf("unexpected first pass: %v", steps[:2])
	}
}

func TestScrapeOne_GrowingPageIsBounded(t *testing.T) {
	t.Parallel()

	url := "https://www.linkedin.com/in/jane"
	b := &fakeBrowser{pages: map[string]page{url: {html: profilePage}}, height: 400, growBy: 1000}
	opts := pipeline.DefaultOptions()
	opts.Sleep = (&sleepLog{}).sleep
	opts.MaxScrollSteps = 5
	opts.Logger = log.NewWithOptions(io.Discard, log.Options{})

	rec := pipeline.New(b, &fakePrompter{}, opts).ScrapeOne(context.Background(), url)
	if !rec.Success {
		t.Fatalf("unexpected failure: %#v", rec)
	}
	steps := 0
	for _, js := range b.scripts {
		if strings.HasPrefix(js, "window.scrollTo") {
			steps++
		}
	}
	if steps != 3*5+1 {
		t.Fatalf("expected %d scroll calls, got %d", 3*5+1, steps)
	}
}

func TestScrapeOne_BlockedSessions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		landing string
		want    string
	}{
		{name: "checkpoint", landing: "https://www.linkedin.com/checkpoint/challenge/abc", want: pipeline.MsgAuthRequired},
		{name: "authwall", landing: "https://www.linkedin.com/authwall?trk=x", want: pipeline.MsgAuthRequired},
		{name: "login", landing: "https://www.linkedin.com/login?session_redirect=x", want: pipeline.MsgLoginRedirect},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			url := "https://www.linkedin.com/in/jane"
			b := &fakeBrowser{pages: map[string]page{url: {landing: tt.landing, html: profilePage}}, height: 1000}
			p := &fakePrompter{}

			rec := newPipeline(b, p, &sleepLog{}).ScrapeOne(context.Background(), url)
			if rec.Success || rec.Error != tt.want || rec.ProfileURL != url {
				t.Fatalf("unexpected record: %#v", rec)
			}
			if len(p.calls) != 0 {
				t.Fatalf("prompter must not be invoked, got %d calls", len(p.calls))
			}
			if len(b.scripts) != 0 {
				t.Fatalf("blocked page should not be scrolled, got %v", b.scripts)
			}
		})
	}
}

func TestScrapeOne_ShortTextSkipsPrompter(t *testing.T) {
	t.Parallel()

	url := "https://www.linkedin.com/in/empty"
	b := &fakeBrowser{pages: map[string]page{url: {html: "<html><body><main><h1>Hi there</h1></main></body></html>"}}, height: 100}
	p := &fakePrompter{}

	rec := newPipeline(b, p, &sleepLog{}).ScrapeOne(context.Background(), url)
	if rec.Success || rec.Error != pipeline.MsgNormalizeFailed {
		t.Fatalf("unexpected record: %#v", rec)
	}
	if len(p.calls) != 0 {
		t.Fatalf("prompter must not be invoked")
	}
}

func TestScrapeOne_HeadingTimeoutIsNotFatal(t *testing.T) {
	t.Parallel()

	url := "https://www.linkedin.com/in/jane"
	b := &fakeBrowser{pages: map[string]page{url: {html: profilePage}}, height: 400, waitErr: errors.New("timeout")}
	rec := newPipeline(b, &fakePrompter{}, &sleepLog{}).ScrapeOne(context.Background(), url)
	if !rec.Success {
		t.Fatalf("heading timeout should not fail the profile: %#v", rec)
	}
}

func TestScrapeOne_NavigationErrorAndPanic(t *testing.T) {
	t.Parallel()

	b := &fakeBrowser{navErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	rec := newPipeline(b, &fakePrompter{}, &sleepLog{}).ScrapeOne(context.Background(), "https://bad")
	if rec.Success || !strings.Contains(rec.Error, "ERR_NAME_NOT_RESOLVED") {
		t.Fatalf("unexpected record: %#v", rec)
	}

	b = &fakeBrowser{panicNav: true}
	rec = newPipeline(b, &fakePrompter{}, &sleepLog{}).ScrapeOne(context.Background(), "https://boom")
	if rec.Success || rec.Error != "browser crashed" || rec.ProfileURL != "https://boom" {
		t.Fatalf("panic should become a failure record: %#v", rec)
	}
}

func TestScrapeMany_OrderProgressAndPacing(t *testing.T) {
	t.Parallel()

	urls := []string{
		"https://www.linkedin.com/in/a",
		"https://www.linkedin.com/in/blocked",
		"https://www.linkedin.com/in/c",
	}
	b := &fakeBrowser{
		pages: map[string]page{
			urls[0]: {html: profilePage},
			urls[1]: {landing: "https://www.linkedin.com/authwall", html: profilePage},
			urls[2]: {html: profilePage},
		},
		height: 400,
	}
	p := &fakePrompter{}
	s := &sleepLog{}
	opts := pipeline.DefaultOptions()
	opts.Sleep = s.sleep
	opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	opts.BetweenPagesMin = 20 * time.Second
	opts.BetweenPagesMax = 30 * time.Second

	type progress struct {
		index, total int
		url          string
	}
	var seen []progress
	recs, err := pipeline.New(b, p, opts).ScrapeMany(context.Background(), urls, func(index, total int, url string) {
		seen = append(seen, progress{index, total, url})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != len(urls) {
		t.Fatalf("expected %d records, got %d", len(urls), len(recs))
	}
	for i, rec := range recs {
		if rec.ProfileURL != urls[i] {
			t.Fatalf("recs[%d].ProfileURL=%q want %q", i, rec.ProfileURL, urls[i])
		}
	}
	if !recs[0].Success || recs[1].Success || !recs[2].Success {
		t.Fatalf("unexpected success pattern: %#v", recs)
	}
	for i, pr := range seen {
		if pr.index != i+1 || pr.total != 3 || pr.url != urls[i] {
			t.Fatalf("unexpected progress[%d]: %#v", i, pr)
		}
	}

	between := 0
	for _, d := range s.durations {
		if d >= 20*time.Second && d <= 30*time.Second {
			between++
		}
	}
	if between != 2 {
		t.Fatalf("expected 2 between-profile pauses, got %d (%v)", between, s.durations)
	}
	if last := s.durations[len(s.durations)-1]; last >= 20*time.Second {
		t.Fatalf("no pause should follow the last profile, got %s", last)
	}
}

func TestDefaultOptions_Pacing(t *testing.T) {
	t.Parallel()

	o := pipeline.DefaultOptions()
	if o.SettleMin != 4*time.Second || o.SettleMax != 6*time.Second {
		t.Fatalf("settle=%s-%s", o.SettleMin, o.SettleMax)
	}
	if o.BetweenPagesMin != 6*time.Second || o.BetweenPagesMax != 10*time.Second {
		t.Fatalf("between pages=%s-%s", o.BetweenPagesMin, o.BetweenPagesMax)
	}
	if o.HeadingTimeout != 10*time.Second || o.ScrollPasses != 3 || o.ScrollStep != 400 || o.CaptureDelay != 2*time.Second {
		t.Fatalf("unexpected defaults: %#v", o)
	}
}

func TestScrapeMany_Empty(t *testing.T) {
	t.Parallel()

	recs, err := newPipeline(&fakeBrowser{}, &fakePrompter{}, &sleepLog{}).ScrapeMany(context.Background(), nil, nil)
	if err != nil || len(recs) != 0 {
		t.Fatalf("got %v, %v", recs, err)
	}
}

func TestScrapeMany_Cancel(t *testing.T) {
	t.Parallel()

	urls := []string{"https://www.linkedin.com/in/a", "https://www.linkedin.com/in/b"}
	b := &fakeBrowser{pages: map[string]page{urls[0]: {html: profilePage}, urls[1]: {html: profilePage}}, height: 400}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recs, err := newPipeline(b, &fakePrompter{}, &sleepLog{}).ScrapeMany(ctx, urls, func(index, _ int, _ string) {
		if index == 1 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(recs) != 1 || recs[0].Success {
		t.Fatalf("expected one failed record for the interrupted profile, got %#v", recs)
	}
	if len(b.visited) != 1 {
		t.Fatalf("second profile must not be visited, got %v", b.visited)
	}
}

func TestCheckLogin(t *testing.T) {
	t.Parallel()

	b := &fakeBrowser{current: "https://www.linkedin.com/feed/"}
	ok, err := newPipeline(b, &fakePrompter{}, &sleepLog{}).CheckLogin(context.Background())
	if err != nil || !ok {
		t.Fatalf("feed page should count as logged in: ok=%v err=%v", ok, err)
	}
	if len(b.visited) != 0 {
		t.Fatalf("no navigation expected, got %v", b.visited)
	}

	b = &fakeBrowser{
		current: "https://www.linkedin.com/login",
	}
	s := &sleepLog{}
	pl := newPipeline(b, &fakePrompter{}, s)
	ok, err = pl.CheckLogin(context.Background())
	if err != nil || !ok {
		t.Fatalf("reaching the feed should count as logged in: ok=%v err=%v", ok, err)
	}
	if len(s.durations) != 1 || s.durations[0] != 2*time.Second {
		t.Fatalf("expected a 2s wait before re-checking, got %v", s.durations)
	}
	if len(b.visited) != 1 || b.visited[0] != pipeline.FeedURL {
		t.Fatalf("expected feed probe, got %v", b.visited)
	}

	b = &fakeBrowser{
		current: "https://www.linkedin.com/login",
		pages:   map[string]page{pipeline.FeedURL: {landing: "https://www.linkedin.com/login"}},
	}
	pl = newPipeline(b, &fakePrompter{}, &sleepLog{})
	if err := pl.RequireLogin(context.Background()); !errors.Is(err, pipeline.ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
	if err := pl.OpenLogin(context.Background()); err != nil {
		t.Fatalf("OpenLogin: %v", err)
	}
	if b.visited[len(b.visited)-1] != pipeline.LoginURL {
		t.Fatalf("expected login page, got %v", b.visited)
	}
	if err := pl.Close(); err != nil || !b.closed {
		t.Fatalf("Close: %v closed=%v", err, b.closed)
	}
}

func TestIsProfileURL(t *testing.T) {
	t.Parallel()

	if !pipeline.IsProfileURL("https://www.linkedin.com/in/jane") {
		t.Fatal("expected profile URL")
	}
	if pipeline.IsProfileURL("https://www.linkedin.com/company/acme") {
		t.Fatal("company page is not a profile URL")
	}
}
