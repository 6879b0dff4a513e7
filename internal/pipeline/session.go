package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	LoginURL = "https://www.linkedin.com/login"
	FeedURL  = "https://www.linkedin.com/feed/"

	feedCheckDelay = 2 * time.Second
)

// ErrNotLoggedIn is returned by RequireLogin for an unauthenticated session.
var ErrNotLoggedIn = errors.New("not logged in to LinkedIn")

// OpenLogin shows the login page so the operator can authenticate by hand.
func (p *Pipeline) OpenLogin(ctx context.Context) error {
	if err := p.browser.Navigate(ctx, LoginURL); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}
	return nil
}

// CheckLogin reports whether the browser session is authenticated. When the current
// page is not already a member page it probes the feed.
func (p *Pipeline) CheckLogin(ctx context.Context) (bool, error) {
	current, err := p.browser.CurrentURL(ctx)
	if err != nil {
		return false, fmt.Errorf("current url: %w", err)
	}
	if memberPage(current) {
		return true, nil
	}

	if err := p.browser.Navigate(ctx, FeedURL); err != nil {
		return false, fmt.Errorf("open feed: %w", err)
	}
	if err := p.sleep(ctx, feedCheckDelay); err != nil {
		return false, err
	}
	current, err = p.browser.CurrentURL(ctx)
	if err != nil {
		return false, fmt.Errorf("current url: %w", err)
	}
	return strings.Contains(current, "feed"), nil
}

// RequireLogin is CheckLogin that fails when the session is not authenticated.
func (p *Pipeline) RequireLogin(ctx context.Context) error {
	ok, err := p.CheckLogin(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotLoggedIn
	}
	return nil
}

func memberPage(url string) bool {
	return strings.Contains(url, "feed") || strings.Contains(url, "mynetwork") || strings.Contains(url, "in/")
}
