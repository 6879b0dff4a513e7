//go:build chrome_e2e

package browser_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/get-rishabh/AutoLeads-Assignment/internal/browser"
)

func TestChrome_EndToEnd(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<html><body><main><h1>Jane Doe</h1>")
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&sb, "<p style=\"height:200px\">Section %d</p>", i)
	}
	sb.WriteString("</main></body></html>")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(sb.String()))
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	c, err := browser.Launch(ctx, browser.Options{Headless: true, ExecPath: os.Getenv("CHROME_PATH")})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	if err := c.Navigate(ctx, srv.URL+"/in/jane"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	url, err := c.CurrentURL(ctx)
	if err != nil || !strings.HasSuffix(url, "/in/jane") {
		t.Fatalf("CurrentURL=%q err=%v", url, err)
	}
	if err := c.WaitElement(ctx, "h1", 5*time.Second); err != nil {
		t.Fatalf("WaitElement: %v", err)
	}
	var height int64
	if err := c.ExecuteScript(ctx, "document.body.scrollHeight", &height); err != nil || height < 5000 {
		t.Fatalf("scrollHeight=%d err=%v", height, err)
	}
	if err := c.ExecuteScript(ctx, "window.scrollTo({top: 400, behavior: 'smooth'});", nil); err != nil {
		t.Fatalf("scroll: %v", err)
	}
	html, err := c.PageSource(ctx)
	if err != nil || !strings.Contains(html, "Jane Doe") {
		t.Fatalf("PageSource err=%v", err)
	}
}
