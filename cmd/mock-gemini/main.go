package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/get-rishabh/AutoLeads-Assignment/internal/mockgemini"
)

const defaultReply = `{"name": "Jane Doe", "headline": "Software Engineer", "location": "Berlin, Germany", "skills": ["Go"]}`

// mock-gemini serves canned generateContent responses so scrape can run without an
// API key: point GEMINI_BASE_URL at it.
func main() {
	addr := defaultString("MOCK_GEMINI_ADDR", ":8090")
	replyPath := defaultString("MOCK_GEMINI_REPLY_FILE", "")

	fs := flag.NewFlagSet("mock-gemini", flag.ExitOnError)
	fs.StringVar(&addr, "addr", addr, "Listen address")
	fs.StringVar(&replyPath, "reply-file", replyPath, "File whose contents are returned as the model text (env: MOCK_GEMINI_REPLY_FILE)")
	_ = fs.Parse(os.Args[1:])

	reply := defaultReply
	if replyPath != "" {
		b, err := os.ReadFile(replyPath)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "read reply file: %v\n", err)
			os.Exit(2)
		}
		reply = string(b)
	}

	srv := mockgemini.New(mockgemini.Reply{Texts: []string{reply}})
	_, _ = fmt.Fprintf(os.Stdout, "mock-gemini listening on %s\n", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func defaultString(envVar string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return fallback
	}
	return v
}
