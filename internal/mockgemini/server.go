// Package mockgemini serves a minimal Gemini generateContent endpoint for tests and
// offline runs.
package mockgemini

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Call records a request made to the mock service.
type Call struct {
	Method string
	Path   string
	APIKey string
	Prompt string

	Temperature     *float64
	MaxOutputTokens int
}

// Reply is one canned response. A zero Status means 200.
type Reply struct {
	Status int

	// Texts become the parts of a single candidate. Ignored when Body is set.
	Texts []string

	// Body is written verbatim.
	Body string
}

// Server implements the generateContent surface of the Gemini API.
type Server struct {
	mu       sync.Mutex
	calls    []Call
	replies  []Reply
	fallback Reply
}

// New constructs a server that answers every request with fallback once the queued
// replies are used up.
func New(fallback Reply) *Server {
	return &Server{fallback: fallback}
}

// Enqueue adds replies served in order before the fallback.
func (s *Server) Enqueue(replies ...Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, replies...)
}

// Calls returns a copy of the recorded calls.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

type generateRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		Temperature     *float64 `json:"temperature"`
		MaxOutputTokens int      `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

// Handler returns an http.Handler that serves the mock API.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, ":generateContent") {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		b, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var req generateRequest
		if err := json.Unmarshal(b, &req); err != nil {
			http.Error(w, fmt.Sprintf("decode request: %v", err), http.StatusBadRequest)
			return
		}

		call := Call{
			Method:          r.Method,
			Path:            r.URL.Path,
			APIKey:          r.Header.Get("x-goog-api-key"),
			Temperature:     req.GenerationConfig.Temperature,
			MaxOutputTokens: req.GenerationConfig.MaxOutputTokens,
		}
		if len(req.Contents) > 0 && len(req.Contents[0].Parts) > 0 {
			call.Prompt = req.Contents[0].Parts[0].Text
		}

		s.mu.Lock()
		s.calls = append(s.calls, call)
		reply := s.fallback
		if len(s.replies) > 0 {
			reply = s.replies[0]
			s.replies = s.replies[1:]
		}
		s.mu.Unlock()

		status := reply.Status
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if reply.Body != "" {
			_, _ = io.WriteString(w, reply.Body)
			return
		}
		if status != http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"code": status, "message": http.StatusText(status), "status": http.StatusText(status)},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(candidateBody(reply.Texts))
	})
}

func candidateBody(texts []string) map[string]any {
	parts := make([]map[string]any, 0, len(texts))
	for _, t := range texts {
		parts = append(parts, map[string]any{"text": t})
	}
	return map[string]any{
		"candidates": []map[string]any{{
			"content":      map[string]any{"role": "model", "parts": parts},
			"finishReason": "STOP",
		}},
	}
}
