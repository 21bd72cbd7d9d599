// Package provider implements the AI provider clients and the failover
// router that dispatches generation calls across them.
//
// Providers form a small closed set (OpenAI, Anthropic, Gemini) behind one
// Client interface. A call is a single request/response HTTP exchange; it
// fails on transport error, non-2xx status, schema mismatch, or empty text.
package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// Client is a single AI provider. Generate performs one completion call
// with the given model and returns the extracted text.
type Client interface {
	Name() string
	DefaultModel() string
	Generate(ctx context.Context, prompt, model string) (string, error)
}

// Result is a successful router response.
type Result struct {
	Text     string `json:"text"`
	Provider string `json:"provider"`
}

// Attempt records one failed provider call inside a Generate.
type Attempt struct {
	Provider string `json:"provider"`
	Reason   string `json:"reason"`
}

// AllFailedError aggregates every attempted provider's failure. Reasons are
// kept so operators can see which providers are down from one response.
type AllFailedError struct {
	Attempts []Attempt
}

// Error implements the error interface.
func (e *AllFailedError) Error() string {
	if len(e.Attempts) == 0 {
		return "no AI providers configured"
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Provider + ": " + a.Reason
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}

// ErrNoProviders is returned when the candidate list is empty.
var ErrNoProviders = errors.New("provider: no providers configured")

// ErrEmptyText marks a response whose extracted text was empty or whitespace.
var ErrEmptyText = errors.New("provider returned empty text")

// newHTTPClient builds the shared transport for provider calls. Per-call
// deadlines come from the request context; this timeout is a hard backstop.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 2 * time.Minute}
}
