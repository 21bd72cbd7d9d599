package provider

import (
	"context"
	"strings"
	"time"

	"github.com/mbd888/postforge/internal/circuitbreaker"
	"github.com/mbd888/postforge/internal/logging"
	"github.com/mbd888/postforge/internal/metrics"
	"github.com/mbd888/postforge/internal/platform"
)

// Router dispatches a generation call to the platform's preferred provider
// and fails over through the remaining configured providers in priority
// order. A provider is never retried within one Generate call.
type Router struct {
	clients         []Client          // configured candidates, priority order
	byName          map[string]Client //
	breaker         *circuitbreaker.Breaker
	timeout         time.Duration
	priorityTimeout time.Duration
}

// RouterOption configures the router.
type RouterOption func(*Router)

// WithTimeouts sets the per-attempt deadline for standard and
// priority-routed calls.
func WithTimeouts(standard, priority time.Duration) RouterOption {
	return func(r *Router) {
		r.timeout = standard
		r.priorityTimeout = priority
	}
}

// WithBreaker sets the circuit breaker guarding provider calls.
func WithBreaker(b *circuitbreaker.Breaker) RouterOption {
	return func(r *Router) {
		r.breaker = b
	}
}

// NewRouter creates a router over the configured provider clients.
// Order determines default failover priority.
func NewRouter(clients []Client, opts ...RouterOption) *Router {
	r := &Router{
		clients:         clients,
		byName:          make(map[string]Client, len(clients)),
		timeout:         45 * time.Second,
		priorityTimeout: 90 * time.Second,
	}
	for _, c := range clients {
		r.byName[c.Name()] = c
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.breaker == nil {
		r.breaker = circuitbreaker.New(5, 30*time.Second)
	}
	return r
}

// Configured returns the candidate provider names in priority order.
func (r *Router) Configured() []string {
	names := make([]string, len(r.clients))
	for i, c := range r.clients {
		names[i] = c.Name()
	}
	return names
}

// CallOptions tune a single Generate call.
type CallOptions struct {
	// Priority grants the longer per-attempt deadline. Candidate order
	// is unchanged.
	Priority bool
}

// candidate pairs a client with the model to use for this attempt.
type candidate struct {
	client Client
	model  string
}

// Generate calls the platform's preferred provider first (with the
// platform's designated model), then falls through the remaining candidates
// with their default models. Every failure is collected; if no candidate
// succeeds the aggregate is returned as *AllFailedError.
//
// p may be empty for calls with no platform affinity (blog preprocessing,
// voice extraction); those use the default priority order only.
func (r *Router) Generate(ctx context.Context, prompt string, p platform.Platform, opts CallOptions) (*Result, error) {
	candidates := r.candidatesFor(p)
	if len(candidates) == 0 {
		return nil, ErrNoProviders
	}

	timeout := r.timeout
	if opts.Priority {
		timeout = r.priorityTimeout
	}

	logger := logging.L(ctx)
	agg := &AllFailedError{}

	for _, cand := range candidates {
		name := cand.client.Name()

		if !r.breaker.Allow(name) {
			agg.Attempts = append(agg.Attempts, Attempt{Provider: name, Reason: "circuit open"})
			metrics.ProviderCallsTotal.WithLabelValues(name, "circuit_open").Inc()
			continue
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		start := time.Now()
		text, err := cand.client.Generate(attemptCtx, prompt, cand.model)
		cancel()

		metrics.ProviderCallDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

		if err == nil && strings.TrimSpace(text) == "" {
			// Clients check this too; the contract lives here.
			err = ErrEmptyText
		}

		if err != nil {
			r.breaker.RecordFailure(name)
			metrics.ProviderCallsTotal.WithLabelValues(name, "error").Inc()
			logger.Warn("provider call failed",
				"provider", name,
				"model", cand.model,
				"platform", string(p),
				"error", err,
			)
			agg.Attempts = append(agg.Attempts, Attempt{Provider: name, Reason: err.Error()})

			// The parent context is gone; further candidates would fail
			// the same way. Stop and report what was attempted.
			if ctx.Err() != nil {
				return nil, agg
			}
			continue
		}

		r.breaker.RecordSuccess(name)
		metrics.ProviderCallsTotal.WithLabelValues(name, "success").Inc()
		return &Result{Text: text, Provider: name}, nil
	}

	return nil, agg
}

// candidatesFor builds the attempt order: platform-preferred provider first
// with the routed model, then the remaining configured providers with their
// defaults. Each provider appears at most once.
func (r *Router) candidatesFor(p platform.Platform) []candidate {
	var out []candidate
	seen := make(map[string]bool, len(r.clients))

	if route, ok := platform.RouteFor(p); ok {
		if c, configured := r.byName[route.Provider]; configured {
			out = append(out, candidate{client: c, model: route.Model})
			seen[route.Provider] = true
		}
	}

	for _, c := range r.clients {
		if seen[c.Name()] {
			continue
		}
		out = append(out, candidate{client: c, model: c.DefaultModel()})
	}
	return out
}
