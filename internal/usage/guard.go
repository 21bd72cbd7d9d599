package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/mbd888/postforge/internal/idgen"
	"github.com/mbd888/postforge/internal/logging"
	"github.com/mbd888/postforge/internal/metrics"
	"github.com/mbd888/postforge/internal/plan"
)

// Guard enforces plan quotas and records usage.
type Guard struct {
	store Store
	now   func() time.Time
}

// NewGuard creates a usage guard over the given store.
func NewGuard(store Store) *Guard {
	return &Guard{store: store, now: time.Now}
}

// WithClock overrides the time source (for tests).
func (g *Guard) WithClock(now func() time.Time) *Guard {
	g.now = now
	return g
}

// CheckAndRecord loads the caller's profile (bootstrapping a free-tier one on
// first use), runs every quota gate in order, and on success atomically
// records one usage event. The first violated gate wins and is returned as
// *QuotaError; no event is recorded on any violation.
func (g *Guard) CheckAndRecord(ctx context.Context, userID, eventType string, intent Intent) (*Decision, error) {
	profile, err := g.loadOrBootstrap(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	limits := plan.Merge(plan.LimitsFor(profile.Plan), profile.Override)

	dayStart := StartOfUTCDay(g.now())
	usedToday, err := g.store.CountEventsSince(ctx, userID, dayStart)
	if err != nil {
		return nil, fmt.Errorf("count usage: %w", err)
	}

	if qe := checkGates(limits, eventType, intent, usedToday); qe != nil {
		metrics.QuotaRejectionsTotal.WithLabelValues(qe.Limit).Inc()
		return nil, qe
	}

	event := &Event{
		ID:        idgen.WithPrefix("evt_"),
		UserID:    userID,
		EventType: eventType,
		CreatedAt: g.now().UTC(),
	}

	// The reserve re-checks the daily limit atomically with the append, so
	// two concurrent requests cannot both slip past a nearly-full quota.
	used, ok, err := g.store.ReserveDaily(ctx, event, dayStart, limits.DailyGenerations)
	if err != nil {
		return nil, fmt.Errorf("record usage: %w", err)
	}
	if !ok {
		qe := &QuotaError{
			Limit:   LimitDailyGenerations,
			Allowed: *limits.DailyGenerations,
			Used:    *limits.DailyGenerations,
		}
		metrics.QuotaRejectionsTotal.WithLabelValues(qe.Limit).Inc()
		return nil, qe
	}

	decision := &Decision{
		Plan:      profile.Plan,
		Limits:    limits,
		UsedToday: used,
	}
	if plan.Bounded(limits.DailyGenerations) {
		remaining := *limits.DailyGenerations - used
		if remaining < 0 {
			remaining = 0
		}
		decision.Remaining = &remaining
	}
	return decision, nil
}

// Peek returns the caller's plan, merged limits, and today's usage without
// recording anything. Used by the limits endpoint.
func (g *Guard) Peek(ctx context.Context, userID string) (*Decision, error) {
	profile, err := g.loadOrBootstrap(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	limits := plan.Merge(plan.LimitsFor(profile.Plan), profile.Override)
	usedToday, err := g.store.CountEventsSince(ctx, userID, StartOfUTCDay(g.now()))
	if err != nil {
		return nil, fmt.Errorf("count usage: %w", err)
	}

	decision := &Decision{Plan: profile.Plan, Limits: limits, UsedToday: usedToday}
	if plan.Bounded(limits.DailyGenerations) {
		remaining := *limits.DailyGenerations - usedToday
		if remaining < 0 {
			remaining = 0
		}
		decision.Remaining = &remaining
	}
	return decision, nil
}

// loadOrBootstrap fetches the profile, inserting a free-tier one on first
// use. The insert is idempotent under concurrent first calls: the store
// resolves a duplicate by returning whichever profile won.
func (g *Guard) loadOrBootstrap(ctx context.Context, userID string) (*Profile, error) {
	profile, err := g.store.GetProfile(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if err != ErrProfileNotFound {
		return nil, err
	}

	logging.L(ctx).Info("bootstrapping free-tier profile", "user_id", userID)
	return g.store.CreateProfile(ctx, &Profile{
		UserID:    userID,
		Plan:      plan.Free,
		CreatedAt: g.now().UTC(),
	})
}

// checkGates runs the quota gates in their fixed order and returns the
// first violation. Gate order is part of the API contract: clients see the
// first failed gate, not an arbitrary one.
func checkGates(limits plan.Limits, eventType string, intent Intent, usedToday int) *QuotaError {
	if plan.Bounded(limits.DailyGenerations) && usedToday >= *limits.DailyGenerations {
		return &QuotaError{Limit: LimitDailyGenerations, Allowed: *limits.DailyGenerations, Used: usedToday}
	}

	if intent.BrandVoiceRequested && !limits.BrandVoiceEnabled {
		return &QuotaError{Limit: LimitBrandVoice}
	}

	if eventType == EventBlogToSNS && !limits.BlogToSNSEnabled {
		return &QuotaError{Limit: LimitBlogToSNS}
	}

	if plan.Bounded(limits.MaxPlatformsPerRequest) && intent.PlatformCount > *limits.MaxPlatformsPerRequest {
		return &QuotaError{Limit: LimitMaxPlatforms, Allowed: *limits.MaxPlatformsPerRequest, Used: intent.PlatformCount}
	}

	// Zero is stricter than "exceeds": it blocks blog mode outright
	// regardless of length. Nil means no cap at all.
	if intent.BlogLength != nil && plan.Bounded(limits.MaxBlogLength) {
		if *limits.MaxBlogLength == 0 || *intent.BlogLength > *limits.MaxBlogLength {
			return &QuotaError{Limit: LimitMaxBlogLength, Allowed: *limits.MaxBlogLength, Used: *intent.BlogLength}
		}
	}

	if plan.Bounded(limits.VariationsPerRequest) && intent.Variations > *limits.VariationsPerRequest {
		return &QuotaError{Limit: LimitVariations, Allowed: *limits.VariationsPerRequest, Used: intent.Variations}
	}

	return nil
}
