// Package usage implements the usage guard: per-plan quota enforcement
// backed by an append-only event log.
//
// "Used today" is derived from counting events in the current UTC day.
// The reserve path closes the classic count-then-insert race by making the
// daily check and the event append one atomic operation in the store.
package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mbd888/postforge/internal/plan"
)

// Errors
var (
	ErrProfileNotFound = errors.New("usage: profile not found")
)

// Event types recorded against the daily quota.
const (
	EventGenerate     = "generate"
	EventBlogToSNS    = "blog_to_sns"
	EventVoiceExtract = "brand_voice_extraction"
)

// Limit names surfaced in QUOTA_EXCEEDED responses.
const (
	LimitDailyGenerations = "daily_generations"
	LimitBrandVoice       = "brand_voice"
	LimitBlogToSNS        = "blog_to_sns"
	LimitMaxPlatforms     = "max_platforms_per_request"
	LimitMaxBlogLength    = "max_blog_length"
	LimitVariations       = "variations_per_request"
)

// Profile is a user's plan assignment, lazily bootstrapped on first use.
// Override stores per-user limit adjustments that win over the plan
// catalogue field by field.
type Profile struct {
	UserID    string       `json:"userId"`
	Plan      plan.Plan    `json:"plan"`
	Override  *plan.Limits `json:"override,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Event is an immutable usage fact. Never mutated or deleted.
type Event struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	EventType string    `json:"eventType"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists profiles and usage events.
type Store interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	// CreateProfile inserts a profile. A concurrent duplicate insert is not
	// an error: implementations return the already-stored profile.
	CreateProfile(ctx context.Context, p *Profile) (*Profile, error)
	CountEventsSince(ctx context.Context, userID string, since time.Time) (int, error)
	AppendEvent(ctx context.Context, e *Event) error
	// ReserveDaily atomically checks the daily limit and appends the event.
	// limit == nil means unbounded. ok is false when the limit is already
	// reached; used is the count for the day after a successful reserve.
	ReserveDaily(ctx context.Context, e *Event, since time.Time, limit *int) (used int, ok bool, err error)
}

// QuotaError reports the first violated gate.
type QuotaError struct {
	Limit   string `json:"limit"`
	Allowed int    `json:"allowed"`
	Used    int    `json:"used"`
}

// Error implements the error interface.
func (e *QuotaError) Error() string {
	return fmt.Sprintf("quota exceeded: %s (allowed %d, used %d)", e.Limit, e.Allowed, e.Used)
}

// Intent describes the operation the caller wants to perform, for gating.
type Intent struct {
	PlatformCount       int
	BlogLength          *int // set in blog mode only
	BrandVoiceRequested bool
	Variations          int
}

// Decision is the successful outcome of CheckAndRecord.
type Decision struct {
	Plan      plan.Plan   `json:"plan"`
	Limits    plan.Limits `json:"limits"`
	UsedToday int         `json:"usedToday"`
	Remaining *int        `json:"remaining,omitempty"` // nil = unbounded
}

// StartOfUTCDay returns midnight UTC of the current day.
func StartOfUTCDay(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
