package usage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/postforge/internal/plan"
)

func setupGuard(t *testing.T, p plan.Plan, override *plan.Limits) (*Guard, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	store.SetPlan("user-1", &Profile{UserID: "user-1", Plan: p, Override: override, CreatedAt: time.Now()})
	return NewGuard(store), store
}

func TestDailyQuotaBoundary(t *testing.T) {
	guard, _ := setupGuard(t, plan.Free, nil) // free: 5/day, 1 platform

	intent := Intent{PlatformCount: 1}
	for i := 0; i < 5; i++ {
		d, err := guard.CheckAndRecord(context.Background(), "user-1", EventGenerate, intent)
		require.NoError(t, err, "generation %d should pass", i+1)
		require.NotNil(t, d.Remaining)
		assert.Equal(t, 5-(i+1), *d.Remaining)
	}

	_, err := guard.CheckAndRecord(context.Background(), "user-1", EventGenerate, intent)
	var qe *QuotaError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, LimitDailyGenerations, qe.Limit)
	assert.Equal(t, 5, qe.Used)
}

func TestBrandVoiceGateIndependent(t *testing.T) {
	guard, _ := setupGuard(t, plan.Free, nil)

	// Everything else passes; only the brand voice flag trips.
	_, err := guard.CheckAndRecord(context.Background(), "user-1", EventGenerate,
		Intent{PlatformCount: 1, BrandVoiceRequested: true})

	var qe *QuotaError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, LimitBrandVoice, qe.Limit)

	// Nothing was recorded.
	n, err := guard.store.CountEventsSince(context.Background(), "user-1", StartOfUTCDay(time.Now()))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBlogToSNSGate(t *testing.T) {
	guard, _ := setupGuard(t, plan.Free, nil)

	blogLen := 100
	_, err := guard.CheckAndRecord(context.Background(), "user-1", EventBlogToSNS,
		Intent{PlatformCount: 1, BlogLength: &blogLen})

	var qe *QuotaError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, LimitBlogToSNS, qe.Limit)
}

func TestZeroBlogLengthBlocksOneCharacter(t *testing.T) {
	// Zero means fully disabled, not "allow up to zero".
	override := &plan.Limits{MaxBlogLength: plan.IntPtr(0), BlogToSNSEnabled: true}
	guard, _ := setupGuard(t, plan.Free, override)

	one := 1
	_, err := guard.CheckAndRecord(context.Background(), "user-1", EventBlogToSNS,
		Intent{PlatformCount: 1, BlogLength: &one})

	var qe *QuotaError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, LimitMaxBlogLength, qe.Limit)
}

func TestNilBlogLengthIsUnbounded(t *testing.T) {
	guard, store := setupGuard(t, plan.Business, nil) // business: MaxBlogLength nil
	_ = store

	huge := 100000
	_, err := guard.CheckAndRecord(context.Background(), "user-1", EventBlogToSNS,
		Intent{PlatformCount: 1, BlogLength: &huge})
	assert.NoError(t, err)
}

func TestPlatformCountGate(t *testing.T) {
	guard, _ := setupGuard(t, plan.Free, nil) // max 1 platform

	_, err := guard.CheckAndRecord(context.Background(), "user-1", EventGenerate,
		Intent{PlatformCount: 2})

	var qe *QuotaError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, LimitMaxPlatforms, qe.Limit)
	assert.Equal(t, 1, qe.Allowed)
	assert.Equal(t, 2, qe.Used)
}

func TestVariationsGate(t *testing.T) {
	guard, _ := setupGuard(t, plan.Free, nil) // 1 variation

	_, err := guard.CheckAndRecord(context.Background(), "user-1", EventGenerate,
		Intent{PlatformCount: 1, Variations: 3})

	var qe *QuotaError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, LimitVariations, qe.Limit)
}

func TestGateOrderDailyFirst(t *testing.T) {
	guard, store := setupGuard(t, plan.Free, nil)

	// Exhaust the daily quota.
	for i := 0; i < 5; i++ {
		err := store.AppendEvent(context.Background(), &Event{
			ID: "e", UserID: "user-1", EventType: EventGenerate, CreatedAt: time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	// Request violates both the daily quota and the platform count; the
	// daily gate is first in order and must be the one surfaced.
	_, err := guard.CheckAndRecord(context.Background(), "user-1", EventGenerate,
		Intent{PlatformCount: 3})

	var qe *QuotaError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, LimitDailyGenerations, qe.Limit)
}

func TestBootstrapDefaultsToFree(t *testing.T) {
	store := NewMemoryStore()
	guard := NewGuard(store)

	d, err := guard.CheckAndRecord(context.Background(), "fresh-user", EventGenerate,
		Intent{PlatformCount: 1})
	require.NoError(t, err)
	assert.Equal(t, plan.Free, d.Plan)

	prof, err := store.GetProfile(context.Background(), "fresh-user")
	require.NoError(t, err)
	assert.Equal(t, plan.Free, prof.Plan)
}

func TestOverrideWinsFieldByField(t *testing.T) {
	override := &plan.Limits{DailyGenerations: plan.IntPtr(100)}
	guard, _ := setupGuard(t, plan.Free, override)

	d, err := guard.CheckAndRecord(context.Background(), "user-1", EventGenerate,
		Intent{PlatformCount: 1})
	require.NoError(t, err)

	require.NotNil(t, d.Limits.DailyGenerations)
	assert.Equal(t, 100, *d.Limits.DailyGenerations)
	// Untouched fields still come from the free tier.
	require.NotNil(t, d.Limits.MaxPlatformsPerRequest)
	assert.Equal(t, 1, *d.Limits.MaxPlatformsPerRequest)
}

func TestConcurrentReserveNeverOvershoots(t *testing.T) {
	override := &plan.Limits{DailyGenerations: plan.IntPtr(10)}
	guard, store := setupGuard(t, plan.Free, override)

	var wg sync.WaitGroup
	passed := make(chan struct{}, 64)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := guard.CheckAndRecord(context.Background(), "user-1", EventGenerate,
				Intent{PlatformCount: 1})
			if err == nil {
				passed <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(passed)

	n := 0
	for range passed {
		n++
	}
	assert.Equal(t, 10, n, "exactly the daily limit may pass")

	count, err := store.CountEventsSince(context.Background(), "user-1", StartOfUTCDay(time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 10, count)
}

func TestUnboundedPlanHasNilRemaining(t *testing.T) {
	guard, _ := setupGuard(t, plan.Business, nil)

	d, err := guard.CheckAndRecord(context.Background(), "user-1", EventGenerate,
		Intent{PlatformCount: 1})
	require.NoError(t, err)
	assert.Nil(t, d.Remaining)
}

func TestYesterdayEventsDoNotCount(t *testing.T) {
	guard, store := setupGuard(t, plan.Free, nil)

	yesterday := time.Now().UTC().Add(-25 * time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.AppendEvent(context.Background(), &Event{
			ID: "old", UserID: "user-1", EventType: EventGenerate, CreatedAt: yesterday,
		}))
	}

	_, err := guard.CheckAndRecord(context.Background(), "user-1", EventGenerate,
		Intent{PlatformCount: 1})
	assert.NoError(t, err)
}
