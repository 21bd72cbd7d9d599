package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/postforge/internal/circuitbreaker"
	"github.com/mbd888/postforge/internal/platform"
)

// fakeClient is a scriptable provider for router tests.
type fakeClient struct {
	name      string
	model     string
	text      string
	err       error
	calls     int
	lastModel string
}

func (f *fakeClient) Name() string         { return f.name }
func (f *fakeClient) DefaultModel() string { return f.model }

func (f *fakeClient) Generate(_ context.Context, _, model string) (string, error) {
	f.calls++
	f.lastModel = model
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func TestGeneratePrefersPlatformRoute(t *testing.T) {
	// twitter routes to openai; anthropic is first in default order but
	// must not be tried when the preferred provider succeeds.
	openai := &fakeClient{name: "openai", model: "gpt-4o", text: "tweet"}
	anthropic := &fakeClient{name: "anthropic", model: "claude", text: "other"}
	r := NewRouter([]Client{anthropic, openai})

	res, err := r.Generate(context.Background(), "p", platform.Twitter, CallOptions{})
	require.NoError(t, err)

	assert.Equal(t, "openai", res.Provider)
	assert.Equal(t, "tweet", res.Text)
	assert.Equal(t, 0, anthropic.calls)

	// The platform-routed model, not the client default.
	route, _ := platform.RouteFor(platform.Twitter)
	assert.Equal(t, route.Model, openai.lastModel)
}

func TestGenerateFallsThroughOnFailure(t *testing.T) {
	openai := &fakeClient{name: "openai", model: "gpt-4o", err: errors.New("rate limited")}
	anthropic := &fakeClient{name: "anthropic", model: "claude", text: "post"}
	r := NewRouter([]Client{openai, anthropic})

	res, err := r.Generate(context.Background(), "p", platform.Twitter, CallOptions{})
	require.NoError(t, err)

	assert.Equal(t, "anthropic", res.Provider)
	assert.Equal(t, 1, openai.calls)
	// Fallback uses the client's default model.
	assert.Equal(t, "claude", anthropic.lastModel)
}

func TestGenerateNeverRetriesSameProvider(t *testing.T) {
	openai := &fakeClient{name: "openai", model: "gpt-4o", err: errors.New("down")}
	r := NewRouter([]Client{openai})

	_, err := r.Generate(context.Background(), "p", platform.Twitter, CallOptions{})
	require.Error(t, err)
	assert.Equal(t, 1, openai.calls)
}

func TestGenerateAggregatesAllFailures(t *testing.T) {
	openai := &fakeClient{name: "openai", model: "m1", err: errors.New("openai down")}
	anthropic := &fakeClient{name: "anthropic", model: "m2", err: errors.New("anthropic down")}
	gemini := &fakeClient{name: "gemini", model: "m3", err: errors.New("gemini down")}
	r := NewRouter([]Client{openai, anthropic, gemini})

	_, err := r.Generate(context.Background(), "p", platform.Twitter, CallOptions{})
	require.Error(t, err)

	var agg *AllFailedError
	require.ErrorAs(t, err, &agg)
	assert.Len(t, agg.Attempts, 3)
	assert.Contains(t, err.Error(), "openai down")
	assert.Contains(t, err.Error(), "anthropic down")
	assert.Contains(t, err.Error(), "gemini down")
}

func TestGenerateNoProviders(t *testing.T) {
	r := NewRouter(nil)

	_, err := r.Generate(context.Background(), "p", platform.Twitter, CallOptions{})
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestGenerateEmptyTextIsFailure(t *testing.T) {
	openai := &fakeClient{name: "openai", model: "m", text: "   \n"}
	anthropic := &fakeClient{name: "anthropic", model: "m2", text: "real content"}
	r := NewRouter([]Client{openai, anthropic})

	res, err := r.Generate(context.Background(), "p", platform.Twitter, CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", res.Provider)
}

func TestGenerateNoPlatformHintUsesDefaultOrder(t *testing.T) {
	first := &fakeClient{name: "anthropic", model: "claude", text: "out"}
	second := &fakeClient{name: "openai", model: "gpt-4o", text: "other"}
	r := NewRouter([]Client{first, second})

	res, err := r.Generate(context.Background(), "p", "", CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", res.Provider)
	assert.Equal(t, 0, second.calls)
}

func TestGenerateSkipsOpenCircuit(t *testing.T) {
	openai := &fakeClient{name: "openai", model: "m", text: "ok"}
	anthropic := &fakeClient{name: "anthropic", model: "m2", text: "backup"}

	b := circuitbreaker.New(1, time.Hour)
	b.RecordFailure("openai") // trips immediately with threshold 1

	r := NewRouter([]Client{openai, anthropic}, WithBreaker(b))

	res, err := r.Generate(context.Background(), "p", platform.Twitter, CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", res.Provider)
	assert.Equal(t, 0, openai.calls)
}

func TestGenerateStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	openai := &fakeClient{name: "openai", model: "m", err: context.Canceled}
	anthropic := &fakeClient{name: "anthropic", model: "m2", text: "never reached"}
	r := NewRouter([]Client{openai, anthropic})

	cancel()
	_, err := r.Generate(ctx, "p", platform.Twitter, CallOptions{})
	require.Error(t, err)
	assert.Equal(t, 0, anthropic.calls)
}
