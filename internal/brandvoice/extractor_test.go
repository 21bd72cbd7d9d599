package brandvoice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/postforge/internal/apierr"
	"github.com/mbd888/postforge/internal/plan"
	"github.com/mbd888/postforge/internal/platform"
	"github.com/mbd888/postforge/internal/provider"
	"github.com/mbd888/postforge/internal/usage"
)

type scriptedGenerator struct {
	calls int
	text  string
	err   error
}

func (s *scriptedGenerator) Generate(ctx context.Context, prompt string, p platform.Platform, opts provider.CallOptions) (*provider.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &provider.Result{Text: s.text, Provider: "anthropic"}, nil
}

func setupExtractor(t *testing.T, p plan.Plan, gen TextGenerator) (*Extractor, Store) {
	t.Helper()
	usageStore := usage.NewMemoryStore()
	usageStore.SetPlan("user-1", &usage.Profile{UserID: "user-1", Plan: p, CreatedAt: time.Now()})
	store := NewMemoryStore()
	return NewExtractor(usage.NewGuard(usageStore), gen, store), store
}

func TestExtractSuccess(t *testing.T) {
	gen := &scriptedGenerator{
		text: `{"tone": "playful", "sentenceStyle": "long, winding", "vocabulary": ["delight"], "strictness": 0.6, "formatTraits": ["emoji"]}`,
	}
	ex, store := setupExtractor(t, plan.Pro, gen)

	voice, err := ex.Extract(context.Background(), "user-1", "My voice", []string{"sample one", "sample two"})
	require.NoError(t, err)

	assert.Equal(t, "playful", voice.Tone)
	assert.Equal(t, 0.6, voice.Strictness)
	assert.Equal(t, []string{"delight"}, voice.Vocabulary)

	// Persisted and readable by the owner.
	got, err := store.Get(context.Background(), "user-1", voice.ID)
	require.NoError(t, err)
	assert.Equal(t, "My voice", got.Name)
}

func TestExtractGatedByPlan(t *testing.T) {
	gen := &scriptedGenerator{text: `{}`}
	ex, _ := setupExtractor(t, plan.Free, gen) // free plan: no brand voice

	_, err := ex.Extract(context.Background(), "user-1", "Mine", []string{"sample"})

	var e *apierr.E
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apierr.CodeQuotaExceeded, e.Code)

	var qe *usage.QuotaError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, usage.LimitBrandVoice, qe.Limit)

	assert.Zero(t, gen.calls, "no provider call after a gate rejection")
}

func TestExtractMalformedProfileIsProviderError(t *testing.T) {
	gen := &scriptedGenerator{text: "I'd describe this writing as playful and warm."}
	ex, _ := setupExtractor(t, plan.Pro, gen)

	_, err := ex.Extract(context.Background(), "user-1", "Mine", []string{"sample"})

	var e *apierr.E
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apierr.CodeProviderError, e.Code)
}

func TestExtractAllProvidersDown(t *testing.T) {
	gen := &scriptedGenerator{err: &provider.AllFailedError{Attempts: []provider.Attempt{
		{Provider: "openai", Reason: "timeout"},
	}}}
	ex, _ := setupExtractor(t, plan.Pro, gen)

	_, err := ex.Extract(context.Background(), "user-1", "Mine", []string{"sample"})

	var e *apierr.E
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apierr.CodeProviderError, e.Code)
}

func TestExtractClampsStrictness(t *testing.T) {
	gen := &scriptedGenerator{
		text: `{"tone": "loud", "sentenceStyle": "short", "vocabulary": [], "strictness": 1.7}`,
	}
	ex, _ := setupExtractor(t, plan.Pro, gen)

	voice, err := ex.Extract(context.Background(), "user-1", "Loud", []string{"sample"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, voice.Strictness)
}

func TestExtractFencedJSONAccepted(t *testing.T) {
	gen := &scriptedGenerator{
		text: "```json\n{\"tone\": \"dry\", \"sentenceStyle\": \"terse\", \"vocabulary\": [], \"strictness\": 0.5}\n```",
	}
	ex, _ := setupExtractor(t, plan.Pro, gen)

	voice, err := ex.Extract(context.Background(), "user-1", "Dry", []string{"sample"})
	require.NoError(t, err)
	assert.Equal(t, "dry", voice.Tone)
}

func TestExtractUnexpectedErrorIsInternal(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("socket torn down")}
	ex, _ := setupExtractor(t, plan.Pro, gen)

	_, err := ex.Extract(context.Background(), "user-1", "Mine", []string{"sample"})

	var e *apierr.E
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apierr.CodeInternal, e.Code)
}
