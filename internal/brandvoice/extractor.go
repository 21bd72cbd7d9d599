package brandvoice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mbd888/postforge/internal/apierr"
	"github.com/mbd888/postforge/internal/logging"
	"github.com/mbd888/postforge/internal/output"
	"github.com/mbd888/postforge/internal/platform"
	"github.com/mbd888/postforge/internal/provider"
	"github.com/mbd888/postforge/internal/usage"
)

// Extraction bounds.
const (
	MinSamples   = 1
	MaxSamples   = 10
	MaxSampleLen = 5000
)

// TextGenerator is the slice of the provider router extraction needs.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, p platform.Platform, opts provider.CallOptions) (*provider.Result, error)
}

// Extractor derives a brand voice profile from writing samples. It runs the
// same stage shape as generation: gate, call, strict parse, persist.
type Extractor struct {
	guard     *usage.Guard
	generator TextGenerator
	store     Store
	now       func() time.Time
}

// NewExtractor wires a brand voice extractor.
func NewExtractor(guard *usage.Guard, generator TextGenerator, store Store) *Extractor {
	return &Extractor{guard: guard, generator: generator, store: store, now: time.Now}
}

// extractedProfile is the strict JSON shape the model must return.
type extractedProfile struct {
	Tone          string   `json:"tone"`
	SentenceStyle string   `json:"sentenceStyle"`
	Vocabulary    []string `json:"vocabulary"`
	Strictness    float64  `json:"strictness"`
	FormatTraits  []string `json:"formatTraits"`
}

// Extract gates on the brand voice feature, asks a provider to profile the
// samples, and persists the resulting voice. Unlike blog summarizing there
// is no degraded path: a malformed profile is a provider error.
func (e *Extractor) Extract(ctx context.Context, userID, name string, samples []string) (*Voice, error) {
	intent := usage.Intent{BrandVoiceRequested: true, Variations: 1, PlatformCount: 1}
	decision, err := e.guard.CheckAndRecord(ctx, userID, usage.EventVoiceExtract, intent)
	if err != nil {
		var qe *usage.QuotaError
		if errors.As(err, &qe) {
			return nil, apierr.Wrap(apierr.CodeQuotaExceeded, "plan limit reached", err).WithDetails(qe)
		}
		return nil, apierr.From(err)
	}

	text := BuildVoiceExtractionPrompt(samples)
	result, err := e.generator.Generate(ctx, text, "", provider.CallOptions{Priority: decision.Limits.PriorityRouting})
	if err != nil {
		var all *provider.AllFailedError
		if errors.As(err, &all) {
			return nil, apierr.Wrap(apierr.CodeProviderError, "all AI providers failed", err).
				WithDetails(map[string]any{"attempts": all.Attempts})
		}
		return nil, apierr.From(err)
	}

	var profile extractedProfile
	if err := json.Unmarshal([]byte(output.StripFences(result.Text)), &profile); err != nil {
		logging.L(ctx).Warn("voice extraction output unparseable",
			"provider", result.Provider,
			"error", err,
		)
		return nil, apierr.Wrap(apierr.CodeProviderError, "provider returned malformed profile", err)
	}
	if profile.Strictness < 0 {
		profile.Strictness = 0
	}
	if profile.Strictness > 1 {
		profile.Strictness = 1
	}

	voice := &Voice{
		ID:            uuid.NewString(),
		UserID:        userID,
		Name:          name,
		Tone:          profile.Tone,
		SentenceStyle: profile.SentenceStyle,
		Vocabulary:    profile.Vocabulary,
		Strictness:    profile.Strictness,
		FormatTraits:  profile.FormatTraits,
		CreatedAt:     e.now().UTC(),
	}
	if err := e.store.Create(ctx, voice); err != nil {
		return nil, apierr.Wrap(apierr.CodeInternal, "failed to save brand voice", err)
	}
	return voice, nil
}

// BuildVoiceExtractionPrompt builds the prompt for extracting a brand voice
// profile from writing samples. It lives here rather than in the prompt
// package so that brandvoice does not import prompt (prompt imports
// brandvoice for the Voice type); prompt re-exposes it unchanged.
func BuildVoiceExtractionPrompt(samples []string) string {
	var sb strings.Builder
	sb.WriteString("Analyse the writing samples below and extract a reusable style profile.\n\n")
	for i, s := range samples {
		fmt.Fprintf(&sb, "Sample %d:\n%s\n\n", i+1, s)
	}
	sb.WriteString("Respond with ONLY a JSON object, no markdown fences:\n")
	sb.WriteString(`{"tone": "...", "sentenceStyle": "...", "vocabulary": ["..."], "strictness": 0.5, "formatTraits": ["..."]}`)
	sb.WriteString("\n")
	return sb.String()
}
