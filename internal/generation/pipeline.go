package generation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mbd888/postforge/internal/apierr"
	"github.com/mbd888/postforge/internal/brandvoice"
	"github.com/mbd888/postforge/internal/idgen"
	"github.com/mbd888/postforge/internal/logging"
	"github.com/mbd888/postforge/internal/metrics"
	"github.com/mbd888/postforge/internal/output"
	"github.com/mbd888/postforge/internal/platform"
	"github.com/mbd888/postforge/internal/prompt"
	"github.com/mbd888/postforge/internal/provider"
	"github.com/mbd888/postforge/internal/retry"
	"github.com/mbd888/postforge/internal/traces"
	"github.com/mbd888/postforge/internal/usage"
)

// TextGenerator is the slice of the provider router the pipeline needs.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, p platform.Platform, opts provider.CallOptions) (*provider.Result, error)
}

// Pipeline runs a generation request end to end. All stages either succeed
// fully or return a typed error; nothing is swallowed and no partial output
// escapes.
type Pipeline struct {
	guard     *usage.Guard
	voices    brandvoice.Store
	generator TextGenerator
	prompts   prompt.Builder
	store     Store
	now       func() time.Time
}

// NewPipeline wires the generation pipeline.
func NewPipeline(guard *usage.Guard, voices brandvoice.Store, generator TextGenerator, store Store) *Pipeline {
	return &Pipeline{
		guard:     guard,
		voices:    voices,
		generator: generator,
		prompts:   prompt.NewBuilder(),
		store:     store,
		now:       time.Now,
	}
}

// Response is the success payload of POST /v1/generate.
type Response struct {
	GenerationID string            `json:"generation_id"`
	Posts        map[string]string `json:"posts"`
}

// Generate runs the full pipeline for an authenticated user. The request
// must already carry a validated body shape; Generate re-validates anyway so
// the pipeline is safe to call from anywhere.
func (pl *Pipeline) Generate(ctx context.Context, userID string, req *Request) (*Response, error) {
	ctx, span := traces.StartSpan(ctx, "pipeline.generate", traces.UserID(userID))
	defer span.End()

	logger := logging.L(ctx)
	start := pl.now()

	mode := req.Type
	resp, err := pl.generate(ctx, userID, req)

	metrics.GenerationDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GenerationsTotal.WithLabelValues(mode, "error").Inc()
		return nil, err
	}

	metrics.GenerationsTotal.WithLabelValues(mode, "success").Inc()
	logger.Info("generation complete",
		"user_id", userID,
		"generation_id", resp.GenerationID,
		"mode", mode,
		"platforms", len(req.Platforms),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}

func (pl *Pipeline) generate(ctx context.Context, userID string, req *Request) (*Response, error) {
	// Validate shape.
	if errs := req.Validate(); len(errs) > 0 {
		return nil, apierr.New(apierr.CodeValidation, "invalid generation request").WithDetails(errs)
	}

	// Gate. A violation short-circuits everything: no provider call, no
	// usage event, no partial output.
	intent := usage.Intent{
		PlatformCount:       len(req.Platforms),
		BrandVoiceRequested: req.BrandVoiceID != "",
		Variations:          1,
	}
	eventType := usage.EventGenerate
	if req.Type == SourceBlog {
		n := len(req.BlogContent)
		intent.BlogLength = &n
		eventType = usage.EventBlogToSNS
	}

	decision, err := pl.guard.CheckAndRecord(ctx, userID, eventType, intent)
	if err != nil {
		return nil, asAPIError(err)
	}

	// Resolve brand voice. The id was validated as well-formed; a miss here
	// means a stale or foreign id, which the client cannot fix by retrying.
	var voice *brandvoice.Voice
	if req.BrandVoiceID != "" {
		voice, err = pl.voices.Get(ctx, userID, req.BrandVoiceID)
		if err != nil {
			return nil, apierr.Wrap(apierr.CodeInternal, "brand voice could not be resolved", err)
		}
	}

	priority := decision.Limits.PriorityRouting

	promptReq := prompt.Request{
		Topic:      req.Topic,
		Content:    req.Content,
		Tone:       req.Tone,
		KeyMessage: req.KeyMessage,
	}
	if req.Type == SourceBlog {
		summary, err := pl.summarizeBlog(ctx, req, priority)
		if err != nil {
			return nil, err
		}
		promptReq.BlogSummary = summary
	}

	// Per-platform loop, strictly sequential and in request order. One
	// failure aborts the whole request; earlier outputs are discarded.
	platforms := req.PlatformList()
	outputs := make(map[platform.Platform]string, len(platforms))
	for _, p := range platforms {
		if err := ctx.Err(); err != nil {
			return nil, apierr.Wrap(apierr.CodeInternal, "request cancelled", err)
		}

		text, err := pl.generateOne(ctx, promptReq, p, voice, priority)
		if err != nil {
			return nil, err
		}
		outputs[p] = text
	}

	// Persist. Generation succeeded, but the contract is content-saved:
	// a store failure after retries surfaces as INTERNAL_ERROR.
	record := &Record{
		ID:        idgen.WithPrefix("gen_"),
		UserID:    userID,
		Source:    req.Type,
		Topic:     req.Topic,
		Content:   sourceContent(req),
		Tone:      req.Tone,
		Platforms: platforms,
		Outputs:   outputs,
		CreatedAt: pl.now().UTC(),
	}
	err = retry.Do(ctx, 2, 100*time.Millisecond, func() error {
		return pl.store.Create(ctx, record)
	})
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeInternal, "failed to save generation", err)
	}

	posts := make(map[string]string, len(outputs))
	for p, text := range outputs {
		posts[string(p)] = text
	}
	return &Response{GenerationID: record.ID, Posts: posts}, nil
}

// generateOne produces the post for a single platform: build prompt, call
// the router with the platform hint, validate the strict JSON shape.
func (pl *Pipeline) generateOne(ctx context.Context, req prompt.Request, p platform.Platform, voice *brandvoice.Voice, priority bool) (string, error) {
	ctx, span := traces.StartSpan(ctx, "pipeline.platform", traces.PlatformName(string(p)))
	defer span.End()

	text := pl.prompts.Build(req, p, voice)

	result, err := pl.generator.Generate(ctx, text, p, provider.CallOptions{Priority: priority})
	if err != nil {
		return "", asAPIError(err)
	}
	span.SetAttributes(traces.Provider(result.Provider))

	parsed, err := output.Parse(output.StripFences(result.Text), []platform.Platform{p})
	if err != nil {
		logging.L(ctx).Warn("provider output failed validation",
			"platform", string(p),
			"provider", result.Provider,
			"error", err,
		)
		return "", asAPIError(err)
	}
	return parsed[p], nil
}

// summarizeBlog runs the one preprocessing call of blog mode. Malformed
// summary JSON is the single tolerated provider malformation: it degrades to
// a heuristic summary instead of failing the request.
func (pl *Pipeline) summarizeBlog(ctx context.Context, req *Request, priority bool) (*prompt.BlogSummary, error) {
	ctx, span := traces.StartSpan(ctx, "pipeline.summarize")
	defer span.End()

	text := prompt.BuildBlogSummaryPrompt(req.BlogContent, req.KeyMessage)

	result, err := pl.generator.Generate(ctx, text, "", provider.CallOptions{Priority: priority})
	if err != nil {
		return nil, asAPIError(err)
	}

	var summary prompt.BlogSummary
	if err := json.Unmarshal([]byte(output.StripFences(result.Text)), &summary); err != nil || summary.MainTopic == "" {
		logging.L(ctx).Warn("blog summary unparseable, using heuristic fallback",
			"provider", result.Provider,
		)
		metrics.BlogSummaryFallbacksTotal.Inc()
		return heuristicSummary(req.BlogContent), nil
	}
	return &summary, nil
}

// heuristicSummary is the degraded path: the opening of the blog post stands
// in as the sole takeaway.
func heuristicSummary(blogContent string) *prompt.BlogSummary {
	lead := blogContent
	if len(lead) > 200 {
		lead = lead[:200]
	}
	return &prompt.BlogSummary{
		MainTopic:    lead,
		KeyTakeaways: []string{lead},
	}
}

func sourceContent(req *Request) string {
	if req.Type == SourceBlog {
		return req.BlogContent
	}
	return req.Content
}

// asAPIError maps domain errors onto the API taxonomy.
func asAPIError(err error) error {
	var apiErr *apierr.E
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var qe *usage.QuotaError
	if errors.As(err, &qe) {
		return apierr.Wrap(apierr.CodeQuotaExceeded, "plan limit reached", err).
			WithDetails(qe)
	}

	var all *provider.AllFailedError
	if errors.As(err, &all) {
		return apierr.Wrap(apierr.CodeProviderError, "all AI providers failed", err).
			WithDetails(map[string]any{"attempts": all.Attempts})
	}
	if errors.Is(err, provider.ErrNoProviders) {
		return apierr.Wrap(apierr.CodeProviderError, "no AI providers configured", err)
	}

	var pe *output.ParseError
	if errors.As(err, &pe) {
		return apierr.Wrap(apierr.CodeProviderError, "provider returned malformed output", err).
			WithDetails(map[string]any{"platform": string(pe.Platform), "reason": pe.Reason, "raw": pe.Raw})
	}

	return apierr.From(err)
}
