package brandvoice

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mbd888/postforge/internal/apierr"
	"github.com/mbd888/postforge/internal/auth"
	"github.com/mbd888/postforge/internal/validation"
)

// Handler provides HTTP endpoints for brand voices
type Handler struct {
	store     Store
	extractor *Extractor
}

// NewHandler creates a new brand voice handler
func NewHandler(store Store, extractor *Extractor) *Handler {
	return &Handler{store: store, extractor: extractor}
}

// RegisterRoutes registers brand voice endpoints on an authenticated group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/brand-voices", h.Create)
	r.GET("/brand-voices", h.List)
	r.GET("/brand-voices/:id", h.Get)
	r.DELETE("/brand-voices/:id", h.Delete)
	r.POST("/brand-voices/extract", h.Extract)
}

// CreateRequest is the request body for creating a voice manually.
type CreateRequest struct {
	Name          string   `json:"name"`
	Tone          string   `json:"tone"`
	SentenceStyle string   `json:"sentenceStyle"`
	Vocabulary    []string `json:"vocabulary"`
	Strictness    float64  `json:"strictness"`
	FormatTraits  []string `json:"formatTraits"`
}

// Create handles POST /v1/brand-voices
func (h *Handler) Create(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		apierr.Respond(c, apierr.New(apierr.CodeAuthRequired, "API key required"))
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.Wrap(apierr.CodeValidation, "invalid JSON body", err))
		return
	}

	errs := validation.Validate(
		validation.Required("name", req.Name),
		validation.MaxLength("name", req.Name, 100),
		validation.Required("tone", req.Tone),
		validation.MaxLength("tone", req.Tone, 200),
		validation.MaxLength("sentenceStyle", req.SentenceStyle, 500),
	)
	if req.Strictness < 0 || req.Strictness > 1 {
		errs = append(errs, validation.ValidationError{Field: "strictness", Message: "must be between 0 and 1"})
	}
	if len(errs) > 0 {
		apierr.Respond(c, apierr.New(apierr.CodeValidation, "invalid brand voice").WithDetails(errs))
		return
	}

	voice := &Voice{
		ID:            uuid.NewString(),
		UserID:        userID,
		Name:          req.Name,
		Tone:          req.Tone,
		SentenceStyle: req.SentenceStyle,
		Vocabulary:    req.Vocabulary,
		Strictness:    req.Strictness,
		FormatTraits:  req.FormatTraits,
		CreatedAt:     time.Now().UTC(),
	}
	if err := h.store.Create(c.Request.Context(), voice); err != nil {
		apierr.Respond(c, apierr.Wrap(apierr.CodeInternal, "failed to save brand voice", err))
		return
	}

	c.JSON(http.StatusCreated, voice)
}

// List handles GET /v1/brand-voices
func (h *Handler) List(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		apierr.Respond(c, apierr.New(apierr.CodeAuthRequired, "API key required"))
		return
	}

	voices, err := h.store.List(c.Request.Context(), userID)
	if err != nil {
		apierr.Respond(c, apierr.Wrap(apierr.CodeInternal, "failed to list brand voices", err))
		return
	}
	if voices == nil {
		voices = []*Voice{}
	}

	c.JSON(http.StatusOK, gin.H{
		"voices": voices,
		"count":  len(voices),
	})
}

// Get handles GET /v1/brand-voices/:id
func (h *Handler) Get(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		apierr.Respond(c, apierr.New(apierr.CodeAuthRequired, "API key required"))
		return
	}

	voice, err := h.store.Get(c.Request.Context(), userID, c.Param("id"))
	if err == ErrNotFound {
		apierr.Respond(c, apierr.New(apierr.CodeValidation, "brand voice not found"))
		return
	}
	if err != nil {
		apierr.Respond(c, apierr.Wrap(apierr.CodeInternal, "failed to load brand voice", err))
		return
	}

	c.JSON(http.StatusOK, voice)
}

// Delete handles DELETE /v1/brand-voices/:id
func (h *Handler) Delete(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		apierr.Respond(c, apierr.New(apierr.CodeAuthRequired, "API key required"))
		return
	}

	err := h.store.Delete(c.Request.Context(), userID, c.Param("id"))
	if err == ErrNotFound {
		apierr.Respond(c, apierr.New(apierr.CodeValidation, "brand voice not found"))
		return
	}
	if err != nil {
		apierr.Respond(c, apierr.Wrap(apierr.CodeInternal, "failed to delete brand voice", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Brand voice deleted", "id": c.Param("id")})
}

// ExtractRequest is the request body for extraction.
type ExtractRequest struct {
	Name    string   `json:"name"`
	Samples []string `json:"samples"`
}

// Extract handles POST /v1/brand-voices/extract
func (h *Handler) Extract(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		apierr.Respond(c, apierr.New(apierr.CodeAuthRequired, "API key required"))
		return
	}

	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.Wrap(apierr.CodeValidation, "invalid JSON body", err))
		return
	}

	var errs validation.ValidationErrors
	if req.Name == "" {
		req.Name = "Extracted voice"
	}
	if len(req.Samples) < MinSamples || len(req.Samples) > MaxSamples {
		errs = append(errs, validation.ValidationError{Field: "samples", Message: "must contain 1 to 10 writing samples"})
	}
	for _, s := range req.Samples {
		if s == "" || len(s) > MaxSampleLen {
			errs = append(errs, validation.ValidationError{Field: "samples", Message: "each sample must be 1 to 5000 characters"})
			break
		}
	}
	if len(errs) > 0 {
		apierr.Respond(c, apierr.New(apierr.CodeValidation, "invalid extraction request").WithDetails(errs))
		return
	}

	voice, err := h.extractor.Extract(c.Request.Context(), userID, req.Name, req.Samples)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, voice)
}
