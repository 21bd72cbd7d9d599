package generation

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/postforge/internal/apierr"
	"github.com/mbd888/postforge/internal/auth"
	"github.com/mbd888/postforge/internal/plan"
	"github.com/mbd888/postforge/internal/usage"
)

// DefaultHistoryPageSize caps unbounded history plans.
const DefaultHistoryPageSize = 100

// Handler provides HTTP endpoints for generation
type Handler struct {
	pipeline *Pipeline
	guard    *usage.Guard
	store    Store
}

// NewHandler creates a new generation handler
func NewHandler(pipeline *Pipeline, guard *usage.Guard, store Store) *Handler {
	return &Handler{pipeline: pipeline, guard: guard, store: store}
}

// RegisterRoutes registers generation endpoints on an authenticated group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/generate", h.Generate)
	r.GET("/generations", h.List)
	r.GET("/generations/:id", h.Get)
}

// Generate handles POST /v1/generate
func (h *Handler) Generate(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		apierr.Respond(c, apierr.New(apierr.CodeAuthRequired, "API key required"))
		return
	}

	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Respond(c, apierr.Wrap(apierr.CodeValidation, "invalid JSON body", err))
		return
	}

	resp, err := h.pipeline.Generate(c.Request.Context(), userID, &req)
	if err != nil {
		apierr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// List handles GET /v1/generations. The page size is capped by the plan's
// history limit; a zero limit disables history and yields an empty page.
func (h *Handler) List(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		apierr.Respond(c, apierr.New(apierr.CodeAuthRequired, "API key required"))
		return
	}

	decision, err := h.guard.Peek(c.Request.Context(), userID)
	if err != nil {
		apierr.Respond(c, apierr.Wrap(apierr.CodeInternal, "failed to load plan", err))
		return
	}

	limit := DefaultHistoryPageSize
	if requested := c.Query("limit"); requested != "" {
		n, err := strconv.Atoi(requested)
		if err != nil || n < 1 {
			apierr.Respond(c, apierr.New(apierr.CodeValidation, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	if plan.Bounded(decision.Limits.HistoryLimit) {
		allowed := *decision.Limits.HistoryLimit
		if allowed == 0 {
			c.JSON(http.StatusOK, gin.H{"generations": []*Record{}, "nextCursor": "", "hasMore": false})
			return
		}
		if limit > allowed {
			limit = allowed
		}
	} else if limit > DefaultHistoryPageSize {
		limit = DefaultHistoryPageSize
	}

	records, next, err := h.store.List(c.Request.Context(), userID, limit, c.Query("cursor"))
	if err != nil {
		apierr.Respond(c, apierr.Wrap(apierr.CodeInternal, "failed to list generations", err))
		return
	}
	if records == nil {
		records = []*Record{}
	}

	c.JSON(http.StatusOK, gin.H{
		"generations": records,
		"nextCursor":  next,
		"hasMore":     next != "",
	})
}

// Get handles GET /v1/generations/:id
func (h *Handler) Get(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		apierr.Respond(c, apierr.New(apierr.CodeAuthRequired, "API key required"))
		return
	}

	record, err := h.store.Get(c.Request.Context(), userID, c.Param("id"))
	if err == ErrNotFound {
		apierr.Respond(c, apierr.New(apierr.CodeValidation, "generation not found"))
		return
	}
	if err != nil {
		apierr.Respond(c, apierr.Wrap(apierr.CodeInternal, "failed to load generation", err))
		return
	}

	c.JSON(http.StatusOK, record)
}
