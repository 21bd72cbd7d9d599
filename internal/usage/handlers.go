package usage

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/postforge/internal/apierr"
	"github.com/mbd888/postforge/internal/auth"
)

// Handler exposes plan and usage information.
type Handler struct {
	guard *Guard
}

// NewHandler creates a new usage handler
func NewHandler(guard *Guard) *Handler {
	return &Handler{guard: guard}
}

// Limits handles GET /v1/limits: the caller's plan, effective limits, and
// today's consumption.
func (h *Handler) Limits(c *gin.Context) {
	userID := auth.UserID(c)
	if userID == "" {
		apierr.Respond(c, apierr.New(apierr.CodeAuthRequired, "API key required"))
		return
	}

	decision, err := h.guard.Peek(c.Request.Context(), userID)
	if err != nil {
		apierr.Respond(c, apierr.Wrap(apierr.CodeInternal, "failed to load usage", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"plan":      decision.Plan,
		"limits":    decision.Limits,
		"usedToday": decision.UsedToday,
		"remaining": decision.Remaining,
	})
}
