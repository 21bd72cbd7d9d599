package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mbd888/postforge/internal/apierr"
	"github.com/mbd888/postforge/internal/validation"
)

// Handler provides HTTP endpoints for key management
type Handler struct {
	manager *Manager
}

// NewHandler creates a new auth handler
func NewHandler(m *Manager) *Handler {
	return &Handler{manager: m}
}

// IssueKeyRequest is the request body for issuing a key. UserID is optional;
// a fresh user id is minted when absent.
type IssueKeyRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// IssueKey creates an API key. This is the bootstrap surface: there is no
// signup flow, so the first key for a user comes from here.
func (h *Handler) IssueKey(c *gin.Context) {
	var req IssueKeyRequest
	c.ShouldBindJSON(&req)

	if req.UserID == "" {
		req.UserID = uuid.NewString()
	}
	if req.Name == "" {
		req.Name = "Default key"
	}
	req.UserID = validation.SanitizeString(req.UserID, 64)
	req.Name = validation.SanitizeString(req.Name, 255)

	rawKey, key, err := h.manager.GenerateKey(c.Request.Context(), req.UserID, req.Name)
	if err != nil {
		apierr.Respond(c, apierr.Wrap(apierr.CodeInternal, "failed to create API key", err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"apiKey":  rawKey,
		"keyId":   key.ID,
		"userId":  key.UserID,
		"name":    key.Name,
		"warning": "Store this key securely. It will not be shown again.",
	})
}

// ListKeys returns API keys for the authenticated user
func (h *Handler) ListKeys(c *gin.Context) {
	key, ok := GetAPIKey(c)
	if !ok {
		apierr.Respond(c, apierr.New(apierr.CodeAuthRequired, "API key required"))
		return
	}

	keys, err := h.manager.ListKeys(c.Request.Context(), key.UserID)
	if err != nil {
		apierr.Respond(c, apierr.Wrap(apierr.CodeInternal, "failed to list keys", err))
		return
	}

	// Don't expose hashes
	safeKeys := make([]gin.H, len(keys))
	for i, k := range keys {
		safeKeys[i] = gin.H{
			"id":        k.ID,
			"name":      k.Name,
			"createdAt": k.CreatedAt,
			"lastUsed":  k.LastUsed,
			"revoked":   k.Revoked,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"keys":  safeKeys,
		"count": len(safeKeys),
	})
}

// RevokeKey revokes an API key owned by the authenticated user
func (h *Handler) RevokeKey(c *gin.Context) {
	key, ok := GetAPIKey(c)
	if !ok {
		apierr.Respond(c, apierr.New(apierr.CodeAuthRequired, "API key required"))
		return
	}

	keyID := c.Param("keyId")

	// Prevent revoking current key
	if keyID == key.ID {
		apierr.Respond(c, apierr.New(apierr.CodeValidation, "cannot revoke the key you're using"))
		return
	}

	if err := h.manager.RevokeKey(c.Request.Context(), keyID, key.UserID); err != nil {
		apierr.Respond(c, apierr.New(apierr.CodeValidation, "key not found or already revoked"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Key revoked",
		"keyId":   keyID,
	})
}

// Whoami returns info about the authenticated identity
func (h *Handler) Whoami(c *gin.Context) {
	key, ok := GetAPIKey(c)
	if !ok {
		apierr.Respond(c, apierr.New(apierr.CodeAuthRequired, "API key required"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":    key.UserID,
		"keyId":     key.ID,
		"keyName":   key.Name,
		"createdAt": key.CreatedAt,
		"lastUsed":  key.LastUsed,
	})
}
