// Package validation provides input validation helpers for the PostForge API.
package validation

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mbd888/postforge/internal/platform"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20 // 1MB

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// SanitizeString trims whitespace, limits length, and strips null bytes.
func SanitizeString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return strings.ReplaceAll(s, "\x00", "")
}

// ValidationError represents a single field violation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors. All violations in a
// request are collected and returned together, not just the first.
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Field + ": " + e[0].Message
}

// Validate runs every validator and collects the failures.
func Validate(validators ...func() *ValidationError) ValidationErrors {
	var errors ValidationErrors
	for _, v := range validators {
		if err := v(); err != nil {
			errors = append(errors, *err)
		}
	}
	return errors
}

// Required checks if a field is non-empty
func Required(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if strings.TrimSpace(value) == "" {
			return &ValidationError{Field: field, Message: "is required"}
		}
		return nil
	}
}

// Length checks a field's length against inclusive bounds. Empty values are
// skipped; use Required for required fields.
func Length(field, value string, min, max int) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil
		}
		if n := len(value); n < min || n > max {
			return &ValidationError{
				Field:   field,
				Message: fmt.Sprintf("must be %d to %d characters", min, max),
			}
		}
		return nil
	}
}

// MaxLength checks if a field exceeds max length
func MaxLength(field, value string, max int) func() *ValidationError {
	return func() *ValidationError {
		if len(value) > max {
			return &ValidationError{Field: field, Message: "exceeds maximum length"}
		}
		return nil
	}
}

// ValidUUID checks that a field is a well-formed UUID.
func ValidUUID(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil
		}
		if _, err := uuid.Parse(value); err != nil {
			return &ValidationError{Field: field, Message: "must be a valid UUID"}
		}
		return nil
	}
}

// ValidPlatforms checks a platform list: 1..5 entries, each a supported
// platform, no duplicates.
func ValidPlatforms(field string, values []string) func() *ValidationError {
	return func() *ValidationError {
		if len(values) == 0 {
			return &ValidationError{Field: field, Message: "at least one platform is required"}
		}
		if len(values) > len(platform.All) {
			return &ValidationError{
				Field:   field,
				Message: fmt.Sprintf("at most %d platforms per request", len(platform.All)),
			}
		}
		seen := make(map[string]bool, len(values))
		for _, v := range values {
			if !platform.Valid(platform.Platform(v)) {
				return &ValidationError{Field: field, Message: "unsupported platform: " + v}
			}
			if seen[v] {
				return &ValidationError{Field: field, Message: "duplicate platform: " + v}
			}
			seen[v] = true
		}
		return nil
	}
}
