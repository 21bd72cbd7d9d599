// Package generation implements the content generation pipeline: validate,
// gate, resolve voice, generate per platform, persist, respond.
//
// A request either yields output for every requested platform or fails as a
// whole. Partial per-platform output is never returned and never persisted.
package generation

import (
	"context"
	"errors"
	"time"

	"github.com/mbd888/postforge/internal/platform"
)

// Errors
var (
	ErrNotFound = errors.New("generation: record not found")
)

// Sources
const (
	SourceSimple = "simple"
	SourceBlog   = "blog"
)

// Record is one persisted generation result. Created exactly once per
// successful request, never mutated.
type Record struct {
	ID        string                       `json:"id"`
	UserID    string                       `json:"-"`
	Source    string                       `json:"source"`
	Topic     string                       `json:"topic,omitempty"`
	Content   string                       `json:"content"`
	Tone      string                       `json:"tone,omitempty"`
	Platforms []platform.Platform          `json:"platforms"` // request order
	Outputs   map[platform.Platform]string `json:"outputs"`
	CreatedAt time.Time                    `json:"createdAt"`
}

// Store persists generation records.
type Store interface {
	Create(ctx context.Context, r *Record) error
	Get(ctx context.Context, userID, id string) (*Record, error)
	// List returns records for a user, newest first, up to limit. A cursor
	// from a previous page resumes after that record.
	List(ctx context.Context, userID string, limit int, cursor string) ([]*Record, string, error)
}
