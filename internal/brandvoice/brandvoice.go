// Package brandvoice manages saved style profiles that are injected into
// generation prompts. Voices are owned by a user and read-only to the
// generation pipeline.
package brandvoice

import (
	"context"
	"errors"
	"time"
)

// Errors
var (
	ErrNotFound = errors.New("brandvoice: not found")
)

// Voice is a saved style profile.
type Voice struct {
	ID            string    `json:"id"`
	UserID        string    `json:"-"`
	Name          string    `json:"name"`
	Tone          string    `json:"tone"`
	SentenceStyle string    `json:"sentenceStyle"`
	Vocabulary    []string  `json:"vocabulary"`
	Strictness    float64   `json:"strictness"` // 0..1, how hard the voice constrains output
	FormatTraits  []string  `json:"formatTraits,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Store persists brand voices. All lookups are scoped to the owning user;
// a voice belonging to another user is reported as not found, never leaked.
type Store interface {
	Create(ctx context.Context, v *Voice) error
	Get(ctx context.Context, userID, id string) (*Voice, error)
	List(ctx context.Context, userID string) ([]*Voice, error)
	Delete(ctx context.Context, userID, id string) error
}
