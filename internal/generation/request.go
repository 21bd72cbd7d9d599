package generation

import (
	"github.com/mbd888/postforge/internal/platform"
	"github.com/mbd888/postforge/internal/validation"
)

// Field bounds for the request body.
const (
	MaxTopicLen      = 200
	MaxContentLen    = 3000
	MaxToneLen       = 50
	MaxBlogLen       = 10000
	MaxKeyMessageLen = 500
)

// Request is the tagged union accepted by POST /v1/generate. Type selects
// which field set applies; the unused fields must be empty.
type Request struct {
	Type string `json:"type"` // "simple" or "blog"

	// Simple mode
	Topic   string `json:"topic,omitempty"`
	Content string `json:"content,omitempty"`
	Tone    string `json:"tone,omitempty"`

	// Blog mode
	BlogContent string `json:"blogContent,omitempty"`
	KeyMessage  string `json:"keyMessage,omitempty"`

	Platforms    []string `json:"platforms"`
	BrandVoiceID string   `json:"brandVoiceId,omitempty"`
}

// Validate checks the request against the mode's field bounds. Every
// violation is collected, not just the first.
func (r *Request) Validate() validation.ValidationErrors {
	switch r.Type {
	case SourceSimple:
		return validation.Validate(
			validation.Required("topic", r.Topic),
			validation.Length("topic", r.Topic, 1, MaxTopicLen),
			validation.Required("content", r.Content),
			validation.Length("content", r.Content, 1, MaxContentLen),
			validation.Required("tone", r.Tone),
			validation.Length("tone", r.Tone, 1, MaxToneLen),
			validation.ValidPlatforms("platforms", r.Platforms),
			validation.ValidUUID("brandVoiceId", r.BrandVoiceID),
			rejectField("blogContent", r.BlogContent),
			rejectField("keyMessage", r.KeyMessage),
		)
	case SourceBlog:
		return validation.Validate(
			validation.Required("blogContent", r.BlogContent),
			validation.Length("blogContent", r.BlogContent, 1, MaxBlogLen),
			validation.MaxLength("keyMessage", r.KeyMessage, MaxKeyMessageLen),
			validation.ValidPlatforms("platforms", r.Platforms),
			validation.ValidUUID("brandVoiceId", r.BrandVoiceID),
			rejectField("topic", r.Topic),
			rejectField("content", r.Content),
			rejectField("tone", r.Tone),
		)
	default:
		return validation.ValidationErrors{
			{Field: "type", Message: `must be "simple" or "blog"`},
		}
	}
}

// PlatformList converts the validated platform strings, preserving request
// order.
func (r *Request) PlatformList() []platform.Platform {
	out := make([]platform.Platform, len(r.Platforms))
	for i, p := range r.Platforms {
		out[i] = platform.Platform(p)
	}
	return out
}

// rejectField flags a field that does not belong to the selected mode.
func rejectField(field, value string) func() *validation.ValidationError {
	return func() *validation.ValidationError {
		if value != "" {
			return &validation.ValidationError{Field: field, Message: "not allowed in this mode"}
		}
		return nil
	}
}
