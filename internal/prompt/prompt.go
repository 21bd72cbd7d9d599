// Package prompt builds platform-specific prompts for the provider router.
//
// A prompt is assembled from the request content, the target platform's
// style rules, and an optional brand-voice constraint block. Prompts always
// demand a strict single-key JSON object so the output validator can parse
// the response deterministically.
package prompt

import (
	"fmt"
	"strings"

	"github.com/mbd888/postforge/internal/brandvoice"
	"github.com/mbd888/postforge/internal/platform"
)

// Request carries the content the prompt is built from. Exactly one of
// (Topic, Content) or BlogSummary is populated depending on the mode.
type Request struct {
	Topic      string
	Content    string
	Tone       string
	KeyMessage string

	// BlogSummary is set in blog mode after the preprocessing step.
	BlogSummary *BlogSummary
}

// BlogSummary is the intermediate result of the blog preprocessing call.
type BlogSummary struct {
	MainTopic      string   `json:"mainTopic"`
	KeyTakeaways   []string `json:"keyTakeaways"`
	TargetAudience string   `json:"targetAudience"`
	Tone           string   `json:"tone"`
	CTA            string   `json:"cta"`
}

// Builder turns a request, platform rules, and an optional voice into a
// single text prompt. Implementations must be pure: same inputs, same prompt.
type Builder interface {
	Build(req Request, p platform.Platform, voice *brandvoice.Voice) string
}

// DefaultBuilder is the standard prompt builder.
type DefaultBuilder struct{}

// NewBuilder creates the default prompt builder.
func NewBuilder() *DefaultBuilder {
	return &DefaultBuilder{}
}

// Build assembles a single-platform prompt. Single-platform by design: one
// platform's output must never depend on another platform's wording.
func (b *DefaultBuilder) Build(req Request, p platform.Platform, voice *brandvoice.Voice) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are a social media copywriter. Write one %s post.\n\n", p)

	if req.BlogSummary != nil {
		s := req.BlogSummary
		fmt.Fprintf(&sb, "The post promotes a blog article.\nMain topic: %s\n", s.MainTopic)
		if len(s.KeyTakeaways) > 0 {
			sb.WriteString("Key takeaways:\n")
			for _, kt := range s.KeyTakeaways {
				fmt.Fprintf(&sb, "- %s\n", kt)
			}
		}
		if s.TargetAudience != "" {
			fmt.Fprintf(&sb, "Target audience: %s\n", s.TargetAudience)
		}
		if s.Tone != "" {
			fmt.Fprintf(&sb, "Tone: %s\n", s.Tone)
		}
		if s.CTA != "" {
			fmt.Fprintf(&sb, "Call to action: %s\n", s.CTA)
		}
		if req.KeyMessage != "" {
			fmt.Fprintf(&sb, "The one message that must come through: %s\n", req.KeyMessage)
		}
	} else {
		fmt.Fprintf(&sb, "Topic: %s\nSource content: %s\nTone: %s\n", req.Topic, req.Content, req.Tone)
	}

	fmt.Fprintf(&sb, "\nPlatform rules for %s:\n%s\n", p, platform.StyleRules(p))

	if voice != nil {
		sb.WriteString("\n")
		sb.WriteString(VoiceBlock(voice))
	}

	fmt.Fprintf(&sb, "\nRespond with ONLY a JSON object of exactly this shape, no markdown fences, no commentary:\n{\"%s\": \"<the post text>\"}\n", p)

	return sb.String()
}

// VoiceBlock renders a brand voice as a prompt constraint block.
// Strictness is phrased as guidance weight rather than a bare number.
func VoiceBlock(v *brandvoice.Voice) string {
	var sb strings.Builder
	sb.WriteString("Brand voice constraints:\n")
	if v.Tone != "" {
		fmt.Fprintf(&sb, "- Tone: %s\n", v.Tone)
	}
	if v.SentenceStyle != "" {
		fmt.Fprintf(&sb, "- Sentence style: %s\n", v.SentenceStyle)
	}
	if len(v.Vocabulary) > 0 {
		fmt.Fprintf(&sb, "- Favour this vocabulary where natural: %s\n", strings.Join(v.Vocabulary, ", "))
	}
	for _, trait := range v.FormatTraits {
		fmt.Fprintf(&sb, "- Formatting: %s\n", trait)
	}
	switch {
	case v.Strictness >= 0.8:
		sb.WriteString("- Follow the brand voice exactly; do not deviate.\n")
	case v.Strictness >= 0.4:
		sb.WriteString("- Follow the brand voice closely, adapting only where the platform demands it.\n")
	default:
		sb.WriteString("- Treat the brand voice as loose inspiration.\n")
	}
	return sb.String()
}

// BuildBlogSummaryPrompt builds the preprocessing prompt that condenses raw
// blog content before per-platform generation.
func BuildBlogSummaryPrompt(blogContent, keyMessage string) string {
	var sb strings.Builder
	sb.WriteString("Summarise the following blog post for social media repurposing.\n\n")
	sb.WriteString(blogContent)
	sb.WriteString("\n\n")
	if keyMessage != "" {
		fmt.Fprintf(&sb, "The author's key message: %s\n\n", keyMessage)
	}
	sb.WriteString("Respond with ONLY a JSON object, no markdown fences:\n")
	sb.WriteString(`{"mainTopic": "...", "keyTakeaways": ["..."], "targetAudience": "...", "tone": "...", "cta": "..."}`)
	sb.WriteString("\n")
	return sb.String()
}

// BuildVoiceExtractionPrompt builds the prompt for extracting a brand voice
// profile from writing samples. The implementation lives in brandvoice to
// avoid an import cycle; this delegates to it unchanged.
func BuildVoiceExtractionPrompt(samples []string) string {
	return brandvoice.BuildVoiceExtractionPrompt(samples)
}
