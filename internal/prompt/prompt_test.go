package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mbd888/postforge/internal/brandvoice"
	"github.com/mbd888/postforge/internal/platform"
)

func TestBuildSimpleMode(t *testing.T) {
	b := NewBuilder()
	req := Request{Topic: "Go 1.25 release", Content: "New GC knobs", Tone: "casual"}

	got := b.Build(req, platform.Twitter, nil)

	assert.Contains(t, got, "Go 1.25 release")
	assert.Contains(t, got, "New GC knobs")
	assert.Contains(t, got, "casual")
	assert.Contains(t, got, platform.StyleRules(platform.Twitter))
	assert.Contains(t, got, `{"twitter": `)
	assert.NotContains(t, got, "Brand voice")
}

func TestBuildIsSinglePlatform(t *testing.T) {
	b := NewBuilder()
	req := Request{Topic: "t", Content: "c", Tone: "neutral"}

	got := b.Build(req, platform.Reddit, nil)

	// The prompt must only mention the target platform's key.
	assert.Contains(t, got, `{"reddit": `)
	assert.NotContains(t, got, `{"twitter"`)
}

func TestBuildBlogMode(t *testing.T) {
	b := NewBuilder()
	req := Request{
		KeyMessage: "ship it",
		BlogSummary: &BlogSummary{
			MainTopic:      "API design",
			KeyTakeaways:   []string{"keep it small", "version carefully"},
			TargetAudience: "backend engineers",
			Tone:           "direct",
			CTA:            "read the full post",
		},
	}

	got := b.Build(req, platform.Threads, nil)

	assert.Contains(t, got, "API design")
	assert.Contains(t, got, "keep it small")
	assert.Contains(t, got, "backend engineers")
	assert.Contains(t, got, "ship it")
}

func TestVoiceBlockStrictness(t *testing.T) {
	strict := &brandvoice.Voice{Tone: "dry", Strictness: 0.9}
	loose := &brandvoice.Voice{Tone: "dry", Strictness: 0.1}

	assert.Contains(t, VoiceBlock(strict), "exactly")
	assert.Contains(t, VoiceBlock(loose), "inspiration")
}

func TestBuildWithVoice(t *testing.T) {
	b := NewBuilder()
	voice := &brandvoice.Voice{
		Tone:          "wry",
		SentenceStyle: "short declaratives",
		Vocabulary:    []string{"pragmatic", "boring tech"},
		Strictness:    0.5,
		FormatTraits:  []string{"no exclamation marks"},
	}

	got := b.Build(Request{Topic: "t", Content: "c", Tone: "x"}, platform.Instagram, voice)

	assert.Contains(t, got, "wry")
	assert.Contains(t, got, "short declaratives")
	assert.Contains(t, got, "boring tech")
	assert.Contains(t, got, "no exclamation marks")
}

func TestBuildIsPure(t *testing.T) {
	b := NewBuilder()
	req := Request{Topic: "t", Content: "c", Tone: "x"}

	assert.Equal(t, b.Build(req, platform.Twitter, nil), b.Build(req, platform.Twitter, nil))
}

func TestBlogSummaryPrompt(t *testing.T) {
	got := BuildBlogSummaryPrompt("long blog text", "main point")
	assert.Contains(t, got, "long blog text")
	assert.Contains(t, got, "main point")
	assert.Contains(t, got, "mainTopic")
}
