// Package platform defines the supported social platforms and the static
// routing table that maps each platform to its preferred AI provider, model,
// and style rules. Configuration data, not user data.
package platform

// Platform is a target social network.
type Platform string

const (
	Twitter   Platform = "twitter"
	Instagram Platform = "instagram"
	Reddit    Platform = "reddit"
	Threads   Platform = "threads"
	Pinterest Platform = "pinterest"
)

// All lists the supported platforms in a stable order.
var All = []Platform{Twitter, Instagram, Reddit, Threads, Pinterest}

// Valid returns true if p is a supported platform.
func Valid(p Platform) bool {
	_, ok := routes[p]
	return ok
}

// Route is a platform's preferred provider and model.
type Route struct {
	Provider string
	Model    string
}

// Provider names used in the routing table. They must match the Name()
// of the configured provider clients.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

var routes = map[Platform]Route{
	Twitter:   {Provider: ProviderOpenAI, Model: "gpt-4o"},
	Instagram: {Provider: ProviderGemini, Model: "gemini-1.5-pro"},
	Reddit:    {Provider: ProviderAnthropic, Model: "claude-3-5-sonnet-20241022"},
	Threads:   {Provider: ProviderOpenAI, Model: "gpt-4o-mini"},
	Pinterest: {Provider: ProviderGemini, Model: "gemini-1.5-flash"},
}

// RouteFor returns the preferred provider/model for a platform.
// ok is false for unknown platforms; callers then fall back to the
// default provider order.
func RouteFor(p Platform) (Route, bool) {
	r, ok := routes[p]
	return r, ok
}

// styleRules holds the per-platform prompt style constraints.
var styleRules = map[Platform]string{
	Twitter: "Maximum 280 characters. Punchy, conversational. At most two " +
		"hashtags. No links unless asked. Hook in the first line.",
	Instagram: "Caption of 3-6 short lines with line breaks. Warm, visual " +
		"language. End with 3-5 relevant hashtags and a light call to action.",
	Reddit: "Write like a community member, not a marketer. No hashtags, no " +
		"emoji. A clear title-style opener, then 2-4 honest paragraphs that " +
		"invite discussion.",
	Threads: "Under 500 characters. Casual and direct, like talking to " +
		"friends. One thought per post, an emoji or two is fine, no hashtags.",
	Pinterest: "A keyword-rich title under 100 characters, then a 2-3 " +
		"sentence description optimised for search. Aspirational tone, one " +
		"clear call to action.",
}

// StyleRules returns the prompt style constraints for a platform.
func StyleRules(p Platform) string {
	return styleRules[p]
}
