// Package output validates and parses structured model output.
//
// Providers are instructed to answer with a JSON object keyed by platform.
// Parse enforces that contract strictly: the raw text must be valid JSON and
// every expected platform key must map to a non-empty string.
package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mbd888/postforge/internal/platform"
)

// ParseError describes a failed validation of raw model output.
// Raw carries the offending text for diagnosability.
type ParseError struct {
	Platform platform.Platform
	Reason   string
	Raw      string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	raw := e.Raw
	if len(raw) > 500 {
		raw = raw[:500] + "..."
	}
	if e.Platform != "" {
		return fmt.Sprintf("invalid model output for %s: %s (raw: %q)", e.Platform, e.Reason, raw)
	}
	return fmt.Sprintf("invalid model output: %s (raw: %q)", e.Reason, raw)
}

// Parse extracts per-platform text from raw model output. Every expected
// key must be present with non-empty (post-trim) string content.
func Parse(raw string, expected []platform.Platform) (map[platform.Platform]string, error) {
	cleaned := StripFences(raw)

	var parsed map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, &ParseError{Reason: "not a JSON object: " + err.Error(), Raw: raw}
	}

	out := make(map[platform.Platform]string, len(expected))
	for _, p := range expected {
		val, ok := parsed[string(p)]
		if !ok {
			return nil, &ParseError{Platform: p, Reason: "missing platform key", Raw: raw}
		}
		var text string
		if err := json.Unmarshal(val, &text); err != nil {
			return nil, &ParseError{Platform: p, Reason: "value is not a string", Raw: raw}
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, &ParseError{Platform: p, Reason: "empty content", Raw: raw}
		}
		out[p] = text
	}
	return out, nil
}

// StripFences removes a surrounding markdown code fence, which models add
// despite instructions not to.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
