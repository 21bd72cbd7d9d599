package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbd888/postforge/internal/platform"
)

func TestParseSingleKey(t *testing.T) {
	got, err := Parse(`{"twitter": "hello"}`, []platform.Platform{platform.Twitter})
	require.NoError(t, err)
	assert.Equal(t, "hello", got[platform.Twitter])
}

func TestParseRejectsEmptyString(t *testing.T) {
	_, err := Parse(`{"twitter": ""}`, []platform.Platform{platform.Twitter})
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, platform.Twitter, pe.Platform)
	assert.Contains(t, err.Error(), "twitter")
}

func TestParseRejectsWhitespaceOnly(t *testing.T) {
	_, err := Parse(`{"reddit": "   \n "}`, []platform.Platform{platform.Reddit})
	require.Error(t, err)
}

func TestParseRejectsMissingKey(t *testing.T) {
	_, err := Parse(`{"twitter": "hi"}`, []platform.Platform{platform.Reddit})
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "missing platform key", pe.Reason)
}

func TestParseRejectsNonJSON(t *testing.T) {
	_, err := Parse("Sure! Here is your post: hello world", []platform.Platform{platform.Twitter})
	require.Error(t, err)
	// Raw text is echoed for diagnosability.
	assert.Contains(t, err.Error(), "hello world")
}

func TestParseRejectsNonStringValue(t *testing.T) {
	_, err := Parse(`{"twitter": {"text": "hi"}}`, []platform.Platform{platform.Twitter})
	require.Error(t, err)
}

func TestParseStripsCodeFences(t *testing.T) {
	raw := "```json\n{\"threads\": \"short and casual\"}\n```"
	got, err := Parse(raw, []platform.Platform{platform.Threads})
	require.NoError(t, err)
	assert.Equal(t, "short and casual", got[platform.Threads])
}

func TestParseMultipleKeys(t *testing.T) {
	raw := `{"twitter": "tw", "reddit": "rd", "pinterest": "pin"}`
	expected := []platform.Platform{platform.Twitter, platform.Reddit, platform.Pinterest}

	got, err := Parse(raw, expected)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, "rd", got[platform.Reddit])
}

func TestParseTruncatesLongRawInError(t *testing.T) {
	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	_, err := Parse(string(long), []platform.Platform{platform.Twitter})
	require.Error(t, err)
	assert.Less(t, len(err.Error()), 700)
}
