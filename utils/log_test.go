package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab...", Truncate("abcdef", 5))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
	assert.Equal(t, "日本...", Truncate("日本語のテキスト", 5))
}

func TestBuildLogEmbed(t *testing.T) {
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	embed := BuildLogEmbed(Warn, "title", "desc", []LogField{
		{Name: "User", Value: "<@1>"},
		{Name: "Empty", Value: ""},
		{Name: "Long", Value: strings.Repeat("x", 2000)},
	}, ts)

	assert.Equal(t, "title", embed.Title)
	assert.Equal(t, "desc", embed.Description)
	assert.Equal(t, 15105570, embed.Color)
	assert.Equal(t, "2024-06-01T12:00:00Z", embed.Timestamp)
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "User", embed.Fields[0].Name)
	assert.Len(t, embed.Fields[1].Value, maxFieldValue)
}

func TestSendLogWithoutChannel(t *testing.T) {
	// no log channel configured means nothing is posted and nothing fails
	assert.NoError(t, sendLog(nil, "", nil))
}
