package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMentions(t *testing.T) {
	id, ok := ParseUserMention("<@123>")
	assert.True(t, ok)
	assert.Equal(t, "123", id)

	id, ok = ParseUserMention("<@!456>")
	assert.True(t, ok)
	assert.Equal(t, "456", id)

	_, ok = ParseUserMention("<@&789>")
	assert.False(t, ok)

	id, ok = ParseChannelMention("<#42>")
	assert.True(t, ok)
	assert.Equal(t, "42", id)

	id, ok = ParseRoleMention("<@&789>")
	assert.True(t, ok)
	assert.Equal(t, "789", id)

	_, ok = ParseChannelMention("#42")
	assert.False(t, ok)
}

func TestCleanMentions(t *testing.T) {
	got := CleanMentions("hi <@1> in <#2> with <@&3>, @here and @everyone")
	assert.Equal(t, "hi <\u200b@1> in <\u200b#2> with <\u200b@&3>, @\u200bhere and @\u200beveryone", got)
	assert.Equal(t, "plain text", CleanMentions("plain text"))
}

func TestQuoteContent(t *testing.T) {
	assert.Equal(t, "> one", QuoteContent("one"))
	assert.Equal(t, "> one\n> two", QuoteContent("one\ntwo"))
	assert.Equal(t, "> one\n> two", QuoteContent("one\n> two"))
}

func TestParseEmoji(t *testing.T) {
	e, ok := ParseEmoji("<:party:123>")
	assert.True(t, ok)
	assert.Equal(t, "party:123", e)

	e, ok = ParseEmoji("<a:dance:456>")
	assert.True(t, ok)
	assert.Equal(t, "dance:456", e)

	e, ok = ParseEmoji("👍")
	assert.True(t, ok)
	assert.Equal(t, "👍", e)

	for _, in := range []string{"", "thumbsup", "3", "<:broken>"} {
		_, ok = ParseEmoji(in)
		assert.False(t, ok, in)
	}
}
