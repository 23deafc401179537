package utils

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	userMentionRe    = regexp.MustCompile(`^<@!?(\d+)>$`)
	channelMentionRe = regexp.MustCompile(`^<#(\d+)>$`)
	roleMentionRe    = regexp.MustCompile(`^<@&(\d+)>$`)
	anyMentionRe     = regexp.MustCompile(`<(@[!&]?|#)(\d+)>|@(everyone|here)`)
	customEmojiRe    = regexp.MustCompile(`^<a?:(\w+):(\d+)>$`)
)

// ParseUserMention returns the user id of a "<@id>" or "<@!id>" token.
func ParseUserMention(token string) (string, bool) {
	m := userMentionRe.FindStringSubmatch(token)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ParseChannelMention returns the channel id of a "<#id>" token.
func ParseChannelMention(token string) (string, bool) {
	m := channelMentionRe.FindStringSubmatch(token)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ParseRoleMention returns the role id of a "<@&id>" token.
func ParseRoleMention(token string) (string, bool) {
	m := roleMentionRe.FindStringSubmatch(token)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// CleanMentions rewrites mentions so they render but never ping.
func CleanMentions(s string) string {
	return anyMentionRe.ReplaceAllStringFunc(s, func(m string) string {
		if strings.HasPrefix(m, "@") {
			return "@\u200b" + m[1:]
		}
		return "<\u200b" + m[1:]
	})
}

// QuoteContent prefixes every line of s with a markdown quote marker.
func QuoteContent(s string) string {
	s = strings.ReplaceAll(s, "\n> ", "\n")
	return "> " + strings.ReplaceAll(s, "\n", "\n> ")
}

// ParseEmoji turns a token into the form the reaction endpoints expect: "name:id" for a
// custom emoji, the token itself for a unicode one.
func ParseEmoji(token string) (string, bool) {
	if m := customEmojiRe.FindStringSubmatch(token); m != nil {
		return m[1] + ":" + m[2], true
	}
	for _, r := range token {
		if r > unicode.MaxASCII {
			return token, true
		}
	}
	return "", false
}
