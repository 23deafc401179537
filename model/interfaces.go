package model

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// OutgoingMessage is a message the bot posts on behalf of a task or a restore.
type OutgoingMessage struct {
	Content string
	Embed   *discordgo.MessageEmbed
	Files   []string
	// SuppressMentions renders mentions without notifying anyone.
	SuppressMentions bool
}

// Gateway posts messages to a channel and returns the id of the created message.
type Gateway interface {
	SendMessage(ctx context.Context, channelID string, msg OutgoingMessage) (string, error)
}

// Invocation is a reconstructed command context: who typed what, where.
type Invocation struct {
	GuildID   string
	ChannelID string
	AuthorID  string
	MessageID string
	Content   string
}

// Dispatcher validates and re-invokes raw command text.
type Dispatcher interface {
	Validate(guildID, content string) error
	Dispatch(ctx context.Context, inv Invocation) error
}

// SettingsProvider provides per-guild settings to the core.
type SettingsProvider interface {
	CacheCapacity(guildID string) int
}
