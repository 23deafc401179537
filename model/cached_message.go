package model

import (
	"time"

	"github.com/bwmarrin/discordgo"
)

// CachedMessage is a snapshot of a deleted message kept for restoring.
type CachedMessage struct {
	ChannelID string                  `json:"channel"`
	AuthorID  string                  `json:"author"`
	Time      int64                   `json:"time"`
	Content   string                  `json:"content"`
	Embed     *discordgo.MessageEmbed `json:"embed,omitempty"`
	Files     []string                `json:"files"`
}

// CreatedAt returns the creation time of the original message.
func (m *CachedMessage) CreatedAt() time.Time {
	return time.Unix(m.Time, 0).UTC()
}
