package model

import "github.com/bwmarrin/discordgo"

// Task kinds as persisted.
const (
	TaskKindMessage = "message"
	TaskKindCommand = "command"
)

// TaskRecord is the persisted form of a scheduled task.
type TaskRecord struct {
	Kind          string                  `json:"kind"`
	AuthorID      string                  `json:"author"`
	ChannelID     string                  `json:"channel"`
	Time          int64                   `json:"time"`
	Content       string                  `json:"content"`
	Embed         *discordgo.MessageEmbed `json:"embed,omitempty"`
	Files         []string                `json:"files"`
	OriginMessage string                  `json:"origin_message,omitempty"`
}
