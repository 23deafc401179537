package utils

import (
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// TempMessageLifetime is how long confirmations stay visible.
const TempMessageLifetime = 10 * time.Second

// SendTempMessage posts content and deletes it after d.
func SendTempMessage(s *discordgo.Session, channelID, content string, d time.Duration) {
	msg, err := s.ChannelMessageSend(channelID, content)
	if err != nil {
		log.Warn().Err(err).Str("channel", channelID).Msg("error sending temporary message")
		return
	}
	time.AfterFunc(d, func() {
		if err := s.ChannelMessageDelete(channelID, msg.ID); err != nil {
			log.Debug().Err(err).Str("message", msg.ID).Msg("error deleting temporary message")
		}
	})
}

// SendReply posts a plain message that stays.
func SendReply(s *discordgo.Session, channelID, content string) {
	if _, err := s.ChannelMessageSend(channelID, content); err != nil {
		log.Warn().Err(err).Str("channel", channelID).Msg("error sending reply")
	}
}

// SendEmbed posts an embed that stays.
func SendEmbed(s *discordgo.Session, channelID string, embed *discordgo.MessageEmbed) {
	if _, err := s.ChannelMessageSendEmbed(channelID, embed); err != nil {
		log.Warn().Err(err).Str("channel", channelID).Msg("error sending embed")
	}
}

// DeleteCommandMessage removes the message that invoked a command.
func DeleteCommandMessage(s *discordgo.Session, channelID, messageID string) {
	if messageID == "" {
		return
	}
	if err := s.ChannelMessageDelete(channelID, messageID); err != nil {
		log.Debug().Err(err).Str("message", messageID).Msg("error deleting command message")
	}
}
