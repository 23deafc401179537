package bot

import (
	"context"
	"fmt"
	"modhelper/model"
	"modhelper/utils"
	"os"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// Gateway posts messages through a discordgo session.
type Gateway struct {
	session *discordgo.Session
}

func NewGateway(s *discordgo.Session) *Gateway {
	return &Gateway{session: s}
}

// SendMessage posts msg to channelID. Attachment files that no longer exist are skipped.
func (g *Gateway) SendMessage(ctx context.Context, channelID string, msg model.OutgoingMessage) (string, error) {
	data := &discordgo.MessageSend{Content: msg.Content}
	if msg.Embed != nil {
		data.Embeds = []*discordgo.MessageEmbed{msg.Embed}
	}
	if msg.SuppressMentions {
		data.AllowedMentions = &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}}
	}

	for _, path := range msg.Files {
		f, err := os.Open(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("skipping missing attachment")
			continue
		}
		defer f.Close()
		data.Files = append(data.Files, &discordgo.File{
			Name:   utils.OriginalFileName(path),
			Reader: f,
		})
	}

	if data.Content == "" && len(data.Embeds) == 0 && len(data.Files) == 0 {
		return "", fmt.Errorf("nothing to send to channel %s", channelID)
	}

	m, err := g.session.ChannelMessageSendComplex(channelID, data, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return m.ID, nil
}
