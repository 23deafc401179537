package handlers

import (
	"errors"
	"fmt"
	"modhelper/bot"
	"modhelper/commands"
	"modhelper/model"
	"modhelper/utils"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

func Register(b *bot.Bot) {
	b.Router.Register(
		deleteCommand(b),
		announceCommand(b),
		moveCommand(b),
		editCommand(b),
		reactCommand(b),
		scheduleCommand(b),
		remindCommand(b),
		setCommand(b),
		statusCommand(b),
		helpCommand(b),
	)
	addHandlers(b)
}

func addHandlers(b *bot.Bot) {
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Info().Msgf("Logged in as: %v#%v", r.User.Username, r.User.Discriminator)
	})
	b.Session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		handleMessage(b, m)
	})
}

func handleMessage(b *bot.Bot, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	if !b.Router.HasPrefix(m.Content) {
		return
	}

	inv := model.Invocation{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		AuthorID:  m.Author.ID,
		MessageID: m.ID,
		Content:   m.Content,
	}
	if err := b.Execute(b.Context(), inv, m.Attachments, false); err != nil {
		replyError(b, inv, err)
	}
}

// replyError turns a command failure into the message shown to its author.
func replyError(b *bot.Bot, inv model.Invocation, err error) {
	mention := "<@" + inv.AuthorID + ">"

	var usage *commands.UsageError
	var restErr *discordgo.RESTError
	switch {
	case errors.Is(err, commands.ErrUnknownCommand):
		return
	case errors.Is(err, commands.ErrNoPermission):
		utils.SendReply(b.Session, inv.ChannelID, fmt.Sprintf("Sorry %s, but you do not have permission to use this command!", mention))
	case errors.As(err, &usage):
		utils.SendReply(b.Session, inv.ChannelID, fmt.Sprintf("Sorry %s, but I could not understand the arguments passed to `%s%s`: %v",
			mention, b.Router.Prefix(), usage.Command, usage.Err))
	case errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden:
		utils.SendReply(b.Session, inv.ChannelID, fmt.Sprintf("Sorry %s, but I do not have permission to do that in the specified channel.", mention))
	default:
		log.Error().Err(err).Str("guild", inv.GuildID).Str("command", inv.Content).Msg("command failed")
		utils.SendReply(b.Session, inv.ChannelID, fmt.Sprintf("Sorry %s, but something unexpected happened...", mention))
		utils.LogError(b.Session, b.LogChannel(inv.GuildID), "Commands", inv.Content, err.Error())
	}
}
