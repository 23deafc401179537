package handlers

import (
	"context"
	"errors"
	"fmt"
	"modhelper/bot"
	"modhelper/cache"
	"modhelper/commands"
	"modhelper/model"
	"modhelper/utils"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

const (
	// Discord refuses to bulk delete messages older than two weeks.
	bulkDeleteMaxAge = 14 * 24 * time.Hour
	bulkDeleteLimit  = 100
	historyLimit     = 100
)

func deleteCommand(b *bot.Bot) *commands.Command {
	return &commands.Command{
		Name:        "delete",
		Aliases:     []string{"del"},
		Usage:       "delete [@users]... [#channel] [num=1] [skip=0]",
		Description: "Deletes num messages from the users in a channel after skipping skip of them.",
		ModOnly:     true,
		Bind: func(a *commands.Args, _ time.Time) (commands.Runner, error) {
			users := a.Users()
			channel := a.Channel()
			num, skip := a.Int(1), a.Int(0)
			if num <= 0 {
				return nil, errors.New("num must be a positive number")
			}
			if skip < 0 {
				return nil, errors.New("skip must not be negative")
			}
			return func(c *commands.Context) error {
				return runDelete(b, c, users, channel, num, skip)
			}, nil
		},
		Subcommands: []*commands.Command{
			{
				Name:        "restore",
				Usage:       "delete restore [@users]... [#channels]... [num=1] [skip=0]",
				Description: "Restores cached deleted messages into this channel.",
				ModOnly:     true,
				Bind: func(a *commands.Args, _ time.Time) (commands.Runner, error) {
					f := cache.Filter{Authors: a.Users(), Channels: a.Channels()}
					num, skip := a.Int(1), a.Int(0)
					if num <= 0 {
						return nil, errors.New("num must be a positive number")
					}
					if skip < 0 {
						return nil, errors.New("skip must not be negative")
					}
					return func(c *commands.Context) error {
						return runRestore(b, c, f, num, skip)
					}, nil
				},
			},
			{
				Name:        "cache",
				Aliases:     []string{"list"},
				Usage:       "delete cache",
				Description: "Shows the cache of deleted messages.",
				ModOnly:     true,
				Bind: func(*commands.Args, time.Time) (commands.Runner, error) {
					return func(c *commands.Context) error {
						return runCacheList(b, c)
					}, nil
				},
			},
		},
	}
}

// selectMessages picks, newest first, num messages written by one of users after skipping the
// first skip matches. The command message itself never matches.
func selectMessages(history []*discordgo.Message, commandID string, users []string, num, skip int) []*discordgo.Message {
	var picked []*discordgo.Message
	count := 0
	for _, m := range history {
		if len(picked) >= num {
			break
		}
		if m.ID == commandID {
			continue
		}
		if len(users) > 0 && (m.Author == nil || !slices.Contains(users, m.Author.ID)) {
			continue
		}
		count++
		if count > skip {
			picked = append(picked, m)
		}
	}
	return picked
}

// splitByAge separates messages that can be bulk deleted from those that are too old.
func splitByAge(msgs []*discordgo.Message, now time.Time) (bulk, single []string) {
	cutoff := now.Add(-bulkDeleteMaxAge)
	for _, m := range msgs {
		created, err := discordgo.SnowflakeTimestamp(m.ID)
		if err != nil || created.Before(cutoff) {
			single = append(single, m.ID)
			continue
		}
		bulk = append(bulk, m.ID)
	}
	return bulk, single
}

func toCachedMessage(m *discordgo.Message, files []string) *model.CachedMessage {
	cm := &model.CachedMessage{
		ChannelID: m.ChannelID,
		Time:      m.Timestamp.Unix(),
		Content:   m.Content,
		Files:     files,
	}
	if cm.Files == nil {
		cm.Files = []string{}
	}
	if m.Author != nil {
		cm.AuthorID = m.Author.ID
	}
	if len(m.Embeds) > 0 {
		cm.Embed = m.Embeds[0]
	}
	return cm
}

func cacheDeleted(ctx context.Context, b *bot.Bot, guildID string, m *discordgo.Message) {
	if !b.Cache.Accepts(guildID, m.Timestamp.Unix()) {
		return
	}
	dir := utils.GuildAttachmentDir(b.Config.AttachmentDir(), guildID)
	files := utils.DownloadAttachments(ctx, m.Attachments, dir)
	b.Cache.Insert(guildID, toCachedMessage(m, files))
}

func smartDelete(ctx context.Context, s *discordgo.Session, channelID string, msgs []*discordgo.Message) error {
	bulk, single := splitByAge(msgs, time.Now())
	var errs []error
	for _, id := range single {
		if err := s.ChannelMessageDelete(channelID, id, discordgo.WithContext(ctx)); err != nil {
			errs = append(errs, err)
		}
	}
	for i := 0; i < len(bulk); i += bulkDeleteLimit {
		end := min(i+bulkDeleteLimit, len(bulk))
		chunk := bulk[i:end:end]
		if err := s.ChannelMessagesBulkDelete(channelID, chunk, discordgo.WithContext(ctx)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func runDelete(b *bot.Bot, c *commands.Context, users []string, channelID string, num, skip int) error {
	if channelID == "" {
		channelID = c.ChannelID
	}
	history, err := c.Session.ChannelMessages(channelID, historyLimit, "", "", "", discordgo.WithContext(c.Ctx))
	if err != nil {
		return fmt.Errorf("failed to read history of %s: %w", channelID, err)
	}

	picked := selectMessages(history, c.MessageID, users, num, skip)
	for _, m := range picked {
		cacheDeleted(c.Ctx, b, c.GuildID, m)
	}
	if err := smartDelete(c.Ctx, c.Session, channelID, picked); err != nil {
		log.Warn().Err(err).Str("channel", channelID).Msg("some messages could not be deleted")
	}

	utils.LogMod(c.Session, b.LogChannel(c.GuildID), "Messages have been deleted", []utils.LogField{
		{Name: "User", Value: invokedBy(c)},
		{Name: "Author(s)", Value: mentions(users)},
		{Name: "Channel", Value: "<#" + channelID + ">"},
		{Name: "Deleted", Value: fmt.Sprintf("%d message(s)", len(picked))},
	}, c.Now)
	if len(picked) == 0 {
		utils.SendTempMessage(c.Session, c.ChannelID, "Could not delete message(s).", utils.TempMessageLifetime)
	}
	utils.DeleteCommandMessage(c.Session, c.ChannelID, c.MessageID)
	return nil
}

// restoredMessage is what a cached entry looks like once posted back.
func restoredMessage(m *model.CachedMessage) model.OutgoingMessage {
	header := fmt.Sprintf("Message from <@%s> in <#%s> at %s:", m.AuthorID, m.ChannelID, utils.FormatTime(m.CreatedAt()))
	content := header
	if m.Content != "" {
		content += "\n" + utils.QuoteContent(m.Content)
	}
	return model.OutgoingMessage{
		Content:          utils.Truncate(content, 2000),
		Embed:            m.Embed,
		Files:            m.Files,
		SuppressMentions: true,
	}
}

func runRestore(b *bot.Bot, c *commands.Context, f cache.Filter, num, skip int) error {
	if b.Cache.Len(c.GuildID) == 0 {
		utils.SendTempMessage(c.Session, c.ChannelID, "Sorry, but no deleted message is found.", utils.TempMessageLifetime)
		utils.DeleteCommandMessage(c.Session, c.ChannelID, c.MessageID)
		return nil
	}

	selection := b.Cache.Select(c.GuildID, f, skip, num)
	replay := func(ctx context.Context, m *model.CachedMessage) error {
		if err := b.RestoreLimiter.Wait(ctx); err != nil {
			return err
		}
		_, err := b.Gateway.SendMessage(ctx, c.ChannelID, restoredMessage(m))
		return err
	}

	restored := 0
	// oldest first so the restored messages read in their original order
	for i := len(selection) - 1; i >= 0; i-- {
		if err := b.Cache.Restore(c.Ctx, c.GuildID, selection[i], replay); err != nil {
			log.Warn().Err(err).Str("guild", c.GuildID).Msg("failed to restore message")
			continue
		}
		restored++
	}

	utils.LogMod(c.Session, b.LogChannel(c.GuildID), "Messages have been restored", []utils.LogField{
		{Name: "User", Value: invokedBy(c)},
		{Name: "Author(s)", Value: mentions(f.Authors)},
		{Name: "From Channel(s)", Value: channelMentions(f.Channels)},
		{Name: "To Channel", Value: "<#" + c.ChannelID + ">"},
		{Name: "Restored", Value: fmt.Sprintf("%d message(s)", restored)},
	}, c.Now)
	if restored == 0 {
		utils.SendTempMessage(c.Session, c.ChannelID, "Could not restore message(s).", utils.TempMessageLifetime)
	}
	utils.DeleteCommandMessage(c.Session, c.ChannelID, c.MessageID)
	return nil
}

func cacheListEmbed(entries []*model.CachedMessage, ts time.Time) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:     "Cache of Deletes",
		Color:     0x2ecc71,
		Timestamp: ts.UTC().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: "DELETE CACHE"},
	}
	for i, m := range entries {
		if i == 25 {
			break
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "Channel: <#%s>\nAuthor: <@%s>\nTime: %s\n", m.ChannelID, m.AuthorID, utils.FormatTime(m.CreatedAt()))
		if m.Content != "" {
			fmt.Fprintf(&sb, "Content length: %d\n", len([]rune(m.Content)))
		}
		if m.Embed != nil {
			sb.WriteString("Embed: yes\n")
		}
		if len(m.Files) > 0 {
			fmt.Fprintf(&sb, "Files: %d file(s)\n", len(m.Files))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("Cache %d:", i+1),
			Value:  sb.String(),
			Inline: true,
		})
	}
	return embed
}

func runCacheList(b *bot.Bot, c *commands.Context) error {
	entries := b.Cache.List(c.GuildID)
	if len(entries) == 0 {
		utils.SendTempMessage(c.Session, c.ChannelID, "Sorry, but no deleted message is found.", utils.TempMessageLifetime)
		utils.DeleteCommandMessage(c.Session, c.ChannelID, c.MessageID)
		return nil
	}
	utils.SendEmbed(c.Session, c.ChannelID, cacheListEmbed(entries, c.Now))
	return nil
}

func mention(userID string) string {
	return "<@" + userID + ">"
}

// invokedBy names the command's author in mod logs, marking replays of scheduled commands.
func invokedBy(c *commands.Context) string {
	if c.Scheduled {
		return mention(c.AuthorID) + " (scheduled)"
	}
	return mention(c.AuthorID)
}

func mentions(userIDs []string) string {
	parts := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		parts = append(parts, mention(id))
	}
	return strings.Join(parts, "\n")
}

func channelMentions(channelIDs []string) string {
	parts := make([]string, 0, len(channelIDs))
	for _, id := range channelIDs {
		parts = append(parts, "<#"+id+">")
	}
	return strings.Join(parts, "\n")
}
