package handlers

import (
	"errors"
	"fmt"
	"modhelper/bot"
	"modhelper/commands"
	"modhelper/model"
	"modhelper/utils"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

func announceCommand(b *bot.Bot) *commands.Command {
	return &commands.Command{
		Name:        "announce",
		Aliases:     []string{"post", "announcement"},
		Usage:       "announce [#channel] <announcement>",
		Description: "Makes an announcement in a channel, the current one by default. Attached files are posted with it.",
		ModOnly:     true,
		Bind: func(a *commands.Args, _ time.Time) (commands.Runner, error) {
			channel := a.Channel()
			text := a.Rest()
			return func(c *commands.Context) error {
				return runAnnounce(b, c, channel, text)
			}, nil
		},
	}
}

func runAnnounce(b *bot.Bot, c *commands.Context, channelID, text string) error {
	if channelID == "" {
		channelID = c.ChannelID
	}
	dir := utils.GuildAttachmentDir(b.Config.AttachmentDir(), c.GuildID)
	files := utils.DownloadAttachments(c.Ctx, c.Attachments, dir)
	defer utils.ReleaseFiles(files)
	if text == "" && len(files) == 0 {
		return &commands.UsageError{Command: "announce", Usage: "announce [#channel] <announcement>", Err: errors.New("nothing to announce")}
	}

	if _, err := b.Gateway.SendMessage(c.Ctx, channelID, model.OutgoingMessage{Content: text, Files: files}); err != nil {
		return fmt.Errorf("failed to announce in %s: %w", channelID, err)
	}

	fields := []utils.LogField{
		{Name: "User", Value: invokedBy(c)},
		{Name: "Channel", Value: "<#" + channelID + ">"},
		{Name: "Content", Value: text},
	}
	if len(files) > 0 {
		fields = append(fields, utils.LogField{Name: "Files", Value: fmt.Sprintf("%d file(s)", len(files))})
	}
	utils.LogMod(c.Session, b.LogChannel(c.GuildID), "An announcement has been made", fields, c.Now)
	utils.DeleteCommandMessage(c.Session, c.ChannelID, c.MessageID)
	return nil
}

func moveCommand(b *bot.Bot) *commands.Command {
	return &commands.Command{
		Name:        "move",
		Usage:       "move [@users]... <#channel> [num=1] [skip=0]",
		Description: "Moves num messages from the users in this channel to another channel after skipping skip of them.",
		ModOnly:     true,
		Bind: func(a *commands.Args, _ time.Time) (commands.Runner, error) {
			users := a.Users()
			channel := a.Channel()
			if channel == "" {
				return nil, errors.New("missing destination channel")
			}
			num, skip := a.Int(1), a.Int(0)
			if num <= 0 {
				return nil, errors.New("num must be a positive number")
			}
			if skip < 0 {
				return nil, errors.New("skip must not be negative")
			}
			return func(c *commands.Context) error {
				return runMove(b, c, users, channel, num, skip)
			}, nil
		},
	}
}

// movedMessage is the copy of m posted in the destination channel.
func movedMessage(m *discordgo.Message, files []string) model.OutgoingMessage {
	content := fmt.Sprintf("<@%s> said in <#%s>:", authorID(m), m.ChannelID)
	if m.Content != "" {
		content += "\n" + utils.QuoteContent(m.Content)
	}
	out := model.OutgoingMessage{
		Content:          utils.Truncate(content, 2000),
		Files:            files,
		SuppressMentions: true,
	}
	if len(m.Embeds) > 0 {
		out.Embed = m.Embeds[0]
	}
	return out
}

func runMove(b *bot.Bot, c *commands.Context, users []string, channelID string, num, skip int) error {
	history, err := c.Session.ChannelMessages(c.ChannelID, historyLimit, "", "", "", discordgo.WithContext(c.Ctx))
	if err != nil {
		return fmt.Errorf("failed to read history of %s: %w", c.ChannelID, err)
	}

	picked := selectMessages(history, c.MessageID, users, num, skip)
	dir := utils.GuildAttachmentDir(b.Config.AttachmentDir(), c.GuildID)
	var moved []*discordgo.Message
	// oldest first so the copies keep their order
	for i := len(picked) - 1; i >= 0; i-- {
		m := picked[i]
		if m.ChannelID == "" {
			m.ChannelID = c.ChannelID
		}
		files := utils.DownloadAttachments(c.Ctx, m.Attachments, dir)
		_, err := b.Gateway.SendMessage(c.Ctx, channelID, movedMessage(m, files))
		utils.ReleaseFiles(files)
		if err != nil {
			log.Warn().Err(err).Str("message", m.ID).Str("channel", channelID).Msg("failed to copy message")
			continue
		}
		moved = append(moved, m)
	}
	// a message that could not be copied stays where it is
	if err := smartDelete(c.Ctx, c.Session, c.ChannelID, moved); err != nil {
		log.Warn().Err(err).Str("channel", c.ChannelID).Msg("some moved messages could not be deleted")
	}

	utils.LogMod(c.Session, b.LogChannel(c.GuildID), "Messages have been moved", []utils.LogField{
		{Name: "User", Value: invokedBy(c)},
		{Name: "Author(s)", Value: mentions(users)},
		{Name: "From Channel", Value: "<#" + c.ChannelID + ">"},
		{Name: "To Channel", Value: "<#" + channelID + ">"},
		{Name: "Moved", Value: fmt.Sprintf("%d message(s)", len(moved))},
	}, c.Now)
	if len(moved) == 0 {
		utils.SendTempMessage(c.Session, c.ChannelID, "Could not move message(s).", utils.TempMessageLifetime)
	}
	utils.DeleteCommandMessage(c.Session, c.ChannelID, c.MessageID)
	return nil
}

// editFunc builds the new content of a bot message from its old content and the typed text.
type editFunc func(old, text string) string

func cutLastLine(s string) string {
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		return s[:i]
	}
	return s
}

var (
	editReplaceAll  editFunc = func(_, text string) string { return text }
	editAddLine     editFunc = func(old, text string) string { return old + "\n" + text }
	editReplaceLine editFunc = func(old, text string) string { return cutLastLine(old) + "\n" + text }
	editRemoveLine  editFunc = func(old, _ string) string { return cutLastLine(old) }
)

func editCommand(b *bot.Bot) *commands.Command {
	sub := func(name, usage, desc string, fn editFunc) *commands.Command {
		return &commands.Command{
			Name:        name,
			Usage:       usage,
			Description: desc,
			ModOnly:     true,
			Bind:        bindEdit(b, usage, fn, true),
		}
	}
	return &commands.Command{
		Name:        "edit",
		Usage:       "edit [#channel] [num=1] <text>",
		Description: "Replaces the content of the n-th last message of the bot in a channel.",
		ModOnly:     true,
		Bind:        bindEdit(b, "edit [#channel] [num=1] <text>", editReplaceAll, true),
		Subcommands: []*commands.Command{
			sub("add", "edit add [#channel] [num=1] <text>", "Adds a line to the n-th last message of the bot.", editAddLine),
			sub("replace", "edit replace [#channel] [num=1] <text>", "Replaces the last line of the n-th last message of the bot.", editReplaceLine),
			{
				Name:        "remove",
				Aliases:     []string{"rm"},
				Usage:       "edit remove [#channel] [num=1]",
				Description: "Removes the last line of the n-th last message of the bot.",
				ModOnly:     true,
				Bind:        bindEdit(b, "edit remove [#channel] [num=1]", editRemoveLine, false),
			},
		},
	}
}

func bindEdit(b *bot.Bot, usage string, fn editFunc, needsText bool) func(*commands.Args, time.Time) (commands.Runner, error) {
	return func(a *commands.Args, _ time.Time) (commands.Runner, error) {
		channel := a.Channel()
		num := a.Int(1)
		if num <= 0 {
			return nil, errors.New("num must be a positive number")
		}
		var text string
		if needsText {
			text = a.Rest()
			if text == "" {
				return nil, &commands.UsageError{Command: "edit", Usage: usage, Err: errors.New("missing text")}
			}
		}
		return func(c *commands.Context) error {
			return runEdit(b, c, channel, num, text, fn)
		}, nil
	}
}

// nthMessage returns the num-th message of history, newest first, that match accepts. The
// message with id skipID never counts.
func nthMessage(history []*discordgo.Message, skipID string, num int, match func(*discordgo.Message) bool) *discordgo.Message {
	count := 0
	for _, m := range history {
		if m.ID == skipID || !match(m) {
			continue
		}
		count++
		if count == num {
			return m
		}
	}
	return nil
}

func authorID(m *discordgo.Message) string {
	if m.Author == nil {
		return ""
	}
	return m.Author.ID
}

// tail keeps the end of s, which is where edits happen.
func tail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return "..." + string(r[len(r)-n+3:])
}

func runEdit(b *bot.Bot, c *commands.Context, channelID string, num int, text string, fn editFunc) error {
	defer utils.DeleteCommandMessage(c.Session, c.ChannelID, c.MessageID)
	if channelID == "" {
		channelID = c.ChannelID
	}
	me, err := c.Session.User("@me", discordgo.WithContext(c.Ctx))
	if err != nil {
		return fmt.Errorf("failed to look up the bot user: %w", err)
	}
	history, err := c.Session.ChannelMessages(channelID, historyLimit, "", "", "", discordgo.WithContext(c.Ctx))
	if err != nil {
		return fmt.Errorf("failed to read history of %s: %w", channelID, err)
	}

	target := nthMessage(history, "", num, func(m *discordgo.Message) bool { return authorID(m) == me.ID })
	if target == nil {
		utils.LogModFailure(c.Session, b.LogChannel(c.GuildID), "Could not edit a message",
			fmt.Sprintf("No message number %d found from bot", num), c.Now)
		utils.SendTempMessage(c.Session, c.ChannelID, "Could not edit a message.", utils.TempMessageLifetime)
		return nil
	}

	content := fn(target.Content, text)
	if _, err := c.Session.ChannelMessageEdit(channelID, target.ID, content, discordgo.WithContext(c.Ctx)); err != nil {
		return fmt.Errorf("failed to edit message %s: %w", target.ID, err)
	}

	utils.LogMod(c.Session, b.LogChannel(c.GuildID), "A bot message has been edited", []utils.LogField{
		{Name: "User", Value: invokedBy(c)},
		{Name: "Channel", Value: "<#" + channelID + ">"},
		{Name: "Old Content", Value: tail(target.Content, 1024)},
		{Name: "New Content", Value: tail(content, 1024)},
	}, c.Now)
	return nil
}

func reactCommand(b *bot.Bot) *commands.Command {
	return &commands.Command{
		Name:        "react",
		Usage:       "react [@user] [#channel] [num=1] <emojis>...",
		Description: "Reacts to the n-th last message of a user in a channel.",
		ModOnly:     true,
		Bind: func(a *commands.Args, _ time.Time) (commands.Runner, error) {
			user := a.User()
			channel := a.Channel()
			num := a.Int(1)
			if num <= 0 {
				return nil, errors.New("num must be a positive number")
			}
			var emojis []string
			for _, tok := range a.Remaining() {
				e, ok := utils.ParseEmoji(tok)
				if !ok {
					return nil, fmt.Errorf("%q is not an emoji", tok)
				}
				emojis = append(emojis, e)
			}
			if len(emojis) == 0 {
				return nil, &commands.UsageError{Command: "react", Usage: "react [@user] [#channel] [num=1] <emojis>...", Err: errors.New("missing emoji")}
			}
			return func(c *commands.Context) error {
				return runReact(b, c, user, channel, num, emojis)
			}, nil
		},
	}
}

func runReact(b *bot.Bot, c *commands.Context, userID, channelID string, num int, emojis []string) error {
	defer utils.DeleteCommandMessage(c.Session, c.ChannelID, c.MessageID)
	if channelID == "" {
		channelID = c.ChannelID
	}
	history, err := c.Session.ChannelMessages(channelID, historyLimit, "", "", "", discordgo.WithContext(c.Ctx))
	if err != nil {
		return fmt.Errorf("failed to read history of %s: %w", channelID, err)
	}

	target := nthMessage(history, c.MessageID, num, func(m *discordgo.Message) bool {
		return userID == "" || authorID(m) == userID
	})
	if target == nil {
		desc := fmt.Sprintf("No message number %d found", num)
		if userID != "" {
			desc += " from " + mention(userID)
		}
		desc += " in <#" + channelID + ">"
		utils.LogModFailure(c.Session, b.LogChannel(c.GuildID), "Could not add reaction(s)", desc, c.Now)
		utils.SendTempMessage(c.Session, c.ChannelID, "Could not add reaction(s).", utils.TempMessageLifetime)
		return nil
	}

	added := make([]string, 0, len(emojis))
	for _, e := range emojis {
		if err := c.Session.MessageReactionAdd(channelID, target.ID, e, discordgo.WithContext(c.Ctx)); err != nil {
			log.Warn().Err(err).Str("message", target.ID).Str("emoji", e).Msg("failed to add reaction")
			continue
		}
		added = append(added, e)
	}

	utils.LogMod(c.Session, b.LogChannel(c.GuildID), "Reaction(s) have been added", []utils.LogField{
		{Name: "User", Value: invokedBy(c)},
		{Name: "Author", Value: mention(authorID(target))},
		{Name: "Channel", Value: "<#" + channelID + ">"},
		{Name: "Reaction(s)", Value: strings.Join(added, " ")},
	}, c.Now)
	return nil
}
