package handlers

import (
	"errors"
	"fmt"
	"modhelper/bot"
	"modhelper/commands"
	"modhelper/scheduler"
	"modhelper/utils"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

func scheduleCommand(b *bot.Bot) *commands.Command {
	return &commands.Command{
		Name:        "schedule",
		Usage:       "schedule [#channel] <time> [text]",
		Description: "Schedules a message. Time is relative like 2h10m or absolute like \"2024-09-10 10:00 -0500\" (UTC without a zone).",
		ModOnly:     true,
		Bind: func(a *commands.Args, now time.Time) (commands.Runner, error) {
			channel := a.Channel()
			at, err := a.FutureTime(now)
			if err != nil {
				return nil, err
			}
			text := a.Rest()
			return func(c *commands.Context) error {
				return runSchedule(b, c, channel, at, text)
			}, nil
		},
		Subcommands: []*commands.Command{
			{
				Name:        "list",
				Usage:       "schedule list",
				Description: "Shows the scheduled messages.",
				ModOnly:     true,
				Bind: func(*commands.Args, time.Time) (commands.Runner, error) {
					return func(c *commands.Context) error {
						return runScheduleList(b, c)
					}, nil
				},
			},
			{
				Name:        "cancel",
				Usage:       "schedule cancel [@user] [#channel] [num=1]",
				Description: "Cancels the n-th scheduled message of a user in a channel.",
				ModOnly:     true,
				Bind: func(a *commands.Args, _ time.Time) (commands.Runner, error) {
					f, num, err := bindTaskSelector(a)
					if err != nil {
						return nil, err
					}
					return func(c *commands.Context) error {
						return runScheduleCancel(b, c, f, num)
					}, nil
				},
			},
			{
				Name:        "sendnow",
				Aliases:     []string{"now", "send"},
				Usage:       "schedule sendnow [@user] [#channel] [num=1]",
				Description: "Sends the n-th scheduled message of a user in a channel right now.",
				ModOnly:     true,
				Bind: func(a *commands.Args, _ time.Time) (commands.Runner, error) {
					f, num, err := bindTaskSelector(a)
					if err != nil {
						return nil, err
					}
					return func(c *commands.Context) error {
						return runScheduleSendNow(b, c, f, num)
					}, nil
				},
			},
			{
				Name:        "cmd",
				Aliases:     []string{"command"},
				Usage:       "schedule cmd <time> <command>",
				Description: "Schedules a command in this channel. The command is checked now and run as if you typed it then.",
				ModOnly:     true,
				Bind: func(a *commands.Args, now time.Time) (commands.Runner, error) {
					at, err := a.FutureTime(now)
					if err != nil {
						return nil, err
					}
					cmd := a.Rest()
					if cmd == "" {
						return nil, errors.New("missing command")
					}
					return func(c *commands.Context) error {
						return runScheduleCommand(b, c, at, cmd)
					}, nil
				},
			},
		},
	}
}

func remindCommand(b *bot.Bot) *commands.Command {
	return &commands.Command{
		Name:        "remind",
		Aliases:     []string{"reminder"},
		Usage:       "remind <time> [text]",
		Description: "Sends you a reminder in this channel. Mentions in the text are removed.",
		Bind: func(a *commands.Args, now time.Time) (commands.Runner, error) {
			at, err := a.FutureTime(now)
			if err != nil {
				return nil, err
			}
			text := a.Rest()
			return func(c *commands.Context) error {
				return runSchedule(b, c, "", at, reminderText(c.AuthorID, text))
			}, nil
		},
	}
}

func reminderText(authorID, text string) string {
	if text == "" {
		return mention(authorID) + " Reminder!"
	}
	return mention(authorID) + " " + utils.CleanMentions(text)
}

func bindTaskSelector(a *commands.Args) (scheduler.Filter, int, error) {
	f := scheduler.Filter{AuthorID: a.User(), ChannelID: a.Channel()}
	num := a.Int(1)
	if num <= 0 {
		return f, 0, errors.New("num must be a positive number")
	}
	return f, num, nil
}

func runSchedule(b *bot.Bot, c *commands.Context, channelID string, at time.Time, text string) error {
	if channelID == "" {
		channelID = c.ChannelID
	}
	dir := utils.GuildAttachmentDir(b.Config.AttachmentDir(), c.GuildID)
	files := utils.DownloadAttachments(c.Ctx, c.Attachments, dir)
	if text == "" && len(files) == 0 {
		return &commands.UsageError{Command: "schedule", Usage: "schedule [#channel] <time> [text]", Err: errors.New("nothing to send")}
	}

	task := scheduler.NewMessageTask(c.GuildID, c.AuthorID, channelID, at, &scheduler.MessageAction{Content: text, Files: files})
	if _, err := b.Scheduler.Schedule(task); err != nil {
		utils.ReleaseFiles(files)
		return err
	}

	fields := []utils.LogField{
		{Name: "User", Value: invokedBy(c)},
		{Name: "Channel", Value: "<#" + channelID + ">"},
		{Name: "Content", Value: text},
		{Name: "Time", Value: utils.FormatTime(at)},
	}
	if len(files) > 0 {
		fields = append(fields, utils.LogField{Name: "Files", Value: fmt.Sprintf("%d file(s)", len(files))})
	}
	utils.LogMod(c.Session, b.LogChannel(c.GuildID), "A message has been scheduled", fields, c.Now)
	utils.SendTempMessage(c.Session, c.ChannelID,
		fmt.Sprintf("%s You have scheduled a message at %s.", mention(c.AuthorID), utils.FormatTime(at)), utils.TempMessageLifetime)
	utils.DeleteCommandMessage(c.Session, c.ChannelID, c.MessageID)
	return nil
}

func scheduleListEmbed(tasks []*scheduler.Task, ts time.Time) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:     "Scheduled Messages",
		Color:     0x2ecc71,
		Timestamp: ts.UTC().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: "SCHEDULER"},
	}
	for i, t := range tasks {
		if i == 25 {
			break
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "Author: <@%s>\nTo be Sent in: <#%s>\nScheduled at: %s\n", t.AuthorID, t.ChannelID, utils.FormatTime(t.Deadline))
		switch a := t.Action.(type) {
		case *scheduler.CommandAction:
			fmt.Fprintf(&sb, "Command: %s\n", utils.Truncate(a.Command, 200))
		case *scheduler.MessageAction:
			if a.Content != "" {
				fmt.Fprintf(&sb, "Content length: %d\n", len([]rune(a.Content)))
			}
			if len(a.Files) > 0 {
				fmt.Fprintf(&sb, "Files: %d file(s)\n", len(a.Files))
			}
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("Message %d:", i+1),
			Value:  sb.String(),
			Inline: true,
		})
	}
	return embed
}

func runScheduleList(b *bot.Bot, c *commands.Context) error {
	tasks := b.Scheduler.Armed(c.GuildID)
	if len(tasks) == 0 {
		utils.SendTempMessage(c.Session, c.ChannelID, "Sorry, but no scheduled message is found.", utils.TempMessageLifetime)
		utils.DeleteCommandMessage(c.Session, c.ChannelID, c.MessageID)
		return nil
	}
	utils.SendEmbed(c.Session, c.ChannelID, scheduleListEmbed(tasks, c.Now))
	return nil
}

func notFoundDescription(f scheduler.Filter, num int) string {
	desc := fmt.Sprintf("No scheduled message number %d found", num)
	if f.AuthorID != "" {
		desc += " from " + mention(f.AuthorID)
	}
	if f.ChannelID != "" {
		desc += " to be sent in <#" + f.ChannelID + ">"
	}
	return desc
}

func runScheduleCancel(b *bot.Bot, c *commands.Context, f scheduler.Filter, num int) error {
	defer utils.DeleteCommandMessage(c.Session, c.ChannelID, c.MessageID)
	if len(b.Scheduler.Armed(c.GuildID)) == 0 {
		utils.SendTempMessage(c.Session, c.ChannelID, "Sorry, but no scheduled message is found.", utils.TempMessageLifetime)
		return nil
	}

	task, err := b.Scheduler.FindNth(c.GuildID, f, num)
	if err == nil && !b.Scheduler.Cancel(task) {
		err = scheduler.ErrNotPending
	}
	if err != nil {
		utils.LogModFailure(c.Session, b.LogChannel(c.GuildID), "Could not cancel a scheduled message", notFoundDescription(f, num), c.Now)
		utils.SendTempMessage(c.Session, c.ChannelID, "Could not cancel a scheduled message.", utils.TempMessageLifetime)
		return nil
	}

	utils.LogMod(c.Session, b.LogChannel(c.GuildID), "A scheduled message has been cancelled", []utils.LogField{
		{Name: "Cancelled by", Value: invokedBy(c)},
		{Name: "Author", Value: mention(task.AuthorID)},
		{Name: "Channel", Value: "<#" + task.ChannelID + ">"},
		{Name: "Content", Value: task.Summary()},
		{Name: "Time", Value: utils.FormatTime(task.Deadline)},
	}, c.Now)
	utils.SendTempMessage(c.Session, c.ChannelID, "A scheduled message has been cancelled.", utils.TempMessageLifetime)
	return nil
}

func runScheduleSendNow(b *bot.Bot, c *commands.Context, f scheduler.Filter, num int) error {
	defer utils.DeleteCommandMessage(c.Session, c.ChannelID, c.MessageID)
	if len(b.Scheduler.Armed(c.GuildID)) == 0 {
		utils.SendTempMessage(c.Session, c.ChannelID, "Sorry, but no scheduled message is found.", utils.TempMessageLifetime)
		return nil
	}

	task, err := b.Scheduler.FindNth(c.GuildID, f, num)
	if err != nil {
		utils.LogModFailure(c.Session, b.LogChannel(c.GuildID), "Could not send a scheduled message", notFoundDescription(f, num), c.Now)
		utils.SendTempMessage(c.Session, c.ChannelID, "Could not send a scheduled message.", utils.TempMessageLifetime)
		return nil
	}
	if err := b.Scheduler.SendNow(c.Ctx, task); err != nil {
		utils.LogModFailure(c.Session, b.LogChannel(c.GuildID), "A scheduled message failed to send", err.Error(), c.Now)
		utils.SendTempMessage(c.Session, c.ChannelID, "Could not send a scheduled message.", utils.TempMessageLifetime)
		return nil
	}

	utils.LogMod(c.Session, b.LogChannel(c.GuildID), "A scheduled message has been sent now", []utils.LogField{
		{Name: "Sent by", Value: invokedBy(c)},
		{Name: "Author", Value: mention(task.AuthorID)},
		{Name: "Channel", Value: "<#" + task.ChannelID + ">"},
		{Name: "Content", Value: task.Summary()},
	}, c.Now)
	return nil
}

func runScheduleCommand(b *bot.Bot, c *commands.Context, at time.Time, cmd string) error {
	task := scheduler.NewCommandTask(c.GuildID, c.AuthorID, c.ChannelID, at, &scheduler.CommandAction{Command: cmd, MessageID: c.MessageID})
	if _, err := b.Scheduler.Schedule(task); err != nil {
		utils.SendReply(c.Session, c.ChannelID,
			fmt.Sprintf("Sorry %s, but the scheduled command cannot run: %v", mention(c.AuthorID), err))
		return nil
	}

	utils.LogMod(c.Session, b.LogChannel(c.GuildID), "A command has been scheduled", []utils.LogField{
		{Name: "User", Value: invokedBy(c)},
		{Name: "Channel", Value: "<#" + c.ChannelID + ">"},
		{Name: "Command", Value: cmd},
		{Name: "Time", Value: utils.FormatTime(at)},
	}, c.Now)
	utils.SendTempMessage(c.Session, c.ChannelID,
		fmt.Sprintf("%s You have scheduled a command at %s.", mention(c.AuthorID), utils.FormatTime(at)), utils.TempMessageLifetime)
	return nil
}
