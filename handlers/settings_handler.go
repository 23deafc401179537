package handlers

import (
	"errors"
	"fmt"
	"modhelper/bot"
	"modhelper/commands"
	"modhelper/model"
	"modhelper/utils"
	"time"

	"github.com/bwmarrin/discordgo"
)

// maxCacheSize bounds the per-guild delete cache.
const maxCacheSize = 100

func setCommand(b *bot.Bot) *commands.Command {
	return &commands.Command{
		Name:        "set",
		Usage:       "set",
		Description: "Shows or changes the settings of this server.",
		ModOnly:     true,
		Bind: func(*commands.Args, time.Time) (commands.Runner, error) {
			return func(c *commands.Context) error {
				gs, err := b.Settings.Get(c.GuildID)
				if err != nil {
					return err
				}
				utils.SendEmbed(c.Session, c.ChannelID, settingsEmbed(gs, b.Config.LogChannelID))
				return nil
			}, nil
		},
		Subcommands: []*commands.Command{
			{
				Name:        "cache",
				Usage:       "set cache <n>",
				Description: fmt.Sprintf("Sets how many deleted messages are cached (0 to %d).", maxCacheSize),
				ModOnly:     true,
				Bind: func(a *commands.Args, _ time.Time) (commands.Runner, error) {
					n, err := a.RequiredInt()
					if err != nil {
						return nil, err
					}
					if n < 0 || n > maxCacheSize {
						return nil, fmt.Errorf("cache size must be between 0 and %d", maxCacheSize)
					}
					return func(c *commands.Context) error {
						return updateSetting(b, c, "Delete cache size", fmt.Sprint(n), func(gs *model.GuildSettings) {
							gs.CacheSize = n
						})
					}, nil
				},
			},
			{
				Name:        "modrole",
				Usage:       "set modrole <@&role>",
				Description: "Sets the role allowed to use mod commands. Administrators only.",
				ModOnly:     true,
				Bind: func(a *commands.Args, _ time.Time) (commands.Runner, error) {
					role, err := a.Role()
					if err != nil {
						return nil, err
					}
					return func(c *commands.Context) error {
						if c.Permission != utils.AdminPermission && c.Permission != utils.DeveloperPermission {
							return commands.ErrNoPermission
						}
						return updateSetting(b, c, "Mod role", "<@&"+role+">", func(gs *model.GuildSettings) {
							gs.ModRoleID = role
						})
					}, nil
				},
			},
			{
				Name:        "logchannel",
				Usage:       "set logchannel <#channel>",
				Description: "Sets the channel receiving the mod log of this server.",
				ModOnly:     true,
				Bind: func(a *commands.Args, _ time.Time) (commands.Runner, error) {
					channel := a.Channel()
					if channel == "" {
						return nil, errors.New("missing channel")
					}
					return func(c *commands.Context) error {
						return updateSetting(b, c, "Log channel", "<#"+channel+">", func(gs *model.GuildSettings) {
							gs.LogChannelID = channel
						})
					}, nil
				},
			},
		},
	}
}

func updateSetting(b *bot.Bot, c *commands.Context, name, value string, fn func(*model.GuildSettings)) error {
	if _, err := b.Settings.Update(c.GuildID, fn); err != nil {
		return err
	}
	if evicted := b.Cache.EvictIfOverCapacity(c.GuildID); evicted > 0 {
		utils.SendTempMessage(c.Session, c.ChannelID, fmt.Sprintf("%d cached message(s) dropped.", evicted), utils.TempMessageLifetime)
	}

	utils.LogMod(c.Session, b.LogChannel(c.GuildID), "A setting has been changed", []utils.LogField{
		{Name: "User", Value: invokedBy(c)},
		{Name: "Setting", Value: name},
		{Name: "Value", Value: value},
	}, c.Now)
	utils.SendTempMessage(c.Session, c.ChannelID, fmt.Sprintf("%s is now %s.", name, value), utils.TempMessageLifetime)
	utils.DeleteCommandMessage(c.Session, c.ChannelID, c.MessageID)
	return nil
}

func settingsEmbed(gs model.GuildSettings, fallbackLogChannel string) *discordgo.MessageEmbed {
	modRole := "not set"
	if gs.ModRoleID != "" {
		modRole = "<@&" + gs.ModRoleID + ">"
	}
	logChannel := "not set"
	switch {
	case gs.LogChannelID != "":
		logChannel = "<#" + gs.LogChannelID + ">"
	case fallbackLogChannel != "":
		logChannel = "<#" + fallbackLogChannel + "> (default)"
	}
	return &discordgo.MessageEmbed{
		Title: "Server Settings",
		Color: 0x3498db,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Delete cache size", Value: fmt.Sprint(gs.CacheSize), Inline: true},
			{Name: "Mod role", Value: modRole, Inline: true},
			{Name: "Log channel", Value: logChannel, Inline: true},
		},
	}
}
