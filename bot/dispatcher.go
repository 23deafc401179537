package bot

import (
	"context"
	"fmt"
	"modhelper/commands"
	"modhelper/model"
	"modhelper/utils"
	"slices"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Validate dry-runs the command parser over content.
func (b *Bot) Validate(guildID, content string) error {
	return b.Router.Validate(content, time.Now())
}

// Dispatch re-invokes a scheduled command on behalf of its author.
func (b *Bot) Dispatch(ctx context.Context, inv model.Invocation) error {
	return b.Execute(ctx, inv, nil, true)
}

// Execute parses and runs one command invocation after checking the author's permission.
func (b *Bot) Execute(ctx context.Context, inv model.Invocation, attachments []*discordgo.MessageAttachment, scheduled bool) error {
	now := time.Now()
	cmd, run, err := b.Router.Parse(inv.Content, now)
	if err != nil {
		return err
	}

	level, err := b.Permission(inv.GuildID, inv.ChannelID, inv.AuthorID)
	if err != nil {
		return fmt.Errorf("failed to resolve permission of %s: %w", inv.AuthorID, err)
	}
	if cmd.ModOnly && !utils.IsModerator(level) {
		return commands.ErrNoPermission
	}

	return run(&commands.Context{
		Ctx:         ctx,
		Session:     b.Session,
		GuildID:     inv.GuildID,
		ChannelID:   inv.ChannelID,
		AuthorID:    inv.AuthorID,
		MessageID:   inv.MessageID,
		Attachments: attachments,
		Permission:  level,
		Scheduled:   scheduled,
		Now:         now,
	})
}

// Permission returns the permission level of a member in a channel.
func (b *Bot) Permission(guildID, channelID, userID string) (string, error) {
	if slices.Contains(b.Config.DeveloperUserIDs, userID) {
		return utils.DeveloperPermission, nil
	}
	member, err := b.Session.GuildMember(guildID, userID)
	if err != nil {
		return utils.GuestPermission, err
	}
	perms, err := b.Session.UserChannelPermissions(userID, channelID)
	if err != nil {
		return utils.GuestPermission, err
	}
	gs, err := b.Settings.Get(guildID)
	if err != nil {
		return utils.GuestPermission, err
	}
	isAdmin := perms&discordgo.PermissionAdministrator != 0
	return utils.CheckPermission(userID, member.Roles, isAdmin, gs.ModRoleID, b.Config.DeveloperUserIDs), nil
}
