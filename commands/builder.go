package commands

import (
	"fmt"
	"modhelper/utils"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// BuildHelpEmbed lists the registered commands with their usage.
func BuildHelpEmbed(r *Router) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Commands",
		Color: 0x3498db,
	}
	for _, c := range r.Commands() {
		var b strings.Builder
		if c.Description != "" {
			b.WriteString(c.Description)
			b.WriteString("\n")
		}
		if c.Usage != "" {
			fmt.Fprintf(&b, "`%s%s`\n", r.Prefix(), c.Usage)
		}
		for _, s := range c.Subcommands {
			fmt.Fprintf(&b, "`%s%s`", r.Prefix(), s.Usage)
			if s.Description != "" {
				b.WriteString(" - " + s.Description)
			}
			b.WriteString("\n")
		}
		name := c.Name
		if len(c.Aliases) > 0 {
			name += " (" + strings.Join(c.Aliases, ", ") + ")"
		}
		if c.ModOnly {
			name += " [mod]"
		}
		value := utils.Truncate(b.String(), 1024)
		if value == "" {
			value = "-"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: name, Value: value})
	}
	if len(embed.Fields) > 25 {
		embed.Fields = embed.Fields[:25]
	}
	return embed
}
