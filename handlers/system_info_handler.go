package handlers

import (
	"fmt"
	"modhelper/bot"
	"modhelper/commands"
	"modhelper/utils"
	"runtime"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

func statusCommand(b *bot.Bot) *commands.Command {
	return &commands.Command{
		Name:        "status",
		Usage:       "status",
		Description: "Shows host and bot status.",
		ModOnly:     true,
		Bind: func(*commands.Args, time.Time) (commands.Runner, error) {
			return func(c *commands.Context) error {
				utils.SendEmbed(c.Session, c.ChannelID, systemInfoEmbed(b, c.GuildID, c.Now))
				return nil
			}, nil
		},
	}
}

func helpCommand(b *bot.Bot) *commands.Command {
	return &commands.Command{
		Name:        "help",
		Usage:       "help",
		Description: "Lists the commands.",
		Bind: func(*commands.Args, time.Time) (commands.Runner, error) {
			return func(c *commands.Context) error {
				utils.SendEmbed(c.Session, c.ChannelID, commands.BuildHelpEmbed(b.Router))
				return nil
			}, nil
		},
	}
}

func systemInfoEmbed(b *bot.Bot, guildID string, now time.Time) *discordgo.MessageEmbed {
	// Get CPU info
	cpuCount, _ := cpu.Counts(true)
	cpuUsage := "n/a"
	if cpuPercent, err := cpu.Percent(0, false); err == nil && len(cpuPercent) > 0 {
		cpuUsage = fmt.Sprintf("%.1f%%", cpuPercent[0])
	}

	// Get memory info
	memory := "n/a"
	if vm, err := mem.VirtualMemory(); err == nil {
		memory = fmt.Sprintf("%.1f%% (%d MB / %d MB)", vm.UsedPercent, vm.Used/1024/1024, vm.Total/1024/1024)
	}

	// Get host info
	osVersion, kernel := "n/a", "n/a"
	if hostInfo, err := host.Info(); err == nil {
		osVersion = fmt.Sprintf("%s %s", hostInfo.Platform, hostInfo.PlatformVersion)
		kernel = hostInfo.KernelVersion
	}

	return &discordgo.MessageEmbed{
		Title: "System Info",
		Color: 0x5865F2, // Discord Blurple
		Fields: []*discordgo.MessageEmbedField{
			{Name: "💻 OS", Value: osVersion, Inline: true},
			{Name: "🔧 Kernel", Value: kernel, Inline: true},
			{Name: "🐹 Go", Value: runtime.Version(), Inline: true},
			{Name: "🔼 CPUs", Value: fmt.Sprintf("%d", cpuCount), Inline: true},
			{Name: "🔥 CPU usage", Value: cpuUsage, Inline: true},
			{Name: "🧠 Memory", Value: memory, Inline: true},
			{Name: "⏱️ WebSocket latency", Value: b.Session.HeartbeatLatency().String(), Inline: true},
			{Name: "🚀 Goroutines", Value: fmt.Sprintf("%d", runtime.NumGoroutine()), Inline: true},
			{Name: "⏰ Scheduled tasks", Value: fmt.Sprintf("%d", b.Scheduler.Count()), Inline: true},
			{Name: "🗑️ Cached deletes", Value: fmt.Sprintf("%d / %d", b.Cache.Len(guildID), b.Settings.CacheCapacity(guildID)), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("System monitor・%s", now.UTC().Format("15:04")),
		},
	}
}
