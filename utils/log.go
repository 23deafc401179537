package utils

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type LogLevel string

const (
	Info  LogLevel = "INFO"
	Warn  LogLevel = "WARN"
	Error LogLevel = "ERROR"
)

// LogField is one field of a mod-log embed. Empty values are skipped.
type LogField struct {
	Name  string
	Value string
}

// embed field values are capped by Discord at 1024 characters
const maxFieldValue = 1024

var modLogLimiter = rate.NewLimiter(rate.Every(time.Second), 5)

// SetupLogger configures the global zerolog logger.
func SetupLogger(level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339
	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})
	}
}

func getColor(level LogLevel) int {
	switch level {
	case Info:
		return 3066993 // Green
	case Warn:
		return 15105570 // Orange
	case Error:
		return 15158332 // Red
	default:
		return 3447003 // Blue
	}
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// BuildLogEmbed builds the embed posted to a guild's mod-log channel.
func BuildLogEmbed(level LogLevel, title, description string, fields []LogField, ts time.Time) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       getColor(level),
		Timestamp:   ts.UTC().Format(time.RFC3339),
	}
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  f.Name,
			Value: Truncate(f.Value, maxFieldValue),
		})
	}
	return embed
}

func sendLog(s *discordgo.Session, channelID string, embed *discordgo.MessageEmbed) error {
	if channelID == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := modLogLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("mod log rate limited: %w", err)
	}
	_, err := s.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx))
	return err
}

// LogMod posts a moderation event to the log channel. Failures are logged, never returned to
// the command that triggered them.
func LogMod(s *discordgo.Session, channelID, title string, fields []LogField, ts time.Time) {
	if err := sendLog(s, channelID, BuildLogEmbed(Info, title, "", fields, ts)); err != nil {
		log.Warn().Err(err).Str("channel", channelID).Str("title", title).Msg("failed to post mod log")
	}
}

// LogModFailure posts a failed moderation attempt with a description.
func LogModFailure(s *discordgo.Session, channelID, title, description string, ts time.Time) {
	if err := sendLog(s, channelID, BuildLogEmbed(Warn, title, description, nil, ts)); err != nil {
		log.Warn().Err(err).Str("channel", channelID).Str("title", title).Msg("failed to post mod log")
	}
}

// LogError posts an internal error to the log channel.
func LogError(s *discordgo.Session, channelID, module, operation, extraInfo string) {
	fields := []LogField{
		{Name: "Module", Value: module},
		{Name: "Operation", Value: operation},
		{Name: "Info", Value: extraInfo},
	}
	if err := sendLog(s, channelID, BuildLogEmbed(Error, string(Error)+" Log", "", fields, time.Now())); err != nil {
		log.Warn().Err(err).Str("module", module).Msg("failed to post error log")
	}
}
