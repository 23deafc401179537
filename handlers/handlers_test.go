package handlers

import (
	"modhelper/commands"
	"modhelper/model"
	"modhelper/scheduler"
	"strconv"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snowflakeAt(t time.Time) string {
	ms := t.UnixMilli() - 1420070400000
	return strconv.FormatInt(ms<<22, 10)
}

func message(id, author string) *discordgo.Message {
	return &discordgo.Message{ID: id, Author: &discordgo.User{ID: author}}
}

func ids(msgs []*discordgo.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func TestSelectMessages(t *testing.T) {
	history := []*discordgo.Message{
		message("cmd", "mod"),
		message("5", "alice"),
		message("4", "bob"),
		message("3", "alice"),
		message("2", "alice"),
		message("1", "bob"),
	}

	assert.Equal(t, []string{"5"}, ids(selectMessages(history, "cmd", nil, 1, 0)))
	assert.Equal(t, []string{"4", "3"}, ids(selectMessages(history, "cmd", nil, 2, 1)))
	assert.Equal(t, []string{"3", "2"}, ids(selectMessages(history, "cmd", []string{"alice"}, 5, 1)))
	assert.Equal(t, []string{"4", "1"}, ids(selectMessages(history, "cmd", []string{"bob"}, 5, 0)))
	assert.Empty(t, selectMessages(history, "cmd", []string{"carol"}, 5, 0))
}

func TestSplitByAge(t *testing.T) {
	now := time.Now()
	recent := &discordgo.Message{ID: snowflakeAt(now.Add(-time.Hour))}
	old := &discordgo.Message{ID: snowflakeAt(now.Add(-15 * 24 * time.Hour))}

	bulk, single := splitByAge([]*discordgo.Message{recent, old}, now)
	assert.Equal(t, []string{recent.ID}, bulk)
	assert.Equal(t, []string{old.ID}, single)
}

func TestToCachedMessage(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	embed := &discordgo.MessageEmbed{Title: "t"}
	m := &discordgo.Message{
		ChannelID: "c",
		Author:    &discordgo.User{ID: "u"},
		Content:   "hello",
		Timestamp: ts,
		Embeds:    []*discordgo.MessageEmbed{embed},
	}

	cm := toCachedMessage(m, nil)
	assert.Equal(t, &model.CachedMessage{
		ChannelID: "c", AuthorID: "u", Time: ts.Unix(), Content: "hello", Embed: embed, Files: []string{},
	}, cm)
}

func TestRestoredMessage(t *testing.T) {
	m := &model.CachedMessage{
		ChannelID: "c", AuthorID: "u", Time: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Unix(),
		Content: "line one\nline two", Files: []string{"f"},
	}
	out := restoredMessage(m)

	assert.Equal(t, "Message from <@u> in <#c> at 2024-05-01 12:00:00 UTC:\n> line one\n> line two", out.Content)
	assert.Equal(t, []string{"f"}, out.Files)
	assert.True(t, out.SuppressMentions)
}

func TestReminderText(t *testing.T) {
	assert.Equal(t, "<@1> Reminder!", reminderText("1", ""))
	assert.Equal(t, "<@1> ping @\u200beveryone", reminderText("1", "ping @everyone"))
}

func TestCacheListEmbed(t *testing.T) {
	entries := make([]*model.CachedMessage, 30)
	for i := range entries {
		entries[i] = &model.CachedMessage{ChannelID: "c", AuthorID: "u", Time: int64(100 - i), Content: "abc"}
	}
	embed := cacheListEmbed(entries, time.Now())

	require.Len(t, embed.Fields, 25)
	assert.Equal(t, "Cache 1:", embed.Fields[0].Name)
	assert.Contains(t, embed.Fields[0].Value, "Content length: 3")
}

func TestScheduleListEmbed(t *testing.T) {
	deadline := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tasks := []*scheduler.Task{
		scheduler.NewMessageTask("g", "u", "c", deadline, &scheduler.MessageAction{Content: "hi", Files: []string{"a"}}),
		scheduler.NewCommandTask("g", "u", "c", deadline, &scheduler.CommandAction{Command: "delete 3"}),
	}
	embed := scheduleListEmbed(tasks, deadline)

	require.Len(t, embed.Fields, 2)
	assert.Contains(t, embed.Fields[0].Value, "Files: 1 file(s)")
	assert.Contains(t, embed.Fields[1].Value, "Command: delete 3")
}

func TestNotFoundDescription(t *testing.T) {
	f := scheduler.Filter{AuthorID: "u", ChannelID: "c"}
	assert.Equal(t, "No scheduled message number 2 found from <@u> to be sent in <#c>", notFoundDescription(f, 2))
	assert.Equal(t, "No scheduled message number 1 found", notFoundDescription(scheduler.Filter{}, 1))
}

func TestSettingsEmbed(t *testing.T) {
	embed := settingsEmbed(model.GuildSettings{GuildID: "g", CacheSize: 10}, "99")
	require.Len(t, embed.Fields, 3)
	assert.Equal(t, "10", embed.Fields[0].Value)
	assert.Equal(t, "not set", embed.Fields[1].Value)
	assert.Equal(t, "<#99> (default)", embed.Fields[2].Value)
}

func TestEditFuncs(t *testing.T) {
	assert.Equal(t, "new", editReplaceAll("old\nlines", "new"))
	assert.Equal(t, "a\nb\nc", editAddLine("a\nb", "c"))
	assert.Equal(t, "a\nc", editReplaceLine("a\nb", "c"))
	assert.Equal(t, "a", editRemoveLine("a\nb", ""))

	// a single line has no last line to cut
	assert.Equal(t, "a\nc", editReplaceLine("a", "c"))
	assert.Equal(t, "a", editRemoveLine("a", ""))
}

func TestMovedMessage(t *testing.T) {
	m := message("1", "u")
	m.ChannelID = "c"
	m.Content = "hi\nthere <@2>"
	m.Embeds = []*discordgo.MessageEmbed{{Title: "e"}}

	out := movedMessage(m, []string{"f"})
	assert.Equal(t, "<@u> said in <#c>:\n> hi\n> there <@2>", out.Content)
	assert.Equal(t, "e", out.Embed.Title)
	assert.Equal(t, []string{"f"}, out.Files)
	assert.True(t, out.SuppressMentions)

	m.Content = ""
	m.Embeds = nil
	out = movedMessage(m, nil)
	assert.Equal(t, "<@u> said in <#c>:", out.Content)
	assert.Nil(t, out.Embed)
}

func TestNthMessage(t *testing.T) {
	history := []*discordgo.Message{message("5", "bot"), message("4", "u"), message("3", "bot"), message("2", "bot"), {ID: "1"}}
	byBot := func(m *discordgo.Message) bool { return authorID(m) == "bot" }

	assert.Equal(t, "5", nthMessage(history, "", 1, byBot).ID)
	assert.Equal(t, "2", nthMessage(history, "", 3, byBot).ID)
	assert.Equal(t, "3", nthMessage(history, "5", 1, byBot).ID)
	assert.Nil(t, nthMessage(history, "", 4, byBot))

	everyone := func(*discordgo.Message) bool { return true }
	assert.Equal(t, "1", nthMessage(history, "", 5, everyone).ID)
}

func TestTail(t *testing.T) {
	assert.Equal(t, "short", tail("short", 10))
	assert.Equal(t, "...ghij", tail("abcdefghij", 7))
}

func TestInvokedByMarksScheduledReplays(t *testing.T) {
	c := &commands.Context{AuthorID: "7"}
	assert.Equal(t, "<@7>", invokedBy(c))
	c.Scheduled = true
	assert.Equal(t, "<@7> (scheduled)", invokedBy(c))
}
