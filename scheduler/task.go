package scheduler

import (
	"context"
	"errors"
	"fmt"
	"modhelper/model"
	"slices"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// State is the lifecycle state of a task.
type State int

const (
	StatePending State = iota
	StateArmed
	StateFiring
	StateCancelled
	StateSuspended
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateArmed:
		return "armed"
	case StateFiring:
		return "firing"
	case StateCancelled:
		return "cancelled"
	case StateSuspended:
		return "suspended"
	case StateRemoved:
		return "removed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	errNoGateway    = errors.New("no gateway configured")
	errNoDispatcher = errors.New("no dispatcher configured")
)

// Env carries the collaborators an action needs when it fires.
type Env struct {
	Gateway    model.Gateway
	Dispatcher model.Dispatcher
}

// Action is what a task does when its deadline is reached.
type Action interface {
	Kind() string
	Fire(ctx context.Context, env Env, t *Task) error
	// OwnedFiles lists the attachment files released once the task is gone.
	OwnedFiles() []string
}

// MessageAction posts a message with optional embed and attachments.
type MessageAction struct {
	Content string
	Embed   *discordgo.MessageEmbed
	Files   []string
}

func (a *MessageAction) Kind() string { return model.TaskKindMessage }

func (a *MessageAction) OwnedFiles() []string { return a.Files }

func (a *MessageAction) Fire(ctx context.Context, env Env, t *Task) error {
	if env.Gateway == nil {
		return errNoGateway
	}
	_, err := env.Gateway.SendMessage(ctx, t.ChannelID, model.OutgoingMessage{
		Content: a.Content,
		Embed:   a.Embed,
		Files:   a.Files,
	})
	if err != nil {
		return fmt.Errorf("send scheduled message to %s: %w", t.ChannelID, err)
	}
	return nil
}

// CommandAction re-invokes a command as if its author typed it again in the same channel.
type CommandAction struct {
	Command   string
	MessageID string
}

func (a *CommandAction) Kind() string { return model.TaskKindCommand }

func (a *CommandAction) OwnedFiles() []string { return nil }

func (a *CommandAction) Fire(ctx context.Context, env Env, t *Task) error {
	if env.Dispatcher == nil {
		return errNoDispatcher
	}
	err := env.Dispatcher.Dispatch(ctx, model.Invocation{
		GuildID:   t.GuildID,
		ChannelID: t.ChannelID,
		AuthorID:  t.AuthorID,
		MessageID: a.MessageID,
		Content:   a.Command,
	})
	if err != nil {
		return fmt.Errorf("dispatch scheduled command %q: %w", a.Command, err)
	}
	return nil
}

// Task is a one-shot deferred action bound to a guild.
type Task struct {
	ID        string
	GuildID   string
	AuthorID  string
	ChannelID string
	Deadline  time.Time
	Action    Action

	// guarded by the owning guild's lock once scheduled
	lock  *sync.Mutex
	state State
	timer Timer
	done  chan struct{}
}

// NewMessageTask builds a pending message task.
func NewMessageTask(guildID, authorID, channelID string, deadline time.Time, action *MessageAction) *Task {
	return &Task{GuildID: guildID, AuthorID: authorID, ChannelID: channelID, Deadline: deadline, Action: action, done: make(chan struct{})}
}

// NewCommandTask builds a pending command task.
func NewCommandTask(guildID, authorID, channelID string, deadline time.Time, action *CommandAction) *Task {
	return &Task{GuildID: guildID, AuthorID: authorID, ChannelID: channelID, Deadline: deadline, Action: action, done: make(chan struct{})}
}

// State returns the current lifecycle state.
func (t *Task) State() State {
	if t.lock == nil {
		return t.state
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.state
}

// Done is closed once the task left its registry, whether fired or cancelled. Tasks built
// without a constructor get their channel when scheduled; before that Done returns nil.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Summary is a short human readable description used by listings.
func (t *Task) Summary() string {
	switch a := t.Action.(type) {
	case *MessageAction:
		if a.Content != "" {
			return a.Content
		}
		if a.Embed != nil {
			return "[embed] " + a.Embed.Title
		}
		if len(a.Files) > 0 {
			return fmt.Sprintf("[%d attachment(s)]", len(a.Files))
		}
		return "[empty]"
	case *CommandAction:
		return "[command] " + a.Command
	}
	return ""
}

// Record converts the task into its persisted form.
func (t *Task) Record() model.TaskRecord {
	rec := model.TaskRecord{
		Kind:      t.Action.Kind(),
		AuthorID:  t.AuthorID,
		ChannelID: t.ChannelID,
		Time:      t.Deadline.Unix(),
		Files:     []string{},
	}
	switch a := t.Action.(type) {
	case *MessageAction:
		rec.Content = a.Content
		rec.Embed = a.Embed
		rec.Files = slices.Clone(a.Files)
		if rec.Files == nil {
			rec.Files = []string{}
		}
	case *CommandAction:
		rec.Content = a.Command
		rec.OriginMessage = a.MessageID
	}
	return rec
}

// TaskFromRecord rebuilds a pending task from its persisted form.
func TaskFromRecord(guildID string, rec model.TaskRecord) (*Task, error) {
	t := &Task{
		GuildID:   guildID,
		AuthorID:  rec.AuthorID,
		ChannelID: rec.ChannelID,
		Deadline:  time.Unix(rec.Time, 0),
		done:      make(chan struct{}),
	}
	switch rec.Kind {
	case model.TaskKindMessage:
		t.Action = &MessageAction{Content: rec.Content, Embed: rec.Embed, Files: slices.Clone(rec.Files)}
	case model.TaskKindCommand:
		t.Action = &CommandAction{Command: rec.Content, MessageID: rec.OriginMessage}
	default:
		return nil, fmt.Errorf("unknown task kind %q", rec.Kind)
	}
	return t, nil
}
