// Package commands parses prefix commands typed in guild channels and routes them to their
// handlers.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrNoPermission   = errors.New("no permission")
)

// UsageError reports arguments a command could not understand.
type UsageError struct {
	Command string
	Usage   string
	Err     error
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("%s: %v (usage: %s)", e.Command, e.Err, e.Usage)
}

func (e *UsageError) Unwrap() error { return e.Err }

// Context is everything a running command knows about its invocation.
type Context struct {
	Ctx         context.Context
	Session     *discordgo.Session
	GuildID     string
	ChannelID   string
	AuthorID    string
	MessageID   string
	Attachments []*discordgo.MessageAttachment
	Permission  string
	// Scheduled is set when a scheduled task re-invokes the command.
	Scheduled bool
	Now       time.Time
}

// Runner executes a command whose arguments are already bound.
type Runner func(c *Context) error

// Command is one prefix command or subcommand.
type Command struct {
	Name        string
	Aliases     []string
	Usage       string
	Description string
	ModOnly     bool
	Subcommands []*Command
	// Bind parses the arguments. It must not have side effects so that commands can be
	// validated long before they run.
	Bind func(a *Args, now time.Time) (Runner, error)
}

func (c *Command) names() []string {
	return append([]string{c.Name}, c.Aliases...)
}

func (c *Command) sub(name string) *Command {
	for _, s := range c.Subcommands {
		for _, n := range s.names() {
			if strings.EqualFold(n, name) {
				return s
			}
		}
	}
	return nil
}

// Router resolves command text to a bound command.
type Router struct {
	prefix string

	mu       sync.RWMutex
	commands []*Command
	byName   map[string]*Command
}

// NewRouter creates a router for commands starting with prefix.
func NewRouter(prefix string) *Router {
	return &Router{prefix: prefix, byName: make(map[string]*Command)}
}

// Prefix returns the command prefix.
func (r *Router) Prefix() string { return r.prefix }

// Register adds top-level commands. Later registrations win on name clashes.
func (r *Router) Register(cmds ...*Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range cmds {
		r.commands = append(r.commands, c)
		for _, n := range c.names() {
			r.byName[strings.ToLower(n)] = c
		}
	}
}

// Commands returns the registered top-level commands in registration order.
func (r *Router) Commands() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Command(nil), r.commands...)
}

// HasPrefix reports whether content addresses the bot.
func (r *Router) HasPrefix(content string) bool {
	return r.prefix != "" && strings.HasPrefix(content, r.prefix)
}

// Parse resolves content, with or without the prefix, and binds its arguments.
func (r *Router) Parse(content string, now time.Time) (*Command, Runner, error) {
	content = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(content), r.prefix))
	args, err := NewArgs(content)
	if err != nil {
		return nil, nil, &UsageError{Command: content, Err: err}
	}

	name, ok := args.Next()
	if !ok {
		return nil, nil, ErrUnknownCommand
	}
	r.mu.RLock()
	cmd := r.byName[strings.ToLower(name)]
	r.mu.RUnlock()
	if cmd == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}

	for {
		next, ok := args.Peek()
		if !ok {
			break
		}
		sub := cmd.sub(next)
		if sub == nil {
			break
		}
		args.Next()
		cmd = sub
	}

	if cmd.Bind == nil {
		return cmd, nil, &UsageError{Command: cmd.Name, Usage: cmd.Usage, Err: errors.New("missing subcommand")}
	}
	run, err := cmd.Bind(args, now)
	if err == nil {
		err = args.Done()
	}
	if err != nil {
		return cmd, nil, &UsageError{Command: cmd.Name, Usage: cmd.Usage, Err: err}
	}
	return cmd, run, nil
}

// Validate dry-runs the parser over content without running anything.
func (r *Router) Validate(content string, now time.Time) error {
	_, _, err := r.Parse(content, now)
	return err
}
