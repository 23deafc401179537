package commands

import (
	"fmt"
	"modhelper/utils"
	"strconv"
	"strings"
	"time"
)

// Args is a cursor over the arguments of one command invocation.
type Args struct {
	raw    string
	tokens []token
	pos    int
}

// NewArgs tokenizes raw argument text.
func NewArgs(raw string) (*Args, error) {
	tokens, err := tokenize(raw)
	if err != nil {
		return nil, err
	}
	return &Args{raw: raw, tokens: tokens}, nil
}

// Len returns the number of arguments not consumed yet.
func (a *Args) Len() int {
	return len(a.tokens) - a.pos
}

// Peek returns the next argument without consuming it.
func (a *Args) Peek() (string, bool) {
	if a.pos >= len(a.tokens) {
		return "", false
	}
	return a.tokens[a.pos].value, true
}

// Next consumes the next argument.
func (a *Args) Next() (string, bool) {
	v, ok := a.Peek()
	if ok {
		a.pos++
	}
	return v, ok
}

// Users consumes consecutive user mentions.
func (a *Args) Users() []string {
	var ids []string
	for {
		v, ok := a.Peek()
		if !ok {
			return ids
		}
		id, ok := utils.ParseUserMention(v)
		if !ok {
			return ids
		}
		ids = append(ids, id)
		a.pos++
	}
}

// Channels consumes consecutive channel mentions.
func (a *Args) Channels() []string {
	var ids []string
	for {
		v, ok := a.Peek()
		if !ok {
			return ids
		}
		id, ok := utils.ParseChannelMention(v)
		if !ok {
			return ids
		}
		ids = append(ids, id)
		a.pos++
	}
}

// User consumes one user mention if the next argument is one.
func (a *Args) User() string {
	v, ok := a.Peek()
	if !ok {
		return ""
	}
	id, ok := utils.ParseUserMention(v)
	if !ok {
		return ""
	}
	a.pos++
	return id
}

// Channel consumes one channel mention if the next argument is one.
func (a *Args) Channel() string {
	v, ok := a.Peek()
	if !ok {
		return ""
	}
	id, ok := utils.ParseChannelMention(v)
	if !ok {
		return ""
	}
	a.pos++
	return id
}

// Role consumes a required role mention.
func (a *Args) Role() (string, error) {
	v, ok := a.Next()
	if !ok {
		return "", fmt.Errorf("missing role")
	}
	id, ok := utils.ParseRoleMention(v)
	if !ok {
		return "", fmt.Errorf("%q is not a role mention", v)
	}
	return id, nil
}

// Int consumes an optional integer, returning def when the next argument is absent or not a
// number.
func (a *Args) Int(def int) int {
	v, ok := a.Peek()
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	a.pos++
	return n
}

// RequiredInt consumes an integer argument.
func (a *Args) RequiredInt() (int, error) {
	v, ok := a.Next()
	if !ok {
		return 0, fmt.Errorf("missing number")
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", v)
	}
	return n, nil
}

// FutureTime consumes a time expression that must lie after now. Absolute times may span two
// arguments ("2024-05-01 18:30"), which are tried before the single-argument form.
func (a *Args) FutureTime(now time.Time) (time.Time, error) {
	if a.Len() == 0 {
		return time.Time{}, fmt.Errorf("missing time")
	}
	if a.Len() >= 2 {
		joined := a.tokens[a.pos].value + " " + a.tokens[a.pos+1].value
		if _, err := utils.ParseDuration(a.tokens[a.pos].value); err != nil {
			if t, err := utils.ParseAbsoluteTime(joined, now); err == nil {
				a.pos += 2
				return checkFuture(t, now)
			}
		}
	}
	v, _ := a.Next()
	t, err := utils.ParseFutureTime(v, now)
	if err != nil {
		return time.Time{}, err
	}
	return checkFuture(t, now)
}

func checkFuture(t, now time.Time) (time.Time, error) {
	if !t.After(now) {
		return time.Time{}, fmt.Errorf("time %s is not in the future", utils.FormatTime(t))
	}
	return t, nil
}

// Rest consumes everything left and returns it as typed, quotes and line breaks included.
func (a *Args) Rest() string {
	if a.pos >= len(a.tokens) {
		return ""
	}
	rest := strings.TrimSpace(a.raw[a.tokens[a.pos].start:])
	a.pos = len(a.tokens)
	return rest
}

// Remaining consumes every argument left, one entry per argument.
func (a *Args) Remaining() []string {
	var out []string
	for a.pos < len(a.tokens) {
		out = append(out, a.tokens[a.pos].value)
		a.pos++
	}
	return out
}

// Done fails if arguments are left over.
func (a *Args) Done() error {
	if v, ok := a.Peek(); ok {
		return fmt.Errorf("unexpected argument %q", v)
	}
	return nil
}
