package commands

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestTokenize(t *testing.T) {
	tokens, err := tokenize(`del <@1> <#2>  "two words" 3`)
	require.NoError(t, err)

	var values []string
	for _, tok := range tokens {
		values = append(values, tok.value)
	}
	assert.Equal(t, []string{"del", "<@1>", "<#2>", "two words", "3"}, values)
	assert.Equal(t, 15, tokens[3].start)

	tokens, err = tokenize(`say "a \"quoted\" word"`)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, `a "quoted" word`, tokens[1].value)

	_, err = tokenize(`say "oops`)
	assert.ErrorIs(t, err, errUnclosedQuote)
}

func TestArgsMentionsAndInts(t *testing.T) {
	a, err := NewArgs("<@1> <@!2> <#10> 5 2")
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2"}, a.Users())
	assert.Equal(t, "10", a.Channel())
	assert.Equal(t, 5, a.Int(1))
	assert.Equal(t, 2, a.Int(0))
	assert.Equal(t, 7, a.Int(7))
	assert.NoError(t, a.Done())
}

func TestArgsDefaultsAndLeftovers(t *testing.T) {
	a, err := NewArgs("hello")
	require.NoError(t, err)

	assert.Empty(t, a.Users())
	assert.Empty(t, a.Channel())
	assert.Equal(t, 1, a.Int(1))
	assert.Error(t, a.Done())
}

func TestArgsRestKeepsFormatting(t *testing.T) {
	a, err := NewArgs("<#10> 1h  first line\n\"second\" line")
	require.NoError(t, err)

	assert.Equal(t, "10", a.Channel())
	_, err = a.FutureTime(testNow)
	require.NoError(t, err)
	assert.Equal(t, "first line\n\"second\" line", a.Rest())
	assert.Equal(t, 0, a.Len())
}

func TestArgsRemaining(t *testing.T) {
	a, err := NewArgs(`<@1> 2 👍 "<:x:9>"`)
	require.NoError(t, err)

	assert.Equal(t, "1", a.User())
	assert.Equal(t, 2, a.Int(1))
	assert.Equal(t, []string{"👍", "<:x:9>"}, a.Remaining())
	assert.Empty(t, a.Remaining())
	assert.NoError(t, a.Done())
}

func TestArgsFutureTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
		left int
	}{
		{"1d2h3m4s rest", testNow.Add(26*time.Hour + 3*time.Minute + 4*time.Second), 1},
		{"2024-05-02 08:30 text", time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC), 1},
		{"2024-05-02", time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), 0},
		{"5-3 3pm", time.Date(2024, 5, 3, 15, 0, 0, 0, time.UTC), 0},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			a, err := NewArgs(tc.in)
			require.NoError(t, err)
			got, err := a.FutureTime(testNow)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "got %s", got)
			assert.Equal(t, tc.left, a.Len())
		})
	}
}

func TestArgsFutureTimeRejectsPast(t *testing.T) {
	for _, in := range []string{"2020-01-01 10:00", "0s", "nonsense", ""} {
		a, err := NewArgs(in)
		require.NoError(t, err)
		_, err = a.FutureTime(testNow)
		assert.Error(t, err, in)
	}
}

func TestArgsRole(t *testing.T) {
	a, _ := NewArgs("<@&42>")
	id, err := a.Role()
	require.NoError(t, err)
	assert.Equal(t, "42", id)

	a, _ = NewArgs("<@42>")
	_, err = a.Role()
	assert.Error(t, err)
}

func newTestRouter(ran *[]string) *Router {
	r := NewRouter("?")
	record := func(name string) Runner {
		return func(*Context) error {
			*ran = append(*ran, name)
			return nil
		}
	}
	r.Register(
		&Command{
			Name:    "delete",
			Aliases: []string{"del"},
			Usage:   "delete [@users]... [#channel] [num] [skip]",
			ModOnly: true,
			Bind: func(a *Args, _ time.Time) (Runner, error) {
				a.Users()
				a.Channel()
				if n := a.Int(1); n < 1 {
					return nil, errors.New("num must be positive")
				}
				a.Int(0)
				return record("delete"), nil
			},
			Subcommands: []*Command{
				{
					Name:    "cache",
					Aliases: []string{"list"},
					Usage:   "delete cache",
					Bind: func(*Args, time.Time) (Runner, error) {
						return record("delete cache"), nil
					},
				},
			},
		},
		&Command{
			Name: "schedule",
			Subcommands: []*Command{
				{
					Name:  "cmd",
					Usage: "schedule cmd <time> <command>",
					Bind: func(a *Args, now time.Time) (Runner, error) {
						if _, err := a.FutureTime(now); err != nil {
							return nil, err
						}
						if a.Rest() == "" {
							return nil, errors.New("missing command")
						}
						return record("schedule cmd"), nil
					},
				},
			},
		},
	)
	return r
}

func TestRouterParse(t *testing.T) {
	var ran []string
	r := newTestRouter(&ran)

	cmd, run, err := r.Parse("?del <@1> 3", testNow)
	require.NoError(t, err)
	assert.Equal(t, "delete", cmd.Name)
	require.NoError(t, run(&Context{}))

	cmd, run, err = r.Parse("DELETE list", testNow)
	require.NoError(t, err)
	assert.Equal(t, "cache", cmd.Name)
	require.NoError(t, run(&Context{}))

	assert.Equal(t, []string{"delete", "delete cache"}, ran)
}

func TestRouterValidate(t *testing.T) {
	var ran []string
	r := newTestRouter(&ran)

	assert.NoError(t, r.Validate("schedule cmd 5m delete 3", testNow))
	assert.ErrorIs(t, r.Validate("frobnicate", testNow), ErrUnknownCommand)
	assert.ErrorIs(t, r.Validate("", testNow), ErrUnknownCommand)

	var usage *UsageError
	err := r.Validate("delete 0", testNow)
	require.ErrorAs(t, err, &usage)
	assert.Equal(t, "delete", usage.Command)

	assert.ErrorAs(t, r.Validate("delete 1 2 3", testNow), &usage)
	assert.ErrorAs(t, r.Validate("schedule", testNow), &usage)
	assert.ErrorAs(t, r.Validate("schedule cmd 5m", testNow), &usage)
	assert.ErrorAs(t, r.Validate(`delete "unclosed`, testNow), &usage)

	assert.Empty(t, ran, "validation never runs a command")
}

func TestBuildHelpEmbed(t *testing.T) {
	var ran []string
	r := newTestRouter(&ran)

	embed := BuildHelpEmbed(r)
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "delete (del) [mod]", embed.Fields[0].Name)
	assert.Contains(t, embed.Fields[0].Value, "`?delete cache`")
}
