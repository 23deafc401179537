package commands

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

var errUnclosedQuote = errors.New("unclosed quote")

// token is one argument together with its byte span in the raw command text.
type token struct {
	value string
	start int
	end   int
}

// tokenize splits s on unquoted whitespace. Double quotes group words, a backslash escapes
// the next rune inside quotes. Mention syntax such as <@123> and <#456> is kept as is.
func tokenize(s string) ([]token, error) {
	var (
		tokens []token
		buf    strings.Builder
		start  = -1
		quoted bool
	)
	flush := func(end int) {
		if start >= 0 {
			tokens = append(tokens, token{value: buf.String(), start: start, end: end})
		}
		buf.Reset()
		start = -1
	}

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case quoted && r == '\\' && i+size < len(s):
			next, nsize := utf8.DecodeRuneInString(s[i+size:])
			buf.WriteRune(next)
			i += size + nsize
			continue
		case r == '"':
			if start < 0 {
				start = i
			}
			quoted = !quoted
		case !quoted && unicode.IsSpace(r):
			flush(i)
		default:
			if start < 0 {
				start = i
			}
			buf.WriteRune(r)
		}
		i += size
	}
	if quoted {
		return nil, errUnclosedQuote
	}
	flush(len(s))
	return tokens, nil
}
