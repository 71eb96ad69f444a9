package shell

import (
	"errors"
	"strings"
	"unicode"
)

// ErrUnterminatedQuote is returned by Tokenize when a quote is not closed.
var ErrUnterminatedQuote = errors.New("unterminated quote")

// Tokenize splits line on whitespace. Text inside double quotes stays in
// one token with the quotes removed; "" yields an empty token.
func Tokenize(line string) ([]string, error) {
	var tokens []string
	var buf strings.Builder
	inQuote := false
	inToken := false

	for _, c := range line {
		switch {
		case c == '"':
			inQuote = !inQuote
			inToken = true
		case inQuote:
			buf.WriteRune(c)
		case unicode.IsSpace(c):
			if inToken {
				tokens = append(tokens, buf.String())
				buf.Reset()
				inToken = false
			}
		default:
			buf.WriteRune(c)
			inToken = true
		}
	}
	if inQuote {
		return nil, ErrUnterminatedQuote
	}
	if inToken {
		tokens = append(tokens, buf.String())
	}
	return tokens, nil
}
