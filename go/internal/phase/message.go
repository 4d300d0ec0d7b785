package phase

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinMessageSymbols = 1
	MaxMessageSymbols = 3
)

const zeroWidthJoiner = '\u200d'

// ValidateMessage trims content and checks it holds 1 to 3 visible symbols. Emoji built
// from several code points (modifiers, variation selectors, joined sequences) count once.
func ValidateMessage(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	n := CountSymbols(trimmed)
	if n < MinMessageSymbols || n > MaxMessageSymbols {
		return "", ErrInvalidMessage
	}
	return trimmed, nil
}

// CountSymbols approximates the number of user-perceived characters in s.
func CountSymbols(s string) int {
	count := 0
	joined := false
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]

		switch {
		case r == zeroWidthJoiner:
			joined = true
			continue
		case joined:
			joined = false
			continue
		case isModifier(r):
			continue
		}
		count++
	}
	return count
}

func isModifier(r rune) bool {
	if r >= 0x1F3FB && r <= 0x1F3FF {
		return true
	}
	return unicode.In(r, unicode.Mn, unicode.Me)
}
