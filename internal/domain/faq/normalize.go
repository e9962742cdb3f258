package faq

import (
	"strings"
	"unicode"
)

// normalizeQuestion folds a sub-question into the key used for trending
// counts: lower case, apostrophes dropped, every other non-alphanumeric run
// collapsed to one space.
func normalizeQuestion(q string) string {
	q = strings.Map(func(r rune) rune {
		switch {
		case r == '\'' || r == '’':
			return -1
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return unicode.ToLower(r)
		default:
			return ' '
		}
	}, q)
	return strings.Join(strings.Fields(q), " ")
}
