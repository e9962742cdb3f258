package faq

import (
	"regexp"
	"strings"
	"unicode"
)

// questionBoundary splits on question marks and the conjunctions "and"/"also".
// Matching is case-sensitive, so a sentence-initial "Also" does not split.
var questionBoundary = regexp.MustCompile(`\?|\band\b|\balso\b`)

// SplitQuestions decomposes a compound query into sub-questions. Fragments
// without any letter are dropped and every kept fragment ends with "?". When
// nothing survives the original text is returned as the only sub-question,
// so only the empty string yields no sub-questions. Incidental conjunctions
// ("I tried it and it worked") also split.
func SplitQuestions(text string) []string {
	if text == "" {
		return nil
	}
	var out []string
	for _, part := range questionBoundary.Split(text, -1) {
		part = strings.TrimSpace(part)
		if part == "" || !strings.ContainsFunc(part, unicode.IsLetter) {
			continue
		}
		if !strings.HasSuffix(part, "?") {
			part += "?"
		}
		out = append(out, part)
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}
