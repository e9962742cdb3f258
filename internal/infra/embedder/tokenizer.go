package embedder

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const encodingName = "cl100k_base"

// tokenizer counts tokens and cuts text down to a token budget.
type tokenizer interface {
	// Truncate returns text limited to max tokens, the resulting token count,
	// and whether anything was cut.
	Truncate(text string, max int) (string, int, bool)
}

func newTokenizer(logger *slog.Logger) tokenizer {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		logger.Warn("tiktoken unavailable, using rune estimate", "encoding", encodingName, "error", err)
		return runeTokenizer{}
	}
	return tiktokenTokenizer{enc: enc}
}

type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

func (t tiktokenTokenizer) Truncate(text string, max int) (string, int, bool) {
	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= max {
		return text, len(tokens), false
	}
	return t.enc.Decode(tokens[:max]), max, true
}

// runeTokenizer is an upper-biased estimate: about one token per two runes
// and never fewer tokens than words.
type runeTokenizer struct{}

func (runeTokenizer) Truncate(text string, max int) (string, int, bool) {
	tokens := estimateTokens(text)
	if tokens <= max {
		return text, tokens, false
	}
	runes := []rune(text)
	keep := max * 2
	if keep > len(runes) {
		keep = len(runes)
	}
	out := string(runes[:keep])
	return out, estimateTokens(out), true
}

func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	runes := utf8.RuneCountInString(text)
	words := len(strings.Fields(text))
	byRunes := (runes + 1) / 2
	if byRunes < words {
		return words
	}
	return byRunes
}
