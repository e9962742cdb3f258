package faq

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeQuestion(t *testing.T) {
	cases := []struct {
		name string
		in   string
		out  string
	}{
		{name: "trims whitespace", in: "  Hello World  ", out: "hello world"},
		{name: "drops apostrophes", in: "What's the fee?", out: "whats the fee"},
		{name: "curly apostrophe", in: "Can’t log in", out: "cant log in"},
		{name: "punctuation runs", in: "card -- frozen?!", out: "card frozen"},
		{name: "blank", in: " ?? ", out: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.out, normalizeQuestion(tc.in))
		})
	}
}
