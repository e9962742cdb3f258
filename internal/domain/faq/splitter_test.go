package faq

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitQuestions(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "question mark then also",
			in:   "How do I update my number? Also what's the care email?",
			want: []string{"How do I update my number?", "Also what's the care email?"},
		},
		{
			name: "conjunction split",
			in:   "How do I reset my PIN and where is my statement",
			want: []string{"How do I reset my PIN?", "where is my statement?"},
		},
		{
			name: "lowercase also splits",
			in:   "can I pause my card also can I close it",
			want: []string{"can I pause my card?", "can I close it?"},
		},
		{
			name: "single question",
			in:   "My card was hacked! How do I freeze it?",
			want: []string{"My card was hacked! How do I freeze it?"},
		},
		{
			name: "no letters falls back to whole text",
			in:   "??? 123",
			want: []string{"??? 123"},
		},
		{
			name: "words containing and are kept intact",
			in:   "Where is the brand handbook",
			want: []string{"Where is the brand handbook?"},
		},
		{
			name: "incidental conjunction splits",
			in:   "I tried it and it worked",
			want: []string{"I tried it?", "it worked?"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, SplitQuestions(tc.in))
		})
	}
}

func TestSplitQuestionsBlank(t *testing.T) {
	require.Nil(t, SplitQuestions(""))
	require.Equal(t, []string{"   \n\t"}, SplitQuestions("   \n\t"))
	require.Equal(t, []string{" ? "}, SplitQuestions(" ? "))
}

func TestSplitQuestionsEndWithQuestionMark(t *testing.T) {
	parts := SplitQuestions("How do I update my number? Also what's the care email?")
	require.Len(t, parts, 2)
	for _, p := range parts {
		require.NotEmpty(t, strings.TrimSuffix(p, "?"))
		require.True(t, strings.HasSuffix(p, "?"))
	}
}
