package responder

import (
	"fmt"
	"strings"

	"github.com/yanqian/review-responder/internal/domain/faq"
)

const sentimentPrompt = "Analyze the sentiment of this review text. Respond ONLY with one word: 'positive', 'neutral', or 'negative'."

// skippedPrefixes drop greeting and sign-off lines from generated replies.
var skippedPrefixes = []string{"dear", "hi ", "hello", "best", "regards", "sincerely"}

var fallbackByRating = map[int]string{
	5: "Thank you! We're experiencing high volume but will respond soon.",
	4: "Thanks for your patience. Our team is reviewing your query.",
	3: "We've noted your feedback.",
	2: "We're working to resolve this.",
	1: "We're prioritizing this issue.",
}

type promptInput struct {
	Review     string
	Rating     int
	Sentiment  Sentiment
	BrandVoice string
	Brand      string
	Rules      Rules
	Matches    []faq.Match
}

func buildReplyPrompt(in promptInput) string {
	var b strings.Builder
	if in.Brand != "" {
		fmt.Fprintf(&b, "You are crafting an official %s response to a customer review.\n\n", in.Brand)
	} else {
		b.WriteString("You are crafting an official response to a customer review.\n\n")
	}
	b.WriteString("REVIEW DETAILS:\n")
	fmt.Fprintf(&b, "Rating: %d stars\n", in.Rating)
	fmt.Fprintf(&b, "Sentiment: %s\n", in.Sentiment)
	fmt.Fprintf(&b, "Content: %s\n\n", in.Review)

	b.WriteString("RELEVANT FAQ ANSWERS:\n")
	b.WriteString(formatContext(in.Matches))
	b.WriteString("\n\n")

	b.WriteString("RESPONSE GUIDELINES:\n")
	b.WriteString("1. Strict Formatting Rules:\n")
	b.WriteString("- Respond directly to the review (no greetings or closings)\n")
	b.WriteString("- Exactly 3 paragraphs separated by blank lines\n")
	b.WriteString("- Each paragraph 2-4 sentences maximum\n")
	b.WriteString("- Never use bullet points or lists\n")
	b.WriteString("- Never include contact information unless specifically about support\n\n")
	b.WriteString("2. Content Structure:\n")
	fmt.Fprintf(&b, "- First paragraph: Acknowledge the feedback, in the spirit of %q\n", in.Rules.Opening)
	b.WriteString("- Second paragraph: Address the main issue, using the FAQ answers when they apply\n")
	fmt.Fprintf(&b, "- Third paragraph: Provide resolution/next steps, in the spirit of %q\n\n", in.Rules.Closing)
	b.WriteString("3. Tone Requirements:\n")
	fmt.Fprintf(&b, "- Style: %s; brand voice: %s\n", in.Rules.Style, in.BrandVoice)
	b.WriteString("- Must sound like a natural review response\n")
	b.WriteString("- Avoid corporate jargon\n")
	fmt.Fprintf(&b, "- Match the %s sentiment appropriately\n", in.Sentiment)
	if in.Rules.Emoji != "" {
		fmt.Fprintf(&b, "- You may use the %s emoji once\n", in.Rules.Emoji)
	}
	b.WriteString("\nPROHIBITED FORMATTING:\n")
	b.WriteString("- Any bullet points or numbered lists\n")
	b.WriteString("- Email signatures or contact information\n")
	b.WriteString("- Greetings like \"Dear customer\"\n")
	b.WriteString("- Closings like \"Best regards\"\n")
	b.WriteString("- Paragraphs longer than 4 sentences")
	return b.String()
}

func formatContext(matches []faq.Match) string {
	if len(matches) == 0 {
		return "None"
	}
	lines := make([]string, 0, len(matches))
	for i, m := range matches {
		lines = append(lines, fmt.Sprintf("%d. %s\n   → %s", i+1, m.MatchedQuestion, m.Answer))
	}
	return strings.Join(lines, "\n")
}

// formatReply keeps exactly three paragraphs, dropping greeting and sign-off
// lines and joining wrapped lines within a paragraph.
func formatReply(raw string) string {
	var (
		paragraphs []string
		current    []string
	)
	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, " "))
			current = nil
		}
	}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flush()
			continue
		}
		if hasSkippedPrefix(line) {
			continue
		}
		current = append(current, line)
	}
	flush()

	for len(paragraphs) < 3 {
		paragraphs = append(paragraphs, "")
	}
	return strings.Join(paragraphs[:3], "\n\n")
}

func hasSkippedPrefix(line string) bool {
	lowered := strings.ToLower(line)
	for _, prefix := range skippedPrefixes {
		if strings.HasPrefix(lowered, prefix) {
			return true
		}
	}
	return false
}

// fallbackReply is used when the language model is unavailable.
func fallbackReply(rating int, matches []faq.Match) string {
	base, ok := fallbackByRating[rating]
	if !ok {
		base = "Thanks for your feedback."
	}
	if len(matches) == 0 {
		return base
	}
	if len(matches) > 2 {
		matches = matches[:2]
	}
	lines := make([]string, len(matches))
	for i, m := range matches {
		lines[i] = "- " + m.Answer
	}
	return base + "\n\nTry these solutions:\n" + strings.Join(lines, "\n")
}
