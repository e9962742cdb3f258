package responder

import (
	"fmt"
	"strings"
)

// Rules steer the tone of a reply.
type Rules struct {
	Opening string
	Closing string
	Emoji   string
	Style   string
}

// brandedClosings replace the generic closing when a brand name is configured.
var brandedClosings = map[int]string{
	5: "We appreciate you being a valued %s customer!",
	4: "We're glad you had a good experience with %s.",
}

var ratingRules = map[int]Rules{
	5: {
		Opening: "We're thrilled to hear about your experience!",
		Closing: "We appreciate you being a valued customer!",
		Emoji:   "🌟",
		Style:   "enthusiastic and appreciative",
	},
	4: {
		Opening: "Thank you for your positive feedback!",
		Closing: "We're glad you had a good experience with us.",
		Style:   "warm and professional",
	},
	3: {
		Opening: "Thanks for sharing your feedback with us.",
		Closing: "Let us know if there's anything else we can assist with.",
		Style:   "neutral and helpful",
	},
	2: {
		Opening: "We appreciate you bringing this to our attention.",
		Closing: "Please don't hesitate to reach out if you need further assistance.",
		Style:   "solution-focused",
	},
	1: {
		Opening: "We sincerely apologize for your experience.",
		Closing: "Our support team is ready to help resolve this for you.",
		Style:   "empathetic and action-oriented",
	},
}

// rulesFor combines the rating rules with the detected sentiment. Ratings
// outside 1..5 use the 3-star rules.
func rulesFor(rating int, sentiment Sentiment, brand string) Rules {
	rules, ok := ratingRules[rating]
	if !ok {
		rules = ratingRules[3]
	}
	if tmpl, ok := brandedClosings[rating]; ok && brand != "" {
		rules.Closing = fmt.Sprintf(tmpl, brand)
	}

	switch {
	case sentiment == SentimentNegative:
		if rating >= 4 {
			rules.Opening = "We appreciate your honest feedback."
			rules.Style = "empathetic and solution-focused"
		}
		rules.Closing = "We're committed to improving your experience."
		rules.Emoji = ""
	case sentiment == SentimentPositive && rating <= 2:
		rules.Opening = "We appreciate your kind words and take your feedback seriously."
		rules.Style = "appreciative and solution-focused"
	}
	return rules
}

// parseSentiment maps a model answer onto a Sentiment; anything unexpected is neutral.
func parseSentiment(raw string) Sentiment {
	word := strings.ToLower(strings.TrimSpace(raw))
	word = strings.Trim(word, ".!\"'")
	switch Sentiment(word) {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return Sentiment(word)
	default:
		return SentimentNeutral
	}
}
