package responder

import (
	"context"
	"time"

	"github.com/yanqian/review-responder/internal/domain/faq"
)

// Sentiment is the tone detected in a review.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Reply sources.
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// Request is a customer review to answer.
type Request struct {
	Review     string `json:"review"`
	Rating     int    `json:"rating"`
	BrandVoice string `json:"brandVoice"`
}

// Response is the generated reply and the FAQ context used for it.
type Response struct {
	ID        string      `json:"id"`
	Reply     string      `json:"reply"`
	Sentiment Sentiment   `json:"sentiment"`
	Source    string      `json:"source"`
	Matches   []faq.Match `json:"matches"`
}

// Message is one chat message sent to the language model.
type Message struct {
	Role    string
	Content string
}

// CompletionOptions tunes a single chat call.
type CompletionOptions struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// LLM generates text from chat messages.
type LLM interface {
	Chat(ctx context.Context, messages []Message, opts CompletionOptions) (string, error)
}

// Retriever finds FAQ entries relevant to a review.
type Retriever interface {
	FindMatches(ctx context.Context, query string, opts faq.SearchOptions) (faq.Result, error)
}

// Config holds runtime knobs for reply generation.
type Config struct {
	Model             string
	SentimentModel    string
	Temperature       float32
	MaxTokens         int
	Brand             string
	DefaultBrandVoice string
	Pacing            time.Duration
	ContextSize       int
}

func (c Config) withDefaults() Config {
	if c.SentimentModel == "" {
		c.SentimentModel = c.Model
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 400
	}
	if c.DefaultBrandVoice == "" {
		c.DefaultBrandVoice = "professional"
	}
	if c.ContextSize <= 0 {
		c.ContextSize = 3
	}
	return c
}
