package adapter

import (
	"context"
	"errors"
	"strings"

	"github.com/yanqian/review-responder/internal/domain/responder"
	"github.com/yanqian/review-responder/internal/infra/llm/chatgpt"
	apperrors "github.com/yanqian/review-responder/pkg/errors"
	"github.com/yanqian/review-responder/pkg/metrics"
)

// ErrOffline is returned by OfflineLLM for every call.
var ErrOffline = errors.New("language model not configured")

type completionClient interface {
	CreateChatCompletion(ctx context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error)
}

// ChatGPTLLM adapts the ChatGPT client to the responder domain.
type ChatGPTLLM struct {
	client completionClient
	usage  metrics.Meter
}

// NewChatGPTLLM constructs the adapter.
func NewChatGPTLLM(client *chatgpt.Client) *ChatGPTLLM {
	return &ChatGPTLLM{client: client}
}

// Chat sends a chat completion request and returns the first choice.
func (l *ChatGPTLLM) Chat(ctx context.Context, messages []responder.Message, opts responder.CompletionOptions) (string, error) {
	req := chatgpt.ChatCompletionRequest{
		Model:       opts.Model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Messages:    make([]chatgpt.Message, 0, len(messages)),
	}
	for _, msg := range messages {
		req.Messages = append(req.Messages, chatgpt.Message{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}
	resp, err := l.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeLLM, "chat completion failed", err)
	}
	l.usage.Record(metrics.TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	})
	if len(resp.Choices) == 0 {
		return "", apperrors.Wrap(apperrors.CodeLLM, "chat completion returned no choices", nil)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Usage returns the tokens billed so far and the number of completed calls.
func (l *ChatGPTLLM) Usage() (metrics.TokenUsage, int) {
	return l.usage.Snapshot()
}

var _ responder.LLM = (*ChatGPTLLM)(nil)

// OfflineLLM stands in when no API key is configured; replies use the
// canned fallback.
type OfflineLLM struct{}

// Chat always fails.
func (OfflineLLM) Chat(context.Context, []responder.Message, responder.CompletionOptions) (string, error) {
	return "", apperrors.Wrap(apperrors.CodeLLM, "chat completion unavailable", ErrOffline)
}

var _ responder.LLM = OfflineLLM{}
