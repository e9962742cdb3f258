package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/review-responder/internal/domain/responder"
	"github.com/yanqian/review-responder/internal/infra/llm/chatgpt"
	apperrors "github.com/yanqian/review-responder/pkg/errors"
)

type fakeCompletions struct {
	resp chatgpt.ChatCompletionResponse
	err  error
	got  chatgpt.ChatCompletionRequest
}

func (f *fakeCompletions) CreateChatCompletion(_ context.Context, req chatgpt.ChatCompletionRequest) (chatgpt.ChatCompletionResponse, error) {
	f.got = req
	return f.resp, f.err
}

func TestChatGPTLLMMapsRequestAndResponse(t *testing.T) {
	fake := &fakeCompletions{}
	fake.resp.Choices = append(fake.resp.Choices, struct {
		Message      chatgpt.Message `json:"message"`
		FinishReason string          `json:"finish_reason"`
	}{Message: chatgpt.Message{Role: "assistant", Content: "  positive \n"}})

	llm := &ChatGPTLLM{client: fake}
	out, err := llm.Chat(context.Background(), []responder.Message{
		{Role: "system", Content: "classify"},
		{Role: "user", Content: "great"},
	}, responder.CompletionOptions{Model: "gpt-test", Temperature: 0.5, MaxTokens: 10})
	require.NoError(t, err)
	require.Equal(t, "positive", out)
	require.Equal(t, "gpt-test", fake.got.Model)
	require.Equal(t, float32(0.5), fake.got.Temperature)
	require.Equal(t, 10, fake.got.MaxTokens)
	require.Equal(t, []chatgpt.Message{{Role: "system", Content: "classify"}, {Role: "user", Content: "great"}}, fake.got.Messages)
}

func TestChatGPTLLMErrors(t *testing.T) {
	llm := &ChatGPTLLM{client: &fakeCompletions{err: errors.New("boom")}}
	_, err := llm.Chat(context.Background(), nil, responder.CompletionOptions{})
	require.True(t, apperrors.IsCode(err, apperrors.CodeLLM))

	llm = &ChatGPTLLM{client: &fakeCompletions{}}
	_, err = llm.Chat(context.Background(), nil, responder.CompletionOptions{})
	require.True(t, apperrors.IsCode(err, apperrors.CodeLLM))
}

func TestOfflineLLM(t *testing.T) {
	_, err := OfflineLLM{}.Chat(context.Background(), nil, responder.CompletionOptions{})
	require.ErrorIs(t, err, ErrOffline)
}

func TestChatGPTLLMTracksUsage(t *testing.T) {
	fake := &fakeCompletions{}
	fake.resp.Usage = chatgpt.Usage{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15}
	fake.resp.Choices = append(fake.resp.Choices, struct {
		Message      chatgpt.Message `json:"message"`
		FinishReason string          `json:"finish_reason"`
	}{Message: chatgpt.Message{Content: "ok"}})

	llm := &ChatGPTLLM{client: fake}
	for i := 0; i < 2; i++ {
		_, err := llm.Chat(context.Background(), nil, responder.CompletionOptions{})
		require.NoError(t, err)
	}
	usage, calls := llm.Usage()
	require.Equal(t, 2, calls)
	require.Equal(t, 30, usage.TotalTokens)
	require.Equal(t, 6, usage.CompletionTokens)
}
