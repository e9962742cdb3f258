package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/yanqian/review-responder/internal/domain/faq"
	"github.com/yanqian/review-responder/internal/infra/llm/chatgpt"
	"github.com/yanqian/review-responder/pkg/metrics"
)

const (
	// maxInputTokens is the per-input limit of the OpenAI embedding models.
	maxInputTokens = 8191
	// maxBatchTokens stays well below the provider's 300k per-request cap.
	maxBatchTokens = 200_000
)

type embeddingClient interface {
	CreateEmbedding(ctx context.Context, req chatgpt.EmbeddingRequest) (chatgpt.EmbeddingResponse, error)
}

// ChatGPTEmbedder calls the OpenAI-compatible embeddings API.
type ChatGPTEmbedder struct {
	client embeddingClient
	model  string
	logger *slog.Logger
	usage  metrics.Meter

	tokenizerOnce sync.Once
	tokenizer     tokenizer
}

// NewChatGPTEmbedder constructs an embedder backed by the ChatGPT client.
func NewChatGPTEmbedder(client *chatgpt.Client, model string, logger *slog.Logger) *ChatGPTEmbedder {
	return newChatGPTEmbedder(client, model, logger)
}

func newChatGPTEmbedder(client embeddingClient, model string, logger *slog.Logger) *ChatGPTEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatGPTEmbedder{
		client: client,
		model:  strings.TrimSpace(model),
		logger: logger.With("component", "embedder.chatgpt"),
	}
}

// Embed returns one vector per text, in order. Oversized inputs are truncated
// to the model's token limit; large inputs are split over several requests.
func (e *ChatGPTEmbedder) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if strings.TrimSpace(model) == "" {
		model = e.model
	}
	tok := e.getTokenizer()

	out := make([][]float32, 0, len(texts))
	var (
		batch       []string
		batchTokens int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		resp, err := e.client.CreateEmbedding(ctx, chatgpt.EmbeddingRequest{Model: model, Input: batch})
		if err != nil {
			return fmt.Errorf("create embedding: %w", err)
		}
		e.usage.Record(metrics.TokenUsage{PromptTokens: resp.Usage.PromptTokens, TotalTokens: resp.Usage.TotalTokens})
		if len(resp.Data) != len(batch) {
			return fmt.Errorf("embedding result count mismatch: expected %d got %d", len(batch), len(resp.Data))
		}
		for _, item := range resp.Data {
			vec := make([]float32, len(item.Embedding))
			copy(vec, item.Embedding)
			out = append(out, vec)
		}
		batch = batch[:0]
		batchTokens = 0
		return nil
	}

	for _, text := range texts {
		truncated, tokens, cut := tok.Truncate(text, maxInputTokens)
		if cut {
			e.logger.Warn("embedding input truncated", "tokens", tokens, "limit", maxInputTokens)
		}
		if batchTokens+tokens > maxBatchTokens && len(batch) > 0 {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		batch = append(batch, truncated)
		batchTokens += tokens
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

// Usage returns the tokens billed so far and the number of requests made.
func (e *ChatGPTEmbedder) Usage() (metrics.TokenUsage, int) {
	return e.usage.Snapshot()
}

func (e *ChatGPTEmbedder) getTokenizer() tokenizer {
	e.tokenizerOnce.Do(func() {
		if e.tokenizer != nil {
			return
		}
		e.tokenizer = newTokenizer(e.logger)
	})
	return e.tokenizer
}

var _ faq.EmbeddingProvider = (*ChatGPTEmbedder)(nil)
