package faq

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	apperrors "github.com/yanqian/review-responder/pkg/errors"
	"github.com/yanqian/review-responder/pkg/pacer"
)

// EmbeddingClient resolves embeddings through the cache and falls back to the
// provider, pacing provider requests through a shared pacer.
type EmbeddingClient struct {
	cfg      ClientConfig
	cache    EmbeddingCache
	provider EmbeddingProvider
	pacer    *pacer.Pacer
	logger   *slog.Logger
}

// NewEmbeddingClient wires up the embedding client.
func NewEmbeddingClient(cfg ClientConfig, cache EmbeddingCache, provider EmbeddingProvider, logger *slog.Logger) *EmbeddingClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbeddingClient{
		cfg:      cfg.withDefaults(),
		cache:    cache,
		provider: provider,
		pacer:    pacer.New(),
		logger:   logger.With("component", "faq.embedding"),
	}
}

// Model returns the embedding model identifier.
func (c *EmbeddingClient) Model() string {
	return c.cfg.Model
}

// Cached returns the cached vector for text without calling the provider.
func (c *EmbeddingClient) Cached(ctx context.Context, text string) ([]float32, bool) {
	if !validText(text) {
		return nil, false
	}
	return c.cache.Get(ctx, text)
}

// EmbedOne returns the embedding of text, computing and caching it on a miss.
// The vector is still returned when only the durable cache flush failed; the
// error then carries the cache_io code.
func (c *EmbeddingClient) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if !validText(text) {
		c.logger.Debug("skipping empty embedding input")
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "embedding input cannot be empty", nil)
	}
	if vector, ok := c.cache.Get(ctx, text); ok {
		return vector, nil
	}

	vectors, err := c.request(ctx, c.cfg.SingleDelay, []string{text})
	if err != nil {
		c.logger.Warn("embedding request failed", "error", err)
		return nil, apperrors.Wrap(apperrors.CodeProviderUnavailable, "embedding request failed", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		c.logger.Warn("embedding response empty")
		return nil, apperrors.Wrap(apperrors.CodeProviderUnavailable, "embedding response empty", nil)
	}
	vector := vectors[0]

	if err := c.cache.Put(ctx, text, vector); err != nil {
		c.logger.Error("embedding cache write failed", "error", err)
		return vector, apperrors.Wrap(apperrors.CodeCacheIO, "embedding cache write failed", err)
	}
	return vector, nil
}

// EmbedBatch computes embeddings for every uncached text, one provider request
// per chunk of at most BatchSize texts. Failed chunks are logged and counted;
// results are only observable through the cache. The returned error is
// reserved for cache write failures: every chunk is still processed and the
// first write failure is returned with the cache_io code.
func (c *EmbeddingClient) EmbedBatch(ctx context.Context, texts []string) (BatchReport, error) {
	report := BatchReport{Requested: len(texts)}

	pending := make([]string, 0, len(texts))
	seen := make(map[string]struct{}, len(texts))
	for _, text := range texts {
		if !validText(text) {
			report.Skipped++
			continue
		}
		if _, dup := seen[text]; dup {
			report.Skipped++
			continue
		}
		seen[text] = struct{}{}
		if _, ok := c.cache.Get(ctx, text); ok {
			report.Skipped++
			continue
		}
		pending = append(pending, text)
	}

	var cacheErr error
	for start := 0; start < len(pending); start += c.cfg.BatchSize {
		end := start + c.cfg.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		chunk := pending[start:end]

		vectors, err := c.request(ctx, c.cfg.BatchDelay, chunk)
		if err != nil {
			report.Failed += len(chunk)
			c.logger.Warn("batch embedding request failed", "size", len(chunk), "error", err)
			if ctx.Err() != nil {
				report.Failed += len(pending) - end
				return report, cacheErr
			}
			continue
		}
		if len(vectors) != len(chunk) {
			c.logger.Warn("embedding result count mismatch", "expected", len(chunk), "got", len(vectors))
		}

		items := make([]CacheItem, 0, len(chunk))
		for i, text := range chunk {
			if i >= len(vectors) || len(vectors[i]) == 0 {
				report.Failed++
				continue
			}
			items = append(items, CacheItem{Text: text, Vector: vectors[i]})
		}
		if len(items) == 0 {
			continue
		}
		if err := c.cache.PutMany(ctx, items); err != nil {
			c.logger.Error("embedding cache write failed", "size", len(items), "error", err)
			report.CacheErrors++
			if cacheErr == nil {
				cacheErr = apperrors.Wrap(apperrors.CodeCacheIO, "embedding cache write failed", err)
			}
		}
		report.Computed += len(items)
	}
	return report, cacheErr
}

func (c *EmbeddingClient) request(ctx context.Context, spacing time.Duration, texts []string) ([][]float32, error) {
	if err := c.pacer.Wait(ctx, spacing); err != nil {
		return nil, fmt.Errorf("wait for request slot: %w", err)
	}
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()
	return c.provider.Embed(reqCtx, c.cfg.Model, texts)
}

func validText(text string) bool {
	return strings.TrimSpace(text) != ""
}
