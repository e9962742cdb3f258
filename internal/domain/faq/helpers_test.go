package faq

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastClientConfig() ClientConfig {
	return ClientConfig{
		Model:          "test-embedding",
		BatchSize:      2,
		SingleDelay:    time.Nanosecond,
		BatchDelay:     time.Nanosecond,
		RequestTimeout: time.Second,
	}
}

type memoryCache struct {
	mu      sync.Mutex
	vectors map[string][]float32
	putErr  error
	puts    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{vectors: make(map[string][]float32)}
}

func (c *memoryCache) Get(_ context.Context, text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.vectors[CacheKey(text)]
	return v, ok
}

func (c *memoryCache) Put(ctx context.Context, text string, vector []float32) error {
	return c.PutMany(ctx, []CacheItem{{Text: text, Vector: vector}})
}

func (c *memoryCache) PutMany(_ context.Context, items []CacheItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	for _, item := range items {
		c.vectors[CacheKey(item.Text)] = item.Vector
	}
	return c.putErr
}

// keywordProvider embeds text as a unit vector over keyword presence plus a bias dimension.
type keywordProvider struct {
	mu       sync.Mutex
	keywords []string
	calls    [][]string
	failAll  bool
	failWhen func(texts []string) bool
}

func newKeywordProvider(keywords ...string) *keywordProvider {
	return &keywordProvider{keywords: keywords}
}

func (p *keywordProvider) Embed(_ context.Context, _ string, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, append([]string(nil), texts...))
	if p.failAll || (p.failWhen != nil && p.failWhen(texts)) {
		return nil, errors.New("provider unavailable")
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = keywordVector(p.keywords, text)
	}
	return out, nil
}

func (p *keywordProvider) setFailAll(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failAll = v
}

func (p *keywordProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func keywordVector(keywords []string, text string) []float32 {
	lowered := strings.ToLower(text)
	vector := make([]float32, len(keywords)+1)
	vector[len(keywords)] = 0.25
	for i, kw := range keywords {
		if strings.Contains(lowered, kw) {
			vector[i] = 1
		}
	}
	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	for i := range vector {
		vector[i] = float32(float64(vector[i]) / norm)
	}
	return vector
}

type memoryStats struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (s *memoryStats) IncrementQuery(_ context.Context, canonical, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counts == nil {
		s.counts = make(map[string]int64)
	}
	s.counts[canonical]++
	return nil
}

func (s *memoryStats) TopQueries(_ context.Context, limit int) ([]TrendingQuery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []TrendingQuery
	for q, c := range s.counts {
		out = append(out, TrendingQuery{Query: q, Count: c})
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type staticCorpus struct {
	entries []Entry
	err     error
}

func (c staticCorpus) Load(context.Context) ([]Entry, error) {
	return c.entries, c.err
}
