package embedcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/review-responder/internal/domain/faq"
)

const defaultFrontSize = 4096

// ValkeyCache shares embeddings between instances through Valkey, with a
// bounded in-process LRU in front for hot keys.
type ValkeyCache struct {
	client valkey.Client
	prefix string
	ttl    time.Duration
	front  *lru.Cache[string, []float32]
	logger *slog.Logger
}

// NewValkeyCache constructs a cache backed by Valkey.
func NewValkeyCache(client valkey.Client, prefix string, ttl time.Duration, frontSize int, logger *slog.Logger) (*ValkeyCache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = "faq"
	}
	if frontSize <= 0 {
		frontSize = defaultFrontSize
	}
	front, err := lru.New[string, []float32](frontSize)
	if err != nil {
		return nil, fmt.Errorf("create lru front: %w", err)
	}
	return &ValkeyCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		front:  front,
		logger: logger.With("component", "embedcache.valkey"),
	}, nil
}

// Get checks the LRU front, then Valkey. Valkey errors count as misses.
func (c *ValkeyCache) Get(ctx context.Context, text string) ([]float32, bool) {
	key := faq.CacheKey(text)
	if vector, ok := c.front.Get(key); ok {
		return append([]float32(nil), vector...), true
	}
	payload, err := c.client.Do(ctx, c.client.B().Get().Key(c.entryKey(key)).Build()).ToString()
	if err != nil {
		if !valkey.IsValkeyNil(err) {
			c.logger.Warn("valkey embedding lookup failed", "error", err)
		}
		return nil, false
	}
	var vector []float32
	if err := json.Unmarshal([]byte(payload), &vector); err != nil || len(vector) == 0 {
		c.logger.Warn("valkey embedding payload invalid", "key", key, "error", err)
		return nil, false
	}
	c.front.Add(key, vector)
	return append([]float32(nil), vector...), true
}

// Put stores one vector.
func (c *ValkeyCache) Put(ctx context.Context, text string, vector []float32) error {
	return c.PutMany(ctx, []faq.CacheItem{{Text: text, Vector: vector}})
}

// PutMany pipelines one SET per item.
func (c *ValkeyCache) PutMany(ctx context.Context, items []faq.CacheItem) error {
	if len(items) == 0 {
		return nil
	}
	cmds := make([]valkey.Completed, 0, len(items))
	keys := make([]string, 0, len(items))
	for _, item := range items {
		payload, err := json.Marshal(item.Vector)
		if err != nil {
			return fmt.Errorf("encode embedding: %w", err)
		}
		key := faq.CacheKey(item.Text)
		keys = append(keys, key)
		cmds = append(cmds, c.setCommand(c.entryKey(key), string(payload)))
	}
	for i, resp := range c.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("store embedding %s: %w", keys[i], err)
		}
		c.front.Add(keys[i], append([]float32(nil), items[i].Vector...))
	}
	return nil
}

func (c *ValkeyCache) setCommand(key, value string) valkey.Completed {
	builder := c.client.B().Set().Key(key).Value(value)
	if c.ttl > 0 {
		ttl := c.ttl
		if ttl < time.Second {
			ttl = time.Second
		}
		return builder.Ex(ttl).Build()
	}
	return builder.Build()
}

func (c *ValkeyCache) entryKey(key string) string {
	return fmt.Sprintf("%s:emb:%s", c.prefix, key)
}

var _ faq.EmbeddingCache = (*ValkeyCache)(nil)
