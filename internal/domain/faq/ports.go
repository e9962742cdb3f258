package faq

import (
	"context"
	"crypto/md5"
	"encoding/hex"
)

// CacheKey derives the embedding cache key of text: hex MD5 of its UTF-8 bytes.
func CacheKey(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// CacheItem pairs a text with its embedding.
type CacheItem struct {
	Text   string
	Vector []float32
}

// EmbeddingCache stores embeddings keyed by CacheKey of their text.
type EmbeddingCache interface {
	Get(ctx context.Context, text string) ([]float32, bool)
	Put(ctx context.Context, text string, vector []float32) error
	PutMany(ctx context.Context, items []CacheItem) error
}

// EmbeddingProvider computes one vector per input text.
type EmbeddingProvider interface {
	Embed(ctx context.Context, model string, texts []string) ([][]float32, error)
}

// CorpusSource supplies the ordered FAQ entries.
type CorpusSource interface {
	Load(ctx context.Context) ([]Entry, error)
}

// QueryStats records sub-question frequency for the trending endpoint.
type QueryStats interface {
	IncrementQuery(ctx context.Context, canonical, display string) error
	TopQueries(ctx context.Context, limit int) ([]TrendingQuery, error)
}

// IndexedVector is an entry position and its embedding.
type IndexedVector struct {
	Position int
	Vector   []float32
}

// Neighbor is a search hit: entry position and squared L2 distance.
type Neighbor struct {
	Position int
	Distance float64
}

// VectorIndex is a nearest-neighbour structure over entry embeddings. An
// instance is filled once by BuildIndex and then only searched.
type VectorIndex interface {
	Add(ctx context.Context, items []IndexedVector) error
	Search(ctx context.Context, query []float32, k int) ([]Neighbor, error)
	Len() int
	Close(ctx context.Context) error
}

// IndexFactory returns a fresh, empty index for each rebuild.
type IndexFactory func() VectorIndex
