package faq

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "github.com/yanqian/review-responder/pkg/errors"
)

// FlatIndex is an exhaustive in-memory index ranking by squared L2 distance.
type FlatIndex struct {
	mu        sync.RWMutex
	dim       int
	positions []int
	vectors   [][]float32
}

// NewFlatIndex constructs an empty flat index.
func NewFlatIndex() *FlatIndex {
	return &FlatIndex{}
}

// NewFlatIndexFactory is the IndexFactory for in-memory indexes.
func NewFlatIndexFactory() IndexFactory {
	return func() VectorIndex { return NewFlatIndex() }
}

// Add appends vectors; all vectors must share one dimension.
func (f *FlatIndex) Add(_ context.Context, items []IndexedVector) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range items {
		if len(item.Vector) == 0 {
			return fmt.Errorf("empty vector for position %d", item.Position)
		}
		if f.dim == 0 {
			f.dim = len(item.Vector)
		}
		if len(item.Vector) != f.dim {
			return fmt.Errorf("vector dimension mismatch at position %d: got %d want %d", item.Position, len(item.Vector), f.dim)
		}
		f.positions = append(f.positions, item.Position)
		f.vectors = append(f.vectors, append([]float32(nil), item.Vector...))
	}
	return nil
}

// Search returns up to k neighbours in ascending distance order, ties broken by position.
func (f *FlatIndex) Search(_ context.Context, query []float32, k int) ([]Neighbor, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.vectors) == 0 {
		return nil, apperrors.Wrap(apperrors.CodeIndexNotReady, "index is empty", nil)
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("query dimension mismatch: got %d want %d", len(query), f.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	hits := make([]Neighbor, len(f.vectors))
	for i, vector := range f.vectors {
		hits[i] = Neighbor{Position: f.positions[i], Distance: squaredL2(query, vector)}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance == hits[j].Distance {
			return hits[i].Position < hits[j].Position
		}
		return hits[i].Distance < hits[j].Distance
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of indexed vectors.
func (f *FlatIndex) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// Close drops the stored vectors.
func (f *FlatIndex) Close(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions = nil
	f.vectors = nil
	return nil
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return sum
}

var _ VectorIndex = (*FlatIndex)(nil)

// BuildOptions tunes BuildIndex.
type BuildOptions struct {
	BatchSize int
	Progress  ProgressFunc
}

// BuildIndex embeds every entry (question and answer combined) and adds the
// vectors to index under their entry positions. Cached vectors are used first;
// the rest are computed in batches. Entries whose embedding fails are left
// out of the index. A cache write failure does not stop the build; it is
// counted in BuildStats.CacheErrors.
func BuildIndex(ctx context.Context, entries []Entry, client *EmbeddingClient, index VectorIndex, opts BuildOptions) (BuildStats, error) {
	started := time.Now()
	stats := BuildStats{Entries: len(entries)}
	if len(entries) == 0 {
		return stats, apperrors.Wrap(apperrors.CodeEmptyCorpus, "no FAQ entries provided", nil)
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	progress := opts.Progress
	if progress == nil {
		progress = func(int, int) {}
	}
	total := len(entries)

	vectors := make([][]float32, total)
	var uncached []int
	for i, entry := range entries {
		if vector, ok := client.Cached(ctx, entry.combinedText()); ok {
			vectors[i] = vector
			stats.Cached++
			continue
		}
		uncached = append(uncached, i)
	}
	processed := stats.Cached
	progress(processed, total)

	for start := 0; start < len(uncached); start += batchSize {
		end := start + batchSize
		if end > len(uncached) {
			end = len(uncached)
		}
		positions := uncached[start:end]
		texts := make([]string, len(positions))
		for i, pos := range positions {
			texts[i] = entries[pos].combinedText()
		}
		if _, err := client.EmbedBatch(ctx, texts); err != nil {
			if !apperrors.IsCode(err, apperrors.CodeCacheIO) {
				return stats, err
			}
			stats.CacheErrors++
		}
		for _, pos := range positions {
			if vector, ok := client.Cached(ctx, entries[pos].combinedText()); ok {
				vectors[pos] = vector
				stats.Computed++
			} else {
				stats.Failed++
			}
		}
		processed += len(positions)
		progress(processed, total)
		if err := ctx.Err(); err != nil {
			return stats, err
		}
	}

	items := make([]IndexedVector, 0, total)
	for pos, vector := range vectors {
		if vector != nil {
			items = append(items, IndexedVector{Position: pos, Vector: vector})
		}
	}
	if len(items) == 0 {
		return stats, apperrors.Wrap(apperrors.CodeNoEmbeddings, "no valid embeddings generated", nil)
	}
	if err := index.Add(ctx, items); err != nil {
		return stats, fmt.Errorf("add vectors to index: %w", err)
	}
	stats.Indexed = len(items)
	stats.Duration = time.Since(started)
	progress(total, total)
	return stats, nil
}
