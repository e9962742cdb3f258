package embedcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/yanqian/review-responder/internal/domain/faq"
)

const lockRetryDelay = 25 * time.Millisecond

// Mirror copies the cache file to and from a remote location.
type Mirror interface {
	// Restore downloads the remote copy to path; false when none exists.
	Restore(ctx context.Context, path string) (bool, error)
	// Publish uploads path. Implementations may skip uploads unless force is set.
	Publish(ctx context.Context, path string, force bool) error
}

// FileCache keeps embeddings in memory and persists the whole mapping to a
// single JSON file on every write.
type FileCache struct {
	path   string
	lock   *flock.Flock
	mirror Mirror
	logger *slog.Logger

	mu      sync.RWMutex
	vectors map[string][]float32

	flushMu sync.Mutex
	rename  func(oldpath, newpath string) error
}

// NewFileCache loads the cache stored at path. Missing or unreadable files
// yield an empty cache. mirror may be nil.
func NewFileCache(ctx context.Context, path string, mirror Mirror, logger *slog.Logger) *FileCache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &FileCache{
		path:    path,
		lock:    flock.New(path + ".lock"),
		mirror:  mirror,
		logger:  logger.With("component", "embedcache.file", "path", path),
		vectors: make(map[string][]float32),
		rename:  os.Rename,
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		c.logger.Warn("create cache directory failed", "error", err)
	}
	c.restore(ctx)
	c.load()
	return c
}

func (c *FileCache) restore(ctx context.Context) {
	if c.mirror == nil {
		return
	}
	if _, err := os.Stat(c.path); err == nil {
		return
	}
	restored, err := c.mirror.Restore(ctx, c.path)
	if err != nil {
		c.logger.Warn("restore cache snapshot failed", "error", err)
		return
	}
	if restored {
		c.logger.Info("cache restored from snapshot")
	}
}

func (c *FileCache) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("read cache file failed, starting empty", "error", err)
		}
		return
	}
	var stored map[string][]float32
	if err := json.Unmarshal(data, &stored); err != nil {
		c.logger.Warn("parse cache file failed, starting empty", "error", err)
		return
	}
	if stored != nil {
		c.vectors = stored
	}
	c.logger.Info("embedding cache loaded", "entries", len(c.vectors))
}

// Get returns a copy of the cached vector for text.
func (c *FileCache) Get(_ context.Context, text string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vector, ok := c.vectors[faq.CacheKey(text)]
	if !ok {
		return nil, false
	}
	return append([]float32(nil), vector...), true
}

// Put stores vector and flushes the file.
func (c *FileCache) Put(ctx context.Context, text string, vector []float32) error {
	return c.PutMany(ctx, []faq.CacheItem{{Text: text, Vector: vector}})
}

// PutMany stores every item and flushes the file once.
func (c *FileCache) PutMany(ctx context.Context, items []faq.CacheItem) error {
	if len(items) == 0 {
		return nil
	}
	c.mu.Lock()
	for _, item := range items {
		c.vectors[faq.CacheKey(item.Text)] = append([]float32(nil), item.Vector...)
	}
	c.mu.Unlock()
	return c.flush(ctx)
}

// Len returns the number of cached vectors.
func (c *FileCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vectors)
}

// Close pushes any unpublished changes to the mirror.
func (c *FileCache) Close(ctx context.Context) error {
	if c.mirror == nil {
		return nil
	}
	if _, err := os.Stat(c.path); err != nil {
		return nil
	}
	if err := c.mirror.Publish(ctx, c.path, true); err != nil {
		return fmt.Errorf("publish cache snapshot: %w", err)
	}
	return nil
}

// flush persists the mapping, then offers the file to the mirror outside the
// write critical section. Renames are atomic, so the mirror always reads a
// complete file.
func (c *FileCache) flush(ctx context.Context) error {
	if err := c.write(ctx); err != nil {
		return err
	}
	if c.mirror != nil {
		if err := c.mirror.Publish(ctx, c.path, false); err != nil {
			c.logger.Warn("publish cache snapshot failed", "error", err)
		}
	}
	return nil
}

func (c *FileCache) write(ctx context.Context) error {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	c.mu.RLock()
	data, err := json.Marshal(c.vectors)
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	locked, err := c.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("lock cache file: %w", err)
	}
	if !locked {
		return fmt.Errorf("lock cache file: %s is busy", c.lock.Path())
	}
	defer func() { _ = c.lock.Unlock() }()

	return writeFileAtomic(c.path, data, c.rename)
}

// writeFileAtomic writes data to a temp file next to path, syncs it and
// renames it over path. path is never left partially written.
func writeFileAtomic(path string, data []byte, rename func(oldpath, newpath string) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

var _ faq.EmbeddingCache = (*FileCache)(nil)
