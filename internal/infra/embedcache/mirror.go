package embedcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/yanqian/review-responder/internal/infra/snapshot"
)

// ObjectMirror keeps a copy of the cache file in object storage so fresh
// instances start warm. Uploads are throttled to one per interval, run one at
// a time, and are skipped when the remote copy already has the same content.
type ObjectMirror struct {
	storage  snapshot.Storage
	key      string
	interval time.Duration
	logger   *slog.Logger

	uploadMu sync.Mutex

	mu        sync.Mutex
	last      time.Time
	checksum  string
	published int
	now       func() time.Time
}

// NewObjectMirror constructs a mirror storing the cache under key.
func NewObjectMirror(storage snapshot.Storage, key string, interval time.Duration, logger *slog.Logger) *ObjectMirror {
	if logger == nil {
		logger = slog.Default()
	}
	if key == "" {
		key = "faq/embeddings_cache.json"
	}
	return &ObjectMirror{
		storage:  storage,
		key:      key,
		interval: interval,
		logger:   logger.With("component", "embedcache.mirror", "key", key),
		now:      time.Now,
	}
}

// Restore downloads the snapshot to path.
func (m *ObjectMirror) Restore(ctx context.Context, path string) (bool, error) {
	data, obj, err := m.storage.Get(ctx, m.key)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("download snapshot: %w", err)
	}
	if err := writeFileAtomic(path, data, os.Rename); err != nil {
		return false, err
	}
	m.mu.Lock()
	m.checksum = obj.Checksum
	m.mu.Unlock()
	return true, nil
}

// Publish uploads path. Without force the upload is skipped when one ran
// within the interval or another is still in flight; force waits for it.
func (m *ObjectMirror) Publish(ctx context.Context, path string, force bool) error {
	if force {
		m.uploadMu.Lock()
	} else {
		if !m.due() || !m.uploadMu.TryLock() {
			return nil
		}
	}
	defer m.uploadMu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read cache file: %w", err)
	}
	sum := snapshot.Checksum(data)
	m.mu.Lock()
	unchanged := sum == m.checksum
	m.mu.Unlock()
	if unchanged {
		return nil
	}

	started := m.now()
	obj, err := m.storage.Put(ctx, m.key, data)
	if err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}
	m.mu.Lock()
	m.last = started
	m.checksum = obj.Checksum
	m.published++
	m.mu.Unlock()
	m.logger.Debug("cache snapshot published", "size", obj.Size, "checksum", obj.Checksum)
	return nil
}

func (m *ObjectMirror) due() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last.IsZero() || m.now().Sub(m.last) >= m.interval
}

var _ Mirror = (*ObjectMirror)(nil)
