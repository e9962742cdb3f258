package snapshot

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStorage keeps snapshots in process. Used by tests and local runs.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	now     func() time.Time
}

type memoryObject struct {
	data []byte
	meta Object
}

// NewMemoryStorage constructs an empty store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string]memoryObject), now: time.Now}
}

// Put replaces the snapshot under key with a copy of data.
func (s *MemoryStorage) Put(_ context.Context, key string, data []byte) (Object, error) {
	meta := Object{
		Key:       key,
		Size:      int64(len(data)),
		Checksum:  Checksum(data),
		UpdatedAt: s.now(),
	}
	s.mu.Lock()
	s.objects[key] = memoryObject{data: append([]byte(nil), data...), meta: meta}
	s.mu.Unlock()
	return meta, nil
}

// Get returns a copy of the snapshot under key.
func (s *MemoryStorage) Get(_ context.Context, key string) ([]byte, Object, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, Object{}, fmt.Errorf("get %s: %w", key, ErrNotFound)
	}
	return append([]byte(nil), obj.data...), obj.meta, nil
}

var _ Storage = (*MemoryStorage)(nil)
