package snapshot

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"time"
)

// ErrNotFound reports a missing snapshot.
var ErrNotFound = errors.New("snapshot object not found")

const contentType = "application/json"

// Storage keeps whole snapshot files in a blob store (R2/S3 or memory).
type Storage interface {
	Put(ctx context.Context, key string, data []byte) (Object, error)
	Get(ctx context.Context, key string) ([]byte, Object, error)
}

// Object describes a stored snapshot.
type Object struct {
	Key       string
	Size      int64
	Checksum  string
	UpdatedAt time.Time
}

// Checksum returns the hex MD5 of data, the same digest S3 reports as the
// ETag of a single-part upload.
func Checksum(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
