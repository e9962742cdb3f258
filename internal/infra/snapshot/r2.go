package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const checksumMeta = "Checksum"

// R2Config locates the bucket holding snapshots.
type R2Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
}

// R2Storage keeps snapshots in Cloudflare R2 or any S3-compatible store.
type R2Storage struct {
	client *minio.Client
	bucket string
	logger *slog.Logger

	bucketMu    sync.Mutex
	bucketReady bool
}

// NewR2Storage constructs the storage adapter. Endpoints without a scheme
// use TLS.
func NewR2Storage(cfg R2Config, logger *slog.Logger) (*R2Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	host, secure, err := endpointHost(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	client, err := minio.New(host, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       secure,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init r2 client: %w", err)
	}
	return &R2Storage{
		client: client,
		bucket: cfg.Bucket,
		logger: logger.With("component", "snapshot.r2", "bucket", cfg.Bucket),
	}, nil
}

// ensureBucket creates the bucket on first use only.
func (s *R2Storage) ensureBucket(ctx context.Context) error {
	s.bucketMu.Lock()
	defer s.bucketMu.Unlock()
	if s.bucketReady {
		return nil
	}
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil || !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
			return fmt.Errorf("ensure bucket %s: %w", s.bucket, err)
		}
	}
	s.bucketReady = true
	return nil
}

// Put uploads data as a single part, tagging it with its checksum.
func (s *R2Storage) Put(ctx context.Context, key string, data []byte) (Object, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return Object{}, err
	}
	sum := Checksum(data)
	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:      contentType,
		UserMetadata:     map[string]string{checksumMeta: sum},
		DisableMultipart: true,
	})
	if err != nil {
		return Object{}, fmt.Errorf("put %s: %w", key, err)
	}
	s.logger.Debug("snapshot uploaded", "key", key, "size", info.Size)
	return Object{Key: key, Size: info.Size, Checksum: sum, UpdatedAt: info.LastModified}, nil
}

// Get downloads the snapshot under key.
func (s *R2Storage) Get(ctx context.Context, key string) ([]byte, Object, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, Object{}, fmt.Errorf("get %s: %w", key, err)
	}
	defer obj.Close()
	// GetObject is lazy; Stat surfaces a missing key.
	info, err := obj.Stat()
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, Object{}, fmt.Errorf("get %s: %w", key, ErrNotFound)
		}
		return nil, Object{}, fmt.Errorf("stat %s: %w", key, err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, Object{}, fmt.Errorf("read %s: %w", key, err)
	}
	sum := info.UserMetadata[checksumMeta]
	if sum == "" {
		sum = Checksum(data)
	}
	return data, Object{Key: key, Size: int64(len(data)), Checksum: sum, UpdatedAt: info.LastModified}, nil
}

var _ Storage = (*R2Storage)(nil)

// endpointHost reduces an endpoint URL to the host[:port] minio expects and
// reports whether TLS should be used.
func endpointHost(raw string) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("snapshot endpoint is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse snapshot endpoint: %w", err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("snapshot endpoint %q has no host", raw)
	}
	return u.Host, u.Scheme != "http", nil
}
