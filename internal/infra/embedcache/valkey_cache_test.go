package embedcache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/review-responder/internal/domain/faq"
)

func newTestValkeyClient(t *testing.T) valkey.Client {
	t.Helper()
	addr := os.Getenv("FAQ_TEST_VALKEY_ADDR")
	if addr == "" {
		t.Skip("FAQ_TEST_VALKEY_ADDR not set")
	}
	client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{addr}})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestValkeyCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newTestValkeyClient(t)
	prefix := "test-" + uuid.NewString()

	writer, err := NewValkeyCache(client, prefix, time.Minute, 8, discardLogger())
	require.NoError(t, err)
	require.NoError(t, writer.PutMany(ctx, []faq.CacheItem{
		{Text: "freeze card", Vector: []float32{1, 2}},
		{Text: "care email", Vector: []float32{3, 4}},
	}))

	reader, err := NewValkeyCache(client, prefix, time.Minute, 8, discardLogger())
	require.NoError(t, err)
	got, ok := reader.Get(ctx, "care email")
	require.True(t, ok)
	require.Equal(t, []float32{3, 4}, got)
	_, ok = reader.Get(ctx, "unknown")
	require.False(t, ok)
}
