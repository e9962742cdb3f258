package faqindex

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/review-responder/internal/domain/faq"
	apperrors "github.com/yanqian/review-responder/pkg/errors"
)

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("FAQ_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FAQ_TEST_POSTGRES_DSN not set")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	schema, err := os.ReadFile("../../../db/schema.sql")
	require.NoError(t, err)
	_, err = pool.Exec(context.Background(), string(schema))
	require.NoError(t, err)
	return pool
}

func TestPgvectorIndexSearch(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t)
	index := NewPgvectorIndex(pool, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = index.Close(ctx) })

	_, err := index.Search(ctx, []float32{1, 0}, 1)
	require.True(t, apperrors.IsCode(err, apperrors.CodeIndexNotReady))

	require.NoError(t, index.Add(ctx, []faq.IndexedVector{
		{Position: 0, Vector: []float32{1, 0}},
		{Position: 2, Vector: []float32{0, 2}},
	}))
	require.Equal(t, 2, index.Len())

	hits, err := index.Search(ctx, []float32{0, 2}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, 2, hits[0].Position)
	require.InDelta(t, 0, hits[0].Distance, 1e-6)
	require.InDelta(t, 5, hits[1].Distance, 1e-4)

	require.NoError(t, index.Close(ctx))
	require.Zero(t, index.Len())
}
