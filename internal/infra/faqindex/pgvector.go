package faqindex

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/yanqian/review-responder/internal/domain/faq"
	apperrors "github.com/yanqian/review-responder/pkg/errors"
)

// PgvectorIndex stores one index generation in faq_index_vectors and lets
// Postgres rank by L2 distance. Each instance owns a fresh generation.
type PgvectorIndex struct {
	pool       *pgxpool.Pool
	generation uuid.UUID
	count      atomic.Int64
	logger     *slog.Logger
}

// NewPgvectorIndex constructs an empty index generation.
func NewPgvectorIndex(pool *pgxpool.Pool, logger *slog.Logger) *PgvectorIndex {
	if logger == nil {
		logger = slog.Default()
	}
	generation := uuid.New()
	return &PgvectorIndex{
		pool:       pool,
		generation: generation,
		logger:     logger.With("component", "faqindex.pgvector", "generation", generation.String()),
	}
}

// NewFactory returns an IndexFactory producing pgvector generations.
func NewFactory(pool *pgxpool.Pool, logger *slog.Logger) faq.IndexFactory {
	return func() faq.VectorIndex { return NewPgvectorIndex(pool, logger) }
}

// Add inserts vectors in one batch.
func (i *PgvectorIndex) Add(ctx context.Context, items []faq.IndexedVector) error {
	if len(items) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(`
			INSERT INTO faq_index_vectors (generation, position, embedding)
			VALUES ($1, $2, $3)
		`, i.generation, item.Position, pgvector.NewVector(item.Vector))
	}
	if err := i.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert index vectors: %w", err)
	}
	i.count.Add(int64(len(items)))
	return nil
}

// Search ranks the generation by L2 distance and reports squared distances.
func (i *PgvectorIndex) Search(ctx context.Context, query []float32, k int) ([]faq.Neighbor, error) {
	if i.count.Load() == 0 {
		return nil, apperrors.Wrap(apperrors.CodeIndexNotReady, "index is empty", nil)
	}
	if k <= 0 {
		return nil, nil
	}
	rows, err := i.pool.Query(ctx, `
		SELECT position, embedding <-> $1 AS distance
		FROM faq_index_vectors
		WHERE generation = $2
		ORDER BY embedding <-> $1, position
		LIMIT $3
	`, pgvector.NewVector(query), i.generation, k)
	if err != nil {
		return nil, fmt.Errorf("search index vectors: %w", err)
	}
	defer rows.Close()

	neighbors := make([]faq.Neighbor, 0, k)
	for rows.Next() {
		var (
			position int
			distance float64
		)
		if err := rows.Scan(&position, &distance); err != nil {
			return nil, fmt.Errorf("scan neighbor: %w", err)
		}
		neighbors = append(neighbors, faq.Neighbor{Position: position, Distance: distance * distance})
	}
	return neighbors, rows.Err()
}

// Len returns the number of vectors added to this generation.
func (i *PgvectorIndex) Len() int {
	return int(i.count.Load())
}

// Close deletes the generation's rows.
func (i *PgvectorIndex) Close(ctx context.Context) error {
	tag, err := i.pool.Exec(ctx, `DELETE FROM faq_index_vectors WHERE generation = $1`, i.generation)
	if err != nil {
		return fmt.Errorf("delete index generation: %w", err)
	}
	i.count.Store(0)
	i.logger.Debug("index generation dropped", "rows", tag.RowsAffected())
	return nil
}

var _ faq.VectorIndex = (*PgvectorIndex)(nil)
