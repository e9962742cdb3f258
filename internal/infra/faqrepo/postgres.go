package faqrepo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/review-responder/internal/domain/faq"
)

// PostgresSource reads the corpus from the faq_entries table.
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource constructs the source.
func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

// Load returns entries ordered by position then id.
func (s *PostgresSource) Load(ctx context.Context) ([]faq.Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT question, COALESCE(answer, '')
		FROM faq_entries
		ORDER BY position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query faq entries: %w", err)
	}
	defer rows.Close()

	var entries []faq.Entry
	for rows.Next() {
		var entry faq.Entry
		if err := rows.Scan(&entry.Question, &entry.Answer); err != nil {
			return nil, fmt.Errorf("scan faq entry: %w", err)
		}
		if strings.TrimSpace(entry.Question) == "" {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

var _ faq.CorpusSource = (*PostgresSource)(nil)
