package querystats

import (
	"context"
	"fmt"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/review-responder/internal/domain/faq"
)

// ValkeyStore counts sub-questions in a Valkey sorted set so every instance
// contributes to the same trending list.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "faq"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

// IncrementQuery bumps canonical in the trending set and remembers the first display string.
func (s *ValkeyStore) IncrementQuery(ctx context.Context, canonical, display string) error {
	if canonical == "" {
		return nil
	}
	if err := s.client.Do(ctx, s.client.B().Zincrby().Key(s.trendingKey()).Increment(1).Member(canonical).Build()).Error(); err != nil {
		return fmt.Errorf("increment trending query: %w", err)
	}
	if display != "" {
		_ = s.client.Do(ctx, s.client.B().Set().Key(s.displayKey(canonical)).Value(display).Nx().Build()).Error()
	}
	return nil
}

// TopQueries returns the highest scored queries with their display strings.
func (s *ValkeyStore) TopQueries(ctx context.Context, limit int) ([]faq.TrendingQuery, error) {
	if limit <= 0 {
		limit = 10
	}
	scores, err := s.client.Do(ctx, s.client.B().Zrevrange().Key(s.trendingKey()).Start(0).Stop(int64(limit-1)).Withscores().Build()).AsZScores()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return []faq.TrendingQuery{}, nil
		}
		return nil, fmt.Errorf("read trending queries: %w", err)
	}
	if len(scores) == 0 {
		return []faq.TrendingQuery{}, nil
	}

	keys := make([]string, len(scores))
	for i, z := range scores {
		keys[i] = s.displayKey(z.Member)
	}
	displays, err := s.client.Do(ctx, s.client.B().Mget().Key(keys...).Build()).ToArray()
	if err != nil {
		displays = nil
	}

	out := make([]faq.TrendingQuery, 0, len(scores))
	for i, z := range scores {
		display := z.Member
		if i < len(displays) {
			if v, err := displays[i].ToString(); err == nil && v != "" {
				display = v
			}
		}
		out = append(out, faq.TrendingQuery{Query: display, Count: int64(z.Score)})
	}
	return out, nil
}

func (s *ValkeyStore) trendingKey() string {
	return fmt.Sprintf("%s:trending", s.prefix)
}

func (s *ValkeyStore) displayKey(canonical string) string {
	return fmt.Sprintf("%s:display:%s", s.prefix, canonical)
}

var _ faq.QueryStats = (*ValkeyStore)(nil)
