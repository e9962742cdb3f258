package faq

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/yanqian/review-responder/pkg/errors"
	"github.com/yanqian/review-responder/pkg/util"
)

// snapshot is an immutable built index together with the entries it covers.
// Searches hold mu for reading; retire takes it for writing before closing.
type snapshot struct {
	entries []Entry
	index   VectorIndex
	stats   BuildStats
	builtAt time.Time

	mu     sync.RWMutex
	closed bool
}

func (s *snapshot) retire(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.index.Close(ctx)
}

// Service retrieves FAQ entries relevant to free-form customer text.
type Service struct {
	cfg     Config
	client  *EmbeddingClient
	corpus  CorpusSource
	stats   QueryStats
	factory IndexFactory
	logger  *slog.Logger

	current   atomic.Pointer[snapshot]
	rebuildMu sync.Mutex
}

// NewService wires up the FAQ retrieval service. corpus and stats may be nil.
func NewService(cfg Config, client *EmbeddingClient, corpus CorpusSource, stats QueryStats, factory IndexFactory, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if factory == nil {
		factory = NewFlatIndexFactory()
	}
	return &Service{
		cfg:     cfg.withDefaults(),
		client:  client,
		corpus:  corpus,
		stats:   stats,
		factory: factory,
		logger:  logger.With("component", "faq.service"),
	}
}

// FindMatches splits query into sub-questions and returns the closest FAQ
// entry per sub-question, ascending by distance. A query without matches
// yields an empty result and no error.
func (s *Service) FindMatches(ctx context.Context, query string, opts SearchOptions) (Result, error) {
	if s.current.Load() == nil {
		return Result{}, errIndexNotReady()
	}
	k := opts.K
	if k <= 0 {
		k = s.cfg.TopK
	}
	threshold := s.cfg.DistanceThreshold
	if opts.Threshold != nil && *opts.Threshold >= 0 {
		threshold = *opts.Threshold
	}

	if strings.TrimSpace(query) == "" {
		return Result{Matches: []Match{}}, nil
	}
	subQuestions := SplitQuestions(query)
	result := Result{SubQuestions: subQuestions, Matches: []Match{}}

	vectors := make([][]float32, len(subQuestions))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.cfg.Parallelism)
	for i, sub := range subQuestions {
		group.Go(func() error {
			vector, err := s.client.EmbedOne(groupCtx, strings.ToLower(strings.TrimSpace(sub)))
			if err != nil && !apperrors.IsCode(err, apperrors.CodeCacheIO) {
				s.logger.Warn("sub-question embedding failed", "subQuestion", sub, "error", err)
				return nil
			}
			vectors[i] = vector
			return nil
		})
	}
	_ = group.Wait()

	snap, err := s.acquire()
	if err != nil {
		return Result{}, err
	}
	defer snap.mu.RUnlock()

	var candidates []Match
	for i, sub := range subQuestions {
		vector := vectors[i]
		if len(vector) == 0 {
			result.Unembedded++
			continue
		}
		neighbors, err := snap.index.Search(ctx, vector, k)
		if err != nil {
			s.logger.Warn("index search failed", "subQuestion", sub, "error", err)
			continue
		}
		for _, n := range neighbors {
			if n.Position < 0 || n.Position >= len(snap.entries) {
				continue
			}
			entry := snap.entries[n.Position]
			if strings.TrimSpace(entry.Answer) == "" || n.Distance > threshold {
				continue
			}
			candidates = append(candidates, Match{
				SubQuestion:     sub,
				MatchedQuestion: entry.Question,
				Answer:          entry.Answer,
				Distance:        n.Distance,
				Position:        n.Position,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})
	seen := make(map[string]struct{}, len(candidates))
	for _, match := range candidates {
		if _, dup := seen[match.SubQuestion]; dup {
			continue
		}
		seen[match.SubQuestion] = struct{}{}
		result.Matches = append(result.Matches, match)
	}

	s.recordQueries(ctx, subQuestions)
	if result.Degraded() {
		s.logger.Info("faq matches degraded", "unembedded", result.Unembedded, "subQuestions", len(subQuestions))
	}
	return result, nil
}

// Rebuild builds a fresh index over entries and swaps it in once complete.
// Searches keep using the previous index until the swap.
func (s *Service) Rebuild(ctx context.Context, entries []Entry, progress ProgressFunc) (BuildStats, error) {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	index := s.factory()
	owned := append([]Entry(nil), entries...)
	stats, err := BuildIndex(ctx, owned, s.client, index, BuildOptions{
		BatchSize: s.cfg.BatchSize,
		Progress:  progress,
	})
	if err != nil {
		if closeErr := index.Close(ctx); closeErr != nil {
			s.logger.Warn("discarding partial index failed", "error", closeErr)
		}
		s.logger.Error("faq index build failed", "entries", len(entries), "error", err)
		return stats, err
	}

	next := &snapshot{entries: owned, index: index, stats: stats, builtAt: util.NowUTC()}
	previous := s.current.Swap(next)
	if previous != nil {
		if err := previous.retire(ctx); err != nil {
			s.logger.Warn("closing previous index failed", "error", err)
		}
	}
	s.logger.Info("faq index built",
		"entries", stats.Entries,
		"indexed", stats.Indexed,
		"cached", stats.Cached,
		"computed", stats.Computed,
		"failed", stats.Failed,
		"cacheErrors", stats.CacheErrors,
		"duration", stats.Duration,
	)
	if stats.CacheErrors > 0 {
		s.logger.Warn("faq embeddings not persisted", "batches", stats.CacheErrors)
	}
	return stats, nil
}

// Reload fetches the corpus from the configured source and rebuilds the index.
func (s *Service) Reload(ctx context.Context, progress ProgressFunc) (BuildStats, error) {
	if s.corpus == nil {
		return BuildStats{}, apperrors.Wrap(apperrors.CodeCorpus, "no corpus source configured", nil)
	}
	entries, err := s.corpus.Load(ctx)
	if err != nil {
		return BuildStats{}, apperrors.Wrap(apperrors.CodeCorpus, "failed to load FAQ corpus", err)
	}
	return s.Rebuild(ctx, entries, progress)
}

// Stats describes the index currently served.
func (s *Service) Stats() IndexStats {
	stats := IndexStats{Model: s.client.Model()}
	snap := s.current.Load()
	if snap == nil {
		return stats
	}
	builtAt := snap.builtAt
	stats.Ready = true
	stats.Entries = len(snap.entries)
	stats.Indexed = snap.index.Len()
	stats.BuiltAt = &builtAt
	stats.LastBuild = snap.stats
	return stats
}

// Trending returns the most frequently asked sub-questions.
func (s *Service) Trending(ctx context.Context) ([]TrendingQuery, error) {
	if s.stats == nil {
		return []TrendingQuery{}, nil
	}
	recs, err := s.stats.TopQueries(ctx, s.cfg.TrendingLimit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStats, "failed to load trending queries", err)
	}
	return recs, nil
}

// Close releases the served index.
func (s *Service) Close(ctx context.Context) error {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()
	snap := s.current.Swap(nil)
	if snap == nil {
		return nil
	}
	if err := snap.retire(ctx); err != nil {
		return fmt.Errorf("close faq index: %w", err)
	}
	return nil
}

// acquire returns the current snapshot read-locked, skipping ones retired
// between load and lock.
func (s *Service) acquire() (*snapshot, error) {
	for {
		snap := s.current.Load()
		if snap == nil {
			return nil, errIndexNotReady()
		}
		snap.mu.RLock()
		if !snap.closed {
			return snap, nil
		}
		snap.mu.RUnlock()
	}
}

func errIndexNotReady() error {
	return apperrors.Wrap(apperrors.CodeIndexNotReady, "FAQ index has not been built", nil)
}

func (s *Service) recordQueries(ctx context.Context, subQuestions []string) {
	if s.stats == nil {
		return
	}
	for _, sub := range subQuestions {
		canonical := normalizeQuestion(sub)
		if canonical == "" {
			continue
		}
		if err := s.stats.IncrementQuery(ctx, canonical, sub); err != nil {
			s.logger.Warn("faq trending increment failed", "error", err)
		}
	}
}
