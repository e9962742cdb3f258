package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/review-responder/internal/domain/faq"
	"github.com/yanqian/review-responder/internal/infra/config"
	"github.com/yanqian/review-responder/internal/infra/embedcache"
	"github.com/yanqian/review-responder/internal/infra/embedder"
	"github.com/yanqian/review-responder/internal/infra/faqrepo"
	"github.com/yanqian/review-responder/internal/infra/jobs"
	"github.com/yanqian/review-responder/internal/infra/llm/adapter"
	"github.com/yanqian/review-responder/internal/infra/querystats"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newOfflineService(t *testing.T) *faq.Service {
	t.Helper()
	logger := newTestLogger()
	cache := embedcache.NewFileCache(context.Background(), filepath.Join(t.TempDir(), "cache.json"), nil, logger)
	client := faq.NewEmbeddingClient(faq.ClientConfig{Model: "offline", SingleDelay: 1, BatchDelay: 1}, cache, embedder.NewDeterministicEmbedder(32), logger)
	corpus := faqrepo.NewMemorySource([]faq.Entry{
		{Question: "How to freeze card?", Answer: "Use the app's Freeze Card button under Settings."},
		{Question: "Are there monthly fees?", Answer: "There are no monthly fees."},
	})
	return faq.NewService(faq.Config{}, client, corpus, querystats.NewMemoryStore(), nil, logger)
}

func TestHandleReindexJobBuildsIndex(t *testing.T) {
	svc := newOfflineService(t)
	app := NewApp(&config.Config{}, newTestLogger(), nil, svc, jobs.NewImmediateQueue(1))
	require.False(t, svc.Stats().Ready)

	app.handleJob(context.Background(), jobs.Job{ID: "1", Name: jobs.JobReindex})

	stats := svc.Stats()
	require.True(t, stats.Ready)
	require.Equal(t, 2, stats.Indexed)

	app.handleJob(context.Background(), jobs.Job{ID: "2", Name: "unknown"})
	require.True(t, svc.Stats().Ready)
}

func TestProgressLoggerThrottles(t *testing.T) {
	var calls int
	handler := slog.New(countingHandler{calls: &calls})
	progress := progressLogger(handler)
	for i := 0; i <= 100; i++ {
		progress(i, 100)
	}
	require.LessOrEqual(t, calls, 12)
	require.GreaterOrEqual(t, calls, 10)
}

type countingHandler struct {
	calls *int
}

func (h countingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h countingHandler) Handle(context.Context, slog.Record) error {
	*h.calls++
	return nil
}

func (h countingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h countingHandler) WithGroup(string) slog.Handler { return h }

func TestOfflineProviders(t *testing.T) {
	cfg := &config.Config{
		Embedding: config.EmbeddingConfig{Provider: config.ProviderDeterministic, Dimensions: 16},
		Corpus:    config.CorpusConfig{Source: config.BackendFile, Path: "faq.csv"},
		Index:     config.IndexConfig{Backend: config.BackendMemory},
	}
	logger := newTestLogger()

	provider, err := ProvideEmbeddingProvider(cfg, nil, logger)
	require.NoError(t, err)
	require.IsType(t, &embedder.DeterministicEmbedder{}, provider)

	cfg.Embedding.Provider = config.ProviderOpenAI
	_, err = ProvideEmbeddingProvider(cfg, nil, logger)
	require.Error(t, err)

	client, err := ProvideChatGPTClient(cfg)
	require.NoError(t, err)
	require.Nil(t, client)
	require.Equal(t, adapter.OfflineLLM{}, ProvideLLM(client, logger))

	corpus, err := ProvideCorpusSource(cfg, nil)
	require.NoError(t, err)
	require.IsType(t, &faqrepo.FileSource{}, corpus)

	cfg.Corpus.Source = config.BackendPostgres
	_, err = ProvideCorpusSource(cfg, nil)
	require.Error(t, err)

	factory, err := ProvideIndexFactory(cfg, nil, logger)
	require.NoError(t, err)
	require.Nil(t, factory)

	require.IsType(t, &querystats.MemoryStore{}, ProvideQueryStats(cfg, nil))

	queue := ProvideJobQueue(cfg, nil, logger)
	require.IsType(t, &jobs.ImmediateQueue{}, queue)
	queue.Close()

	authSvc, err := ProvideAuthService(cfg, logger)
	require.NoError(t, err)
	require.Nil(t, authSvc)

	pool, cleanup, err := ProvidePostgresPool(cfg, logger)
	require.NoError(t, err)
	require.Nil(t, pool)
	cleanup()

	valkeyClient, cleanup, err := ProvideValkeyClient(cfg, logger)
	require.NoError(t, err)
	require.Nil(t, valkeyClient)
	cleanup()
}
