package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/yanqian/review-responder/internal/bootstrap"
	"github.com/yanqian/review-responder/internal/domain/faq"
	"github.com/yanqian/review-responder/internal/infra/config"
	"github.com/yanqian/review-responder/internal/infra/llm/chatgpt"
	"github.com/yanqian/review-responder/pkg/logger"
	"github.com/yanqian/review-responder/pkg/metrics"
)

var flagLogLevel string

var rootCmd = &cobra.Command{
	Use:          "faqctl",
	Short:        "Build and query the FAQ retrieval index from the command line",
	SilenceUsage: true,
	Long: `faqctl loads the same configuration as the API server (configs/config.yaml,
.env and environment variables) and runs index maintenance and lookups locally.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level written to stderr (debug, info, warn, error)")
}

// Execute is called by main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	return logger.NewWithWriter(cmd.ErrOrStderr(), flagLogLevel)
}

// usageReporter is implemented by providers that bill per token.
type usageReporter interface {
	Usage() (metrics.TokenUsage, int)
}

// engine is the retrieval stack without the HTTP surface.
type engine struct {
	cfg      *config.Config
	logger   *slog.Logger
	service  *faq.Service
	provider faq.EmbeddingProvider
	chat     *chatgpt.Client
	cleanup  func()
}

// embeddingUsage reports billed embedding tokens, if the provider tracks them.
func (e *engine) embeddingUsage() (metrics.TokenUsage, bool) {
	reporter, ok := e.provider.(usageReporter)
	if !ok {
		return metrics.TokenUsage{}, false
	}
	usage, _ := reporter.Usage()
	return usage, true
}

func (e *engine) Close() {
	e.cleanup()
}

func openEngine(cmd *cobra.Command) (*engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := newLogger(cmd)

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	fail := func(err error) (*engine, error) {
		cleanup()
		return nil, err
	}

	pool, closePool, err := bootstrap.ProvidePostgresPool(cfg, log)
	if err != nil {
		return fail(err)
	}
	cleanups = append(cleanups, closePool)
	client, closeValkey, err := bootstrap.ProvideValkeyClient(cfg, log)
	if err != nil {
		return fail(err)
	}
	cleanups = append(cleanups, closeValkey)
	storage, err := bootstrap.ProvideSnapshotStorage(cfg, log)
	if err != nil {
		return fail(err)
	}
	cache, closeCache, err := bootstrap.ProvideEmbeddingCache(cfg, client, storage, log)
	if err != nil {
		return fail(err)
	}
	cleanups = append(cleanups, closeCache)
	chat, err := bootstrap.ProvideChatGPTClient(cfg)
	if err != nil {
		return fail(err)
	}
	provider, err := bootstrap.ProvideEmbeddingProvider(cfg, chat, log)
	if err != nil {
		return fail(err)
	}
	corpus, err := bootstrap.ProvideCorpusSource(cfg, pool)
	if err != nil {
		return fail(err)
	}
	factory, err := bootstrap.ProvideIndexFactory(cfg, pool, log)
	if err != nil {
		return fail(err)
	}
	embeddings := bootstrap.ProvideEmbeddingClient(cfg, cache, provider, log)
	service, closeService := bootstrap.ProvideFAQService(cfg, embeddings, corpus, bootstrap.ProvideQueryStats(cfg, client), factory, log)
	cleanups = append(cleanups, closeService)

	return &engine{cfg: cfg, logger: log, service: service, provider: provider, chat: chat, cleanup: cleanup}, nil
}

// buildIndex reloads the corpus, drawing a progress line on w.
func (e *engine) buildIndex(ctx context.Context, w io.Writer) (faq.BuildStats, error) {
	stats, err := e.service.Reload(ctx, func(processed, total int) {
		fmt.Fprintf(w, "\rembedding %d/%d", processed, total)
	})
	fmt.Fprintln(w)
	return stats, err
}
