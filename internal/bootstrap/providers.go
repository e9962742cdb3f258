package bootstrap

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/review-responder/internal/domain/auth"
	"github.com/yanqian/review-responder/internal/domain/faq"
	"github.com/yanqian/review-responder/internal/domain/responder"
	"github.com/yanqian/review-responder/internal/infra/config"
	"github.com/yanqian/review-responder/internal/infra/embedcache"
	"github.com/yanqian/review-responder/internal/infra/embedder"
	"github.com/yanqian/review-responder/internal/infra/faqindex"
	"github.com/yanqian/review-responder/internal/infra/faqrepo"
	"github.com/yanqian/review-responder/internal/infra/jobs"
	"github.com/yanqian/review-responder/internal/infra/llm/adapter"
	"github.com/yanqian/review-responder/internal/infra/llm/chatgpt"
	"github.com/yanqian/review-responder/internal/infra/querystats"
	"github.com/yanqian/review-responder/internal/infra/snapshot"
	apperrors "github.com/yanqian/review-responder/pkg/errors"
)

// ProvidePostgresPool connects to Postgres when a DSN is configured. A nil
// pool means no component asked for Postgres.
func ProvidePostgresPool(cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, func(), error) {
	dsn := strings.TrimSpace(cfg.Postgres.DSN)
	if dsn == "" {
		return nil, func() {}, nil
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.CodeConfig, "invalid postgres dsn", err)
	}
	if cfg.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Postgres.MaxConns
	}
	if cfg.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.CodeConfig, "failed to initialize postgres pool", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, apperrors.Wrap(apperrors.CodeConfig, "postgres ping failed", err)
	}
	logger.Info("postgres connected", "max_conns", poolConfig.MaxConns)
	return pool, pool.Close, nil
}

// ProvideValkeyClient connects to Valkey when enabled. When the ping fails and
// nothing strictly depends on Valkey, the service falls back to in-process
// stats and jobs.
func ProvideValkeyClient(cfg *config.Config, logger *slog.Logger) (valkey.Client, func(), error) {
	if !cfg.Valkey.Enabled {
		return nil, func() {}, nil
	}
	required := cfg.Embedding.Cache == config.BackendValkey
	opt, err := buildValkeyOptions(cfg)
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.CodeConfig, "invalid valkey configuration", err)
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		if required {
			return nil, nil, apperrors.Wrap(apperrors.CodeConfig, "failed to create valkey client", err)
		}
		logger.Error("failed to create valkey client, falling back to memory", "error", err)
		return nil, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		if required {
			return nil, nil, apperrors.Wrap(apperrors.CodeConfig, "valkey ping failed", err)
		}
		logger.Error("valkey ping failed, falling back to memory", "error", err)
		return nil, func() {}, nil
	}
	logger.Info("valkey connected", "addr", cfg.Valkey.Addr)
	return client, client.Close, nil
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	if strings.Contains(cfg.Valkey.Addr, "://") {
		return valkey.ParseURL(cfg.Valkey.Addr)
	}
	return valkey.ClientOption{InitAddress: []string{cfg.Valkey.Addr}}, nil
}

// ProvideSnapshotStorage returns the object store used to mirror the cache
// file, or nil when mirroring is off.
func ProvideSnapshotStorage(cfg *config.Config, logger *slog.Logger) (snapshot.Storage, error) {
	if !cfg.Snapshot.Enabled {
		return nil, nil
	}
	storage, err := snapshot.NewR2Storage(snapshot.R2Config{
		Endpoint:  cfg.Snapshot.Endpoint,
		AccessKey: cfg.Snapshot.AccessKey,
		SecretKey: cfg.Snapshot.SecretKey,
		Bucket:    cfg.Snapshot.Bucket,
		Region:    cfg.Snapshot.Region,
	}, logger)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfig, "failed to initialize snapshot storage", err)
	}
	return storage, nil
}

// ProvideEmbeddingCache builds the durable embedding cache. The cleanup
// flushes and publishes the final cache file.
func ProvideEmbeddingCache(cfg *config.Config, client valkey.Client, storage snapshot.Storage, logger *slog.Logger) (faq.EmbeddingCache, func(), error) {
	if cfg.Embedding.Cache == config.BackendValkey {
		if client == nil {
			return nil, nil, apperrors.Wrap(apperrors.CodeConfig, "valkey embedding cache requires a valkey connection", nil)
		}
		cache, err := embedcache.NewValkeyCache(client, cfg.Valkey.Prefix, cfg.Embedding.CacheTTL, cfg.Embedding.FrontSize, logger)
		if err != nil {
			return nil, nil, apperrors.Wrap(apperrors.CodeConfig, "failed to initialize valkey cache", err)
		}
		return cache, func() {}, nil
	}

	var mirror embedcache.Mirror
	if storage != nil {
		mirror = embedcache.NewObjectMirror(storage, cfg.Snapshot.Key, cfg.Snapshot.Interval, logger)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	cache := embedcache.NewFileCache(ctx, cfg.Embedding.CachePath, mirror, logger)
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := cache.Close(ctx); err != nil {
			logger.Error("closing embedding cache failed", "error", err)
		}
	}
	return cache, cleanup, nil
}

// ProvideChatGPTClient returns nil when no API key is configured.
func ProvideChatGPTClient(cfg *config.Config) (*chatgpt.Client, error) {
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		return nil, nil
	}
	return chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Timeout)
}

// ProvideEmbeddingProvider picks the remote or offline embedder.
func ProvideEmbeddingProvider(cfg *config.Config, client *chatgpt.Client, logger *slog.Logger) (faq.EmbeddingProvider, error) {
	switch cfg.Embedding.Provider {
	case config.ProviderDeterministic:
		return embedder.NewDeterministicEmbedder(cfg.Embedding.Dimensions), nil
	case config.ProviderOpenAI:
		if client == nil {
			return nil, apperrors.Wrap(apperrors.CodeConfig, "openai embeddings require llm.apiKey", nil)
		}
		return embedder.NewChatGPTEmbedder(client, cfg.Embedding.Model, logger), nil
	default:
		return nil, apperrors.Wrap(apperrors.CodeConfig, "unsupported embedding provider "+cfg.Embedding.Provider, nil)
	}
}

// ProvideEmbeddingClient wraps the provider with caching and pacing.
func ProvideEmbeddingClient(cfg *config.Config, cache faq.EmbeddingCache, provider faq.EmbeddingProvider, logger *slog.Logger) *faq.EmbeddingClient {
	return faq.NewEmbeddingClient(faq.ClientConfig{
		Model:          cfg.Embedding.Model,
		BatchSize:      cfg.Embedding.BatchSize,
		SingleDelay:    cfg.Embedding.SingleDelay,
		BatchDelay:     cfg.Embedding.BatchDelay,
		RequestTimeout: cfg.Embedding.RequestTimeout,
	}, cache, provider, logger)
}

// ProvideCorpusSource reads FAQ entries from Postgres or a local file.
func ProvideCorpusSource(cfg *config.Config, pool *pgxpool.Pool) (faq.CorpusSource, error) {
	if cfg.Corpus.Source == config.BackendPostgres {
		if pool == nil {
			return nil, apperrors.Wrap(apperrors.CodeConfig, "postgres corpus requires postgres.dsn", nil)
		}
		return faqrepo.NewPostgresSource(pool), nil
	}
	return faqrepo.NewFileSource(cfg.Corpus.Path), nil
}

// ProvideQueryStats shares trending counters through Valkey when available.
func ProvideQueryStats(cfg *config.Config, client valkey.Client) faq.QueryStats {
	if client != nil {
		return querystats.NewValkeyStore(client, cfg.Valkey.Prefix)
	}
	return querystats.NewMemoryStore()
}

// ProvideIndexFactory returns nil for the in-process flat index.
func ProvideIndexFactory(cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) (faq.IndexFactory, error) {
	if cfg.Index.Backend != config.BackendPgvector {
		return nil, nil
	}
	if pool == nil {
		return nil, apperrors.Wrap(apperrors.CodeConfig, "pgvector index requires postgres.dsn", nil)
	}
	return faqindex.NewFactory(pool, logger), nil
}

// ProvideFAQService builds the retrieval service. The cleanup drops the
// served index.
func ProvideFAQService(cfg *config.Config, client *faq.EmbeddingClient, corpus faq.CorpusSource, stats faq.QueryStats, factory faq.IndexFactory, logger *slog.Logger) (*faq.Service, func()) {
	svc := faq.NewService(faq.Config{
		TopK:              cfg.Retrieval.TopK,
		DistanceThreshold: cfg.Retrieval.DistanceThreshold,
		Parallelism:       cfg.Retrieval.Parallelism,
		BatchSize:         cfg.Embedding.BatchSize,
		TrendingLimit:     cfg.Retrieval.TrendingLimit,
	}, client, corpus, stats, factory, logger)
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := svc.Close(ctx); err != nil {
			logger.Error("closing faq service failed", "error", err)
		}
	}
	return svc, cleanup
}

// ProvideLLM falls back to an offline model so replies use canned text.
func ProvideLLM(client *chatgpt.Client, logger *slog.Logger) responder.LLM {
	if client == nil {
		logger.Warn("llm api key not set, review replies will use fallback text")
		return adapter.OfflineLLM{}
	}
	return adapter.NewChatGPTLLM(client)
}

// ProvideResponderService builds the review responder on top of retrieval.
func ProvideResponderService(cfg *config.Config, faqSvc *faq.Service, llm responder.LLM, logger *slog.Logger) *responder.Service {
	return responder.NewService(responder.Config{
		Model:             cfg.Responder.Model,
		SentimentModel:    cfg.Responder.SentimentModel,
		Temperature:       cfg.Responder.Temperature,
		MaxTokens:         cfg.Responder.MaxTokens,
		Brand:             cfg.Responder.Brand,
		DefaultBrandVoice: cfg.Responder.DefaultBrandVoice,
		Pacing:            cfg.Responder.Pacing,
		ContextSize:       cfg.Responder.ContextSize,
	}, faqSvc, llm, logger)
}

// ProvideJobQueue uses Valkey when connected so any replica can pick up a reindex.
func ProvideJobQueue(cfg *config.Config, client valkey.Client, logger *slog.Logger) jobs.Queue {
	if client != nil {
		return jobs.NewValkeyQueue(client, cfg.Valkey.QueueKey, logger)
	}
	return jobs.NewImmediateQueue(8)
}

// ProvideAuthService returns nil when no admin secret is configured, which
// disables the admin routes.
func ProvideAuthService(cfg *config.Config, logger *slog.Logger) (auth.Service, error) {
	if strings.TrimSpace(cfg.Admin.TokenSecret) == "" {
		logger.Warn("admin token secret not set, reindex endpoint disabled")
		return nil, nil
	}
	return auth.NewService(auth.Config{
		Secret:   cfg.Admin.TokenSecret,
		Issuer:   cfg.Admin.Issuer,
		TokenTTL: cfg.Admin.TokenTTL,
	}, logger)
}
