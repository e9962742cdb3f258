//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/review-responder/internal/bootstrap"
	"github.com/yanqian/review-responder/internal/domain/faq"
	"github.com/yanqian/review-responder/internal/domain/responder"
	"github.com/yanqian/review-responder/internal/infra/config"
	"github.com/yanqian/review-responder/internal/infra/jobs"
	httpiface "github.com/yanqian/review-responder/internal/interface/http"
	"github.com/yanqian/review-responder/pkg/logger"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		bootstrap.ProvidePostgresPool,
		bootstrap.ProvideValkeyClient,
		bootstrap.ProvideSnapshotStorage,
		bootstrap.ProvideEmbeddingCache,
		bootstrap.ProvideChatGPTClient,
		bootstrap.ProvideEmbeddingProvider,
		bootstrap.ProvideEmbeddingClient,
		bootstrap.ProvideCorpusSource,
		bootstrap.ProvideQueryStats,
		bootstrap.ProvideIndexFactory,
		bootstrap.ProvideFAQService,
		bootstrap.ProvideLLM,
		bootstrap.ProvideResponderService,
		bootstrap.ProvideJobQueue,
		bootstrap.ProvideAuthService,
		wire.Bind(new(httpiface.FAQService), new(*faq.Service)),
		wire.Bind(new(httpiface.ReviewResponder), new(*responder.Service)),
		wire.Bind(new(httpiface.JobEnqueuer), new(jobs.Queue)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
