package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/yanqian/review-responder/internal/domain/faq"
	"github.com/yanqian/review-responder/internal/infra/config"
	"github.com/yanqian/review-responder/internal/infra/jobs"
)

// Reindexer rebuilds the served FAQ index from its corpus source.
type Reindexer interface {
	Reload(ctx context.Context, progress faq.ProgressFunc) (faq.BuildStats, error)
}

// App encapsulates the HTTP server lifecycle and the background index worker.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	server    *http.Server
	reindexer Reindexer
	queue     jobs.Queue
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, faqSvc *faq.Service, queue jobs.Queue) *App {
	return &App{
		cfg:       cfg,
		logger:    logger.With("component", "bootstrap"),
		server:    server,
		reindexer: faqSvc,
		queue:     queue,
	}
}

// Run starts the HTTP server and the job worker, schedules the initial index
// build, and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	a.queue.Start(a.handleJob)
	defer a.queue.Close()

	if _, err := a.queue.Enqueue(ctx, jobs.JobReindex, map[string]string{"requestedBy": "startup"}); err != nil {
		a.logger.Error("failed to schedule initial index build", "error", err)
	}

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.Info("shutdown signal received")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (a *App) handleJob(ctx context.Context, job jobs.Job) {
	logger := a.logger.With("job_id", job.ID, "job", job.Name)
	switch job.Name {
	case jobs.JobReindex:
		logger.Info("index build started", "requested_by", job.Payload["requestedBy"])
		stats, err := a.reindexer.Reload(ctx, progressLogger(logger))
		if err != nil {
			logger.Error("index build failed", "error", err)
			return
		}
		logger.Info("index build finished", "indexed", stats.Indexed, "failed", stats.Failed, "duration", stats.Duration)
	default:
		logger.Warn("unknown job skipped")
	}
}

// progressLogger reports build progress roughly every tenth of the corpus.
func progressLogger(logger *slog.Logger) faq.ProgressFunc {
	next := 0
	return func(processed, total int) {
		if total == 0 || processed < next && processed != total {
			return
		}
		logger.Info("index build progress", "processed", processed, "total", total)
		step := total / 10
		if step == 0 {
			step = 1
		}
		next = processed + step
	}
}
