package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/review-responder/internal/domain/faq"
	"github.com/yanqian/review-responder/internal/domain/responder"
	"github.com/yanqian/review-responder/internal/infra/jobs"
)

// FAQService is the retrieval surface exposed over HTTP.
type FAQService interface {
	FindMatches(ctx context.Context, query string, opts faq.SearchOptions) (faq.Result, error)
	Trending(ctx context.Context) ([]faq.TrendingQuery, error)
	Stats() faq.IndexStats
}

// ReviewResponder drafts replies to reviews.
type ReviewResponder interface {
	Respond(ctx context.Context, req responder.Request) (responder.Response, error)
}

// JobEnqueuer schedules background work.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, name string, payload map[string]string) (jobs.Job, error)
}

// Handler wires the HTTP transport to domain services.
type Handler struct {
	faqSvc    FAQService
	responder ReviewResponder
	queue     JobEnqueuer
	logger    *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(faqSvc FAQService, responderSvc ReviewResponder, queue JobEnqueuer, logger *slog.Logger) *Handler {
	return &Handler{
		faqSvc:    faqSvc,
		responder: responderSvc,
		queue:     queue,
		logger:    logger.With("component", "http.handler"),
	}
}

type matchRequest struct {
	Query     string   `json:"query"`
	K         int      `json:"k"`
	Threshold *float64 `json:"threshold"`
}

// FindMatches returns the FAQ entries closest to each sub-question of the query.
func (h *Handler) FindMatches(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	if req.K < 0 || (req.Threshold != nil && *req.Threshold < 0) {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "k and threshold cannot be negative", nil))
		return
	}

	result, err := h.faqSvc.FindMatches(c.Request.Context(), req.Query, faq.SearchOptions{K: req.K, Threshold: req.Threshold})
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	if result.SubQuestions == nil {
		result.SubQuestions = []string{}
	}
	if result.Matches == nil {
		result.Matches = []faq.Match{}
	}
	if result.Degraded() {
		h.logger.Warn("partial match result", "unembedded", result.Unembedded, "sub_questions", len(result.SubQuestions))
	}
	c.JSON(http.StatusOK, result)
}

// RespondToReview drafts a reply grounded on FAQ matches.
func (h *Handler) RespondToReview(c *gin.Context) {
	var req responder.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.responder.Respond(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// TrendingFAQ returns the most common sub-questions.
func (h *Handler) TrendingFAQ(c *gin.Context) {
	items, err := h.faqSvc.Trending(c.Request.Context())
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": items})
}

// IndexStats reports on the index currently served.
func (h *Handler) IndexStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.faqSvc.Stats())
}

// Reindex schedules a rebuild from the corpus source.
func (h *Handler) Reindex(c *gin.Context) {
	payload := map[string]string{}
	if claims, ok := getClaims(c); ok {
		payload["requestedBy"] = claims.Subject
	}
	job, err := h.queue.Enqueue(c.Request.Context(), jobs.JobReindex, payload)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusServiceUnavailable, "queue_unavailable", "failed to schedule reindex", err))
		return
	}
	h.logger.Info("reindex scheduled", "job_id", job.ID, "requested_by", payload["requestedBy"])
	c.JSON(http.StatusAccepted, gin.H{"jobId": job.ID})
}

// Health reports liveness and whether the index is ready.
func (h *Handler) Health(c *gin.Context) {
	stats := h.faqSvc.Stats()
	status := "ok"
	if !stats.Ready {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "indexReady": stats.Ready})
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimSpace(err.Error())
}
