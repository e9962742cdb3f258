package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/review-responder/internal/domain/auth"
	"github.com/yanqian/review-responder/internal/domain/faq"
	"github.com/yanqian/review-responder/internal/domain/responder"
	"github.com/yanqian/review-responder/internal/infra/config"
	"github.com/yanqian/review-responder/internal/infra/jobs"
	apperrors "github.com/yanqian/review-responder/pkg/errors"
)

func TestRouter_FindMatchesSuccess(t *testing.T) {
	faqSvc := &stubFAQ{
		findFn: func(_ context.Context, query string, opts faq.SearchOptions) (faq.Result, error) {
			require.Equal(t, "How do I freeze my card?", query)
			require.Equal(t, 2, opts.K)
			require.NotNil(t, opts.Threshold)
			require.Equal(t, 1.2, *opts.Threshold)
			return faq.Result{
				SubQuestions: []string{"how do i freeze my card?"},
				Matches: []faq.Match{{
					SubQuestion:     "how do i freeze my card?",
					MatchedQuestion: "How to freeze card?",
					Answer:          "Use the app's Freeze Card button under Settings.",
					Distance:        0.31,
				}},
			}, nil
		},
	}
	server := newRouterUnderTest(t, routerDeps{faq: faqSvc})

	recorder := performRequest(server, http.MethodPost, "/api/v1/faq/matches", `{"query":"How do I freeze my card?","k":2,"threshold":1.2}`, "")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.NotEmpty(t, recorder.Header().Get("X-Request-ID"))

	var got struct {
		SubQuestions []string `json:"subQuestions"`
		Matches      []struct {
			Question   string  `json:"question"`
			MatchedFAQ string  `json:"matchedFaq"`
			Answer     string  `json:"answer"`
			Distance   float64 `json:"distance"`
		} `json:"matches"`
		Unembedded int `json:"unembedded"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Len(t, got.Matches, 1)
	require.Equal(t, "How to freeze card?", got.Matches[0].MatchedFAQ)
	require.Equal(t, "how do i freeze my card?", got.Matches[0].Question)
	require.Equal(t, 0, got.Unembedded)
}

func TestRouter_FindMatchesThresholdIsOptional(t *testing.T) {
	var got []*float64
	faqSvc := &stubFAQ{findFn: func(_ context.Context, _ string, opts faq.SearchOptions) (faq.Result, error) {
		got = append(got, opts.Threshold)
		return faq.Result{}, nil
	}}
	server := newRouterUnderTest(t, routerDeps{faq: faqSvc})

	require.Equal(t, http.StatusOK, performRequest(server, http.MethodPost, "/api/v1/faq/matches", `{"query":"x"}`, "").Code)
	require.Equal(t, http.StatusOK, performRequest(server, http.MethodPost, "/api/v1/faq/matches", `{"query":"x","threshold":0}`, "").Code)
	require.Len(t, got, 2)
	require.Nil(t, got[0])
	require.NotNil(t, got[1])
	require.Zero(t, *got[1])

	recorder := performRequest(server, http.MethodPost, "/api/v1/faq/matches", `{"query":"x","threshold":-0.5}`, "")
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRouter_FindMatchesEmptyIsOK(t *testing.T) {
	server := newRouterUnderTest(t, routerDeps{faq: &stubFAQ{}})

	recorder := performRequest(server, http.MethodPost, "/api/v1/faq/matches", `{"query":""}`, "")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.JSONEq(t, `{"subQuestions":[],"matches":[],"unembedded":0}`, recorder.Body.String())
}

func TestRouter_FindMatchesErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{name: "malformed json", body: `{"query":123}`, status: http.StatusBadRequest, code: "invalid_request"},
		{name: "negative k", body: `{"query":"x","k":-1}`, status: http.StatusBadRequest, code: "invalid_request"},
		{
			name:   "index not ready",
			body:   `{"query":"x"}`,
			err:    apperrors.Wrap(apperrors.CodeIndexNotReady, "index has not been built", nil),
			status: http.StatusServiceUnavailable,
			code:   apperrors.CodeIndexNotReady,
		},
		{
			name:   "provider down",
			body:   `{"query":"x"}`,
			err:    apperrors.Wrap(apperrors.CodeProviderUnavailable, "embedding provider unavailable", nil),
			status: http.StatusBadGateway,
			code:   apperrors.CodeProviderUnavailable,
		},
		{
			name:   "unexpected",
			body:   `{"query":"x"}`,
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
			code:   "internal_error",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			faqSvc := &stubFAQ{findFn: func(context.Context, string, faq.SearchOptions) (faq.Result, error) {
				return faq.Result{}, tc.err
			}}
			server := newRouterUnderTest(t, routerDeps{faq: faqSvc})

			recorder := performRequest(server, http.MethodPost, "/api/v1/faq/matches", tc.body, "")
			require.Equal(t, tc.status, recorder.Code)
			errBody := decodeErrorBody(t, recorder.Body.Bytes())
			require.Equal(t, tc.code, errBody["error"]["code"])
			require.NotEmpty(t, errBody["error"]["message"])
		})
	}
}

func TestRouter_RespondToReview(t *testing.T) {
	resp := responder.Response{
		ID:        "reply-1",
		Reply:     "One.\n\nTwo.\n\nThree.",
		Sentiment: responder.SentimentNegative,
		Source:    responder.SourceLLM,
		Matches:   []faq.Match{},
	}
	rs := &stubResponder{fn: func(_ context.Context, req responder.Request) (responder.Response, error) {
		require.Equal(t, "Card got frozen", req.Review)
		require.Equal(t, 2, req.Rating)
		require.Equal(t, "friendly", req.BrandVoice)
		return resp, nil
	}}
	server := newRouterUnderTest(t, routerDeps{responder: rs})

	recorder := performRequest(server, http.MethodPost, "/api/v1/reviews/respond", `{"review":"Card got frozen","rating":2,"brandVoice":"friendly"}`, "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var got responder.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, resp, got)
}

func TestRouter_RespondToReviewInvalidInput(t *testing.T) {
	rs := &stubResponder{fn: func(context.Context, responder.Request) (responder.Response, error) {
		return responder.Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, "review cannot be empty", nil)
	}}
	server := newRouterUnderTest(t, routerDeps{responder: rs})

	recorder := performRequest(server, http.MethodPost, "/api/v1/reviews/respond", `{"review":""}`, "")
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	errBody := decodeErrorBody(t, recorder.Body.Bytes())
	require.Equal(t, apperrors.CodeInvalidInput, errBody["error"]["code"])
	require.Contains(t, errBody["error"]["message"], "review cannot be empty")
}

func TestRouter_TrendingAndIndexStats(t *testing.T) {
	faqSvc := &stubFAQ{
		trending: []faq.TrendingQuery{{Query: "how to freeze card?", Count: 3}},
		stats:    faq.IndexStats{Ready: true, Entries: 8, Indexed: 8, Model: "text-embedding-3-small"},
	}
	server := newRouterUnderTest(t, routerDeps{faq: faqSvc})

	recorder := performRequest(server, http.MethodGet, "/api/v1/faq/trending", "", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.JSONEq(t, `{"recommendations":[{"query":"how to freeze card?","count":3}]}`, recorder.Body.String())

	recorder = performRequest(server, http.MethodGet, "/api/v1/faq/index", "", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	var stats faq.IndexStats
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &stats))
	require.Equal(t, faqSvc.stats, stats)

	recorder = performRequest(server, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.JSONEq(t, `{"status":"ok","indexReady":true}`, recorder.Body.String())
}

func TestRouter_ReindexRequiresAdminToken(t *testing.T) {
	authSvc, err := auth.NewService(auth.Config{Secret: "test-secret", TokenTTL: time.Hour}, newTestLogger())
	require.NoError(t, err)
	token, err := authSvc.Issue(context.Background(), "ops")
	require.NoError(t, err)

	queue := &stubQueue{}
	server := newRouterUnderTest(t, routerDeps{auth: authSvc, queue: queue})

	recorder := performRequest(server, http.MethodPost, "/api/v1/faq/reindex", "", "")
	require.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder = performRequest(server, http.MethodPost, "/api/v1/faq/reindex", "", "Bearer not-a-token")
	require.Equal(t, http.StatusForbidden, recorder.Code)
	require.Equal(t, apperrors.CodeInvalidToken, decodeErrorBody(t, recorder.Body.Bytes())["error"]["code"])
	require.Empty(t, queue.enqueued)

	recorder = performRequest(server, http.MethodPost, "/api/v1/faq/reindex", "", "Bearer "+token)
	require.Equal(t, http.StatusAccepted, recorder.Code)
	require.Len(t, queue.enqueued, 1)
	require.Equal(t, jobs.JobReindex, queue.enqueued[0].Name)
	require.Equal(t, "ops", queue.enqueued[0].Payload["requestedBy"])

	var body map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	require.Equal(t, queue.enqueued[0].ID, body["jobId"])
}

func TestRouter_ReindexDisabledWithoutSecret(t *testing.T) {
	server := newRouterUnderTest(t, routerDeps{})
	recorder := performRequest(server, http.MethodPost, "/api/v1/faq/reindex", "", "Bearer x")
	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}

func TestRouter_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	faqSvc := &stubFAQ{findFn: func(context.Context, string, faq.SearchOptions) (faq.Result, error) {
		if calls.Add(1) == 1 {
			return faq.Result{}, apperrors.Wrap(apperrors.CodeIndexNotReady, "rebuilding", nil)
		}
		return faq.Result{SubQuestions: []string{"x?"}}, nil
	}}
	cfg := testConfig()
	cfg.HTTP.Retry = config.RetryConfig{Enabled: true, MaxAttempts: 2, BaseBackoff: time.Millisecond}
	server := NewRouter(cfg, NewHandler(faqSvc, &stubResponder{}, &stubQueue{}, newTestLogger()), nil, newTestLogger())

	recorder := performRequest(server, http.MethodPost, "/api/v1/faq/matches", `{"query":"x"}`, "")
	require.Equal(t, http.StatusOK, recorder.Code)
	require.EqualValues(t, 2, calls.Load())
}

func TestRouter_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1}
	server := NewRouter(cfg, NewHandler(&stubFAQ{}, &stubResponder{}, &stubQueue{}, newTestLogger()), nil, newTestLogger())

	require.Equal(t, http.StatusOK, performRequest(server, http.MethodGet, "/api/v1/faq/trending", "", "").Code)
	recorder := performRequest(server, http.MethodGet, "/api/v1/faq/trending", "", "")
	require.Equal(t, http.StatusTooManyRequests, recorder.Code)
	require.Equal(t, "rate_limit_exceeded", decodeErrorBody(t, recorder.Body.Bytes())["error"]["code"])
}

type routerDeps struct {
	faq       FAQService
	responder ReviewResponder
	queue     JobEnqueuer
	auth      auth.Service
}

func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
	}
}

func newRouterUnderTest(t *testing.T, deps routerDeps) *http.Server {
	t.Helper()
	if deps.faq == nil {
		deps.faq = &stubFAQ{}
	}
	if deps.responder == nil {
		deps.responder = &stubResponder{}
	}
	if deps.queue == nil {
		deps.queue = &stubQueue{}
	}
	handler := NewHandler(deps.faq, deps.responder, deps.queue, newTestLogger())
	return NewRouter(testConfig(), handler, deps.auth, newTestLogger())
}

func performRequest(server *http.Server, method, path, body, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

type stubFAQ struct {
	findFn   func(ctx context.Context, query string, opts faq.SearchOptions) (faq.Result, error)
	trending []faq.TrendingQuery
	stats    faq.IndexStats
}

func (s *stubFAQ) FindMatches(ctx context.Context, query string, opts faq.SearchOptions) (faq.Result, error) {
	if s.findFn != nil {
		return s.findFn(ctx, query, opts)
	}
	return faq.Result{}, nil
}

func (s *stubFAQ) Trending(context.Context) ([]faq.TrendingQuery, error) {
	if s.trending == nil {
		return []faq.TrendingQuery{}, nil
	}
	return s.trending, nil
}

func (s *stubFAQ) Stats() faq.IndexStats {
	return s.stats
}

type stubResponder struct {
	fn func(ctx context.Context, req responder.Request) (responder.Response, error)
}

func (s *stubResponder) Respond(ctx context.Context, req responder.Request) (responder.Response, error) {
	if s.fn != nil {
		return s.fn(ctx, req)
	}
	return responder.Response{}, nil
}

type stubQueue struct {
	enqueued []jobs.Job
}

func (q *stubQueue) Enqueue(_ context.Context, name string, payload map[string]string) (jobs.Job, error) {
	job := jobs.Job{ID: "job-" + name, Name: name, Payload: payload, EnqueuedAt: time.Now()}
	q.enqueued = append(q.enqueued, job)
	return job, nil
}
