package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/reviewgate-backend/internal/clients/ai"
	"github.com/yungbote/reviewgate-backend/internal/data/aggregates"
	learningrepo "github.com/yungbote/reviewgate-backend/internal/data/repos/learning"
	reviewrepo "github.com/yungbote/reviewgate-backend/internal/data/repos/review"
	"github.com/yungbote/reviewgate-backend/internal/data/repos/testutil"
	usagerepo "github.com/yungbote/reviewgate-backend/internal/data/repos/usage"
	types "github.com/yungbote/reviewgate-backend/internal/domain"
	httpH "github.com/yungbote/reviewgate-backend/internal/http/handlers"
	httpMW "github.com/yungbote/reviewgate-backend/internal/http/middleware"
	"github.com/yungbote/reviewgate-backend/internal/insights"
	"github.com/yungbote/reviewgate-backend/internal/observability"
	"github.com/yungbote/reviewgate-backend/internal/ratelimit"
	"github.com/yungbote/reviewgate-backend/internal/services"
	"github.com/yungbote/reviewgate-backend/internal/srs"
)

const routerSecret = "router-secret"

type stubAI struct{}

func (stubAI) Explain(context.Context, ai.ExplainRequest) (ai.ExplainResponse, error) {
	return ai.ExplainResponse{Explanation: "because"}, nil
}

func (stubAI) EvaluateAnswer(context.Context, ai.EvaluateRequest) (ai.EvaluateResponse, error) {
	return ai.EvaluateResponse{Correct: true, Score: 1, Feedback: "ok"}, nil
}

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
}

func newTestServer(t *testing.T, aiQuota int64) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	metrics := observability.New()
	base := aggregates.BaseDeps{DB: db, Log: log, Hooks: aggregates.NewObservabilityHooks(metrics)}

	topics := reviewrepo.NewTopicRepo(db, log)
	events := reviewrepo.NewReviewEventRepo(db, log)
	models := learningrepo.NewLearningModelRepo(db, log)
	patterns := learningrepo.NewLearningPatternRepo(db, log)

	reviews := services.NewReviewService(services.ReviewServiceDeps{
		Log: log,
		Aggregate: aggregates.NewTopicReviewAggregate(aggregates.TopicReviewDeps{
			Base: base, Topics: topics, Events: events, Policy: srs.DefaultPolicy(),
		}),
		Topics:  topics,
		Events:  events,
		Metrics: metrics,
	})
	queuePolicy := services.DefaultQueuePolicy()
	queuePolicy.Location = time.UTC
	queue := services.NewReviewQueueService(services.ReviewQueueDeps{
		Log:       log,
		Topics:    topics,
		Questions: reviewrepo.NewQuestionRepo(db, log),
		Videos:    reviewrepo.NewVideoRepo(db, log),
		Prefs:     reviewrepo.NewReviewPrefsRepo(db, log),
		Metrics:   metrics,
		Policy:    queuePolicy,
	})
	learning := services.NewLearningModelService(services.LearningModelServiceDeps{
		Log: log,
		Aggregate: aggregates.NewLearningModelAggregate(aggregates.LearningModelDeps{
			Base: base, Models: models, Patterns: patterns, Policy: insights.DefaultPolicyIn(time.UTC),
		}),
		Models:   models,
		Patterns: patterns,
		Sessions: reviewrepo.NewLearningSessionRepo(db, log),
		Topics:   topics,
		Metrics:  metrics,
	})
	limiter := ratelimit.NewLimiter(log, ratelimit.NewMemoryStore(nil), ratelimit.Policy{
		DefaultTier: "free",
		Tiers:       map[string]ratelimit.Tier{"free": {Quota: aiQuota, Window: time.Hour}},
	})
	usage := services.NewUsageService(services.UsageServiceDeps{
		Log: log, Limiter: limiter, Ledger: usagerepo.NewUsageLedgerRepo(db, log), Metrics: metrics,
	})
	assist := services.NewAssistService(log, services.NewAIGate(log, usage, metrics), stubAI{})

	engine := NewRouter(RouterConfig{
		Log:             log,
		Metrics:         metrics,
		AuthMiddleware:  httpMW.NewAuthMiddleware(log, routerSecret),
		HealthHandler:   httpH.NewHealthHandler(db),
		ReviewHandler:   httpH.NewReviewHandlerWithDeps(httpH.ReviewHandlerDeps{Log: log, Reviews: reviews, Queue: queue}),
		LearningHandler: httpH.NewLearningHandlerWithDeps(httpH.LearningHandlerDeps{Log: log, Learning: learning}),
		AIHandler:       httpH.NewAIHandlerWithDeps(httpH.AIHandlerDeps{Log: log, Usage: usage, Assist: assist}),
	})
	return &testServer{engine: engine, db: db}
}

func bearer(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, httpMW.Claims{
		Tier: "free",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(routerSecret))
	require.NoError(t, err)
	return "Bearer " + tok
}

func (s *testServer) do(t *testing.T, method, path string, user uuid.UUID, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != uuid.Nil {
		req.Header.Set("Authorization", bearer(t, user))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Error.Code
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, 5)
	rec := s.do(t, http.MethodGet, "/healthcheck", uuid.Nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = s.do(t, http.MethodGet, "/metrics", uuid.Nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `rg_api_requests_total{method="GET",route="/healthcheck",status="200"} 1`)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, 5)
	rec := s.do(t, http.MethodGet, "/api/review/queue", uuid.Nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", errorCode(t, rec))
}

func TestReviewTopicEndpoint(t *testing.T) {
	s := newTestServer(t, 5)
	user := uuid.New()
	topic := testutil.SeedTopic(t, context.Background(), s.db, user, "http", time.Now().Add(-time.Hour))
	path := "/api/topics/" + topic.ID.String() + "/review"

	rec := s.do(t, http.MethodPost, path, user, map[string]int{"quality": 5}, "Idempotency-Key", "abc")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Topic    types.Topic `json:"topic"`
		Replayed bool        `json:"replayed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Topic.ReviewCount)
	assert.False(t, body.Replayed)

	rec = s.do(t, http.MethodPost, path, user, map[string]int{"quality": 5}, "Idempotency-Key", "abc")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Replayed)
	assert.Equal(t, 1, body.Topic.ReviewCount)

	rec = s.do(t, http.MethodPost, path, user, map[string]int{"quality": 7})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_quality", errorCode(t, rec))

	rec = s.do(t, http.MethodPost, path, user, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", errorCode(t, rec))

	rec = s.do(t, http.MethodPost, path, uuid.New(), map[string]int{"quality": 3})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "topic_not_found", errorCode(t, rec))

	rec = s.do(t, http.MethodGet, "/api/topics/"+topic.ID.String()+"/reviews", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, strings.Count(rec.Body.String(), `"quality":5`))
}

func TestReviewQueueEndpoints(t *testing.T) {
	s := newTestServer(t, 5)
	user := uuid.New()
	ctx := context.Background()
	topic := testutil.SeedTopic(t, ctx, s.db, user, "queued", time.Now().Add(-time.Hour))
	testutil.SeedQuestion(t, ctx, s.db, topic, nil, "prompt?", time.Now())

	rec := s.do(t, http.MethodGet, "/api/review/queue", user, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var q services.ReviewQueue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
	require.Len(t, q.Items, 1)
	assert.Equal(t, "prompt?", q.Items[0].Prompt)
	assert.Equal(t, 1, q.EstimatedMinutes)

	rec = s.do(t, http.MethodPut, "/api/review/preferences", user, map[string]int{"max_daily_reviews": 500})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_daily_cap", errorCode(t, rec))

	rec = s.do(t, http.MethodPut, "/api/review/preferences", user, map[string]int{"max_daily_reviews": 7})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/review/queue", user, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
	assert.Equal(t, 7, q.DailyCap)
}

func TestLearningModelEndpoints(t *testing.T) {
	s := newTestServer(t, 5)
	user := uuid.New()

	rec := s.do(t, http.MethodGet, "/api/learning-model", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"has_data":false`)

	rec = s.do(t, http.MethodPost, "/api/sessions/"+uuid.NewString()+"/complete", user, map[string]any{
		"completed_at":       "2026-04-01T19:00:00Z",
		"questions_answered": 4,
		"questions_correct":  2,
		"time_spent_seconds": 240,
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"recorded":true`)

	rec = s.do(t, http.MethodGet, "/api/learning-model", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"optimal_time":"evening"`)

	rec = s.do(t, http.MethodPut, "/api/learning-model/signals/mood", user, map[string]bool{"enabled": false})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_signal", errorCode(t, rec))

	rec = s.do(t, http.MethodPut, "/api/learning-model/signals/difficulty", user, map[string]bool{"enabled": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"difficulty":false`)

	rec = s.do(t, http.MethodGet, "/api/learning-model/export", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	rec = s.do(t, http.MethodDelete, "/api/learning-model", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"deleted":true`)
}

func TestAIEndpointsRateLimited(t *testing.T) {
	s := newTestServer(t, 1)
	user := uuid.New()
	body := map[string]string{"topic_title": "t", "question": "why?"}

	rec := s.do(t, http.MethodPost, "/api/ai/explanations", user, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = s.do(t, http.MethodPost, "/api/ai/explanations", user, body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", errorCode(t, rec))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec = s.do(t, http.MethodPost, "/api/ai/answer-evaluations", user, map[string]string{
		"question": "2+2", "expected_answer": "4", "user_answer": "4",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"fallback":true`)

	rec = s.do(t, http.MethodGet, "/api/ai/rate-limit", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"allowed":false`)

	rec = s.do(t, http.MethodGet, "/api/ai/usage", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ai_requests_count":1`)
}
