package observability

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/reviewgate-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *GaugeVec

	reviews          *CounterVec
	queueBuilds      *CounterVec
	queueItems       *HistogramVec
	rateLimit        *CounterVec
	aiCalls          *CounterVec
	aiLatency        *HistogramVec
	learningUpdates  *CounterVec
	patternFailures  *CounterVec
	usageLedgerFails *CounterVec

	aggregateLatency   *HistogramVec
	aggregateConflicts *CounterVec
	aggregateRetries   *CounterVec

	dbPool      *GaugeVec
	redisHealth *GaugeVec

	collectors []collector
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Init returns the process-wide registry, or nil when metrics are disabled.
// Every method on a nil *Metrics is a no-op.
func Init(enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() { instance = New() })
	return instance
}

func Current() *Metrics { return instance }

// New builds an independent registry.
func New() *Metrics {
	m := &Metrics{
		apiRequests: NewCounterVec("rg_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec("rg_api_request_duration_seconds", "API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"}, []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}),
		apiInflight: NewGaugeVec("rg_api_inflight_requests", "In-flight API requests.", nil),

		reviews:     NewCounterVec("rg_reviews_total", "Applied topic reviews by quality/resulting mastery/outcome.", []string{"quality", "mastery", "outcome"}),
		queueBuilds: NewCounterVec("rg_review_queue_builds_total", "Review queue builds by whether the daily cap was reached.", []string{"limit_reached"}),
		queueItems:  NewHistogramVec("rg_review_queue_items", "Items returned per review queue.", nil, []float64{0, 1, 2, 4, 6, 8, 10}),
		rateLimit:   NewCounterVec("rg_ratelimit_decisions_total", "AI rate limit decisions by tier/outcome.", []string{"tier", "outcome"}),
		aiCalls:     NewCounterVec("rg_ai_calls_total", "Gated AI collaborator calls by endpoint/outcome.", []string{"endpoint", "outcome"}),
		aiLatency: NewHistogramVec("rg_ai_call_duration_seconds", "AI collaborator call latency by endpoint.",
			[]string{"endpoint"}, []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20}),
		learningUpdates:  NewCounterVec("rg_learning_model_updates_total", "Session completions folded into learning models by outcome.", []string{"outcome"}),
		patternFailures:  NewCounterVec("rg_learning_pattern_append_failures_total", "Learning pattern writes that failed and were skipped.", nil),
		usageLedgerFails: NewCounterVec("rg_usage_ledger_failures_total", "Usage ledger increments that failed after an AI call.", nil),

		aggregateLatency: NewHistogramVec("rg_aggregate_operation_duration_seconds", "Aggregate write latency by operation/status.",
			[]string{"op", "status"}, nil),
		aggregateConflicts: NewCounterVec("rg_aggregate_conflicts_total", "Aggregate compare-and-set conflicts by operation.", []string{"op"}),
		aggregateRetries:   NewCounterVec("rg_aggregate_retries_total", "Aggregate retryable failures by operation.", []string{"op"}),

		dbPool:      NewGaugeVec("rg_db_pool", "Database pool statistics.", []string{"stat"}),
		redisHealth: NewGaugeVec("rg_redis", "Redis health (up, ping_seconds).", []string{"stat"}),
	}
	m.collectors = []collector{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.reviews, m.queueBuilds, m.queueItems, m.rateLimit, m.aiCalls, m.aiLatency,
		m.learningUpdates, m.patternFailures, m.usageLedgerFails,
		m.aggregateLatency, m.aggregateConflicts, m.aggregateRetries,
		m.dbPool, m.redisHealth,
	}
	return m
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range m.collectors {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) APIInflightInc() {
	if m != nil {
		m.apiInflight.Add(1)
	}
}

func (m *Metrics) APIInflightDec() {
	if m != nil {
		m.apiInflight.Add(-1)
	}
}

func (m *Metrics) IncReview(quality int, mastery string, replayed bool) {
	if m == nil {
		return
	}
	outcome := "applied"
	if replayed {
		outcome = "replayed"
	}
	m.reviews.Inc(strconv.Itoa(quality), mastery, outcome)
}

func (m *Metrics) ObserveQueueBuild(items int, limitReached bool) {
	if m == nil {
		return
	}
	m.queueBuilds.Inc(strconv.FormatBool(limitReached))
	m.queueItems.Observe(float64(items))
}

func (m *Metrics) IncRateLimitDecision(tier, outcome string) {
	if m != nil {
		m.rateLimit.Inc(tier, outcome)
	}
}

func (m *Metrics) ObserveAICall(endpoint, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aiCalls.Inc(endpoint, outcome)
	if dur > 0 {
		m.aiLatency.Observe(dur.Seconds(), endpoint)
	}
}

func (m *Metrics) IncLearningUpdate(outcome string) {
	if m != nil {
		m.learningUpdates.Inc(outcome)
	}
}

func (m *Metrics) IncPatternAppendFailure() {
	if m != nil {
		m.patternFailures.Inc()
	}
}

func (m *Metrics) IncUsageLedgerFailure() {
	if m != nil {
		m.usageLedgerFails.Inc()
	}
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m != nil {
		m.aggregateLatency.Observe(dur.Seconds(), op, status)
	}
}

func (m *Metrics) IncAggregateConflict(op string) {
	if m != nil {
		m.aggregateConflicts.Inc(op)
	}
}

func (m *Metrics) IncAggregateRetry(op string) {
	if m != nil {
		m.aggregateRetries.Inc(op)
	}
}

// StartDBCollector samples pool statistics until ctx is done.
func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, interval time.Duration) {
	if m == nil || db == nil {
		return
	}
	go tick(ctx, interval, func() {
		sqlDB, err := db.DB()
		if err != nil {
			log.Warn("metrics: db stats unavailable", "error", err)
			return
		}
		stats := sqlDB.Stats()
		m.dbPool.Set(float64(stats.OpenConnections), "open_connections")
		m.dbPool.Set(float64(stats.InUse), "in_use")
		m.dbPool.Set(float64(stats.Idle), "idle")
		m.dbPool.Set(float64(stats.WaitCount), "wait_count")
		m.dbPool.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
	})
}

// StartRedisCollector pings rdb until ctx is done.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb goredis.UniversalClient, interval time.Duration) {
	if m == nil || rdb == nil {
		return
	}
	go tick(ctx, interval, func() {
		start := time.Now()
		if err := rdb.Ping(ctx).Err(); err != nil {
			m.redisHealth.Set(0, "up")
			if ctx.Err() == nil {
				log.Warn("metrics: redis ping failed", "error", err)
			}
			return
		}
		m.redisHealth.Set(1, "up")
		m.redisHealth.Set(time.Since(start).Seconds(), "ping_seconds")
	})
}

func tick(ctx context.Context, interval time.Duration, fn func()) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
