package services

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/reviewgate-backend/internal/data/aggregates"
	learningrepo "github.com/yungbote/reviewgate-backend/internal/data/repos/learning"
	reviewrepo "github.com/yungbote/reviewgate-backend/internal/data/repos/review"
	"github.com/yungbote/reviewgate-backend/internal/data/repos/testutil"
	usagerepo "github.com/yungbote/reviewgate-backend/internal/data/repos/usage"
	"github.com/yungbote/reviewgate-backend/internal/insights"
	"github.com/yungbote/reviewgate-backend/internal/observability"
	"github.com/yungbote/reviewgate-backend/internal/platform/logger"
	"github.com/yungbote/reviewgate-backend/internal/ratelimit"
	"github.com/yungbote/reviewgate-backend/internal/srs"
)

type harness struct {
	db      *gorm.DB
	log     *logger.Logger
	metrics *observability.Metrics
	now     time.Time
	clock   Clock

	topics    reviewrepo.TopicRepo
	questions reviewrepo.QuestionRepo
	videos    reviewrepo.VideoRepo
	events    reviewrepo.ReviewEventRepo
	prefs     reviewrepo.ReviewPrefsRepo
	sessions  reviewrepo.LearningSessionRepo
	models    learningrepo.LearningModelRepo
	patterns  learningrepo.LearningPatternRepo
	ledger    usagerepo.UsageLedgerRepo
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	h := &harness{
		db:        db,
		log:       log,
		metrics:   observability.New(),
		now:       time.Date(2026, 4, 1, 15, 0, 0, 0, time.UTC),
		topics:    reviewrepo.NewTopicRepo(db, log),
		questions: reviewrepo.NewQuestionRepo(db, log),
		videos:    reviewrepo.NewVideoRepo(db, log),
		events:    reviewrepo.NewReviewEventRepo(db, log),
		prefs:     reviewrepo.NewReviewPrefsRepo(db, log),
		sessions:  reviewrepo.NewLearningSessionRepo(db, log),
		models:    learningrepo.NewLearningModelRepo(db, log),
		patterns:  learningrepo.NewLearningPatternRepo(db, log),
		ledger:    usagerepo.NewUsageLedgerRepo(db, log),
	}
	h.clock = func() time.Time { return h.now }
	return h
}

func (h *harness) base() aggregates.BaseDeps {
	return aggregates.BaseDeps{DB: h.db, Log: h.log, Hooks: aggregates.NewObservabilityHooks(h.metrics)}
}

func (h *harness) reviewService() ReviewService {
	return NewReviewService(ReviewServiceDeps{
		Log: h.log,
		Aggregate: aggregates.NewTopicReviewAggregate(aggregates.TopicReviewDeps{
			Base:   h.base(),
			Topics: h.topics,
			Events: h.events,
			Policy: srs.DefaultPolicy(),
		}),
		Topics:      h.topics,
		Events:      h.events,
		Metrics:     h.metrics,
		Clock:       h.clock,
		MaxAttempts: 20,
	})
}

func (h *harness) queueService(p QueuePolicy) ReviewQueueService {
	return NewReviewQueueService(ReviewQueueDeps{
		Log:       h.log,
		Topics:    h.topics,
		Questions: h.questions,
		Videos:    h.videos,
		Prefs:     h.prefs,
		Metrics:   h.metrics,
		Policy:    p,
		Clock:     h.clock,
	})
}

func (h *harness) learningService(patterns learningrepo.LearningPatternRepo, retention int) LearningModelService {
	if patterns == nil {
		patterns = h.patterns
	}
	return NewLearningModelService(LearningModelServiceDeps{
		Log: h.log,
		Aggregate: aggregates.NewLearningModelAggregate(aggregates.LearningModelDeps{
			Base:     h.base(),
			Models:   h.models,
			Patterns: patterns,
			Policy:   insights.DefaultPolicyIn(time.UTC),
		}),
		Models:           h.models,
		Patterns:         patterns,
		Sessions:         h.sessions,
		Topics:           h.topics,
		Metrics:          h.metrics,
		Clock:            h.clock,
		PatternRetention: retention,
	})
}

func (h *harness) usageService(quota int64) UsageService {
	policy := ratelimit.Policy{
		DefaultTier: "free",
		Tiers: map[string]ratelimit.Tier{
			"free": {Quota: quota, Window: time.Hour},
			"pro":  {Quota: quota * 10, Window: time.Hour},
		},
	}
	limiter := ratelimit.NewLimiter(h.log, ratelimit.NewMemoryStore(h.clock), policy, ratelimit.WithClock(h.clock))
	return NewUsageService(UsageServiceDeps{Log: h.log, Limiter: limiter, Ledger: h.ledger, Metrics: h.metrics, Clock: h.clock})
}
