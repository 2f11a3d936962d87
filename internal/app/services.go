package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/reviewgate-backend/internal/data/aggregates"
	"github.com/yungbote/reviewgate-backend/internal/insights"
	"github.com/yungbote/reviewgate-backend/internal/observability"
	"github.com/yungbote/reviewgate-backend/internal/platform/logger"
	"github.com/yungbote/reviewgate-backend/internal/ratelimit"
	"github.com/yungbote/reviewgate-backend/internal/services"
	"github.com/yungbote/reviewgate-backend/internal/srs"
)

type Services struct {
	Review   services.ReviewService
	Queue    services.ReviewQueueService
	Learning services.LearningModelService
	Usage    services.UsageService
	Assist   services.AssistService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg *Config, repos Repos, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	schedule := srs.Policy{
		FirstIntervalDays:  cfg.Review.FirstIntervalDays,
		SecondIntervalDays: cfg.Review.SecondIntervalDays,
		InitialEaseFactor:  cfg.Review.InitialEaseFactor,
		MinEaseFactor:      cfg.Review.MinEaseFactor,
		EaseBase:           cfg.Review.EaseBase,
		EaseLinear:         cfg.Review.EaseLinear,
		EaseQuadratic:      cfg.Review.EaseQuadratic,
	}
	if err := schedule.Validate(); err != nil {
		return Services{}, err
	}

	base := aggregates.BaseDeps{
		DB:    db,
		Log:   log,
		Hooks: aggregates.NewObservabilityHooks(metrics),
	}

	topicAgg := aggregates.NewTopicReviewAggregate(aggregates.TopicReviewDeps{
		Base:   base,
		Topics: repos.Topic,
		Events: repos.ReviewEvent,
		Policy: schedule,
	})
	modelAgg := aggregates.NewLearningModelAggregate(aggregates.LearningModelDeps{
		Base:     base,
		Models:   repos.Model,
		Patterns: repos.Pattern,
		Policy: insights.Policy{
			ConfidenceIncrement: cfg.Learning.ConfidenceIncrement,
			ConfidenceCap:       cfg.Learning.ConfidenceCap,
			Location:            location(cfg.Learning.Timezone),
		},
	})

	limiter := ratelimit.NewLimiter(log, clients.CounterStore, rateLimitPolicy(cfg.RateLimit), ratelimit.WithKeyPrefix(cfg.Redis.KeyPrefix))

	usage := services.NewUsageService(services.UsageServiceDeps{
		Log:     log,
		Limiter: limiter,
		Ledger:  repos.UsageLedger,
		Metrics: metrics,
	})
	gate := services.NewAIGate(log, usage, metrics)

	return Services{
		Review: services.NewReviewService(services.ReviewServiceDeps{
			Log:         log,
			Aggregate:   topicAgg,
			Topics:      repos.Topic,
			Events:      repos.ReviewEvent,
			Metrics:     metrics,
			MaxAttempts: cfg.Review.MaxWriteAttempts,
		}),
		Queue: services.NewReviewQueueService(services.ReviewQueueDeps{
			Log:       log,
			Topics:    repos.Topic,
			Questions: repos.Question,
			Videos:    repos.Video,
			Prefs:     repos.ReviewPrefs,
			Metrics:   metrics,
			Policy: services.QueuePolicy{
				DefaultDailyCap:     cfg.Review.DefaultDailyCap,
				MaxTopics:           cfg.Review.MaxTopics,
				QuestionsPerTopic:   cfg.Review.QuestionsPerTopic,
				MaxItems:            cfg.Review.MaxItems,
				MinutesPerItem:      cfg.Review.MinutesPerItem,
				MaxEstimatedMinutes: cfg.Review.MaxEstimatedMinutes,
				Location:            location(cfg.Review.Timezone),
			},
		}),
		Learning: services.NewLearningModelService(services.LearningModelServiceDeps{
			Log:              log,
			Aggregate:        modelAgg,
			Models:           repos.Model,
			Patterns:         repos.Pattern,
			Sessions:         repos.Session,
			Topics:           repos.Topic,
			Metrics:          metrics,
			PatternRetention: cfg.Learning.PatternRetention,
		}),
		Usage:  usage,
		Assist: services.NewAssistService(log, gate, clients.AI),
	}, nil
}

func rateLimitPolicy(cfg RateLimitConfig) ratelimit.Policy {
	tiers := make(map[string]ratelimit.Tier, len(cfg.Tiers))
	for name, t := range cfg.Tiers {
		tiers[name] = ratelimit.Tier{Name: name, Quota: t.Quota, Window: t.Window}
	}
	return ratelimit.Policy{DefaultTier: cfg.DefaultTier, Tiers: tiers}
}
