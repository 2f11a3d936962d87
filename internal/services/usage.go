package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	usagerepo "github.com/yungbote/reviewgate-backend/internal/data/repos/usage"
	domainusage "github.com/yungbote/reviewgate-backend/internal/domain/usage"
	"github.com/yungbote/reviewgate-backend/internal/observability"
	"github.com/yungbote/reviewgate-backend/internal/platform/dbctx"
	"github.com/yungbote/reviewgate-backend/internal/platform/logger"
	"github.com/yungbote/reviewgate-backend/internal/ratelimit"
)

type UsageSummary struct {
	PeriodStart     time.Time `json:"period_start"`
	PeriodEnd       time.Time `json:"period_end"`
	AIRequestsCount int64     `json:"ai_requests_count"`
}

type UsageService interface {
	// CheckAIRateLimit consumes one unit of quota when admitted.
	CheckAIRateLimit(ctx context.Context, userID uuid.UUID, tier string) (ratelimit.Decision, error)
	GetRateLimitStatus(ctx context.Context, userID uuid.UUID, tier string) (ratelimit.Decision, error)
	RecordAIUsage(ctx context.Context, userID uuid.UUID) error
	GetUsage(ctx context.Context, userID uuid.UUID) (*UsageSummary, error)
}

type UsageServiceDeps struct {
	Log     *logger.Logger
	Limiter *ratelimit.Limiter
	Ledger  usagerepo.UsageLedgerRepo
	Metrics *observability.Metrics
	Clock   Clock
}

type usageService struct {
	deps UsageServiceDeps
	log  *logger.Logger
}

func NewUsageService(deps UsageServiceDeps) UsageService {
	return &usageService{deps: deps, log: deps.Log.With("service", "UsageService")}
}

func (s *usageService) CheckAIRateLimit(ctx context.Context, userID uuid.UUID, tier string) (ratelimit.Decision, error) {
	if userID == uuid.Nil {
		return ratelimit.Decision{}, ErrMissingUser
	}
	d, err := s.deps.Limiter.Check(ctx, userID, tier)
	if err != nil {
		s.deps.Metrics.IncRateLimitDecision(tier, "error")
		return ratelimit.Decision{}, err
	}
	outcome := "allowed"
	if !d.Allowed {
		outcome = "rejected"
		s.log.Info("AI request rate limited", "user_id", userID, "tier", d.Tier, "limit", d.Limit, "reset_at", d.ResetAt)
	}
	s.deps.Metrics.IncRateLimitDecision(d.Tier, outcome)
	return d, nil
}

func (s *usageService) GetRateLimitStatus(ctx context.Context, userID uuid.UUID, tier string) (ratelimit.Decision, error) {
	if userID == uuid.Nil {
		return ratelimit.Decision{}, ErrMissingUser
	}
	return s.deps.Limiter.Status(ctx, userID, tier)
}

func (s *usageService) RecordAIUsage(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return ErrMissingUser
	}
	if err := s.deps.Ledger.Increment(dbctx.Context{Ctx: ctx}, userID, s.deps.Clock.now()); err != nil {
		return fmt.Errorf("record ai usage: %w", err)
	}
	return nil
}

func (s *usageService) GetUsage(ctx context.Context, userID uuid.UUID) (*UsageSummary, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUser
	}
	start, end := domainusage.MonthPeriod(s.deps.Clock.now())
	row, err := s.deps.Ledger.GetForPeriod(dbctx.Context{Ctx: ctx}, userID, start)
	if err != nil {
		return nil, fmt.Errorf("load usage ledger: %w", err)
	}
	out := &UsageSummary{PeriodStart: start, PeriodEnd: end}
	if row != nil {
		out.AIRequestsCount = row.AIRequestsCount
	}
	return out, nil
}
