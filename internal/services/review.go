package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"

	"github.com/yungbote/reviewgate-backend/internal/data/aggregates"
	reviewrepo "github.com/yungbote/reviewgate-backend/internal/data/repos/review"
	types "github.com/yungbote/reviewgate-backend/internal/domain"
	domainagg "github.com/yungbote/reviewgate-backend/internal/domain/aggregates"
	"github.com/yungbote/reviewgate-backend/internal/observability"
	"github.com/yungbote/reviewgate-backend/internal/platform/dbctx"
	"github.com/yungbote/reviewgate-backend/internal/platform/logger"
	"github.com/yungbote/reviewgate-backend/internal/srs"
)

const defaultHistoryLimit = 50

type ReviewInput struct {
	UserID         uuid.UUID
	TopicID        uuid.UUID
	Quality        int
	IdempotencyKey string
}

type ReviewOutcome struct {
	Topic    *types.Topic       `json:"topic"`
	Event    *types.ReviewEvent `json:"event,omitempty"`
	Replayed bool               `json:"replayed"`
}

type ReviewService interface {
	Review(ctx context.Context, in ReviewInput) (*ReviewOutcome, error)
	ListHistory(ctx context.Context, userID, topicID uuid.UUID, limit int) ([]*types.ReviewEvent, error)
}

type ReviewServiceDeps struct {
	Log       *logger.Logger
	Aggregate aggregates.TopicReviewAggregate
	Topics    reviewrepo.TopicRepo
	Events    reviewrepo.ReviewEventRepo
	Metrics   *observability.Metrics
	Clock     Clock

	// MaxAttempts bounds retries of conflicting writes.
	MaxAttempts uint
}

type reviewService struct {
	deps ReviewServiceDeps
	log  *logger.Logger
}

func NewReviewService(deps ReviewServiceDeps) ReviewService {
	if deps.MaxAttempts == 0 {
		deps.MaxAttempts = 5
	}
	return &reviewService{deps: deps, log: deps.Log.With("service", "ReviewService")}
}

func (s *reviewService) Review(ctx context.Context, in ReviewInput) (*ReviewOutcome, error) {
	if !srs.ValidQuality(in.Quality) {
		return nil, fmt.Errorf("review topic: %w", srs.ErrInvalidQuality)
	}
	if in.UserID == uuid.Nil {
		return nil, ErrMissingUser
	}

	var res aggregates.ApplyReviewResult
	err := retry.Do(
		func() error {
			var err error
			res, err = s.deps.Aggregate.Apply(ctx, aggregates.ApplyReviewInput{
				UserID:         in.UserID,
				TopicID:        in.TopicID,
				Quality:        in.Quality,
				IdempotencyKey: in.IdempotencyKey,
				Now:            s.deps.Clock.now(),
			})
			return err
		},
		retry.Context(ctx),
		retry.Attempts(s.deps.MaxAttempts),
		retry.Delay(10*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(domainagg.Retryable),
		retry.OnRetry(func(n uint, err error) {
			s.log.Debug("Retrying topic review", "attempt", n+1, "topic_id", in.TopicID, "error", err)
		}),
	)
	switch {
	case err == nil:
	case domainagg.IsCode(err, domainagg.CodeNotFound):
		return nil, fmt.Errorf("review topic %s: %w", in.TopicID, ErrTopicNotFound)
	case errors.Is(err, srs.ErrInvalidQuality):
		return nil, fmt.Errorf("review topic: %w", srs.ErrInvalidQuality)
	default:
		s.log.Error("Topic review failed", "topic_id", in.TopicID, "user_id", in.UserID, "error", err)
		return nil, fmt.Errorf("review topic: %w", err)
	}

	s.deps.Metrics.IncReview(in.Quality, string(res.Topic.MasteryLevel), res.Replayed)
	return &ReviewOutcome{Topic: res.Topic, Event: res.Event, Replayed: res.Replayed}, nil
}

func (s *reviewService) ListHistory(ctx context.Context, userID, topicID uuid.UUID, limit int) ([]*types.ReviewEvent, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUser
	}
	if limit <= 0 || limit > 200 {
		limit = defaultHistoryLimit
	}
	dbc := dbctx.Context{Ctx: ctx}
	topic, err := s.deps.Topics.GetForUser(dbc, userID, topicID)
	if err != nil {
		return nil, fmt.Errorf("load topic: %w", err)
	}
	if topic == nil {
		return nil, fmt.Errorf("review history %s: %w", topicID, ErrTopicNotFound)
	}
	events, err := s.deps.Events.ListByTopic(dbc, userID, topicID, limit)
	if err != nil {
		return nil, fmt.Errorf("list review events: %w", err)
	}
	return events, nil
}
