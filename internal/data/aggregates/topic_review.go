package aggregates

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	reviewrepo "github.com/yungbote/reviewgate-backend/internal/data/repos/review"
	types "github.com/yungbote/reviewgate-backend/internal/domain"
	domainagg "github.com/yungbote/reviewgate-backend/internal/domain/aggregates"
	"github.com/yungbote/reviewgate-backend/internal/platform/dbctx"
	"github.com/yungbote/reviewgate-backend/internal/srs"
)

const opTopicReviewApply = "topic_review.apply"

type ApplyReviewInput struct {
	UserID  uuid.UUID
	TopicID uuid.UUID
	Quality int
	// IdempotencyKey makes a repeated submission return the first outcome.
	IdempotencyKey string
	Now            time.Time
}

type ApplyReviewResult struct {
	Topic    *types.Topic
	Event    *types.ReviewEvent
	Replayed bool
}

// TopicReviewAggregate owns every mutation of a topic's schedule.
type TopicReviewAggregate interface {
	domainagg.Aggregate
	Apply(ctx context.Context, in ApplyReviewInput) (ApplyReviewResult, error)
}

type TopicReviewDeps struct {
	Base   BaseDeps
	Topics reviewrepo.TopicRepo
	Events reviewrepo.ReviewEventRepo
	Policy srs.Policy
}

type topicReviewAggregate struct {
	deps TopicReviewDeps
}

func NewTopicReviewAggregate(deps TopicReviewDeps) TopicReviewAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.Policy == (srs.Policy{}) {
		deps.Policy = srs.DefaultPolicy()
	}
	return &topicReviewAggregate{deps: deps}
}

func (a *topicReviewAggregate) Contract() domainagg.Contract {
	return domainagg.Contract{
		Name:             "topic_review",
		WriteTxOwnership: domainagg.WriteTxOwnedByAggregate,
		Guard:            domainagg.GuardRowLockCAS,
		Operations:       []string{opTopicReviewApply},
	}
}

func (a *topicReviewAggregate) Apply(ctx context.Context, in ApplyReviewInput) (ApplyReviewResult, error) {
	if !srs.ValidQuality(in.Quality) {
		return ApplyReviewResult{}, MapError(opTopicReviewApply, ValidationError("quality must be between 0 and 5", srs.ErrInvalidQuality))
	}
	if in.UserID == uuid.Nil || in.TopicID == uuid.Nil {
		return ApplyReviewResult{}, MapError(opTopicReviewApply, ValidationError("user id and topic id are required"))
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	key := strings.TrimSpace(in.IdempotencyKey)

	var out ApplyReviewResult
	err := executeWrite(ctx, a.deps.Base, opTopicReviewApply, func(dbc dbctx.Context) error {
		out = ApplyReviewResult{}
		if key != "" {
			prior, err := a.deps.Events.GetByIdempotencyKey(dbc, in.TopicID, key)
			if err != nil {
				return err
			}
			if prior != nil {
				if prior.UserID != in.UserID {
					return NotFoundError("topic not found")
				}
				topic, err := a.deps.Topics.GetForUser(dbc, in.UserID, in.TopicID)
				if err != nil {
					return err
				}
				if topic == nil {
					return NotFoundError("topic not found")
				}
				out = ApplyReviewResult{Topic: topic, Event: prior, Replayed: true}
				return nil
			}
		}

		topic, err := a.deps.Topics.LockForUser(dbc, in.UserID, in.TopicID)
		if err != nil {
			return err
		}
		if topic == nil {
			return NotFoundError("topic not found")
		}

		before := srs.FromTopic(topic)
		after, err := srs.Apply(a.deps.Policy, before, in.Quality, now)
		if err != nil {
			return ValidationError("invalid review", err)
		}
		if err := RequireScheduleInvariants(after.EaseFactor, a.deps.Policy.MinEaseFactor, after.IntervalDays); err != nil {
			return err
		}

		ok, err := a.deps.Base.CASGuard.UpdateIfMatch(dbc, &types.Topic{}, topic.ID, "review_count", topic.ReviewCount, map[string]interface{}{
			"ease_factor":          after.EaseFactor,
			"review_interval_days": after.IntervalDays,
			"next_review_date":     after.NextReviewAt,
			"review_count":         after.ReviewCount,
			"last_reviewed_at":     after.LastReviewedAt,
			"mastery_level":        after.Mastery,
			"updated_at":           now,
		})
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "topic review count changed concurrently"); err != nil {
			return err
		}

		event := &types.ReviewEvent{
			TopicID:        topic.ID,
			UserID:         in.UserID,
			Quality:        in.Quality,
			EaseBefore:     before.EaseFactor,
			EaseAfter:      after.EaseFactor,
			IntervalBefore: before.IntervalDays,
			IntervalAfter:  after.IntervalDays,
			ReviewCount:    after.ReviewCount,
			MasteryBefore:  before.Mastery,
			MasteryAfter:   after.Mastery,
			ReviewedAt:     now,
		}
		if key != "" {
			event.IdempotencyKey = &key
		}
		if err := a.deps.Events.Create(dbc, event); err != nil {
			return err
		}

		after.ApplyTo(topic)
		topic.UpdatedAt = now
		out = ApplyReviewResult{Topic: topic, Event: event}
		return nil
	})
	if err != nil {
		return ApplyReviewResult{}, err
	}
	return out, nil
}
