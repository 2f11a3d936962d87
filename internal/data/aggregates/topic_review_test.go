package aggregates

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	reviewrepo "github.com/yungbote/reviewgate-backend/internal/data/repos/review"
	"github.com/yungbote/reviewgate-backend/internal/data/repos/testutil"
	types "github.com/yungbote/reviewgate-backend/internal/domain"
	domainagg "github.com/yungbote/reviewgate-backend/internal/domain/aggregates"
	"github.com/yungbote/reviewgate-backend/internal/srs"
)

func newTopicReviewAggregate(t *testing.T, db *gorm.DB, hooks Hooks) TopicReviewAggregate {
	t.Helper()
	log := testutil.Logger(t)
	return NewTopicReviewAggregate(TopicReviewDeps{
		Base:   BaseDeps{DB: db, Log: log, Hooks: hooks},
		Topics: reviewrepo.NewTopicRepo(db, log),
		Events: reviewrepo.NewReviewEventRepo(db, log),
		Policy: srs.DefaultPolicy(),
	})
}

func TestTopicReviewAggregateWorkedExample(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	agg := newTopicReviewAggregate(t, db, nil)
	user := uuid.New()
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	topic := testutil.SeedTopic(t, ctx, db, user, "sm2", now)

	steps := []struct {
		quality  int
		interval int
		ease     float64
		mastery  types.MasteryLevel
	}{
		{4, 1, 2.5, types.MasteryNew},
		{5, 6, 2.6, types.MasteryDeveloping},
		{3, 16, 2.46, types.MasteryDeveloping},
	}
	for i, step := range steps {
		res, err := agg.Apply(ctx, ApplyReviewInput{UserID: user, TopicID: topic.ID, Quality: step.quality, Now: now})
		require.NoError(t, err, "step %d", i)
		assert.Equal(t, i+1, res.Topic.ReviewCount, "step %d", i)
		assert.Equal(t, step.interval, res.Topic.ReviewIntervalDays, "step %d", i)
		assert.InDelta(t, step.ease, res.Topic.EaseFactor, 1e-9, "step %d", i)
		assert.Equal(t, step.mastery, res.Topic.MasteryLevel, "step %d", i)
		assert.Equal(t, step.quality, res.Event.Quality)
	}

	var stored types.Topic
	require.NoError(t, db.First(&stored, "id = ?", topic.ID).Error)
	assert.Equal(t, 3, stored.ReviewCount)
	assert.Equal(t, 16, stored.ReviewIntervalDays)
	assert.InDelta(t, 2.46, stored.EaseFactor, 1e-9)
	assert.True(t, stored.NextReviewDate.Equal(now.AddDate(0, 0, 16)), "next review %v", stored.NextReviewDate)
	require.NotNil(t, stored.LastReviewedAt)

	var events int64
	require.NoError(t, db.Model(&types.ReviewEvent{}).Where("topic_id = ?", topic.ID).Count(&events).Error)
	assert.Equal(t, int64(3), events)
}

func TestTopicReviewAggregateRejectsInvalidQualityWithoutWriting(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	hooks := &spyHooks{}
	agg := newTopicReviewAggregate(t, db, hooks)
	user := uuid.New()
	topic := testutil.SeedTopic(t, ctx, db, user, "q", time.Now())

	for _, q := range []int{-1, 6} {
		_, err := agg.Apply(ctx, ApplyReviewInput{UserID: user, TopicID: topic.ID, Quality: q})
		assert.True(t, domainagg.IsCode(err, domainagg.CodeValidation), "quality %d: %v", q, err)
		assert.True(t, errors.Is(err, srs.ErrInvalidQuality))
	}
	assert.Empty(t, hooks.Operations, "no transaction should be opened")

	var stored types.Topic
	require.NoError(t, db.First(&stored, "id = ?", topic.ID).Error)
	assert.Zero(t, stored.ReviewCount)
}

func TestTopicReviewAggregateNotFoundForForeignTopic(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	agg := newTopicReviewAggregate(t, db, nil)
	owner := uuid.New()
	topic := testutil.SeedTopic(t, ctx, db, owner, "mine", time.Now())

	_, err := agg.Apply(ctx, ApplyReviewInput{UserID: uuid.New(), TopicID: topic.ID, Quality: 4})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound), "err=%v", err)

	_, err = agg.Apply(ctx, ApplyReviewInput{UserID: owner, TopicID: uuid.New(), Quality: 4})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound), "err=%v", err)

	var stored types.Topic
	require.NoError(t, db.First(&stored, "id = ?", topic.ID).Error)
	assert.Zero(t, stored.ReviewCount)
}

func TestTopicReviewAggregateIdempotencyKey(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	agg := newTopicReviewAggregate(t, db, nil)
	user := uuid.New()
	topic := testutil.SeedTopic(t, ctx, db, user, "idem", time.Now())

	first, err := agg.Apply(ctx, ApplyReviewInput{UserID: user, TopicID: topic.ID, Quality: 5, IdempotencyKey: "k1"})
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	again, err := agg.Apply(ctx, ApplyReviewInput{UserID: user, TopicID: topic.ID, Quality: 5, IdempotencyKey: "k1"})
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, 1, again.Topic.ReviewCount)
	assert.Equal(t, first.Event.ID, again.Event.ID)

	_, err = agg.Apply(ctx, ApplyReviewInput{UserID: uuid.New(), TopicID: topic.ID, Quality: 5, IdempotencyKey: "k1"})
	assert.True(t, domainagg.IsCode(err, domainagg.CodeNotFound), "err=%v", err)

	next, err := agg.Apply(ctx, ApplyReviewInput{UserID: user, TopicID: topic.ID, Quality: 5, IdempotencyKey: "k2"})
	require.NoError(t, err)
	assert.Equal(t, 2, next.Topic.ReviewCount)
}

func TestTopicReviewAggregateConcurrentReviewsAreNotLost(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	agg := newTopicReviewAggregate(t, db, nil)
	user := uuid.New()
	topic := testutil.SeedTopic(t, ctx, db, user, "race", time.Now())

	const m = 12
	var wg sync.WaitGroup
	wg.Add(m)
	for i := 0; i < m; i++ {
		go func(q int) {
			defer wg.Done()
			for {
				_, err := agg.Apply(ctx, ApplyReviewInput{UserID: user, TopicID: topic.ID, Quality: q})
				if err == nil {
					return
				}
				if !domainagg.Retryable(err) {
					t.Errorf("apply: %v", err)
					return
				}
			}
		}(i % 6)
	}
	wg.Wait()

	var stored types.Topic
	require.NoError(t, db.First(&stored, "id = ?", topic.ID).Error)
	assert.Equal(t, m, stored.ReviewCount)
	assert.GreaterOrEqual(t, stored.EaseFactor, 1.3)
	assert.GreaterOrEqual(t, stored.ReviewIntervalDays, 1)
}
