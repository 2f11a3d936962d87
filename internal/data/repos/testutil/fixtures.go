package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/reviewgate-backend/internal/domain"
)

func SeedTopic(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, title string, nextReview time.Time) *types.Topic {
	tb.Helper()
	t := &types.Topic{
		ID:                 uuid.New(),
		UserID:             userID,
		Title:              title,
		Category:           "general",
		EaseFactor:         2.5,
		ReviewIntervalDays: 1,
		NextReviewDate:     nextReview.UTC(),
		MasteryLevel:       types.MasteryNew,
	}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed topic: %v", err)
	}
	return t
}

func SeedVideo(tb testing.TB, ctx context.Context, tx *gorm.DB, title string) *types.Video {
	tb.Helper()
	v := &types.Video{
		ID:           uuid.New(),
		Title:        title,
		ThumbnailURL: "https://img.example.com/" + title + ".jpg",
		ChannelName:  "channel",
	}
	if err := tx.WithContext(ctx).Create(v).Error; err != nil {
		tb.Fatalf("seed video: %v", err)
	}
	return v
}

func SeedQuestion(tb testing.TB, ctx context.Context, tx *gorm.DB, topic *types.Topic, videoID *uuid.UUID, prompt string, createdAt time.Time) *types.Question {
	tb.Helper()
	q := &types.Question{
		ID:        uuid.New(),
		TopicID:   topic.ID,
		UserID:    topic.UserID,
		VideoID:   videoID,
		Prompt:    prompt,
		Options:   datatypes.JSON([]byte(`["a","b","c","d"]`)),
		Answer:    "a",
		CreatedAt: createdAt.UTC(),
	}
	if err := tx.WithContext(ctx).Create(q).Error; err != nil {
		tb.Fatalf("seed question: %v", err)
	}
	return q
}

func SeedCompletedSession(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, answered, correct int, completedAt time.Time) *types.LearningSession {
	tb.Helper()
	at := completedAt.UTC()
	s := &types.LearningSession{
		ID:                uuid.New(),
		UserID:            userID,
		Status:            types.SessionStatusCompleted,
		QuestionsAnswered: answered,
		QuestionsCorrect:  correct,
		TimeSpentSeconds:  300,
		CompletedAt:       &at,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return s
}
