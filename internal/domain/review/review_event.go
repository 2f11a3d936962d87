package review

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReviewEvent is the append-only command log of applied reviews. A non-nil
// IdempotencyKey is unique per topic so a replayed submission is applied once.
type ReviewEvent struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TopicID        uuid.UUID `gorm:"type:uuid;not null;index:idx_review_event_topic_key,unique,priority:1;index:idx_review_event_topic_time,priority:1" json:"topic_id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	IdempotencyKey *string   `gorm:"column:idempotency_key;type:varchar(128);index:idx_review_event_topic_key,unique,priority:2" json:"idempotency_key,omitempty"`
	Quality        int       `gorm:"column:quality;not null" json:"quality"`

	EaseBefore     float64      `gorm:"column:ease_before;not null" json:"ease_before"`
	EaseAfter      float64      `gorm:"column:ease_after;not null" json:"ease_after"`
	IntervalBefore int          `gorm:"column:interval_before;not null" json:"interval_before"`
	IntervalAfter  int          `gorm:"column:interval_after;not null" json:"interval_after"`
	ReviewCount    int          `gorm:"column:review_count;not null" json:"review_count"`
	MasteryBefore  MasteryLevel `gorm:"column:mastery_before;type:varchar(16);not null" json:"mastery_before"`
	MasteryAfter   MasteryLevel `gorm:"column:mastery_after;type:varchar(16);not null" json:"mastery_after"`

	ReviewedAt time.Time `gorm:"column:reviewed_at;not null;index:idx_review_event_topic_time,priority:2" json:"reviewed_at"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (ReviewEvent) TableName() string { return "review_event" }

func (e *ReviewEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// UserReviewPrefs overrides the configured daily review cap for one user.
type UserReviewPrefs struct {
	UserID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	MaxDailyReviews int       `gorm:"column:max_daily_reviews;not null" json:"max_daily_reviews"`
	UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`
}

func (UserReviewPrefs) TableName() string { return "user_review_prefs" }
