package review

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MasteryLevel string

const (
	MasteryNew        MasteryLevel = "NEW"
	MasteryDeveloping MasteryLevel = "DEVELOPING"
	MasteryFamiliar   MasteryLevel = "FAMILIAR"
	MasteryMastered   MasteryLevel = "MASTERED"
)

func (m MasteryLevel) Valid() bool {
	switch m {
	case MasteryNew, MasteryDeveloping, MasteryFamiliar, MasteryMastered:
		return true
	}
	return false
}

// Topic is a unit of reviewable material owned by exactly one user. Rows are
// created by session finalization; only the review aggregate mutates them.
type Topic struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;index:idx_topic_user_next,priority:1;index:idx_topic_user_reviewed,priority:1" json:"user_id"`
	Title    string    `gorm:"column:title;not null" json:"title"`
	Category string    `gorm:"column:category" json:"category"`

	EaseFactor         float64      `gorm:"column:ease_factor;not null" json:"ease_factor"`
	ReviewIntervalDays int          `gorm:"column:review_interval_days;not null" json:"review_interval_days"`
	NextReviewDate     time.Time    `gorm:"column:next_review_date;not null;index:idx_topic_user_next,priority:2" json:"next_review_date"`
	ReviewCount        int          `gorm:"column:review_count;not null" json:"review_count"`
	LastReviewedAt     *time.Time   `gorm:"column:last_reviewed_at;index:idx_topic_user_reviewed,priority:2" json:"last_reviewed_at,omitempty"`
	MasteryLevel       MasteryLevel `gorm:"column:mastery_level;type:varchar(16);not null" json:"mastery_level"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Topic) TableName() string { return "topic" }

func (t *Topic) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.EaseFactor == 0 {
		t.EaseFactor = 2.5
	}
	if t.ReviewIntervalDays == 0 {
		t.ReviewIntervalDays = 1
	}
	if t.MasteryLevel == "" {
		t.MasteryLevel = MasteryNew
	}
	return nil
}
