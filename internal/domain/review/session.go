package review

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const SessionStatusCompleted = "completed"

// LearningSession is owned by the session lifecycle; it is counted here for exports.
type LearningSession struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID            uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	VideoID           *uuid.UUID `gorm:"type:uuid" json:"video_id,omitempty"`
	Status            string     `gorm:"column:status;type:varchar(24);not null;index" json:"status"`
	QuestionsAnswered int        `gorm:"column:questions_answered;not null" json:"questions_answered"`
	QuestionsCorrect  int        `gorm:"column:questions_correct;not null" json:"questions_correct"`
	TimeSpentSeconds  int        `gorm:"column:time_spent_seconds;not null" json:"time_spent_seconds"`
	CompletedAt       *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt         time.Time  `gorm:"not null" json:"created_at"`
}

func (LearningSession) TableName() string { return "learning_session" }

func (s *LearningSession) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
