package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const PatternTypeSessionTime = "session_time"

// LearningPattern is one raw observation appended per qualifying session.
type LearningPattern struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	LearningModelID uuid.UUID      `gorm:"type:uuid;not null;index:idx_learning_pattern_model_time,priority:1" json:"learning_model_id"`
	PatternType     string         `gorm:"column:pattern_type;type:varchar(32);not null" json:"pattern_type"`
	PatternData     datatypes.JSON `gorm:"column:pattern_data;not null" json:"pattern_data"`
	CreatedAt       time.Time      `gorm:"not null;index:idx_learning_pattern_model_time,priority:2" json:"created_at"`
}

func (LearningPattern) TableName() string { return "learning_pattern" }

func (p *LearningPattern) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// SessionPatternData is the payload stored for PatternTypeSessionTime.
type SessionPatternData struct {
	Hour              int       `json:"hour"`
	TimeOfDay         string    `json:"timeOfDay"`
	CompletedAt       time.Time `json:"completedAt"`
	QuestionsAnswered int       `json:"questionsAnswered"`
	QuestionsCorrect  int       `json:"questionsCorrect"`
	TimeSpentSeconds  int       `json:"timeSpentSeconds,omitempty"`
}
