package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LearningModel summarizes behavioral signals for one user. It is created lazily
// on the first eligible session completion and hard-deleted on reset.
type LearningModel struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`

	OptimalTime        string         `gorm:"column:optimal_time;type:varchar(16)" json:"optimal_time"`
	LastTimeOfDay      string         `gorm:"column:last_time_of_day;type:varchar(16)" json:"last_time_of_day"`
	TimeOfDayHistogram datatypes.JSON `gorm:"column:time_of_day_histogram" json:"time_of_day_histogram,omitempty"`

	AvgSessionDuration  float64 `gorm:"column:avg_session_duration;not null" json:"avg_session_duration"`
	LastSessionDuration int     `gorm:"column:last_session_duration;not null" json:"last_session_duration"`
	DurationSamples     int     `gorm:"column:duration_samples;not null" json:"duration_samples"`

	DifficultySweetSpot float64 `gorm:"column:difficulty_sweet_spot;not null" json:"difficulty_sweet_spot"`
	PreferredPacing     string  `gorm:"column:preferred_pacing;type:varchar(32)" json:"preferred_pacing"`
	PreferredDevice     string  `gorm:"column:preferred_device;type:varchar(32)" json:"preferred_device"`

	SessionsAnalyzed int     `gorm:"column:sessions_analyzed;not null" json:"sessions_analyzed"`
	ConfidenceScore  float64 `gorm:"column:confidence_score;not null" json:"confidence_score"`

	SignalTimeOfDay       bool `gorm:"column:signal_time_of_day;not null" json:"signal_time_of_day"`
	SignalSessionDuration bool `gorm:"column:signal_session_duration;not null" json:"signal_session_duration"`
	SignalDifficulty      bool `gorm:"column:signal_difficulty;not null" json:"signal_difficulty"`
	SignalPacing          bool `gorm:"column:signal_pacing;not null" json:"signal_pacing"`
	SignalDevice          bool `gorm:"column:signal_device;not null" json:"signal_device"`

	LastUpdated time.Time `gorm:"column:last_updated;not null" json:"last_updated"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

func (LearningModel) TableName() string { return "learning_model" }

func (m *LearningModel) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
