package usage

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UsageLedger counts admitted AI requests per user per calendar month.
type UsageLedger struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;index:idx_usage_ledger_period,unique,priority:1" json:"user_id"`
	PeriodStart     time.Time `gorm:"column:period_start;not null;index:idx_usage_ledger_period,unique,priority:2" json:"period_start"`
	PeriodEnd       time.Time `gorm:"column:period_end;not null" json:"period_end"`
	AIRequestsCount int64     `gorm:"column:ai_requests_count;not null" json:"ai_requests_count"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`
}

func (UsageLedger) TableName() string { return "usage_ledger" }

func (u *UsageLedger) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// MonthPeriod returns the UTC calendar month containing t as [start, end).
func MonthPeriod(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
