package usage

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/reviewgate-backend/internal/domain"
	domainusage "github.com/yungbote/reviewgate-backend/internal/domain/usage"
	"github.com/yungbote/reviewgate-backend/internal/platform/dbctx"
	"github.com/yungbote/reviewgate-backend/internal/platform/logger"
)

type UsageLedgerRepo interface {
	// Increment adds one AI request to the month containing at, creating the row when missing.
	Increment(dbc dbctx.Context, userID uuid.UUID, at time.Time) error
	GetForPeriod(dbc dbctx.Context, userID uuid.UUID, periodStart time.Time) (*types.UsageLedger, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.UsageLedger, error)
}

type usageLedgerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUsageLedgerRepo(db *gorm.DB, baseLog *logger.Logger) UsageLedgerRepo {
	return &usageLedgerRepo{
		db:  db,
		log: baseLog.With("repo", "UsageLedgerRepo"),
	}
}

func (r *usageLedgerRepo) Increment(dbc dbctx.Context, userID uuid.UUID, at time.Time) error {
	start, end := domainusage.MonthPeriod(at)
	now := time.Now().UTC()
	row := &types.UsageLedger{
		ID:              uuid.New(),
		UserID:          userID,
		PeriodStart:     start,
		PeriodEnd:       end,
		AIRequestsCount: 1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return dbc.Resolve(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "period_start"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"ai_requests_count": gorm.Expr("usage_ledger.ai_requests_count + 1"),
				"updated_at":        now,
			}),
		}).
		Create(row).Error
}

func (r *usageLedgerRepo) GetForPeriod(dbc dbctx.Context, userID uuid.UUID, periodStart time.Time) (*types.UsageLedger, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	var row types.UsageLedger
	if err := dbc.Resolve(r.db).
		Where("user_id = ? AND period_start = ?", userID, periodStart.UTC()).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *usageLedgerRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.UsageLedger, error) {
	out := []*types.UsageLedger{}
	q := dbc.Resolve(r.db).Where("user_id = ?", userID).Order("period_start DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
