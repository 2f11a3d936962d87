package review

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/reviewgate-backend/internal/domain"
	"github.com/yungbote/reviewgate-backend/internal/platform/dbctx"
	"github.com/yungbote/reviewgate-backend/internal/platform/logger"
)

type ReviewPrefsRepo interface {
	Get(dbc dbctx.Context, userID uuid.UUID) (*types.UserReviewPrefs, error)
	UpsertDailyCap(dbc dbctx.Context, userID uuid.UUID, maxDailyReviews int) error
}

type reviewPrefsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReviewPrefsRepo(db *gorm.DB, baseLog *logger.Logger) ReviewPrefsRepo {
	return &reviewPrefsRepo{
		db:  db,
		log: baseLog.With("repo", "ReviewPrefsRepo"),
	}
}

func (r *reviewPrefsRepo) Get(dbc dbctx.Context, userID uuid.UUID) (*types.UserReviewPrefs, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	var row types.UserReviewPrefs
	if err := dbc.Resolve(r.db).Where("user_id = ?", userID).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.UserID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *reviewPrefsRepo) UpsertDailyCap(dbc dbctx.Context, userID uuid.UUID, maxDailyReviews int) error {
	row := &types.UserReviewPrefs{
		UserID:          userID,
		MaxDailyReviews: maxDailyReviews,
		UpdatedAt:       time.Now().UTC(),
	}
	return dbc.Resolve(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"max_daily_reviews", "updated_at"}),
		}).
		Create(row).Error
}
