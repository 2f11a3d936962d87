package review

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/reviewgate-backend/internal/domain"
	"github.com/yungbote/reviewgate-backend/internal/platform/dbctx"
	"github.com/yungbote/reviewgate-backend/internal/platform/logger"
)

type LearningSessionRepo interface {
	Create(dbc dbctx.Context, rows []*types.LearningSession) ([]*types.LearningSession, error)
	GetForUser(dbc dbctx.Context, userID, id uuid.UUID) (*types.LearningSession, error)
	CountCompleted(dbc dbctx.Context, userID uuid.UUID) (int64, error)
	ListCompleted(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.LearningSession, error)
}

type learningSessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLearningSessionRepo(db *gorm.DB, baseLog *logger.Logger) LearningSessionRepo {
	return &learningSessionRepo{
		db:  db,
		log: baseLog.With("repo", "LearningSessionRepo"),
	}
}

func (r *learningSessionRepo) Create(dbc dbctx.Context, rows []*types.LearningSession) ([]*types.LearningSession, error) {
	if len(rows) == 0 {
		return []*types.LearningSession{}, nil
	}
	if err := dbc.Resolve(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *learningSessionRepo) GetForUser(dbc dbctx.Context, userID, id uuid.UUID) (*types.LearningSession, error) {
	if userID == uuid.Nil || id == uuid.Nil {
		return nil, nil
	}
	var row types.LearningSession
	if err := dbc.Resolve(r.db).Where("id = ? AND user_id = ?", id, userID).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *learningSessionRepo) CountCompleted(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := dbc.Resolve(r.db).Model(&types.LearningSession{}).
		Where("user_id = ? AND status = ?", userID, types.SessionStatusCompleted).
		Count(&n).Error
	return n, err
}

func (r *learningSessionRepo) ListCompleted(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.LearningSession, error) {
	out := []*types.LearningSession{}
	q := dbc.Resolve(r.db).
		Where("user_id = ? AND status = ?", userID, types.SessionStatusCompleted).
		Order("completed_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
