package learning

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/reviewgate-backend/internal/domain"
	"github.com/yungbote/reviewgate-backend/internal/platform/dbctx"
	"github.com/yungbote/reviewgate-backend/internal/platform/logger"
)

type LearningPatternRepo interface {
	Create(dbc dbctx.Context, row *types.LearningPattern) error
	// ListNewest returns up to limit patterns newest first; limit <= 0 returns all.
	ListNewest(dbc dbctx.Context, modelID uuid.UUID, limit int) ([]*types.LearningPattern, error)
	Count(dbc dbctx.Context, modelID uuid.UUID) (int64, error)
	// PruneKeepNewest deletes everything but the newest keep patterns.
	PruneKeepNewest(dbc dbctx.Context, modelID uuid.UUID, keep int) (int64, error)
	DeleteByModelID(dbc dbctx.Context, modelID uuid.UUID) error
}

type learningPatternRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLearningPatternRepo(db *gorm.DB, baseLog *logger.Logger) LearningPatternRepo {
	return &learningPatternRepo{
		db:  db,
		log: baseLog.With("repo", "LearningPatternRepo"),
	}
}

func (r *learningPatternRepo) Create(dbc dbctx.Context, row *types.LearningPattern) error {
	if row == nil {
		return nil
	}
	return dbc.Resolve(r.db).Create(row).Error
}

func (r *learningPatternRepo) ListNewest(dbc dbctx.Context, modelID uuid.UUID, limit int) ([]*types.LearningPattern, error) {
	out := []*types.LearningPattern{}
	if modelID == uuid.Nil {
		return out, nil
	}
	q := dbc.Resolve(r.db).
		Where("learning_model_id = ?", modelID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *learningPatternRepo) Count(dbc dbctx.Context, modelID uuid.UUID) (int64, error) {
	var n int64
	err := dbc.Resolve(r.db).Model(&types.LearningPattern{}).Where("learning_model_id = ?", modelID).Count(&n).Error
	return n, err
}

func (r *learningPatternRepo) PruneKeepNewest(dbc dbctx.Context, modelID uuid.UUID, keep int) (int64, error) {
	if modelID == uuid.Nil || keep <= 0 {
		return 0, nil
	}
	t := dbc.Resolve(r.db)
	keepIDs := t.Session(&gorm.Session{NewDB: true}).
		Model(&types.LearningPattern{}).
		Select("id").
		Where("learning_model_id = ?", modelID).
		Order("created_at DESC, id DESC").
		Limit(keep)
	res := t.Where("learning_model_id = ? AND id NOT IN (?)", modelID, keepIDs).Delete(&types.LearningPattern{})
	return res.RowsAffected, res.Error
}

func (r *learningPatternRepo) DeleteByModelID(dbc dbctx.Context, modelID uuid.UUID) error {
	if modelID == uuid.Nil {
		return nil
	}
	return dbc.Resolve(r.db).Where("learning_model_id = ?", modelID).Delete(&types.LearningPattern{}).Error
}
