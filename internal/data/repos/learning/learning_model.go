package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/reviewgate-backend/internal/domain"
	"github.com/yungbote/reviewgate-backend/internal/platform/dbctx"
	"github.com/yungbote/reviewgate-backend/internal/platform/logger"
)

type LearningModelRepo interface {
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.LearningModel, error)
	// EnsureDefault inserts seed when no row exists for seed.UserID and leaves any
	// existing row untouched.
	EnsureDefault(dbc dbctx.Context, seed *types.LearningModel) error
	LockByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.LearningModel, error)
	Save(dbc dbctx.Context, row *types.LearningModel) error
	UpdateFields(dbc dbctx.Context, userID uuid.UUID, updates map[string]interface{}) error
	DeleteByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.LearningModel, error)
}

type learningModelRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLearningModelRepo(db *gorm.DB, baseLog *logger.Logger) LearningModelRepo {
	return &learningModelRepo{
		db:  db,
		log: baseLog.With("repo", "LearningModelRepo"),
	}
}

func (r *learningModelRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.LearningModel, error) {
	return r.find(dbc.Resolve(r.db), userID)
}

func (r *learningModelRepo) LockByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.LearningModel, error) {
	return r.find(dbc.Resolve(r.db).Clauses(clause.Locking{Strength: "UPDATE"}), userID)
}

func (r *learningModelRepo) find(t *gorm.DB, userID uuid.UUID) (*types.LearningModel, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	var row types.LearningModel
	if err := t.Where("user_id = ?", userID).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *learningModelRepo) EnsureDefault(dbc dbctx.Context, seed *types.LearningModel) error {
	if seed == nil || seed.UserID == uuid.Nil {
		return nil
	}
	return dbc.Resolve(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(seed).Error
}

func (r *learningModelRepo) Save(dbc dbctx.Context, row *types.LearningModel) error {
	if row == nil || row.ID == uuid.Nil {
		return nil
	}
	return dbc.Resolve(r.db).Save(row).Error
}

func (r *learningModelRepo) UpdateFields(dbc dbctx.Context, userID uuid.UUID, updates map[string]interface{}) error {
	if userID == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["last_updated"]; !ok {
		updates["last_updated"] = time.Now().UTC()
	}
	return dbc.Resolve(r.db).
		Model(&types.LearningModel{}).
		Where("user_id = ?", userID).
		Updates(updates).Error
}

func (r *learningModelRepo) DeleteByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.LearningModel, error) {
	row, err := r.find(dbc.Resolve(r.db), userID)
	if err != nil || row == nil {
		return nil, err
	}
	if err := dbc.Resolve(r.db).Where("id = ?", row.ID).Delete(&types.LearningModel{}).Error; err != nil {
		return nil, err
	}
	return row, nil
}
