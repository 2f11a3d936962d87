package review

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/reviewgate-backend/internal/domain"
	"github.com/yungbote/reviewgate-backend/internal/platform/dbctx"
	"github.com/yungbote/reviewgate-backend/internal/platform/logger"
)

type QuestionRepo interface {
	Create(dbc dbctx.Context, rows []*types.Question) ([]*types.Question, error)
	ListNewestByTopic(dbc dbctx.Context, topicID uuid.UUID, limit int) ([]*types.Question, error)
}

type questionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
	return &questionRepo{
		db:  db,
		log: baseLog.With("repo", "QuestionRepo"),
	}
}

func (r *questionRepo) Create(dbc dbctx.Context, rows []*types.Question) ([]*types.Question, error) {
	if len(rows) == 0 {
		return []*types.Question{}, nil
	}
	if err := dbc.Resolve(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *questionRepo) ListNewestByTopic(dbc dbctx.Context, topicID uuid.UUID, limit int) ([]*types.Question, error) {
	out := []*types.Question{}
	if topicID == uuid.Nil || limit <= 0 {
		return out, nil
	}
	if err := dbc.Resolve(r.db).
		Where("topic_id = ?", topicID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
