package review

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/reviewgate-backend/internal/domain"
	"github.com/yungbote/reviewgate-backend/internal/platform/dbctx"
	"github.com/yungbote/reviewgate-backend/internal/platform/logger"
)

type ReviewEventRepo interface {
	Create(dbc dbctx.Context, row *types.ReviewEvent) error
	GetByIdempotencyKey(dbc dbctx.Context, topicID uuid.UUID, key string) (*types.ReviewEvent, error)
	ListByTopic(dbc dbctx.Context, userID, topicID uuid.UUID, limit int) ([]*types.ReviewEvent, error)
}

type reviewEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReviewEventRepo(db *gorm.DB, baseLog *logger.Logger) ReviewEventRepo {
	return &reviewEventRepo{
		db:  db,
		log: baseLog.With("repo", "ReviewEventRepo"),
	}
}

func (r *reviewEventRepo) Create(dbc dbctx.Context, row *types.ReviewEvent) error {
	if row == nil {
		return nil
	}
	return dbc.Resolve(r.db).Create(row).Error
}

func (r *reviewEventRepo) GetByIdempotencyKey(dbc dbctx.Context, topicID uuid.UUID, key string) (*types.ReviewEvent, error) {
	key = strings.TrimSpace(key)
	if topicID == uuid.Nil || key == "" {
		return nil, nil
	}
	var row types.ReviewEvent
	if err := dbc.Resolve(r.db).
		Where("topic_id = ? AND idempotency_key = ?", topicID, key).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *reviewEventRepo) ListByTopic(dbc dbctx.Context, userID, topicID uuid.UUID, limit int) ([]*types.ReviewEvent, error) {
	out := []*types.ReviewEvent{}
	if userID == uuid.Nil || topicID == uuid.Nil {
		return out, nil
	}
	q := dbc.Resolve(r.db).
		Where("topic_id = ? AND user_id = ?", topicID, userID).
		Order("reviewed_at DESC, review_count DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
