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

type TopicRepo interface {
	Create(dbc dbctx.Context, rows []*types.Topic) ([]*types.Topic, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Topic, error)
	GetForUser(dbc dbctx.Context, userID, id uuid.UUID) (*types.Topic, error)
	// LockForUser reads the topic with a row lock held until the transaction ends.
	LockForUser(dbc dbctx.Context, userID, id uuid.UUID) (*types.Topic, error)

	ListDue(dbc dbctx.Context, userID uuid.UUID, asOf time.Time, limit int) ([]*types.Topic, error)
	CountReviewedSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) (int64, error)
	CountByUser(dbc dbctx.Context, userID uuid.UUID) (int64, error)
	CountByMastery(dbc dbctx.Context, userID uuid.UUID) (map[types.MasteryLevel]int64, error)
}

type topicRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTopicRepo(db *gorm.DB, baseLog *logger.Logger) TopicRepo {
	return &topicRepo{
		db:  db,
		log: baseLog.With("repo", "TopicRepo"),
	}
}

func (r *topicRepo) Create(dbc dbctx.Context, rows []*types.Topic) ([]*types.Topic, error) {
	if len(rows) == 0 {
		return []*types.Topic{}, nil
	}
	if err := dbc.Resolve(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *topicRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Topic, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.Topic
	if err := dbc.Resolve(r.db).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *topicRepo) GetForUser(dbc dbctx.Context, userID, id uuid.UUID) (*types.Topic, error) {
	return r.findForUser(dbc.Resolve(r.db), userID, id)
}

func (r *topicRepo) LockForUser(dbc dbctx.Context, userID, id uuid.UUID) (*types.Topic, error) {
	return r.findForUser(dbc.Resolve(r.db).Clauses(clause.Locking{Strength: "UPDATE"}), userID, id)
}

func (r *topicRepo) findForUser(t *gorm.DB, userID, id uuid.UUID) (*types.Topic, error) {
	if userID == uuid.Nil || id == uuid.Nil {
		return nil, nil
	}
	var row types.Topic
	if err := t.Where("id = ? AND user_id = ?", id, userID).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *topicRepo) ListDue(dbc dbctx.Context, userID uuid.UUID, asOf time.Time, limit int) ([]*types.Topic, error) {
	out := []*types.Topic{}
	if userID == uuid.Nil || limit <= 0 {
		return out, nil
	}
	if err := dbc.Resolve(r.db).
		Where("user_id = ? AND next_review_date <= ?", userID, asOf.UTC()).
		Order("next_review_date ASC, id ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *topicRepo) CountReviewedSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) (int64, error) {
	var n int64
	err := dbc.Resolve(r.db).Model(&types.Topic{}).
		Where("user_id = ? AND last_reviewed_at >= ?", userID, since.UTC()).
		Count(&n).Error
	return n, err
}

func (r *topicRepo) CountByUser(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := dbc.Resolve(r.db).Model(&types.Topic{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

func (r *topicRepo) CountByMastery(dbc dbctx.Context, userID uuid.UUID) (map[types.MasteryLevel]int64, error) {
	var rows []struct {
		MasteryLevel types.MasteryLevel
		N            int64
	}
	if err := dbc.Resolve(r.db).Model(&types.Topic{}).
		Select("mastery_level, COUNT(*) AS n").
		Where("user_id = ?", userID).
		Group("mastery_level").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[types.MasteryLevel]int64, len(rows))
	for _, row := range rows {
		out[row.MasteryLevel] = row.N
	}
	return out, nil
}
