package review

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/reviewgate-backend/internal/domain"
	"github.com/yungbote/reviewgate-backend/internal/platform/dbctx"
	"github.com/yungbote/reviewgate-backend/internal/platform/logger"
)

type VideoRepo interface {
	Create(dbc dbctx.Context, rows []*types.Video) ([]*types.Video, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) (map[uuid.UUID]*types.Video, error)
}

type videoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoRepo(db *gorm.DB, baseLog *logger.Logger) VideoRepo {
	return &videoRepo{
		db:  db,
		log: baseLog.With("repo", "VideoRepo"),
	}
}

func (r *videoRepo) Create(dbc dbctx.Context, rows []*types.Video) ([]*types.Video, error) {
	if len(rows) == 0 {
		return []*types.Video{}, nil
	}
	if err := dbc.Resolve(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *videoRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) (map[uuid.UUID]*types.Video, error) {
	out := map[uuid.UUID]*types.Video{}
	if len(ids) == 0 {
		return out, nil
	}
	var rows []*types.Video
	if err := dbc.Resolve(r.db).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, v := range rows {
		out[v.ID] = v
	}
	return out, nil
}
