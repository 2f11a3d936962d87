package learning

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/reviewgate-backend/internal/data/repos/testutil"
	types "github.com/yungbote/reviewgate-backend/internal/domain"
	"github.com/yungbote/reviewgate-backend/internal/platform/dbctx"
)

func seedModel(user uuid.UUID) *types.LearningModel {
	return &types.LearningModel{
		UserID:              user,
		DifficultySweetSpot: 0.75,
		SignalTimeOfDay:     true,
		LastUpdated:         time.Now().UTC(),
	}
}

func TestLearningModelRepo(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewLearningModelRepo(db, testutil.Logger(t))

	user := uuid.New()
	if got, err := repo.GetByUserID(dbc, user); err != nil || got != nil {
		t.Fatalf("GetByUserID(missing): got=%v err=%v", got, err)
	}
	if err := repo.EnsureDefault(dbc, seedModel(user)); err != nil {
		t.Fatalf("EnsureDefault: %v", err)
	}
	first, err := repo.LockByUserID(dbc, user)
	if err != nil || first == nil {
		t.Fatalf("LockByUserID: got=%v err=%v", first, err)
	}

	first.SessionsAnalyzed = 3
	if err := repo.Save(dbc, first); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := repo.EnsureDefault(dbc, seedModel(user)); err != nil {
		t.Fatalf("EnsureDefault(existing): %v", err)
	}
	again, _ := repo.GetByUserID(dbc, user)
	if again == nil || again.ID != first.ID || again.SessionsAnalyzed != 3 {
		t.Fatalf("EnsureDefault must not overwrite: got=%+v", again)
	}

	if err := repo.UpdateFields(dbc, user, map[string]interface{}{"signal_time_of_day": false}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	again, _ = repo.GetByUserID(dbc, user)
	if again.SignalTimeOfDay {
		t.Fatalf("UpdateFields: signal still enabled")
	}

	deleted, err := repo.DeleteByUserID(dbc, user)
	if err != nil || deleted == nil || deleted.ID != first.ID {
		t.Fatalf("DeleteByUserID: got=%v err=%v", deleted, err)
	}
	if got, _ := repo.GetByUserID(dbc, user); got != nil {
		t.Fatalf("GetByUserID(after delete): got=%v", got)
	}
	if got, err := repo.DeleteByUserID(dbc, user); err != nil || got != nil {
		t.Fatalf("DeleteByUserID(missing): got=%v err=%v", got, err)
	}
}

func TestLearningPatternRepo(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewLearningPatternRepo(db, testutil.Logger(t))

	modelID := uuid.New()
	base := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		row := &types.LearningPattern{
			LearningModelID: modelID,
			PatternType:     types.PatternTypeSessionTime,
			PatternData:     datatypes.JSON([]byte(`{"hour":9}`)),
			CreatedAt:       base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(dbc, row); err != nil {
			t.Fatalf("Create(%d): %v", i, err)
		}
	}

	newest, err := repo.ListNewest(dbc, modelID, 2)
	if err != nil || len(newest) != 2 || !newest[0].CreatedAt.Equal(base.Add(5*time.Minute)) {
		t.Fatalf("ListNewest: got=%v err=%v", newest, err)
	}

	pruned, err := repo.PruneKeepNewest(dbc, modelID, 4)
	if err != nil || pruned != 2 {
		t.Fatalf("PruneKeepNewest: want=2 got=%d err=%v", pruned, err)
	}
	all, _ := repo.ListNewest(dbc, modelID, 0)
	if len(all) != 4 || !all[3].CreatedAt.Equal(base.Add(2*time.Minute)) {
		t.Fatalf("after prune: got=%v", all)
	}

	if err := repo.DeleteByModelID(dbc, modelID); err != nil {
		t.Fatalf("DeleteByModelID: %v", err)
	}
	if n, _ := repo.Count(dbc, modelID); n != 0 {
		t.Fatalf("Count(after delete): want=0 got=%d", n)
	}
}
