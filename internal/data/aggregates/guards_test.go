package aggregates

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/reviewgate-backend/internal/data/repos/testutil"
	types "github.com/yungbote/reviewgate-backend/internal/domain"
	"github.com/yungbote/reviewgate-backend/internal/platform/dbctx"
)

func TestCASGuardUpdateIfMatch(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	topic := testutil.SeedTopic(t, ctx, db, uuid.New(), "cas", time.Now())
	guard := NewCASGuard(db)
	dbc := dbctx.Context{Ctx: ctx}

	ok, err := guard.UpdateIfMatch(dbc, &types.Topic{}, topic.ID, "review_count", 3, map[string]interface{}{"review_count": 4})
	if err != nil || ok {
		t.Fatalf("stale UpdateIfMatch: ok=%v err=%v", ok, err)
	}
	ok, err = guard.UpdateIfMatch(dbc, &types.Topic{}, topic.ID, "review_count", 0, map[string]interface{}{"review_count": 1})
	if err != nil || !ok {
		t.Fatalf("UpdateIfMatch: ok=%v err=%v", ok, err)
	}
	if _, err := guard.UpdateIfMatch(dbc, &types.Topic{}, uuid.Nil, "review_count", 0, map[string]interface{}{"review_count": 1}); err == nil {
		t.Fatalf("expected validation error for nil id")
	}
}

func TestRequireCASSuccess(t *testing.T) {
	if err := RequireCASSuccess(true, "ok"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := RequireCASSuccess(false, "stale"); err == nil {
		t.Fatalf("expected conflict error")
	}
}

func TestRequireScheduleInvariants(t *testing.T) {
	if err := RequireScheduleInvariants(1.3, 1.3, 1); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := RequireScheduleInvariants(1.29, 1.3, 1); err == nil {
		t.Fatalf("expected ease floor violation")
	}
	if err := RequireScheduleInvariants(2.5, 1.3, 0); err == nil {
		t.Fatalf("expected interval violation")
	}
}
