package aggregates

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/reviewgate-backend/internal/domain/aggregates"
	"github.com/yungbote/reviewgate-backend/internal/srs"
)

func TestMapErrorCodes(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want domainagg.ErrorCode
	}{
		{"validation", ValidationError("bad input"), domainagg.CodeValidation},
		{"not found sentinel", NotFoundError("missing topic"), domainagg.CodeNotFound},
		{"gorm not found", gorm.ErrRecordNotFound, domainagg.CodeNotFound},
		{"conflict", ConflictError("stale"), domainagg.CodeConflict},
		{"invariant", InvariantError("ef below floor"), domainagg.CodeInvariantViolation},
		{"pg unique", &pgconn.PgError{Code: "23505"}, domainagg.CodeConflict},
		{"pg deadlock", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "40P01"}), domainagg.CodeRetryable},
		{"pg fk", &pgconn.PgError{Code: "23503"}, domainagg.CodePreconditionFailed},
		{"sqlite unique", errors.New("UNIQUE constraint failed: review_event.topic_id"), domainagg.CodeConflict},
		{"sqlite busy", errors.New("database is locked"), domainagg.CodeRetryable},
		{"other", errors.New("boom"), domainagg.CodeInternal},
	}
	for _, tc := range cases {
		got := domainagg.CodeOf(MapError("op", tc.in))
		if got != tc.want {
			t.Fatalf("%s: want=%s got=%s", tc.name, tc.want, got)
		}
	}
}

func TestMapErrorKeepsCause(t *testing.T) {
	err := MapError("op", ValidationError("quality out of range", srs.ErrInvalidQuality))
	if !errors.Is(err, srs.ErrInvalidQuality) {
		t.Fatalf("expected wrapped cause to survive mapping: %v", err)
	}
}

func TestMapErrorPassthroughAggregateError(t *testing.T) {
	in := domainagg.NewError(domainagg.CodeRetryable, "op", "retry", errors.New("boom"))
	if out := MapError("other", in); out != in {
		t.Fatalf("expected passthrough aggregate error")
	}
}
