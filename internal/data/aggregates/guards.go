package aggregates

import (
	"math"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/reviewgate-backend/internal/platform/dbctx"
)

// CASGuard applies compare-and-set updates for aggregate writes.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

func (g CASGuard) baseDB(dbc dbctx.Context) (*gorm.DB, error) {
	if dbc.Tx == nil && g.db == nil {
		return nil, ValidationError("missing db transaction context")
	}
	return dbc.Resolve(g.db), nil
}

// UpdateIfMatch updates the row identified by id only while column still holds
// expected. column must be a trusted identifier, never request input.
func (g CASGuard) UpdateIfMatch(dbc dbctx.Context, model interface{}, id uuid.UUID, column string, expected interface{}, updates map[string]interface{}) (bool, error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	column = strings.TrimSpace(column)
	if model == nil || id == uuid.Nil || column == "" {
		return false, ValidationError("model, id and guard column are required for UpdateIfMatch")
	}
	if len(updates) == 0 {
		return false, ValidationError("updates must not be empty")
	}
	res := db.Model(model).
		Where("id = ? AND "+column+" = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RequireCASSuccess converts a failed compare-and-set into a typed conflict error.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return ConflictError(strings.TrimSpace(message))
}

// RequireScheduleInvariants rejects a schedule that breaks the ease floor or
// the minimum interval.
func RequireScheduleInvariants(easeFactor, minEase float64, intervalDays int) error {
	if math.IsNaN(easeFactor) || easeFactor < minEase {
		return InvariantError("ease factor below floor")
	}
	if intervalDays < 1 {
		return InvariantError("review interval below one day")
	}
	return nil
}
