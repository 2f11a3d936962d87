package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	learningrepo "github.com/yungbote/reviewgate-backend/internal/data/repos/learning"
	types "github.com/yungbote/reviewgate-backend/internal/domain"
	domainagg "github.com/yungbote/reviewgate-backend/internal/domain/aggregates"
	"github.com/yungbote/reviewgate-backend/internal/insights"
	"github.com/yungbote/reviewgate-backend/internal/platform/dbctx"
)

const (
	opLearningRecordSession = "learning_model.record_session"
	opLearningSetSignal     = "learning_model.set_signal"
	opLearningReset         = "learning_model.reset"
)

type RecordSessionInput struct {
	UserID      uuid.UUID
	Observation insights.Observation
	Now         time.Time
}

type RecordSessionResult struct {
	Model   *types.LearningModel
	Pattern *types.SessionPatternData
	// Skipped is set when the timeOfDay signal is disabled; nothing was written.
	Skipped bool
}

// LearningModelAggregate owns the per-user learning model row.
type LearningModelAggregate interface {
	domainagg.Aggregate
	RecordSession(ctx context.Context, in RecordSessionInput) (RecordSessionResult, error)
	SetSignal(ctx context.Context, userID uuid.UUID, name insights.SignalName, enabled bool, now time.Time) (*types.LearningModel, error)
	// Reset deletes the model and its patterns; false when there was nothing to delete.
	Reset(ctx context.Context, userID uuid.UUID) (bool, error)
}

type LearningModelDeps struct {
	Base     BaseDeps
	Models   learningrepo.LearningModelRepo
	Patterns learningrepo.LearningPatternRepo
	Policy   insights.Policy
}

type learningModelAggregate struct {
	deps LearningModelDeps
}

func (a *learningModelAggregate) Contract() domainagg.Contract {
	return domainagg.Contract{
		Name:             "learning_model",
		WriteTxOwnership: domainagg.WriteTxOwnedByAggregate,
		Guard:            domainagg.GuardUpsertThenLock,
		Operations:       []string{opLearningRecordSession, opLearningSetSignal, opLearningReset},
	}
}

func NewLearningModelAggregate(deps LearningModelDeps) LearningModelAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.Policy.Location == nil {
		deps.Policy.Location = time.Local
	}
	return &learningModelAggregate{deps: deps}
}

// lockOrCreate returns the locked model row, inserting the default row first
// when none exists. Concurrent first writers converge on the same row.
func (a *learningModelAggregate) lockOrCreate(dbc dbctx.Context, userID uuid.UUID, now time.Time) (*types.LearningModel, error) {
	m, err := a.deps.Models.LockByUserID(dbc, userID)
	if err != nil || m != nil {
		return m, err
	}
	if err := a.deps.Models.EnsureDefault(dbc, insights.NewModel(userID, now)); err != nil {
		return nil, err
	}
	m, err = a.deps.Models.LockByUserID(dbc, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, RetryableError("learning model row not visible after insert")
	}
	return m, nil
}

func (a *learningModelAggregate) RecordSession(ctx context.Context, in RecordSessionInput) (RecordSessionResult, error) {
	if in.UserID == uuid.Nil {
		return RecordSessionResult{}, MapError(opLearningRecordSession, ValidationError("user id is required"))
	}
	obs := in.Observation
	if obs.QuestionsAnswered < 0 || obs.QuestionsCorrect < 0 || obs.TimeSpentSeconds < 0 || obs.QuestionsCorrect > obs.QuestionsAnswered {
		return RecordSessionResult{}, MapError(opLearningRecordSession, ValidationError("invalid session summary"))
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	if obs.CompletedAt.IsZero() {
		obs.CompletedAt = now
	}

	var out RecordSessionResult
	err := executeWrite(ctx, a.deps.Base, opLearningRecordSession, func(dbc dbctx.Context) error {
		out = RecordSessionResult{}
		existing, err := a.deps.Models.LockByUserID(dbc, in.UserID)
		if err != nil {
			return err
		}
		if !insights.SignalsOf(existing).TimeOfDay {
			out = RecordSessionResult{Model: existing, Skipped: true}
			return nil
		}
		m := existing
		if m == nil {
			if m, err = a.lockOrCreate(dbc, in.UserID, now); err != nil {
				return err
			}
			if !m.SignalTimeOfDay {
				out = RecordSessionResult{Model: m, Skipped: true}
				return nil
			}
		}

		pattern := insights.Fold(a.deps.Policy, m, obs, now)
		if err := a.deps.Models.Save(dbc, m); err != nil {
			return err
		}
		out = RecordSessionResult{Model: m, Pattern: &pattern}
		return nil
	})
	if err != nil {
		return RecordSessionResult{}, err
	}
	return out, nil
}

func (a *learningModelAggregate) SetSignal(ctx context.Context, userID uuid.UUID, name insights.SignalName, enabled bool, now time.Time) (*types.LearningModel, error) {
	if userID == uuid.Nil {
		return nil, MapError(opLearningSetSignal, ValidationError("user id is required"))
	}
	if name.Column() == "" {
		return nil, MapError(opLearningSetSignal, ValidationError("unknown signal", insights.ErrUnknownSignal))
	}
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	var out *types.LearningModel
	err := executeWrite(ctx, a.deps.Base, opLearningSetSignal, func(dbc dbctx.Context) error {
		m, err := a.lockOrCreate(dbc, userID, now)
		if err != nil {
			return err
		}
		signals := insights.SignalsOf(m)
		if err := signals.Set(name, enabled); err != nil {
			return ValidationError("unknown signal", err)
		}
		signals.ApplyTo(m)
		m.LastUpdated = now
		if err := a.deps.Models.Save(dbc, m); err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *learningModelAggregate) Reset(ctx context.Context, userID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, MapError(opLearningReset, ValidationError("user id is required"))
	}
	deleted := false
	err := executeWrite(ctx, a.deps.Base, opLearningReset, func(dbc dbctx.Context) error {
		deleted = false
		m, err := a.deps.Models.LockByUserID(dbc, userID)
		if err != nil || m == nil {
			return err
		}
		if err := a.deps.Patterns.DeleteByModelID(dbc, m.ID); err != nil {
			return err
		}
		if _, err := a.deps.Models.DeleteByUserID(dbc, userID); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}
