package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/yungbote/reviewgate-backend/internal/data/aggregates"
	learningrepo "github.com/yungbote/reviewgate-backend/internal/data/repos/learning"
	reviewrepo "github.com/yungbote/reviewgate-backend/internal/data/repos/review"
	types "github.com/yungbote/reviewgate-backend/internal/domain"
	"github.com/yungbote/reviewgate-backend/internal/insights"
	"github.com/yungbote/reviewgate-backend/internal/observability"
	"github.com/yungbote/reviewgate-backend/internal/platform/dbctx"
	"github.com/yungbote/reviewgate-backend/internal/platform/logger"
)

const (
	viewPatternLimit        = 50
	defaultPatternRetention = 500
)

// SessionSummary is what the session lifecycle reports on completion.
type SessionSummary struct {
	CompletedAt       time.Time `json:"completed_at"`
	QuestionsAnswered int       `json:"questions_answered"`
	QuestionsCorrect  int       `json:"questions_correct"`
	TimeSpentSeconds  int       `json:"time_spent_seconds"`
}

// RecordOutcome reports what a session completion did to the model.
type RecordOutcome struct {
	Recorded       bool   `json:"recorded"`
	Skipped        bool   `json:"skipped"`
	PatternWritten bool   `json:"pattern_written"`
	Reason         string `json:"reason,omitempty"`
}

type LearningModelView struct {
	HasData  bool                     `json:"has_data"`
	Model    *types.LearningModel     `json:"model,omitempty"`
	Patterns []*types.LearningPattern `json:"patterns"`
	Signals  insights.Signals         `json:"signals"`
}

type AccuracySummary struct {
	Mean    float64 `json:"mean"`
	Median  float64 `json:"median"`
	StdDev  float64 `json:"std_dev"`
	Samples int     `json:"samples"`
}

type ExportBundle struct {
	ExportedAt      time.Time                    `json:"exported_at"`
	Model           *types.LearningModel         `json:"model,omitempty"`
	Signals         insights.Signals             `json:"signals"`
	Patterns        []*types.LearningPattern     `json:"patterns"`
	SessionCount    int64                        `json:"session_count"`
	TopicCount      int64                        `json:"topic_count"`
	TopicsByMastery map[types.MasteryLevel]int64 `json:"topics_by_mastery"`
	Accuracy        AccuracySummary              `json:"accuracy"`
}

type LearningModelService interface {
	// RecordSessionCompletion never fails the caller; problems are logged.
	RecordSessionCompletion(ctx context.Context, userID uuid.UUID, summary SessionSummary) RecordOutcome
	Get(ctx context.Context, userID uuid.UUID) (*LearningModelView, error)
	SetSignal(ctx context.Context, userID uuid.UUID, signal string, enabled bool) (insights.Signals, error)
	Reset(ctx context.Context, userID uuid.UUID) (bool, error)
	Export(ctx context.Context, userID uuid.UUID) (*ExportBundle, error)
}

type LearningModelServiceDeps struct {
	Log       *logger.Logger
	Aggregate aggregates.LearningModelAggregate
	Models    learningrepo.LearningModelRepo
	Patterns  learningrepo.LearningPatternRepo
	Sessions  reviewrepo.LearningSessionRepo
	Topics    reviewrepo.TopicRepo
	Metrics   *observability.Metrics
	Clock     Clock

	// PatternRetention keeps the newest N patterns per model; negative keeps all.
	PatternRetention int
}

type learningModelService struct {
	deps LearningModelServiceDeps
	log  *logger.Logger
}

func NewLearningModelService(deps LearningModelServiceDeps) LearningModelService {
	if deps.PatternRetention == 0 {
		deps.PatternRetention = defaultPatternRetention
	}
	return &learningModelService{deps: deps, log: deps.Log.With("service", "LearningModelService")}
}

func (s *learningModelService) RecordSessionCompletion(ctx context.Context, userID uuid.UUID, summary SessionSummary) RecordOutcome {
	res, err := s.deps.Aggregate.RecordSession(ctx, aggregates.RecordSessionInput{
		UserID: userID,
		Observation: insights.Observation{
			CompletedAt:       summary.CompletedAt,
			QuestionsAnswered: summary.QuestionsAnswered,
			QuestionsCorrect:  summary.QuestionsCorrect,
			TimeSpentSeconds:  summary.TimeSpentSeconds,
		},
		Now: s.deps.Clock.now(),
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, aggregates.ErrValidation) {
			outcome = "invalid"
			s.log.Warn("Skipping invalid session summary", "user_id", userID, "error", err)
		} else {
			s.log.Error("Learning model update failed", "user_id", userID, "error", err)
		}
		s.deps.Metrics.IncLearningUpdate(outcome)
		return RecordOutcome{Reason: outcome}
	}
	if res.Skipped {
		s.deps.Metrics.IncLearningUpdate("skipped")
		return RecordOutcome{Skipped: true, Reason: "time_of_day_signal_disabled"}
	}
	s.deps.Metrics.IncLearningUpdate("updated")

	out := RecordOutcome{Recorded: true}
	if res.Model != nil && res.Pattern != nil {
		out.PatternWritten = s.appendPattern(ctx, res.Model, *res.Pattern)
	}
	return out
}

// appendPattern stores the raw observation after the model commit. Failures
// are logged and swallowed.
func (s *learningModelService) appendPattern(ctx context.Context, m *types.LearningModel, data types.SessionPatternData) bool {
	payload, err := json.Marshal(data)
	if err != nil {
		s.log.Warn("Encode learning pattern failed", "user_id", m.UserID, "error", err)
		s.deps.Metrics.IncPatternAppendFailure()
		return false
	}
	dbc := dbctx.Context{Ctx: ctx}
	row := &types.LearningPattern{
		LearningModelID: m.ID,
		PatternType:     types.PatternTypeSessionTime,
		PatternData:     datatypes.JSON(payload),
		CreatedAt:       s.deps.Clock.now().UTC(),
	}
	if err := s.deps.Patterns.Create(dbc, row); err != nil {
		s.log.Warn("Append learning pattern failed", "user_id", m.UserID, "error", err)
		s.deps.Metrics.IncPatternAppendFailure()
		return false
	}
	if keep := s.deps.PatternRetention; keep > 0 {
		if pruned, err := s.deps.Patterns.PruneKeepNewest(dbc, m.ID, keep); err != nil {
			s.log.Warn("Prune learning patterns failed", "user_id", m.UserID, "error", err)
		} else if pruned > 0 {
			s.log.Debug("Pruned learning patterns", "user_id", m.UserID, "pruned", pruned)
		}
	}
	return true
}

func (s *learningModelService) Get(ctx context.Context, userID uuid.UUID) (*LearningModelView, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUser
	}
	dbc := dbctx.Context{Ctx: ctx}
	m, err := s.deps.Models.GetByUserID(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("load learning model: %w", err)
	}
	view := &LearningModelView{Patterns: []*types.LearningPattern{}, Signals: insights.SignalsOf(m)}
	if m == nil {
		return view, nil
	}
	patterns, err := s.deps.Patterns.ListNewest(dbc, m.ID, viewPatternLimit)
	if err != nil {
		return nil, fmt.Errorf("list learning patterns: %w", err)
	}
	view.HasData = true
	view.Model = m
	view.Patterns = patterns
	return view, nil
}

func (s *learningModelService) SetSignal(ctx context.Context, userID uuid.UUID, signal string, enabled bool) (insights.Signals, error) {
	if userID == uuid.Nil {
		return insights.Signals{}, ErrMissingUser
	}
	name, err := insights.ParseSignal(signal)
	if err != nil {
		return insights.Signals{}, fmt.Errorf("%w: %q", ErrInvalidSignal, signal)
	}
	m, err := s.deps.Aggregate.SetSignal(ctx, userID, name, enabled, s.deps.Clock.now())
	if err != nil {
		return insights.Signals{}, fmt.Errorf("set learning signal: %w", err)
	}
	s.log.Info("Learning signal updated", "user_id", userID, "signal", string(name), "enabled", enabled)
	return insights.SignalsOf(m), nil
}

func (s *learningModelService) Reset(ctx context.Context, userID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, ErrMissingUser
	}
	deleted, err := s.deps.Aggregate.Reset(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("reset learning model: %w", err)
	}
	if deleted {
		s.log.Info("Learning model reset", "user_id", userID)
	}
	return deleted, nil
}

func (s *learningModelService) Export(ctx context.Context, userID uuid.UUID) (*ExportBundle, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingUser
	}
	bundle := &ExportBundle{ExportedAt: s.deps.Clock.now().UTC(), Patterns: []*types.LearningPattern{}}
	var sessions []*types.LearningSession

	g, gctx := errgroup.WithContext(ctx)
	dbc := dbctx.Context{Ctx: gctx}
	g.Go(func() error {
		m, err := s.deps.Models.GetByUserID(dbc, userID)
		if err != nil {
			return fmt.Errorf("load learning model: %w", err)
		}
		bundle.Model = m
		bundle.Signals = insights.SignalsOf(m)
		if m == nil {
			return nil
		}
		patterns, err := s.deps.Patterns.ListNewest(dbc, m.ID, 0)
		if err != nil {
			return fmt.Errorf("list learning patterns: %w", err)
		}
		bundle.Patterns = patterns
		return nil
	})
	g.Go(func() error {
		rows, err := s.deps.Sessions.ListCompleted(dbc, userID, 0)
		if err != nil {
			return fmt.Errorf("list completed sessions: %w", err)
		}
		sessions = rows
		return nil
	})
	g.Go(func() error {
		n, err := s.deps.Topics.CountByUser(dbc, userID)
		if err != nil {
			return fmt.Errorf("count topics: %w", err)
		}
		bundle.TopicCount = n
		return nil
	})
	g.Go(func() error {
		byMastery, err := s.deps.Topics.CountByMastery(dbc, userID)
		if err != nil {
			return fmt.Errorf("count topics by mastery: %w", err)
		}
		bundle.TopicsByMastery = byMastery
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	bundle.SessionCount = int64(len(sessions))
	bundle.Accuracy = summarizeAccuracy(sessions)
	return bundle, nil
}

func summarizeAccuracy(sessions []*types.LearningSession) AccuracySummary {
	samples := make(stats.Float64Data, 0, len(sessions))
	for _, sess := range sessions {
		if sess.QuestionsAnswered > 0 {
			samples = append(samples, float64(sess.QuestionsCorrect)/float64(sess.QuestionsAnswered))
		}
	}
	out := AccuracySummary{Samples: len(samples)}
	if len(samples) == 0 {
		return out
	}
	out.Mean, _ = stats.Mean(samples)
	out.Median, _ = stats.Median(samples)
	out.StdDev, _ = stats.StandardDeviation(samples)
	return out
}
