package insights

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/reviewgate-backend/internal/domain/learning"
)

const (
	MinSweetSpot     = 0.3
	MaxSweetSpot     = 0.9
	DefaultSweetSpot = 0.75

	sweetSpotSlope  = 0.6
	sweetSpotOffset = 0.3
)

// Policy holds the tunable constants of the learning-model fold.
type Policy struct {
	ConfidenceIncrement float64
	// ConfidenceCap bounds confidenceScore; zero or negative disables the cap.
	ConfidenceCap float64
	Location      *time.Location
}

func DefaultPolicy() Policy {
	return Policy{ConfidenceIncrement: 0.05, ConfidenceCap: 1.0, Location: time.Local}
}

// Observation is the telemetry of one completed session.
type Observation struct {
	CompletedAt       time.Time
	QuestionsAnswered int
	QuestionsCorrect  int
	TimeSpentSeconds  int
}

// SweetSpot maps accuracy onto the target difficulty band.
func SweetSpot(accuracy float64) float64 {
	v := accuracy*sweetSpotSlope + sweetSpotOffset
	return math.Max(MinSweetSpot, math.Min(MaxSweetSpot, v))
}

// RunningMean folds sample into a mean over n previous samples.
func RunningMean(mean float64, n int, sample float64) float64 {
	if n <= 0 {
		return sample
	}
	return mean + (sample-mean)/float64(n+1)
}

// NewModel returns the row a user gets before any session is folded in.
func NewModel(userID uuid.UUID, now time.Time) *learning.LearningModel {
	m := &learning.LearningModel{
		UserID:              userID,
		DifficultySweetSpot: DefaultSweetSpot,
		LastUpdated:         now,
	}
	DefaultSignals().ApplyTo(m)
	return m
}

// Fold applies one observation to m in place and returns the pattern payload to
// append. The caller is responsible for the timeOfDay gate.
func Fold(p Policy, m *learning.LearningModel, obs Observation, now time.Time) learning.SessionPatternData {
	hour, bucket := Bucket(obs.CompletedAt, p.Location)
	signals := SignalsOf(m)

	m.SessionsAnalyzed++

	hist := DecodeHistogram(m.TimeOfDayHistogram)
	hist[bucket]++
	m.TimeOfDayHistogram = hist.Encode()
	m.LastTimeOfDay = string(bucket)
	m.OptimalTime = string(hist.Peak(bucket))

	if signals.SessionDuration && obs.TimeSpentSeconds > 0 {
		m.AvgSessionDuration = RunningMean(m.AvgSessionDuration, m.DurationSamples, float64(obs.TimeSpentSeconds))
		m.DurationSamples++
		m.LastSessionDuration = obs.TimeSpentSeconds
	}

	if signals.Difficulty && obs.QuestionsAnswered > 0 {
		accuracy := float64(obs.QuestionsCorrect) / float64(obs.QuestionsAnswered)
		m.DifficultySweetSpot = SweetSpot(accuracy)
	}

	m.ConfidenceScore += p.ConfidenceIncrement
	if p.ConfidenceCap > 0 && m.ConfidenceScore > p.ConfidenceCap {
		m.ConfidenceScore = p.ConfidenceCap
	}
	m.LastUpdated = now

	return learning.SessionPatternData{
		Hour:              hour,
		TimeOfDay:         string(bucket),
		CompletedAt:       obs.CompletedAt,
		QuestionsAnswered: obs.QuestionsAnswered,
		QuestionsCorrect:  obs.QuestionsCorrect,
		TimeSpentSeconds:  obs.TimeSpentSeconds,
	}
}

// DefaultPolicyIn is DefaultPolicy bucketing hours in loc.
func DefaultPolicyIn(loc *time.Location) Policy {
	p := DefaultPolicy()
	p.Location = loc
	return p
}
