package insights

import (
	"errors"
	"strings"

	"github.com/yungbote/reviewgate-backend/internal/domain/learning"
)

var ErrUnknownSignal = errors.New("unknown learning signal")

type SignalName string

const (
	SignalTimeOfDay       SignalName = "timeOfDay"
	SignalSessionDuration SignalName = "sessionDuration"
	SignalDifficulty      SignalName = "difficulty"
	SignalPacing          SignalName = "pacing"
	SignalDevice          SignalName = "device"
)

var signalNames = []SignalName{SignalTimeOfDay, SignalSessionDuration, SignalDifficulty, SignalPacing, SignalDevice}

// Signals are the per-user toggles controlling which behaviors are learned.
type Signals struct {
	TimeOfDay       bool `json:"timeOfDay"`
	SessionDuration bool `json:"sessionDuration"`
	Difficulty      bool `json:"difficulty"`
	Pacing          bool `json:"pacing"`
	Device          bool `json:"device"`
}

// DefaultSignals is the state of a user without a model row.
func DefaultSignals() Signals {
	return Signals{TimeOfDay: true, SessionDuration: true, Difficulty: true, Pacing: true, Device: true}
}

// SignalsOf merges a possibly absent model row over the defaults.
func SignalsOf(m *learning.LearningModel) Signals {
	if m == nil {
		return DefaultSignals()
	}
	return Signals{
		TimeOfDay:       m.SignalTimeOfDay,
		SessionDuration: m.SignalSessionDuration,
		Difficulty:      m.SignalDifficulty,
		Pacing:          m.SignalPacing,
		Device:          m.SignalDevice,
	}
}

func (s Signals) ApplyTo(m *learning.LearningModel) {
	m.SignalTimeOfDay = s.TimeOfDay
	m.SignalSessionDuration = s.SessionDuration
	m.SignalDifficulty = s.Difficulty
	m.SignalPacing = s.Pacing
	m.SignalDevice = s.Device
}

// ParseSignal accepts the camelCase names plus snake_case and kebab-case spellings.
func ParseSignal(raw string) (SignalName, error) {
	norm := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.TrimSpace(raw)))
	for _, name := range signalNames {
		if strings.ToLower(string(name)) == norm {
			return name, nil
		}
	}
	return "", ErrUnknownSignal
}

func (s *Signals) Set(name SignalName, enabled bool) error {
	switch name {
	case SignalTimeOfDay:
		s.TimeOfDay = enabled
	case SignalSessionDuration:
		s.SessionDuration = enabled
	case SignalDifficulty:
		s.Difficulty = enabled
	case SignalPacing:
		s.Pacing = enabled
	case SignalDevice:
		s.Device = enabled
	default:
		return ErrUnknownSignal
	}
	return nil
}

// Column returns the learning_model column backing the toggle.
func (n SignalName) Column() string {
	switch n {
	case SignalTimeOfDay:
		return "signal_time_of_day"
	case SignalSessionDuration:
		return "signal_session_duration"
	case SignalDifficulty:
		return "signal_difficulty"
	case SignalPacing:
		return "signal_pacing"
	case SignalDevice:
		return "signal_device"
	}
	return ""
}
