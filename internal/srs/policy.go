package srs

import "fmt"

const (
	MinQuality = 0
	MaxQuality = 5

	// PassingQuality is the lowest rating counted as a successful recall.
	PassingQuality = 3
)

// Policy holds the tunable constants of the scheduler.
type Policy struct {
	FirstIntervalDays  int
	SecondIntervalDays int
	InitialEaseFactor  float64
	MinEaseFactor      float64

	// EF' = EF + EaseBase - (5-q) * (EaseLinear + (5-q) * EaseQuadratic)
	EaseBase      float64
	EaseLinear    float64
	EaseQuadratic float64
}

func DefaultPolicy() Policy {
	return Policy{
		FirstIntervalDays:  1,
		SecondIntervalDays: 6,
		InitialEaseFactor:  2.5,
		MinEaseFactor:      1.3,
		EaseBase:           0.1,
		EaseLinear:         0.08,
		EaseQuadratic:      0.02,
	}
}

func (p Policy) Validate() error {
	switch {
	case p.FirstIntervalDays < 1:
		return fmt.Errorf("%w: first interval %d < 1", ErrInvalidPolicy, p.FirstIntervalDays)
	case p.SecondIntervalDays < p.FirstIntervalDays:
		return fmt.Errorf("%w: second interval %d < first interval %d", ErrInvalidPolicy, p.SecondIntervalDays, p.FirstIntervalDays)
	case p.MinEaseFactor <= 0:
		return fmt.Errorf("%w: ease floor %.2f <= 0", ErrInvalidPolicy, p.MinEaseFactor)
	case p.InitialEaseFactor < p.MinEaseFactor:
		return fmt.Errorf("%w: initial ease %.2f below floor %.2f", ErrInvalidPolicy, p.InitialEaseFactor, p.MinEaseFactor)
	}
	return nil
}
