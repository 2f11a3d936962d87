package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/yungbote/reviewgate-backend/internal/ratelimit"
)

var (
	ErrTopicNotFound   = errors.New("topic not found")
	ErrInvalidSignal   = errors.New("invalid learning signal")
	ErrInvalidDailyCap = errors.New("daily review cap out of range")
	ErrMissingUser     = errors.New("missing user id")
)

// RateLimitedError is returned by gated calls whose admission check was rejected.
type RateLimitedError struct {
	Decision ratelimit.Decision
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("ai rate limit reached for tier %s (limit %d, resets in %s)",
		e.Decision.Tier, e.Decision.Limit, time.Until(e.Decision.ResetAt).Round(time.Second))
}

func IsRateLimited(err error) bool {
	var rl *RateLimitedError
	return errors.As(err, &rl)
}
