package ratelimit

import (
	"context"
	"time"
)

// CounterStore is a shared counter supporting an atomic bounded increment.
type CounterStore interface {
	// IncrementIfBelow increments key only while its value is below limit and
	// returns the resulting value. The first increment sets the key to expire at expireAt.
	IncrementIfBelow(ctx context.Context, key string, limit int64, expireAt time.Time) (count int64, admitted bool, err error)
	// Get returns the current value of key, zero when missing or expired.
	Get(ctx context.Context, key string) (int64, error)
}
