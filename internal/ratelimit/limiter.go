package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/reviewgate-backend/internal/platform/logger"
)

// Decision is the outcome of an admission check. A rejection is not an error.
type Decision struct {
	Allowed   bool      `json:"allowed"`
	Remaining int64     `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
	Limit     int64     `json:"limit"`
	Tier      string    `json:"tier"`
}

type Limiter struct {
	log    *logger.Logger
	store  CounterStore
	policy Policy
	prefix string
	now    func() time.Time
}

type Option func(*Limiter)

func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

func WithKeyPrefix(prefix string) Option {
	return func(l *Limiter) { l.prefix = prefix }
}

func NewLimiter(baseLog *logger.Logger, store CounterStore, policy Policy, opts ...Option) *Limiter {
	l := &Limiter{
		log:    baseLog.With("component", "RateLimiter"),
		store:  store,
		policy: policy,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check consumes one unit of the user's quota for the current window if any is left.
func (l *Limiter) Check(ctx context.Context, userID uuid.UUID, tierName string) (Decision, error) {
	tier, start := l.window(tierName)
	d := Decision{ResetAt: start.Add(tier.Window), Limit: tier.Quota, Tier: tier.Name}
	if tier.Quota <= 0 {
		return d, nil
	}
	count, admitted, err := l.store.IncrementIfBelow(ctx, l.Key(userID, start), tier.Quota, d.ResetAt)
	if err != nil {
		return Decision{}, fmt.Errorf("check rate limit: %w", err)
	}
	d.Allowed = admitted
	d.Remaining = remaining(tier.Quota, count)
	return d, nil
}

// Status reports the current window without consuming quota.
func (l *Limiter) Status(ctx context.Context, userID uuid.UUID, tierName string) (Decision, error) {
	tier, start := l.window(tierName)
	d := Decision{ResetAt: start.Add(tier.Window), Limit: tier.Quota, Tier: tier.Name}
	if tier.Quota <= 0 {
		return d, nil
	}
	count, err := l.store.Get(ctx, l.Key(userID, start))
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit status: %w", err)
	}
	d.Remaining = remaining(tier.Quota, count)
	d.Allowed = d.Remaining > 0
	return d, nil
}

func (l *Limiter) Key(userID uuid.UUID, windowStart time.Time) string {
	return fmt.Sprintf("%sai:%s:%d", l.prefix, userID, windowStart.Unix())
}

func (l *Limiter) window(tierName string) (Tier, time.Time) {
	tier, known := l.policy.Resolve(tierName)
	if !known {
		l.log.Debug("Unknown tier, using default", "tier", tierName, "default", tier.Name)
	}
	if tier.Window <= 0 {
		tier.Window = time.Hour
	}
	return tier, l.now().UTC().Truncate(tier.Window)
}

func remaining(quota, count int64) int64 {
	if r := quota - count; r > 0 {
		return r
	}
	return 0
}
