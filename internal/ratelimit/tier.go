package ratelimit

import (
	"strings"
	"time"
)

// Tier is the AI request quota granted to one subscription level.
type Tier struct {
	Name   string        `mapstructure:"name" json:"name"`
	Quota  int64         `mapstructure:"quota" json:"quota"`
	Window time.Duration `mapstructure:"window" json:"window"`
}

type Policy struct {
	DefaultTier string
	Tiers       map[string]Tier
}

func DefaultPolicy() Policy {
	return Policy{
		DefaultTier: "free",
		Tiers: map[string]Tier{
			"free": {Name: "free", Quota: 20, Window: time.Hour},
			"pro":  {Name: "pro", Quota: 200, Window: time.Hour},
		},
	}
}

// Resolve returns the tier for name, falling back to the default tier.
// The boolean reports whether name itself was configured.
func (p Policy) Resolve(name string) (Tier, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if t, ok := p.Tiers[key]; ok {
		return normalize(key, t), true
	}
	def := strings.ToLower(strings.TrimSpace(p.DefaultTier))
	if t, ok := p.Tiers[def]; ok {
		return normalize(def, t), false
	}
	return Tier{Name: def}, false
}

func normalize(name string, t Tier) Tier {
	if t.Name == "" {
		t.Name = name
	}
	if t.Window <= 0 {
		t.Window = time.Hour
	}
	return t
}
