package app

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/reviewgate-backend/internal/clients/ai"
	"github.com/yungbote/reviewgate-backend/internal/clients/redis"
	"github.com/yungbote/reviewgate-backend/internal/platform/logger"
	"github.com/yungbote/reviewgate-backend/internal/ratelimit"
)

type Clients struct {
	// Redis is nil when no address is configured.
	Redis        *goredis.Client
	CounterStore ratelimit.CounterStore
	AI           ai.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg *Config) (Clients, error) {
	log.Info("Wiring clients...")

	var out Clients
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		rdb, err := redis.NewClient(ctx, log, redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		out.Redis = rdb
		out.CounterStore = ratelimit.NewRedisStore(rdb)
	} else {
		log.Warn("REDIS addr not set; rate limit counters are process-local")
		out.CounterStore = ratelimit.NewMemoryStore(nil)
	}

	out.AI = ai.NewClient(log, ai.Config{
		BaseURL:    cfg.AI.BaseURL,
		APIKey:     cfg.AI.APIKey,
		Timeout:    cfg.AI.Timeout,
		MaxRetries: cfg.AI.MaxRetries,
	})
	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
