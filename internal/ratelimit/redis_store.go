package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Returns {count, admitted}. The read, compare and increment run as one script
// so concurrent callers can never push the counter past the limit.
var incrementIfBelowScript = goredis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
local limit = tonumber(ARGV[1])
if cur >= limit then
  return {cur, 0}
end
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIREAT', KEYS[1], ARGV[2])
end
return {n, 1}
`)

type RedisStore struct {
	rdb goredis.UniversalClient
}

func NewRedisStore(rdb goredis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) IncrementIfBelow(ctx context.Context, key string, limit int64, expireAt time.Time) (int64, bool, error) {
	res, err := incrementIfBelowScript.Run(ctx, s.rdb, []string{key}, limit, expireAt.UnixMilli()).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("redis increment %s: %w", key, err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("redis increment %s: unexpected reply %v", key, res)
	}
	return res[0], res[1] == 1, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (int64, error) {
	n, err := s.rdb.Get(ctx, key).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get %s: %w", key, err)
	}
	return n, nil
}
