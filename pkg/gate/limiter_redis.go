package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisWindowScript advances a fixed-window counter atomically.
// KEYS[1] = counter key
// ARGV[1] = window in milliseconds
// The expiry is set only when the window opens, so the counter resets
// on the window boundary regardless of traffic.
var redisWindowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
    redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RedisCounterStore implements CounterStore on Redis, for deployments
// where the limit must hold across processes.
type RedisCounterStore struct {
	client *redis.Client
}

// NewRedisCounterStore wraps an existing Redis client.
func NewRedisCounterStore(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

func (s *RedisCounterStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	if window <= 0 {
		window = time.Minute
	}

	res, err := redisWindowScript.Run(ctx, s.client, []string{key}, window.Milliseconds()).Result()
	if err != nil {
		return 0, fmt.Errorf("redis counter: %w", err)
	}

	n, ok := res.(int64)
	if !ok {
		return 0, fmt.Errorf("redis counter: unexpected reply type %T", res)
	}
	return n, nil
}
