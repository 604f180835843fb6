package lock

import (
	"architect/internal/logger"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const pollInterval = 50 * time.Millisecond

// Deletes the key only if it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lock shared by every server instance pointing at the same Redis.
// ttl bounds how long a crashed holder can block a key.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
}

func NewRedis(client *redis.Client, ttl, wait time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, wait: wait}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()

	waitCtx := ctx
	if r.wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, r.wait)
		defer cancel()
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(waitCtx, key, token, r.ttl).Result()
		if err == nil && ok {
			break
		}
		if err != nil && waitCtx.Err() == nil {
			return nil, fmt.Errorf("lock %s: %w", key, unavailable(err))
		}

		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			return nil, waitError(ctx, waitCtx, key)
		}
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, r.client, []string{key}, token).Err(); err != nil {
			logger.Log.WithError(err).WithField("key", key).Warn("Failed to release lock, it will expire")
		}
	}, nil
}
