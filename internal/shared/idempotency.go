package shared

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSubmitInFlight indicates an identical write is still being processed.
var ErrSubmitInFlight = errors.New("submit already in flight")

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// SubmitGuard refuses a second write on the same record while the first is
// in flight. The business API has no idempotency keys, so duplicates would
// create duplicate entities.
type SubmitGuard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSubmitGuard constructs the guard. ttl bounds how long a crashed
// request can keep the record locked.
func NewSubmitGuard(client *redis.Client, ttl time.Duration) *SubmitGuard {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SubmitGuard{client: client, ttl: ttl}
}

// Acquire takes key or fails with ErrSubmitInFlight. The returned release
// frees it and is safe to call once the lock expired.
func (g *SubmitGuard) Acquire(ctx context.Context, key string) (func(), error) {
	if g == nil || g.client == nil {
		return func() {}, nil
	}
	if key == "" {
		return nil, errors.New("submit guard key required")
	}
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSubmitInFlight
	}
	return func() {
		_ = releaseScript.Run(context.WithoutCancel(ctx), g.client, []string{key}, token).Err()
	}, nil
}
