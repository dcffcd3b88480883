package listing

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sequencer issues load generations and reports the newest one issued.
type Sequencer interface {
	Next(ctx context.Context) (uint64, error)
	Latest(ctx context.Context) (uint64, error)
}

// MemorySequencer guards loads issued within one process.
type MemorySequencer struct {
	n atomic.Uint64
}

// Next issues a new generation.
func (s *MemorySequencer) Next(context.Context) (uint64, error) {
	return s.n.Add(1), nil
}

// Latest reports the newest generation issued.
func (s *MemorySequencer) Latest(context.Context) (uint64, error) {
	return s.n.Load(), nil
}

// RedisSequencer shares generations through a redis counter so the guard
// holds across concurrent console requests and instances.
type RedisSequencer struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisSequencer builds a sequencer for one session and screen.
func NewRedisSequencer(client *redis.Client, key string, ttl time.Duration) *RedisSequencer {
	return &RedisSequencer{client: client, key: key, ttl: ttl}
}

// SequenceKey names the counter of a session's screen.
func SequenceKey(sessionID, screen string) string {
	return "listing:seq:" + sessionID + ":" + screen
}

// Next issues a new generation.
func (s *RedisSequencer) Next(ctx context.Context) (uint64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, s.key)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return uint64(incr.Val()), nil
}

// Latest reports the newest generation issued.
func (s *RedisSequencer) Latest(ctx context.Context) (uint64, error) {
	n, err := s.client.Get(ctx, s.key).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}
