package itemlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const acquirePollInterval = 50 * time.Millisecond

// redisStore defines the redis operations used by the distributed lock.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	ItemLockKey(itemID string) string
}

// Redis is a SETNX+TTL lock for multi-instance deployments. The TTL guards
// against a crashed holder wedging the item forever.
type Redis struct {
	client redisStore
	wait   time.Duration
	ttl    time.Duration
}

// NewRedis builds a redis-backed locker.
func NewRedis(client redisStore, cfg Config) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client required for item lock")
	}
	wait := cfg.WaitTimeout
	if wait <= 0 {
		wait = 3 * time.Second
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Redis{client: client, wait: wait, ttl: ttl}, nil
}

// Acquire polls SETNX until it owns the key or the wait budget runs out.
func (r *Redis) Acquire(ctx context.Context, itemID string) (func(), error) {
	key := r.client.ItemLockKey(itemID)
	owner := uuid.NewString()
	deadline := time.Now().Add(r.wait)

	for {
		ok, err := r.client.SetNX(ctx, key, owner, r.ttl)
		if err != nil {
			return nil, fmt.Errorf("setnx: %w", err)
		}
		if ok {
			return func() { r.release(key, owner) }, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrTimeout
		}
		select {
		case <-time.After(acquirePollInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// release frees the key only if this holder still owns it.
func (r *Redis) release(key, owner string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	value, err := r.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return
		}
		return
	}
	if value != owner {
		return
	}
	_ = r.client.Del(ctx, key)
}
