package cart

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKV is the subset of *redis.Client the persister uses.
type RedisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisPersister stores each cart as a JSON string. A positive TTL expires
// carts that have not changed for that long.
type RedisPersister struct {
	rdb RedisKV
	ttl time.Duration
}

func NewRedisPersister(rdb RedisKV, ttl time.Duration) *RedisPersister {
	return &RedisPersister{rdb: rdb, ttl: ttl}
}

func (p *RedisPersister) Load(ctx context.Context, key string) (State, bool, error) {
	raw, err := p.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, err
	}
	st, err := decodeState(raw)
	return st, err == nil, err
}

func (p *RedisPersister) Save(ctx context.Context, key string, st State) error {
	raw, err := encodeState(st)
	if err != nil {
		return err
	}
	return p.rdb.Set(ctx, key, raw, p.ttl).Err()
}
