package cache

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInFlight is returned by Begin while another request holding the same
// key has not finished yet.
var ErrInFlight = errors.New("idempotency: request with this key is in flight")

const keyPrefix = "idem:"

// pending marks a reserved key that has no stored result yet.
var pending = []byte("\x00pending")

// IdempotencyStore remembers the result of a request by key so a
// resubmission can be answered without executing it again.
//
// Begin reserves key. It returns (nil, nil) when the caller owns the key
// and must execute the request, the stored result when a previous request
// already completed, or ErrInFlight. The owner then calls Complete with
// the result, or Abort to release the key without storing anything.
type IdempotencyStore interface {
	Begin(ctx context.Context, key string) ([]byte, error)
	Complete(ctx context.Context, key string, result []byte) error
	Abort(ctx context.Context, key string) error
}

// NewIdempotencyStore returns a Redis-backed store when rc is non-nil and
// an in-process LRU store otherwise.
func NewIdempotencyStore(rc *RedisClient, ttl time.Duration) (IdempotencyStore, error) {
	if rc != nil {
		return &redisIdempotencyStore{rc: rc, ttl: ttl}, nil
	}
	mc, err := NewMemoryCache(10000)
	if err != nil {
		return nil, err
	}
	return &memoryIdempotencyStore{cache: mc, ttl: ttl}, nil
}

type redisIdempotencyStore struct {
	rc  *RedisClient
	ttl time.Duration
}

func (s *redisIdempotencyStore) Begin(ctx context.Context, key string) ([]byte, error) {
	ok, err := s.rc.SetNX(ctx, keyPrefix+key, pending, s.ttl)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, nil
	}

	val, err := s.rc.Get(ctx, keyPrefix+key)
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; try once more.
		ok, err = s.rc.SetNX(ctx, keyPrefix+key, pending, s.ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return nil, nil
		}
		return nil, ErrInFlight
	}
	if err != nil {
		return nil, err
	}
	if val == string(pending) {
		return nil, ErrInFlight
	}
	return []byte(val), nil
}

func (s *redisIdempotencyStore) Complete(ctx context.Context, key string, result []byte) error {
	return s.rc.SetEx(ctx, keyPrefix+key, result, s.ttl)
}

func (s *redisIdempotencyStore) Abort(ctx context.Context, key string) error {
	return s.rc.Del(ctx, keyPrefix+key)
}

type memoryIdempotencyStore struct {
	cache *MemoryCache
	ttl   time.Duration
}

func (s *memoryIdempotencyStore) Begin(_ context.Context, key string) ([]byte, error) {
	if s.cache.SetNX(key, pending, s.ttl) {
		return nil, nil
	}
	val, ok := s.cache.Get(key)
	if !ok {
		// Expired between the two calls.
		if s.cache.SetNX(key, pending, s.ttl) {
			return nil, nil
		}
		return nil, ErrInFlight
	}
	if bytes.Equal(val, pending) {
		return nil, ErrInFlight
	}
	return val, nil
}

func (s *memoryIdempotencyStore) Complete(_ context.Context, key string, result []byte) error {
	s.cache.Set(key, result, s.ttl)
	return nil
}

func (s *memoryIdempotencyStore) Abort(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}
