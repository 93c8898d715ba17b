package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisValuePrefix = "kv:v:"
	redisIndexKey    = "kv:index"
)

// RedisStore keeps each value as a JSON string and tracks update order in a
// sorted set scored by update time.
type RedisStore struct {
	client redis.UniversalClient

	mu        sync.Mutex
	lastScore int64
}

func NewRedis(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := s.client.Get(ctx, redisValuePrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("get kv %q: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("decode kv value %q: %w", key, err)
	}
	return true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode kv value %q: %w", key, err)
	}
	score := float64(s.nextScore())
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisValuePrefix+key, raw, 0)
		pipe.ZAdd(ctx, redisIndexKey, redis.Z{Score: score, Member: key})
		return nil
	})
	if err != nil {
		return fmt.Errorf("set kv %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, redisValuePrefix+key)
		pipe.ZRem(ctx, redisIndexKey, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete kv %q: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Keys(ctx context.Context, prefix string, limit int) ([]string, error) {
	limit = effectiveLimit(limit)
	if prefix == "" {
		keys, err := s.client.ZRevRange(ctx, redisIndexKey, 0, int64(limit-1)).Result()
		if err != nil {
			return nil, fmt.Errorf("list kv keys: %w", err)
		}
		return keys, nil
	}
	all, err := s.client.ZRevRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list kv keys: %w", err)
	}
	keys := make([]string, 0, min(limit, len(all)))
	for _, k := range all {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		keys = append(keys, k)
		if len(keys) == limit {
			break
		}
	}
	return keys, nil
}

// nextScore returns the update time in microseconds, bumped so that writes from
// this process never share a score.
func (s *RedisStore) nextScore() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UnixMicro()
	if now <= s.lastScore {
		now = s.lastScore + 1
	}
	s.lastScore = now
	return now
}
