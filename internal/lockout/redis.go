package lockout

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "share:lockout:"

// RedisStore keeps counters in Redis hashes.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (State, error) {
	data, err := s.client.HGetAll(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		return State{}, err
	}
	return parseState(data), nil
}

func (s *RedisStore) RecordFailure(ctx context.Context, key string, now time.Time, threshold int, window time.Duration) (State, error) {
	redisKey := redisKeyPrefix + key

	count, err := s.client.HIncrBy(ctx, redisKey, "failed_count", 1).Result()
	if err != nil {
		return State{}, err
	}

	state := State{FailedCount: int(count)}
	if int(count) >= threshold {
		lockedUntil := now.Add(window).UTC()
		_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, redisKey, "locked_until", lockedUntil.Unix())
			p.Expire(ctx, redisKey, window)
			return nil
		})
		if err != nil {
			return State{}, err
		}
		state.LockedUntil = &lockedUntil
		return state, nil
	}

	// 窗口内无新失败则计数自动过期
	if err := s.client.Expire(ctx, redisKey, window).Err(); err != nil {
		return State{}, err
	}
	return state, nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	return s.client.Del(ctx, redisKeyPrefix+key).Err()
}

func parseState(data map[string]string) State {
	state := State{}
	if raw, ok := data["failed_count"]; ok {
		if n, err := strconv.Atoi(raw); err == nil {
			state.FailedCount = n
		}
	}
	if raw, ok := data["locked_until"]; ok && raw != "" {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil && unix > 0 {
			t := time.Unix(unix, 0).UTC()
			state.LockedUntil = &t
		}
	}
	return state
}
