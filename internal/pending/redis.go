package pending

import (
	"context"
	"fmt"
	"time"

	"support-bot/internal/cache"
)

const redisKeyPrefix = "pending:"

// RedisStore keeps submissions in Redis so they survive a restart.
// Take relies on GETDEL, so two processes never finalise the same submission.
type RedisStore struct {
	redis *cache.Redis
	ttl   time.Duration
}

func NewRedisStore(redis *cache.Redis, ttl time.Duration) *RedisStore {
	return &RedisStore{redis: redis, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, chatID int64) (*Submission, error) {
	var sub Submission
	found, err := s.redis.GetJSON(ctx, redisKey(chatID), &sub)
	if err != nil || !found {
		return nil, err
	}
	return &sub, nil
}

func (s *RedisStore) Put(ctx context.Context, sub Submission) error {
	return s.redis.SetJSON(ctx, redisKey(sub.ChatID), sub, s.ttl)
}

func (s *RedisStore) Take(ctx context.Context, chatID int64) (*Submission, error) {
	var sub Submission
	found, err := s.redis.TakeJSON(ctx, redisKey(chatID), &sub)
	if err != nil || !found {
		return nil, err
	}
	return &sub, nil
}

func redisKey(chatID int64) string {
	return fmt.Sprintf("%s%d", redisKeyPrefix, chatID)
}
