package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storyweaver/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "storyweaver:session:"

// RedisStore хранит сессии в Redis в виде JSON с TTL.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{client: client, logger: logger.Named("RedisSessionStore")}
}

func redisKey(id string) string { return redisKeyPrefix + id }

func (r *RedisStore) Get(ctx context.Context, id string) (*models.Session, error) {
	data, err := r.client.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrSessionNotFound
		}
		r.logger.Error("Failed to get session from redis", zap.String("sessionID", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get session from redis: %w", err)
	}

	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		// битая запись равносильна отсутствию сессии
		r.logger.Warn("Corrupted session record in redis", zap.String("sessionID", id), zap.Error(err))
		return nil, models.ErrSessionNotFound
	}
	if s.Messages == nil {
		s.Messages = []models.Message{}
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *models.Session, ttl time.Duration) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(s.ID), data, ttl).Err(); err != nil {
		r.logger.Error("Failed to save session to redis", zap.String("sessionID", s.ID), zap.Error(err))
		return fmt.Errorf("failed to save session to redis: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, redisKey(id)).Err(); err != nil {
		r.logger.Error("Failed to delete session from redis", zap.String("sessionID", id), zap.Error(err))
		return fmt.Errorf("failed to delete session from redis: %w", err)
	}
	return nil
}
