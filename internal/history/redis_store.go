package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisClient = redis.UniversalClient

// OpenRedis parses uri and checks the server is reachable.
func OpenRedis(ctx context.Context, uri string) (*redis.Client, error) {
	opt, err := redis.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("parse redis uri: %w", err)
	}
	rc := redis.NewClient(opt)
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rc, nil
}

// RedisStore keeps each history as one JSON value under its own key.
type RedisStore struct {
	rc  RedisClient
	log *zap.SugaredLogger
}

func NewRedisStore(rc RedisClient, log *zap.SugaredLogger) *RedisStore {
	return &RedisStore{rc: rc, log: log}
}

func (s *RedisStore) key(chatID int64) string {
	return fmt.Sprintf("%s:%d", tableName, chatID)
}

func (s *RedisStore) EnsureSchema(ctx context.Context) error {
	return s.rc.Ping(ctx).Err()
}

func (s *RedisStore) Get(ctx context.Context, chatID int64) Lookup {
	raw, err := s.rc.Get(ctx, s.key(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return empty()
	}
	if err != nil {
		return degraded(s.log, chatID, fmt.Errorf("read history: %w", err))
	}
	return decodeLookup(s.log, chatID, raw)
}

func (s *RedisStore) Save(ctx context.Context, chatID int64, msgs []Message) error {
	payload, err := Encode(msgs)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := s.rc.Set(ctx, s.key(chatID), payload, 0).Err(); err != nil {
		return fmt.Errorf("set history: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, chatID int64) error {
	return s.rc.Del(ctx, s.key(chatID)).Err()
}
