package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wbdigital-chatbot/server/internal/agent/model"
	errx "github.com/wbdigital-chatbot/server/internal/core/error"
	logx "github.com/wbdigital-chatbot/server/pkg/logger"
)

const responseKeyPrefix = "chat:response:"

// RedisResponseRepository stores finished chat responses under their cache key.
type RedisResponseRepository struct {
	rdb redis.Cmdable
}

func NewRedisResponseRepository(rdb redis.Cmdable) *RedisResponseRepository {
	return &RedisResponseRepository{rdb: rdb}
}

func (r *RedisResponseRepository) responseKey(key string) string {
	return fmt.Sprintf("%s%s", responseKeyPrefix, key)
}

// Get returns the stored response; ok is false on a miss.
func (r *RedisResponseRepository) Get(ctx context.Context, key string) (*model.ChatResponse, bool, error) {
	rk := r.responseKey(key)

	b, err := r.rdb.Get(ctx, rk).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		logx.Error().Err(err).Str("key", rk).Msg("failed to read cached response from redis")
		return nil, false, errx.WrapRedis(err)
	}

	var resp model.ChatResponse
	if err := json.Unmarshal(b, &resp); err != nil {
		logx.Warn().Err(err).Str("key", rk).Msg("discarding undecodable cached response")
		return nil, false, nil
	}
	return &resp, true, nil
}

// Set writes resp with ttl; a zero ttl stores without expiry.
func (r *RedisResponseRepository) Set(ctx context.Context, key string, resp *model.ChatResponse, ttl time.Duration) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	rk := r.responseKey(key)
	if err := r.rdb.Set(ctx, rk, b, ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", rk).Msg("failed to write cached response to redis")
		return errx.WrapRedis(err)
	}
	return nil
}
