package prompts

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	errx "github.com/wbdigital-chatbot/server/internal/core/error"
)

const promptKeyPrefix = "prompt:"

// ErrPromptNotFound is returned when the registry has no entry for a name.
var ErrPromptNotFound = errors.New("prompt not found")

// Registry is an optional remote source of prompt templates.
type Registry interface {
	GetPrompt(ctx context.Context, name string) (string, error)
}

// RedisRegistry reads templates stored under prompt:<name>.
type RedisRegistry struct {
	rdb redis.Cmdable
}

func NewRedisRegistry(rdb redis.Cmdable) *RedisRegistry {
	return &RedisRegistry{rdb: rdb}
}

func (r *RedisRegistry) GetPrompt(ctx context.Context, name string) (string, error) {
	v, err := r.rdb.Get(ctx, promptKeyPrefix+name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("%w: %s", ErrPromptNotFound, name)
		}
		return "", errx.WrapRedis(err)
	}
	if v == "" {
		return "", fmt.Errorf("%w: %s", ErrPromptNotFound, name)
	}
	return v, nil
}

// Publish stores a template, used to seed or override prompts at runtime.
func (r *RedisRegistry) Publish(ctx context.Context, name, template string) error {
	if _, err := Default(name); err != nil {
		return err
	}
	return errx.WrapRedis(r.rdb.Set(ctx, promptKeyPrefix+name, template, 0).Err())
}
