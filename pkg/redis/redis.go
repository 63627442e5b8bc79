package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	URL          string        `split_words:"true" default:"redis://localhost:6379/0"`
	ReadTimeout  time.Duration `split_words:"true" default:"500ms"`
	WriteTimeout time.Duration `split_words:"true" default:"500ms"`
	DialTimeout  time.Duration `split_words:"true" default:"2s"`
	PoolSize     int           `split_words:"true" default:"20"`
}

// New parses the URL and builds the client. It does not dial: go-redis connects
// lazily and redials on its own, so an unreachable server is not a startup error.
func (r *Config) New() (*redis.Client, error) {
	opts, err := redis.ParseURL(r.URL)
	if err != nil {
		return nil, err
	}

	opts.ReadTimeout = r.ReadTimeout
	opts.WriteTimeout = r.WriteTimeout
	opts.DialTimeout = r.DialTimeout
	if r.PoolSize > 0 {
		opts.PoolSize = r.PoolSize
	}

	return redis.NewClient(opts), nil
}

// Ping checks the server once within the dial and read timeouts.
func (r *Config) Ping(ctx context.Context, client *redis.Client) error {
	pingCtx, cancel := context.WithTimeout(ctx, r.DialTimeout+r.ReadTimeout)
	defer cancel()
	return client.Ping(pingCtx).Err()
}
