package errx

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// WrapRedis maps Redis errors to AppError; redis.Nil becomes a 404.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return New(err, http.StatusNotFound, RedisNotFoundMessage)
	}
	return New(err, http.StatusBadGateway, RedisErrorMessage)
}

// WrapElastic maps a failed vector store call, including non-2xx responses.
func WrapElastic(op string, err error) error {
	if err == nil {
		return nil
	}
	return New(fmt.Errorf("%s: %w", op, err), http.StatusBadGateway, ElasticErrorMessage)
}

// WrapUpstream classifies a model call failure into the taxonomy.
func WrapUpstream(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrUpstreamTimeout) {
		return New(fmt.Errorf("%w: %w", ErrUpstreamTimeout, err), http.StatusGatewayTimeout, UpstreamTimeoutMessage)
	}
	return New(fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err), http.StatusBadGateway, UpstreamErrorMessage)
}
