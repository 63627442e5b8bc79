package errx

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestWrapRedis(t *testing.T) {
	assert.Nil(t, WrapRedis(nil))

	notFound := WrapRedis(redis.Nil)
	assert.Equal(t, http.StatusNotFound, Status(notFound))
	assert.True(t, errors.Is(notFound, redis.Nil))

	failed := WrapRedis(errors.New("connection refused"))
	assert.Equal(t, http.StatusBadGateway, Status(failed))
	assert.Equal(t, RedisErrorMessage, SafeMessage(failed))
}

func TestWrapUpstream(t *testing.T) {
	timeout := WrapUpstream(context.DeadlineExceeded)
	assert.True(t, errors.Is(timeout, ErrUpstreamTimeout))
	assert.True(t, IsTimeout(timeout))
	assert.Equal(t, http.StatusGatewayTimeout, Status(timeout))

	unavailable := WrapUpstream(errors.New("503"))
	assert.True(t, errors.Is(unavailable, ErrUpstreamUnavailable))
	assert.False(t, IsTimeout(unavailable))
}

func TestMissingAndDefaults(t *testing.T) {
	err := Missing("GEMINI_API_KEY")
	assert.True(t, errors.Is(err, ErrConfigurationMissing))
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")

	assert.Equal(t, http.StatusInternalServerError, Status(errors.New("boom")))
	assert.Equal(t, SystemErrorMessage, SafeMessage(errors.New("boom")))

	bad := BadRequest("message is required")
	assert.Equal(t, http.StatusBadRequest, Status(bad))
	assert.Equal(t, "message is required", bad.Error())
}
