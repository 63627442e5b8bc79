package elastic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	cfg := Config{Addresses: []string{srv.URL}, PingTimeout: time.Second}
	es, err := cfg.New()
	require.NoError(t, err)
	assert.NoError(t, cfg.Ping(context.Background(), es))
}

func TestNewReportsUnhealthyCluster(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	cfg := Config{Addresses: []string{srv.URL}, PingTimeout: time.Second}
	es, err := cfg.New()
	require.NoError(t, err)
	assert.Error(t, cfg.Ping(context.Background(), es))
}

func TestNewSucceedsWhileClusterIsDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	cfg := Config{Addresses: []string{addr}, PingTimeout: 200 * time.Millisecond}
	es, err := cfg.New()
	require.NoError(t, err)
	assert.Error(t, cfg.Ping(context.Background(), es))
}
