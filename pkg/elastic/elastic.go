package elastic

import (
	"context"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

type Config struct {
	Addresses   []string `default:"http://localhost:9200"`
	Username    string
	Password    string
	PingTimeout time.Duration `split_words:"true" default:"5s"`
}

// New builds the client without contacting the cluster.
func (c *Config) New() (*elasticsearch.Client, error) {
	esCfg := elasticsearch.Config{
		Addresses: c.Addresses,
	}
	if c.Username != "" {
		esCfg.Username = c.Username
		esCfg.Password = c.Password
	}

	es, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return es, nil
}

// Ping verifies the cluster answers within PingTimeout.
func (c *Config) Ping(ctx context.Context, es *elasticsearch.Client) error {
	pingCtx, cancel := context.WithTimeout(ctx, c.PingTimeout)
	defer cancel()

	res, err := es.Ping(es.Ping.WithContext(pingCtx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping error: %s", res.Status())
	}
	return nil
}
