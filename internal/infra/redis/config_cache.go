package redis

import (
	"context"
	"encoding/json"

	"fliq-payments/internal/domain"
	"fliq-payments/internal/domain/ports/adapter"
	"fliq-payments/internal/domain/ports/repository"
	"fliq-payments/internal/infra/metrics"
)

var _ repository.ConfigCache = (*ConfigCache)(nil)

const configKey = "client_config:lkg"

// ConfigCache stores the last-known-good client configuration so a backend
// outage does not take the payment surface down with it. No TTL: stale
// config beats no config here.
type ConfigCache struct {
	client *redClient
}

func NewConfigCache(client *redClient) *ConfigCache {
	return &ConfigCache{client: client}
}

func (c *ConfigCache) Store(ctx context.Context, cfg *adapter.ClientConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, configKey, data, 0)
}

func (c *ConfigCache) Get(ctx context.Context) (*adapter.ClientConfig, error) {
	data, err := c.client.Get(ctx, configKey)
	if err != nil {
		if IsNil(err) {
			metrics.IncCacheRequest("config", "miss")
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var cfg adapter.ClientConfig
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return nil, err
	}
	metrics.IncCacheRequest("config", "hit")
	return &cfg, nil
}

func (c *ConfigCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, configKey)
}
