package redis

import (
	"context"
	"encoding/json"
	"time"

	"fliq-payments/internal/domain"
	"fliq-payments/internal/domain/model"
	"fliq-payments/internal/domain/ports/repository"
	"fliq-payments/internal/infra/metrics"
)

var _ repository.BalanceCache = (*BalanceCache)(nil)

// BalanceCache keeps the last server-reported balance per user so a backend
// hiccup degrades to a stale read instead of zeroing the display.
type BalanceCache struct {
	client *redClient
	ttl    time.Duration
}

func NewBalanceCache(client *redClient, ttl time.Duration) *BalanceCache {
	return &BalanceCache{client: client, ttl: ttl}
}

func (c *BalanceCache) Store(ctx context.Context, userID string, bal *model.CreditBalance) error {
	data, err := json.Marshal(bal)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, balanceKey(userID), data, c.ttl)
}

func (c *BalanceCache) Get(ctx context.Context, userID string) (*model.CreditBalance, error) {
	data, err := c.client.Get(ctx, balanceKey(userID))
	if err != nil {
		if IsNil(err) {
			metrics.IncCacheRequest("balance", "miss")
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var bal model.CreditBalance
	if err := json.Unmarshal([]byte(data), &bal); err != nil {
		return nil, err
	}
	metrics.IncCacheRequest("balance", "hit")
	return &bal, nil
}

func balanceKey(userID string) string { return "credit_balance:" + userID }
