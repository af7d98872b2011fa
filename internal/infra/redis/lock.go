// File: internal/infra/redis/lock.go
package redis

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fliq-payments/internal/domain"
	"fliq-payments/internal/domain/ports/repository"
)

var _ repository.PurchaseLock = (*purchaseLock)(nil)

// purchaseLock rejects concurrent purchases by the same user. Unlike a
// general mutex it does not wait: a second submit while one purchase is in
// flight is a user error, answered immediately.
type purchaseLock struct {
	client RedisClient
}

func NewPurchaseLock(client RedisClient) *purchaseLock {
	return &purchaseLock{client: client}
}

func (l *purchaseLock) TryLock(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKey(userID), token, ttl)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.ErrPurchaseInFlight
	}
	return token, nil
}

// Deletes the key only when the token matches, so an expired lock picked up
// by another purchase is never released by the first one.
const luaUnlock = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`

func (l *purchaseLock) Unlock(ctx context.Context, userID, token string) error {
	_, err := l.client.Eval(ctx, luaUnlock, []string{lockKey(userID)}, token)
	return err
}

func lockKey(userID string) string { return "purchase_lock:" + userID }
