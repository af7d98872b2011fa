package repository

import (
	"context"
	"time"

	"fliq-payments/internal/domain/model"
	"fliq-payments/internal/domain/ports/adapter"
)

// AttemptRepository journals purchase attempts so that verification can be
// retried independently of re-confirming the card.
type AttemptRepository interface {
	Save(ctx context.Context, a *model.PurchaseAttempt) error
	UpdateState(ctx context.Context, id string, state model.PurchaseState, failureCode string) error
	SetIntent(ctx context.Context, id, intentID, clientSecret string) error
	FindByIntentID(ctx context.Context, intentID string) (*model.PurchaseAttempt, error)
	// ListInStateOlderThan returns attempts stuck in the given state whose
	// last update is before cutoff, oldest first.
	ListInStateOlderThan(ctx context.Context, state model.PurchaseState, cutoff time.Time, limit int) ([]*model.PurchaseAttempt, error)
}

// ConfigCache holds the last-known-good client configuration.
type ConfigCache interface {
	Store(ctx context.Context, cfg *adapter.ClientConfig) error
	Get(ctx context.Context) (*adapter.ClientConfig, error)
	Invalidate(ctx context.Context) error
}

// BalanceCache is the degraded-read cache for credit balances.
type BalanceCache interface {
	Store(ctx context.Context, userID string, bal *model.CreditBalance) error
	Get(ctx context.Context, userID string) (*model.CreditBalance, error)
}

// PurchaseLock guards against concurrent purchases by the same user.
type PurchaseLock interface {
	TryLock(ctx context.Context, userID string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, userID, token string) error
}
