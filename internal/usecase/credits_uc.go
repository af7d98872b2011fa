// File: internal/usecase/credits_uc.go
package usecase

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fliq-payments/internal/domain"
	"fliq-payments/internal/domain/model"
	"fliq-payments/internal/domain/ports/adapter"
	"fliq-payments/internal/domain/ports/repository"
	"fliq-payments/internal/errclass"
	"fliq-payments/internal/infra/logging"
	"fliq-payments/internal/infra/metrics"
	"fliq-payments/internal/retry"
)

// Compile-time check
var _ CreditsUseCase = (*creditsUC)(nil)

// CreditsUseCase is the client side of the server-owned credit ledger. The
// local balance is a cache: it is set only from server-returned values,
// never computed here, so it cannot drift.
type CreditsUseCase interface {
	// Fetch returns the current balance. Unauthenticated callers (empty
	// userID) get 0 with no network call. A failed fetch degrades to the
	// last cached balance when one exists.
	Fetch(ctx context.Context, userID string) (*model.CreditBalance, error)
	// Add credits (purchase/refund/bonus). Local cache takes the server's
	// newBalance.
	Add(ctx context.Context, userID string, credits int64, txType model.TransactionType, description string, pkg model.PackageType) (int64, error)
	// Deduct credits for a service usage. A backend rejection for lack of
	// balance maps to domain.ErrInsufficientCredits.
	Deduct(ctx context.Context, userID string, credits int64, description, serviceType string) (int64, error)
	// History reads one page of the ledger.
	History(ctx context.Context, userID string, limit, offset int) (*model.CreditHistoryPage, error)
	// HasCredits answers from the cached value only; it may be stale.
	// Callers needing a strict guarantee must Fetch first.
	HasCredits(userID string, required int64) bool
	// RefreshActive re-fetches every balance seen recently; used by the
	// background refresher. Returns the number refreshed.
	RefreshActive(ctx context.Context) (int, error)
}

type creditsUC struct {
	backend adapter.BackendGateway
	cache   repository.BalanceCache
	log     *zerolog.Logger

	mu       sync.RWMutex
	balances map[string]*model.CreditBalance // userID -> last server value
}

func NewCreditsUseCase(backend adapter.BackendGateway, cache repository.BalanceCache, logger *zerolog.Logger) *creditsUC {
	l := logger.With().Str("component", "CreditsUC").Logger()
	return &creditsUC{
		backend:  backend,
		cache:    cache,
		log:      &l,
		balances: make(map[string]*model.CreditBalance),
	}
}

func (u *creditsUC) Fetch(ctx context.Context, userID string) (*model.CreditBalance, error) {
	defer logging.TraceDuration(u.log, "CreditsUC.Fetch")()
	if userID == "" {
		return &model.CreditBalance{Credits: 0, LastUpdated: time.Now()}, nil
	}

	credits, err := retry.WithBackoff(ctx, func(ctx context.Context) (int64, error) {
		return u.backend.FetchCredits(ctx)
	}, retry.Options{
		Name:        "fetch_credits",
		MaxRetries:  2,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		ShouldRetry: errclass.Retryable,
	})
	if err != nil {
		// degrade to the last cached balance rather than zeroing out
		if cached, cerr := u.cache.Get(ctx, userID); cerr == nil && cached != nil {
			metrics.IncCreditOp("fetch", "degraded")
			logging.With(ctx, u.log).Warn().Err(err).Msg("balance fetch failed; serving cached value")
			u.remember(userID, cached)
			return cached, nil
		}
		metrics.IncCreditOp("fetch", "error")
		return nil, err
	}

	bal := &model.CreditBalance{Credits: credits, LastUpdated: time.Now()}
	u.remember(userID, bal)
	if cerr := u.cache.Store(ctx, userID, bal); cerr != nil {
		u.log.Warn().Err(cerr).Msg("failed to cache balance")
	}
	metrics.IncCreditOp("fetch", "ok")
	return bal, nil
}

func (u *creditsUC) Add(ctx context.Context, userID string, credits int64, txType model.TransactionType, description string, pkg model.PackageType) (int64, error) {
	if userID == "" {
		return 0, domain.ErrNotAuthenticated
	}
	if credits <= 0 || !txType.Valid() {
		return 0, domain.ErrInvalidArgument
	}

	newBalance, err := u.backend.AddCredits(ctx, credits, txType, description, pkg)
	if err != nil {
		metrics.IncCreditOp("add", "error")
		return 0, err
	}
	u.applyServerBalance(ctx, userID, newBalance)
	metrics.IncCreditOp("add", "ok")
	if pkg != "" {
		metrics.AddCreditsGranted(string(pkg), credits)
	}
	return newBalance, nil
}

func (u *creditsUC) Deduct(ctx context.Context, userID string, credits int64, description, serviceType string) (int64, error) {
	if userID == "" {
		return 0, domain.ErrNotAuthenticated
	}
	if credits <= 0 {
		return 0, domain.ErrInvalidArgument
	}

	newBalance, err := u.backend.DeductCredits(ctx, credits, description, serviceType)
	if err != nil {
		metrics.IncCreditOp("deduct", "error")
		var apiErr *errclass.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusPaymentRequired {
			return 0, domain.ErrInsufficientCredits
		}
		return 0, err
	}
	u.applyServerBalance(ctx, userID, newBalance)
	metrics.IncCreditOp("deduct", "ok")
	return newBalance, nil
}

func (u *creditsUC) History(ctx context.Context, userID string, limit, offset int) (*model.CreditHistoryPage, error) {
	if userID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	page, err := u.backend.CreditHistory(ctx, limit, offset)
	if err != nil {
		metrics.IncCreditOp("history", "error")
		return nil, err
	}
	metrics.IncCreditOp("history", "ok")
	return page, nil
}

func (u *creditsUC) HasCredits(userID string, required int64) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	bal, ok := u.balances[userID]
	if !ok {
		return false
	}
	return bal.Credits >= required
}

func (u *creditsUC) RefreshActive(ctx context.Context) (int, error) {
	u.mu.RLock()
	ids := make([]string, 0, len(u.balances))
	for id := range u.balances {
		ids = append(ids, id)
	}
	u.mu.RUnlock()

	refreshed := 0
	for _, id := range ids {
		if _, err := u.Fetch(ctx, id); err != nil {
			u.log.Warn().Err(err).Str("user_id", id).Msg("balance refresh failed")
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

// applyServerBalance records a balance returned by the server. The server
// value always wins; nothing is computed locally.
func (u *creditsUC) applyServerBalance(ctx context.Context, userID string, newBalance int64) {
	bal := &model.CreditBalance{Credits: newBalance, LastUpdated: time.Now()}
	u.remember(userID, bal)
	if err := u.cache.Store(ctx, userID, bal); err != nil {
		u.log.Warn().Err(err).Msg("failed to cache balance")
	}
}

func (u *creditsUC) remember(userID string, bal *model.CreditBalance) {
	u.mu.Lock()
	u.balances[userID] = bal
	u.mu.Unlock()
}
