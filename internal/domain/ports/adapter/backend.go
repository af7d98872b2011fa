package adapter

import (
	"context"

	"fliq-payments/internal/domain/model"
)

// ClientConfig is the runtime configuration served to clients by the
// backend. It must be present before any payment can proceed.
type ClientConfig struct {
	StripePublishableKey string
	APIBaseURL           string
	Environment          string
	Features             map[string]bool
}

// TokenSource mints the bearer token for protected backend calls
// just-in-time, refreshing ahead of expiry.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// BackendGateway is the hex port for the remote Fliq REST backend. The
// backend owns all authoritative state (plans, intents, credits); this
// service only orchestrates and caches.
type BackendGateway interface {
	// FetchClientConfig loads the runtime client configuration.
	FetchClientConfig(ctx context.Context) (*ClientConfig, error)
	// Health probes the backend health endpoint.
	Health(ctx context.Context) error

	// FetchPlans returns the purchasable plan catalog.
	FetchPlans(ctx context.Context) ([]*model.PaymentPlan, error)
	// CreateIntent creates a provider payment intent for the plan. Each call
	// creates a new intent; idempotency is the backend's responsibility.
	CreateIntent(ctx context.Context, planID string) (*model.IntentResult, error)
	// VerifyPayment is the authoritative step that credits the account.
	VerifyPayment(ctx context.Context, paymentIntentID string) (*model.VerifyResult, error)
	// PaymentHistory lists the user's past payments.
	PaymentHistory(ctx context.Context) ([]*model.PaymentRecord, error)

	// FetchCredits returns the current server-side balance.
	FetchCredits(ctx context.Context) (int64, error)
	// AddCredits/DeductCredits mutate the balance and return the new value.
	AddCredits(ctx context.Context, credits int64, txType model.TransactionType, description string, pkg model.PackageType) (int64, error)
	DeductCredits(ctx context.Context, credits int64, description, serviceType string) (int64, error)
	// CreditHistory reads a page of the transaction ledger.
	CreditHistory(ctx context.Context, limit, offset int) (*model.CreditHistoryPage, error)
}
