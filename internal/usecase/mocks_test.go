//go:build !integration

package usecase_test

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fliq-payments/internal/domain"
	"fliq-payments/internal/domain/model"
	"fliq-payments/internal/domain/ports/adapter"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// ===== Mock BackendGateway =====

type MockBackendGateway struct {
	FetchClientConfigFunc func(ctx context.Context) (*adapter.ClientConfig, error)
	HealthFunc            func(ctx context.Context) error
	FetchPlansFunc        func(ctx context.Context) ([]*model.PaymentPlan, error)
	CreateIntentFunc      func(ctx context.Context, planID string) (*model.IntentResult, error)
	VerifyPaymentFunc     func(ctx context.Context, paymentIntentID string) (*model.VerifyResult, error)
	PaymentHistoryFunc    func(ctx context.Context) ([]*model.PaymentRecord, error)
	FetchCreditsFunc      func(ctx context.Context) (int64, error)
	AddCreditsFunc        func(ctx context.Context, credits int64, txType model.TransactionType, description string, pkg model.PackageType) (int64, error)
	DeductCreditsFunc     func(ctx context.Context, credits int64, description, serviceType string) (int64, error)
	CreditHistoryFunc     func(ctx context.Context, limit, offset int) (*model.CreditHistoryPage, error)
}

func (m *MockBackendGateway) FetchClientConfig(ctx context.Context) (*adapter.ClientConfig, error) {
	if m.FetchClientConfigFunc != nil {
		return m.FetchClientConfigFunc(ctx)
	}
	return &adapter.ClientConfig{StripePublishableKey: "pk_test_123"}, nil
}

func (m *MockBackendGateway) Health(ctx context.Context) error {
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

func (m *MockBackendGateway) FetchPlans(ctx context.Context) ([]*model.PaymentPlan, error) {
	if m.FetchPlansFunc != nil {
		return m.FetchPlansFunc(ctx)
	}
	return model.DefaultCatalog(), nil
}

func (m *MockBackendGateway) CreateIntent(ctx context.Context, planID string) (*model.IntentResult, error) {
	if m.CreateIntentFunc != nil {
		return m.CreateIntentFunc(ctx, planID)
	}
	return &model.IntentResult{ClientSecret: "pi_test_1_secret_abc"}, nil
}

func (m *MockBackendGateway) VerifyPayment(ctx context.Context, paymentIntentID string) (*model.VerifyResult, error) {
	if m.VerifyPaymentFunc != nil {
		return m.VerifyPaymentFunc(ctx, paymentIntentID)
	}
	return &model.VerifyResult{Message: "ok", CreditsAdded: 10}, nil
}

func (m *MockBackendGateway) PaymentHistory(ctx context.Context) ([]*model.PaymentRecord, error) {
	if m.PaymentHistoryFunc != nil {
		return m.PaymentHistoryFunc(ctx)
	}
	return nil, nil
}

func (m *MockBackendGateway) FetchCredits(ctx context.Context) (int64, error) {
	if m.FetchCreditsFunc != nil {
		return m.FetchCreditsFunc(ctx)
	}
	return 0, nil
}

func (m *MockBackendGateway) AddCredits(ctx context.Context, credits int64, txType model.TransactionType, description string, pkg model.PackageType) (int64, error) {
	if m.AddCreditsFunc != nil {
		return m.AddCreditsFunc(ctx, credits, txType, description, pkg)
	}
	return credits, nil
}

func (m *MockBackendGateway) DeductCredits(ctx context.Context, credits int64, description, serviceType string) (int64, error) {
	if m.DeductCreditsFunc != nil {
		return m.DeductCreditsFunc(ctx, credits, description, serviceType)
	}
	return 0, nil
}

func (m *MockBackendGateway) CreditHistory(ctx context.Context, limit, offset int) (*model.CreditHistoryPage, error) {
	if m.CreditHistoryFunc != nil {
		return m.CreditHistoryFunc(ctx, limit, offset)
	}
	return &model.CreditHistoryPage{Limit: limit, Offset: offset}, nil
}

// ===== Mock CardGateway =====

type MockCardGateway struct {
	ConfirmIntentFunc func(ctx context.Context, clientSecret string, card adapter.CardDetails) (*model.PaymentIntent, error)
}

func (m *MockCardGateway) Name() string { return "mock-card" }

func (m *MockCardGateway) ConfirmIntent(ctx context.Context, clientSecret string, card adapter.CardDetails) (*model.PaymentIntent, error) {
	if m.ConfirmIntentFunc != nil {
		return m.ConfirmIntentFunc(ctx, clientSecret, card)
	}
	return &model.PaymentIntent{ID: "pi_test_1", Status: model.IntentStatusSucceeded}, nil
}

// ===== Mock AttemptRepository (in-memory) =====

type MockAttemptRepo struct {
	mu       sync.Mutex
	attempts map[string]*model.PurchaseAttempt

	SaveFunc        func(ctx context.Context, a *model.PurchaseAttempt) error
	UpdateStateFunc func(ctx context.Context, id string, state model.PurchaseState, failureCode string) error
}

func NewMockAttemptRepo() *MockAttemptRepo {
	return &MockAttemptRepo{attempts: make(map[string]*model.PurchaseAttempt)}
}

func (m *MockAttemptRepo) Save(ctx context.Context, a *model.PurchaseAttempt) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, a)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.attempts[a.ID] = &cp
	return nil
}

func (m *MockAttemptRepo) UpdateState(ctx context.Context, id string, state model.PurchaseState, failureCode string) error {
	if m.UpdateStateFunc != nil {
		return m.UpdateStateFunc(ctx, id, state, failureCode)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.State = state
	a.FailureCode = failureCode
	a.UpdatedAt = time.Now()
	return nil
}

func (m *MockAttemptRepo) SetIntent(ctx context.Context, id, intentID, clientSecret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.IntentID = intentID
	a.ClientSecret = clientSecret
	return nil
}

func (m *MockAttemptRepo) FindByIntentID(ctx context.Context, intentID string) (*model.PurchaseAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.attempts {
		if a.IntentID == intentID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockAttemptRepo) ListInStateOlderThan(ctx context.Context, state model.PurchaseState, cutoff time.Time, limit int) ([]*model.PurchaseAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PurchaseAttempt
	for _, a := range m.attempts {
		if a.State == state && a.UpdatedAt.Before(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// get returns a copy of the stored attempt, for assertions.
func (m *MockAttemptRepo) get(id string) *model.PurchaseAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return nil
	}
	cp := *a
	return &cp
}

func (m *MockAttemptRepo) all() []*model.PurchaseAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PurchaseAttempt
	for _, a := range m.attempts {
		cp := *a
		out = append(out, &cp)
	}
	return out
}

// ===== Mock PurchaseLock =====

type MockPurchaseLock struct {
	TryLockFunc func(ctx context.Context, userID string, ttl time.Duration) (string, error)
	UnlockFunc  func(ctx context.Context, userID, token string) error
	Unlocked    int
}

func (m *MockPurchaseLock) TryLock(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	if m.TryLockFunc != nil {
		return m.TryLockFunc(ctx, userID, ttl)
	}
	return "tok", nil
}

func (m *MockPurchaseLock) Unlock(ctx context.Context, userID, token string) error {
	if m.UnlockFunc != nil {
		return m.UnlockFunc(ctx, userID, token)
	}
	m.Unlocked++
	return nil
}

// ===== Mock ConfigCache =====

type MockConfigCache struct {
	mu  sync.Mutex
	cfg *adapter.ClientConfig

	StoreFunc func(ctx context.Context, cfg *adapter.ClientConfig) error
	GetFunc   func(ctx context.Context) (*adapter.ClientConfig, error)
}

func (m *MockConfigCache) Store(ctx context.Context, cfg *adapter.ClientConfig) error {
	if m.StoreFunc != nil {
		return m.StoreFunc(ctx, cfg)
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return nil
}

func (m *MockConfigCache) Get(ctx context.Context) (*adapter.ClientConfig, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg == nil {
		return nil, domain.ErrNotFound
	}
	return m.cfg, nil
}

func (m *MockConfigCache) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	m.cfg = nil
	m.mu.Unlock()
	return nil
}

// ===== Mock BalanceCache =====

type MockBalanceCache struct {
	mu       sync.Mutex
	balances map[string]*model.CreditBalance

	StoreFunc func(ctx context.Context, userID string, bal *model.CreditBalance) error
	GetFunc   func(ctx context.Context, userID string) (*model.CreditBalance, error)
}

func NewMockBalanceCache() *MockBalanceCache {
	return &MockBalanceCache{balances: make(map[string]*model.CreditBalance)}
}

func (m *MockBalanceCache) Store(ctx context.Context, userID string, bal *model.CreditBalance) error {
	if m.StoreFunc != nil {
		return m.StoreFunc(ctx, userID, bal)
	}
	m.mu.Lock()
	m.balances[userID] = bal
	m.mu.Unlock()
	return nil
}

func (m *MockBalanceCache) Get(ctx context.Context, userID string) (*model.CreditBalance, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return bal, nil
}
