//go:build !integration

package web_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fliq-payments/internal/domain"
	"fliq-payments/internal/domain/model"
	"fliq-payments/internal/domain/ports/adapter"
	"fliq-payments/internal/errclass"
	"fliq-payments/internal/infra/web"
)

// ===== use case stubs =====

type stubConfigUC struct {
	LoadFunc        func(ctx context.Context) (*adapter.ClientConfig, error)
	CheckHealthFunc func(ctx context.Context) error
}

func (s *stubConfigUC) Load(ctx context.Context) (*adapter.ClientConfig, error) {
	if s.LoadFunc != nil {
		return s.LoadFunc(ctx)
	}
	return &adapter.ClientConfig{StripePublishableKey: "pk_test", Environment: "test"}, nil
}
func (s *stubConfigUC) Cached(ctx context.Context) (*adapter.ClientConfig, error) {
	return s.Load(ctx)
}
func (s *stubConfigUC) Invalidate(ctx context.Context) error { return nil }
func (s *stubConfigUC) CheckHealth(ctx context.Context) error {
	if s.CheckHealthFunc != nil {
		return s.CheckHealthFunc(ctx)
	}
	return nil
}

type stubPlanUC struct{}

func (s *stubPlanUC) List(ctx context.Context) []*model.PaymentPlan { return model.DefaultCatalog() }
func (s *stubPlanUC) Find(ctx context.Context, planID string) *model.PaymentPlan {
	for _, p := range model.DefaultCatalog() {
		if p.ID == planID {
			return p
		}
	}
	return nil
}

type stubPaymentUC struct {
	PurchaseFunc func(ctx context.Context, userID, planID string, card adapter.CardDetails) (*model.PurchaseResult, error)
	HistoryFunc  func(ctx context.Context, userID string) ([]*model.PaymentRecord, error)
}

func (s *stubPaymentUC) Purchase(ctx context.Context, userID, planID string, card adapter.CardDetails) (*model.PurchaseResult, error) {
	if s.PurchaseFunc != nil {
		return s.PurchaseFunc(ctx, userID, planID, card)
	}
	return &model.PurchaseResult{
		Success:      true,
		Intent:       &model.PaymentIntent{ID: "pi_1", Status: model.IntentStatusSucceeded},
		CreditsAdded: 10,
		NewBalance:   15,
		Plan:         model.DefaultCatalog()[0],
	}, nil
}
func (s *stubPaymentUC) RetryVerify(ctx context.Context, attempt *model.PurchaseAttempt) error {
	return nil
}
func (s *stubPaymentUC) History(ctx context.Context, userID string) ([]*model.PaymentRecord, error) {
	if s.HistoryFunc != nil {
		return s.HistoryFunc(ctx, userID)
	}
	return nil, nil
}

type stubCreditsUC struct {
	FetchFunc  func(ctx context.Context, userID string) (*model.CreditBalance, error)
	DeductFunc func(ctx context.Context, userID string, credits int64, description, serviceType string) (int64, error)
}

func (s *stubCreditsUC) Fetch(ctx context.Context, userID string) (*model.CreditBalance, error) {
	if s.FetchFunc != nil {
		return s.FetchFunc(ctx, userID)
	}
	return &model.CreditBalance{Credits: 5, LastUpdated: time.Now()}, nil
}
func (s *stubCreditsUC) Add(ctx context.Context, userID string, credits int64, txType model.TransactionType, description string, pkg model.PackageType) (int64, error) {
	return credits, nil
}
func (s *stubCreditsUC) Deduct(ctx context.Context, userID string, credits int64, description, serviceType string) (int64, error) {
	if s.DeductFunc != nil {
		return s.DeductFunc(ctx, userID, credits, description, serviceType)
	}
	return 0, nil
}
func (s *stubCreditsUC) History(ctx context.Context, userID string, limit, offset int) (*model.CreditHistoryPage, error) {
	return &model.CreditHistoryPage{Total: 0, Limit: limit, Offset: offset}, nil
}
func (s *stubCreditsUC) HasCredits(userID string, required int64) bool { return false }
func (s *stubCreditsUC) RefreshActive(ctx context.Context) (int, error) {
	return 0, nil
}

type serverDeps struct {
	config   *stubConfigUC
	payments *stubPaymentUC
	credits  *stubCreditsUC
	auth     *web.AuthManager
}

func newTestServer(t *testing.T) (*serverDeps, http.Handler) {
	t.Helper()
	logger := zerolog.Nop()
	deps := &serverDeps{
		config:   &stubConfigUC{},
		payments: &stubPaymentUC{},
		credits:  &stubCreditsUC{},
		auth:     web.NewAuthManager("test-secret"),
	}
	errs := errclass.NewHandler(&logger, nil, nil)
	srv := web.NewServer(deps.config, &stubPlanUC{}, deps.payments, deps.credits, deps.auth, errs, &logger)
	return deps, srv.Router()
}

func bearer(t *testing.T, auth *web.AuthManager, userID string) string {
	t.Helper()
	tok, err := auth.Mint(userID, time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + tok
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestServer_PublicRoutes(t *testing.T) {
	t.Run("should serve plans without authentication", func(t *testing.T) {
		_, router := newTestServer(t)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plans", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var body struct {
			Data []struct {
				ID             string `json:"id"`
				PriceFormatted string `json:"price_formatted"`
			} `json:"data"`
		}
		decodeBody(t, rec, &body)
		if len(body.Data) != 3 {
			t.Fatalf("expected 3 plans, got %d", len(body.Data))
		}
		if body.Data[0].PriceFormatted != "$9.99" {
			t.Errorf("expected formatted price, got %q", body.Data[0].PriceFormatted)
		}
	})

	t.Run("should serve config and echo a request id", func(t *testing.T) {
		_, router := newTestServer(t)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/config", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if rec.Header().Get("X-Request-Id") == "" {
			t.Error("expected a generated request id header")
		}
	})

	t.Run("should map config unavailability to 503", func(t *testing.T) {
		deps, router := newTestServer(t)
		deps.config.LoadFunc = func(ctx context.Context) (*adapter.ClientConfig, error) {
			return nil, domain.ErrConfigUnavailable
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/config", nil))

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})

	t.Run("should report degraded health when the backend is down", func(t *testing.T) {
		deps, router := newTestServer(t)
		deps.config.CheckHealthFunc = func(ctx context.Context) error {
			return &errclass.NetworkError{Op: "health"}
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var body struct {
			Status string `json:"status"`
		}
		decodeBody(t, rec, &body)
		if body.Status != "degraded" {
			t.Errorf("expected degraded status, got %q", body.Status)
		}
	})
}

func TestServer_Auth(t *testing.T) {
	t.Run("should reject protected routes without a token", func(t *testing.T) {
		_, router := newTestServer(t)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/credits", nil))

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		decodeBody(t, rec, &body)
		if body.Error.Code != "auth_required" {
			t.Errorf("expected auth_required, got %q", body.Error.Code)
		}
	})

	t.Run("should reject a token signed with the wrong secret", func(t *testing.T) {
		_, router := newTestServer(t)
		other := web.NewAuthManager("other-secret")
		tok, _ := other.Mint("user-1", time.Hour)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/credits", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("should pass the token subject to the use case", func(t *testing.T) {
		deps, router := newTestServer(t)
		var gotUserID string
		deps.credits.FetchFunc = func(ctx context.Context, userID string) (*model.CreditBalance, error) {
			gotUserID = userID
			return &model.CreditBalance{Credits: 3}, nil
		}

		req := httptest.NewRequest(http.MethodGet, "/api/v1/credits", nil)
		req.Header.Set("Authorization", bearer(t, deps.auth, "user-42"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotUserID != "user-42" {
			t.Errorf("expected user-42, got %q", gotUserID)
		}
	})
}

func TestServer_Purchase(t *testing.T) {
	const purchaseBody = `{"plan_id":"profiles-10","card":{"number":"4242424242424242","exp_month":12,"exp_year":2030,"cvc":"123"}}`

	t.Run("should run a purchase and return the verified result", func(t *testing.T) {
		deps, router := newTestServer(t)
		var gotPlan string
		deps.payments.PurchaseFunc = func(ctx context.Context, userID, planID string, card adapter.CardDetails) (*model.PurchaseResult, error) {
			gotPlan = planID
			if card.Number != "4242424242424242" {
				t.Errorf("card details not forwarded: %+v", card)
			}
			return &model.PurchaseResult{
				Success:      true,
				Intent:       &model.PaymentIntent{ID: "pi_1", Status: model.IntentStatusSucceeded},
				CreditsAdded: 10,
				NewBalance:   15,
				Plan:         model.DefaultCatalog()[0],
			}, nil
		}

		req := httptest.NewRequest(http.MethodPost, "/api/v1/purchase", strings.NewReader(purchaseBody))
		req.Header.Set("Authorization", bearer(t, deps.auth, "user-1"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotPlan != "profiles-10" {
			t.Errorf("expected plan id to be forwarded, got %q", gotPlan)
		}
		var body struct {
			Success      bool  `json:"success"`
			CreditsAdded int64 `json:"credits_added"`
			NewBalance   int64 `json:"new_balance"`
		}
		decodeBody(t, rec, &body)
		if !body.Success || body.CreditsAdded != 10 || body.NewBalance != 15 {
			t.Errorf("unexpected body: %+v", body)
		}
	})

	t.Run("should map an incomplete payment to 402", func(t *testing.T) {
		deps, router := newTestServer(t)
		deps.payments.PurchaseFunc = func(ctx context.Context, userID, planID string, card adapter.CardDetails) (*model.PurchaseResult, error) {
			return nil, domain.ErrPaymentNotCompleted
		}

		req := httptest.NewRequest(http.MethodPost, "/api/v1/purchase", strings.NewReader(purchaseBody))
		req.Header.Set("Authorization", bearer(t, deps.auth, "user-1"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusPaymentRequired {
			t.Fatalf("expected 402, got %d", rec.Code)
		}
	})

	t.Run("should map a duplicate submit to 409", func(t *testing.T) {
		deps, router := newTestServer(t)
		deps.payments.PurchaseFunc = func(ctx context.Context, userID, planID string, card adapter.CardDetails) (*model.PurchaseResult, error) {
			return nil, domain.ErrPurchaseInFlight
		}

		req := httptest.NewRequest(http.MethodPost, "/api/v1/purchase", strings.NewReader(purchaseBody))
		req.Header.Set("Authorization", bearer(t, deps.auth, "user-1"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("should map a declined card to the classified envelope", func(t *testing.T) {
		deps, router := newTestServer(t)
		deps.payments.PurchaseFunc = func(ctx context.Context, userID, planID string, card adapter.CardDetails) (*model.PurchaseResult, error) {
			return nil, &errclass.StripeError{Code: "card_declined", Message: "declined"}
		}

		req := httptest.NewRequest(http.MethodPost, "/api/v1/purchase", strings.NewReader(purchaseBody))
		req.Header.Set("Authorization", bearer(t, deps.auth, "user-1"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		var body struct {
			Error struct {
				Category string `json:"category"`
				Code     string `json:"code"`
				Message  string `json:"message"`
			} `json:"error"`
		}
		decodeBody(t, rec, &body)
		if body.Error.Code != "card_declined" || body.Error.Category != "validation" {
			t.Errorf("unexpected error body: %+v", body.Error)
		}
		if !strings.Contains(body.Error.Message, "declined") {
			t.Errorf("expected a user-facing decline message, got %q", body.Error.Message)
		}
	})

	t.Run("should reject a body without plan or card", func(t *testing.T) {
		deps, router := newTestServer(t)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/purchase", strings.NewReader(`{}`))
		req.Header.Set("Authorization", bearer(t, deps.auth, "user-1"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestServer_Deduct_InsufficientCredits(t *testing.T) {
	deps, router := newTestServer(t)
	deps.credits.DeductFunc = func(ctx context.Context, userID string, credits int64, description, serviceType string) (int64, error) {
		return 0, domain.ErrInsufficientCredits
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/credits/deduct",
		strings.NewReader(`{"credits":50,"description":"profile view","service_type":"student_profiles"}`))
	req.Header.Set("Authorization", bearer(t, deps.auth, "user-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", rec.Code)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decodeBody(t, rec, &body)
	if body.Error.Code != "insufficient_credits" {
		t.Errorf("expected insufficient_credits, got %q", body.Error.Code)
	}
}

func TestServer_Deduct(t *testing.T) {
	deps, router := newTestServer(t)
	deps.credits.DeductFunc = func(ctx context.Context, userID string, credits int64, description, serviceType string) (int64, error) {
		if credits != 2 || serviceType != "student_profiles" {
			t.Errorf("unexpected deduct args: %d %q", credits, serviceType)
		}
		return 3, nil
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/credits/deduct",
		strings.NewReader(`{"credits":2,"description":"profile view","service_type":"student_profiles"}`))
	req.Header.Set("Authorization", bearer(t, deps.auth, "user-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		NewBalance int64 `json:"new_balance"`
	}
	decodeBody(t, rec, &body)
	if body.NewBalance != 3 {
		t.Errorf("expected new balance 3, got %d", body.NewBalance)
	}
}
