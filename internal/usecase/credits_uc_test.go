//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"fliq-payments/internal/domain"
	"fliq-payments/internal/domain/model"
	"fliq-payments/internal/errclass"
	"fliq-payments/internal/usecase"
)

func TestCreditsUseCase_Fetch(t *testing.T) {
	ctx := context.Background()

	t.Run("should return zero for unauthenticated users without a network call", func(t *testing.T) {
		// --- Arrange ---
		backend := &MockBackendGateway{}
		called := false
		backend.FetchCreditsFunc = func(ctx context.Context) (int64, error) {
			called = true
			return 99, nil
		}
		uc := usecase.NewCreditsUseCase(backend, NewMockBalanceCache(), newTestLogger())

		// --- Act ---
		bal, err := uc.Fetch(ctx, "")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if bal.Credits != 0 {
			t.Errorf("expected 0 credits, got %d", bal.Credits)
		}
		if called {
			t.Error("no network call expected for an unauthenticated user")
		}
	})

	t.Run("should take the server balance and cache it", func(t *testing.T) {
		// --- Arrange ---
		backend := &MockBackendGateway{}
		backend.FetchCreditsFunc = func(ctx context.Context) (int64, error) { return 42, nil }
		cache := NewMockBalanceCache()
		uc := usecase.NewCreditsUseCase(backend, cache, newTestLogger())

		// --- Act ---
		bal, err := uc.Fetch(ctx, "user-1")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if bal.Credits != 42 {
			t.Errorf("expected 42 credits, got %d", bal.Credits)
		}
		cached, err := cache.Get(ctx, "user-1")
		if err != nil || cached.Credits != 42 {
			t.Errorf("expected cached balance 42, got %+v (%v)", cached, err)
		}
	})

	t.Run("should degrade to the cached balance when the fetch fails", func(t *testing.T) {
		// --- Arrange ---
		backend := &MockBackendGateway{}
		backend.FetchCreditsFunc = func(ctx context.Context) (int64, error) {
			return 0, &errclass.APIError{Status: 400, Endpoint: "/api/credits", Message: "nope"}
		}
		cache := NewMockBalanceCache()
		cache.Store(ctx, "user-1", &model.CreditBalance{Credits: 7, LastUpdated: time.Now()})
		uc := usecase.NewCreditsUseCase(backend, cache, newTestLogger())

		// --- Act ---
		bal, err := uc.Fetch(ctx, "user-1")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected degraded success, got: %v", err)
		}
		if bal.Credits != 7 {
			t.Errorf("expected cached 7 credits, got %d", bal.Credits)
		}
	})

	t.Run("should fail when the fetch fails and nothing is cached", func(t *testing.T) {
		backend := &MockBackendGateway{}
		backend.FetchCreditsFunc = func(ctx context.Context) (int64, error) {
			return 0, &errclass.APIError{Status: 400, Endpoint: "/api/credits", Message: "nope"}
		}
		uc := usecase.NewCreditsUseCase(backend, NewMockBalanceCache(), newTestLogger())

		if _, err := uc.Fetch(ctx, "user-1"); err == nil {
			t.Fatal("expected an error")
		}
	})
}

func TestCreditsUseCase_AddDeduct(t *testing.T) {
	ctx := context.Background()

	t.Run("should adopt the server's new balance after add", func(t *testing.T) {
		// --- Arrange ---
		backend := &MockBackendGateway{}
		backend.AddCreditsFunc = func(ctx context.Context, credits int64, txType model.TransactionType, desc string, pkg model.PackageType) (int64, error) {
			return 110, nil
		}
		cache := NewMockBalanceCache()
		uc := usecase.NewCreditsUseCase(backend, cache, newTestLogger())

		// --- Act ---
		newBal, err := uc.Add(ctx, "user-1", 10, model.TransactionPurchase, "purchase", model.PackageStudentProfiles)

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if newBal != 110 {
			t.Errorf("expected balance 110, got %d", newBal)
		}
		if !uc.HasCredits("user-1", 110) {
			t.Error("expected local cache to reflect the server balance")
		}
	})

	t.Run("should validate inputs before calling the backend", func(t *testing.T) {
		backend := &MockBackendGateway{}
		called := false
		backend.AddCreditsFunc = func(ctx context.Context, credits int64, txType model.TransactionType, desc string, pkg model.PackageType) (int64, error) {
			called = true
			return 0, nil
		}
		uc := usecase.NewCreditsUseCase(backend, NewMockBalanceCache(), newTestLogger())

		if _, err := uc.Add(ctx, "", 10, model.TransactionPurchase, "", ""); !errors.Is(err, domain.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got: %v", err)
		}
		if _, err := uc.Add(ctx, "user-1", 0, model.TransactionPurchase, "", ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for zero credits, got: %v", err)
		}
		if _, err := uc.Add(ctx, "user-1", 10, "weird", "", ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for bad tx type, got: %v", err)
		}
		if _, err := uc.Deduct(ctx, "user-1", -1, "", ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for negative deduct, got: %v", err)
		}
		if called {
			t.Error("backend must not be called with invalid input")
		}
	})

	t.Run("should surface insufficient credits from a backend 402", func(t *testing.T) {
		// --- Arrange ---
		backend := &MockBackendGateway{}
		backend.DeductCreditsFunc = func(ctx context.Context, credits int64, desc, serviceType string) (int64, error) {
			return 0, &errclass.APIError{Status: 402, Endpoint: "/api/credits/deduct", Message: "insufficient credits"}
		}
		uc := usecase.NewCreditsUseCase(backend, NewMockBalanceCache(), newTestLogger())

		// --- Act ---
		_, err := uc.Deduct(ctx, "user-1", 50, "profile view", "student_profiles")

		// --- Assert ---
		if !errors.Is(err, domain.ErrInsufficientCredits) {
			t.Errorf("expected ErrInsufficientCredits, got: %v", err)
		}
	})

	t.Run("should adopt the server's new balance after deduct", func(t *testing.T) {
		backend := &MockBackendGateway{}
		backend.DeductCreditsFunc = func(ctx context.Context, credits int64, desc, serviceType string) (int64, error) {
			return 3, nil
		}
		uc := usecase.NewCreditsUseCase(backend, NewMockBalanceCache(), newTestLogger())

		newBal, err := uc.Deduct(ctx, "user-1", 2, "profile view", "student_profiles")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if newBal != 3 {
			t.Errorf("expected balance 3, got %d", newBal)
		}
	})
}

func TestCreditsUseCase_HasCredits(t *testing.T) {
	ctx := context.Background()

	// --- Arrange ---
	backend := &MockBackendGateway{}
	fetchCalls := 0
	backend.FetchCreditsFunc = func(ctx context.Context) (int64, error) {
		fetchCalls++
		return 5, nil
	}
	uc := usecase.NewCreditsUseCase(backend, NewMockBalanceCache(), newTestLogger())
	if _, err := uc.Fetch(ctx, "user-1"); err != nil {
		t.Fatalf("seed fetch failed: %v", err)
	}
	before := fetchCalls

	// --- Act / Assert ---
	if !uc.HasCredits("user-1", 5) {
		t.Error("expected HasCredits(5) to be true")
	}
	if uc.HasCredits("user-1", 6) {
		t.Error("expected HasCredits(6) to be false")
	}
	if uc.HasCredits("user-2", 1) {
		t.Error("expected false for an unseen user")
	}
	if fetchCalls != before {
		t.Error("HasCredits must not hit the network")
	}
}

func TestCreditsUseCase_RefreshActive(t *testing.T) {
	ctx := context.Background()

	// --- Arrange ---
	backend := &MockBackendGateway{}
	balance := int64(5)
	backend.FetchCreditsFunc = func(ctx context.Context) (int64, error) { return balance, nil }
	uc := usecase.NewCreditsUseCase(backend, NewMockBalanceCache(), newTestLogger())
	uc.Fetch(ctx, "user-1")

	// --- Act ---
	balance = 25
	n, err := uc.RefreshActive(ctx)

	// --- Assert ---
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 refreshed balance, got %d", n)
	}
	if !uc.HasCredits("user-1", 25) {
		t.Error("expected the refreshed balance to be visible locally")
	}
}
