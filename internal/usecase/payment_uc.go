// File: internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
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
var _ PaymentUseCase = (*paymentUC)(nil)

const purchaseLockTTL = 2 * time.Minute

// PaymentUseCase orchestrates the three-party purchase flow: create an
// intent on the backend, confirm the card with the provider, then verify on
// the backend. Only the verified backend response grants credits; the
// provider confirmation alone never does.
type PaymentUseCase interface {
	// Purchase runs the whole flow for one plan. Concurrent calls for the
	// same user are rejected with domain.ErrPurchaseInFlight.
	Purchase(ctx context.Context, userID, planID string, card adapter.CardDetails) (*model.PurchaseResult, error)
	// RetryVerify re-runs the verification step for an attempt stuck in the
	// verifying state. It never touches the card again.
	RetryVerify(ctx context.Context, attempt *model.PurchaseAttempt) error
	// History lists the user's past payments.
	History(ctx context.Context, userID string) ([]*model.PaymentRecord, error)
}

type paymentUC struct {
	backend  adapter.BackendGateway
	cards    adapter.CardGateway
	plans    PlanUseCase
	credits  CreditsUseCase
	attempts repository.AttemptRepository
	lock     repository.PurchaseLock
	log      *zerolog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{} // userID -> purchase in progress in this process
}

func NewPaymentUseCase(
	backend adapter.BackendGateway,
	cards adapter.CardGateway,
	plans PlanUseCase,
	credits CreditsUseCase,
	attempts repository.AttemptRepository,
	lock repository.PurchaseLock,
	logger *zerolog.Logger,
) *paymentUC {
	l := logger.With().Str("component", "PaymentUC").Logger()
	return &paymentUC{
		backend:  backend,
		cards:    cards,
		plans:    plans,
		credits:  credits,
		attempts: attempts,
		lock:     lock,
		log:      &l,
		inFlight: make(map[string]struct{}),
	}
}

func (u *paymentUC) Purchase(ctx context.Context, userID, planID string, card adapter.CardDetails) (*model.PurchaseResult, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.Purchase")()
	if userID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	plan := u.plans.Find(ctx, planID)
	if plan == nil {
		return nil, domain.ErrInvalidArgument
	}

	if !u.begin(userID) {
		return nil, domain.ErrPurchaseInFlight
	}
	defer u.end(userID)

	// Cross-process guard. Fail fast rather than queueing: a second submit
	// while one is running is a duplicate, not a request to wait.
	token, err := u.lock.TryLock(ctx, userID, purchaseLockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if uerr := u.lock.Unlock(context.Background(), userID, token); uerr != nil {
			u.log.Warn().Err(uerr).Str("user_id", userID).Msg("failed to release purchase lock")
		}
	}()

	start := time.Now()
	attempt := &model.PurchaseAttempt{
		ID:              ulid.Make().String(),
		UserID:          userID,
		PlanID:          plan.ID,
		State:           model.PurchaseStateCreatingIntent,
		CreditsExpected: plan.Credits,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := u.attempts.Save(ctx, attempt); err != nil {
		return nil, err
	}
	log := logging.With(ctx, u.log).With().Str("attempt_id", attempt.ID).Str("plan_id", plan.ID).Logger()

	// Step 1: create the payment intent on the backend.
	intentRes, err := retry.WithBackoff(ctx, func(ctx context.Context) (*model.IntentResult, error) {
		return u.backend.CreateIntent(ctx, plan.ID)
	}, retry.Options{
		Name:        "create_intent",
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
		ShouldRetry: errclass.Retryable,
	})
	if err != nil {
		u.fail(ctx, attempt, err, start)
		return nil, err
	}
	metrics.IncIntentCreated()

	intentID := intentIDFromSecret(intentRes.ClientSecret)
	if err := u.attempts.SetIntent(ctx, attempt.ID, intentID, intentRes.ClientSecret); err != nil {
		log.Warn().Err(err).Msg("failed to journal intent id")
	}
	attempt.IntentID = intentID
	attempt.ClientSecret = intentRes.ClientSecret
	u.transition(ctx, attempt, model.PurchaseStateConfirming, "")

	// Step 2: confirm the card with the provider. The client secret is
	// single-use, so this step is never retried.
	intent, err := u.cards.ConfirmIntent(ctx, intentRes.ClientSecret, card)
	if err != nil {
		u.fail(ctx, attempt, err, start)
		return nil, err
	}
	if intent.Status != model.IntentStatusSucceeded {
		log.Warn().Str("intent_status", intent.Status).Msg("card confirmation did not succeed")
		u.transition(ctx, attempt, model.PurchaseStateFailed, "intent_"+intent.Status)
		metrics.IncPurchase(string(model.PurchaseStateFailed), "intent_"+intent.Status)
		metrics.ObservePurchaseDuration(string(model.PurchaseStateFailed), time.Since(start).Seconds())
		return nil, domain.ErrPaymentNotCompleted
	}
	if intent.ID != "" && intent.ID != attempt.IntentID {
		attempt.IntentID = intent.ID
		if err := u.attempts.SetIntent(ctx, attempt.ID, intent.ID, attempt.ClientSecret); err != nil {
			log.Warn().Err(err).Msg("failed to journal confirmed intent id")
		}
	}
	u.transition(ctx, attempt, model.PurchaseStateVerifying, "")

	// Step 3: authoritative verification. The backend credits the account
	// here; the confirmed intent alone grants nothing.
	verifyRes, err := u.verify(ctx, attempt)
	if err != nil {
		// The card has been charged. The attempt stays in verifying so the
		// reconciler can finish the job; failing it here would strand the
		// charge.
		log.Error().Err(err).Str("intent_id", attempt.IntentID).Msg("verification failed; attempt left for reconciler")
		metrics.ObservePurchaseDuration(string(model.PurchaseStateVerifying), time.Since(start).Seconds())
		return nil, err
	}
	u.transition(ctx, attempt, model.PurchaseStateSucceeded, "")

	bal, err := u.credits.Fetch(ctx, userID)
	newBalance := int64(0)
	if err != nil {
		log.Warn().Err(err).Msg("balance refresh after purchase failed")
	} else {
		newBalance = bal.Credits
	}

	metrics.IncPurchase(string(model.PurchaseStateSucceeded), "none")
	metrics.ObservePurchaseDuration(string(model.PurchaseStateSucceeded), time.Since(start).Seconds())
	metrics.AddPaymentRevenue(plan.Currency, plan.Price)
	log.Info().Str("intent_id", attempt.IntentID).Int64("credits_added", verifyRes.CreditsAdded).Msg("purchase completed")

	return &model.PurchaseResult{
		Success:      true,
		Intent:       intent,
		CreditsAdded: verifyRes.CreditsAdded,
		NewBalance:   newBalance,
		Plan:         plan,
	}, nil
}

func (u *paymentUC) RetryVerify(ctx context.Context, attempt *model.PurchaseAttempt) error {
	defer logging.TraceDuration(u.log, "PaymentUC.RetryVerify")()
	if attempt.State != model.PurchaseStateVerifying {
		return domain.ErrIllegalTransition
	}
	if attempt.IntentID == "" {
		return domain.ErrInvalidArgument
	}
	if _, err := u.verify(ctx, attempt); err != nil {
		// A definite rejection means the backend has looked at the intent
		// and said no; retrying forever would be noise.
		var apiErr *errclass.APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			u.transition(ctx, attempt, model.PurchaseStateFailed, errclass.Classify(err).Code)
			metrics.IncPurchase(string(model.PurchaseStateFailed), errclass.Classify(err).Code)
		}
		return err
	}
	u.transition(ctx, attempt, model.PurchaseStateSucceeded, "")
	metrics.IncPurchase(string(model.PurchaseStateSucceeded), "none")
	logging.With(ctx, u.log).Info().Str("attempt_id", attempt.ID).Msg("stale attempt verified")
	return nil
}

func (u *paymentUC) History(ctx context.Context, userID string) ([]*model.PaymentRecord, error) {
	if userID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	return u.backend.PaymentHistory(ctx)
}

func (u *paymentUC) verify(ctx context.Context, attempt *model.PurchaseAttempt) (*model.VerifyResult, error) {
	start := time.Now()
	res, err := retry.WithBackoff(ctx, func(ctx context.Context) (*model.VerifyResult, error) {
		return u.backend.VerifyPayment(ctx, attempt.IntentID)
	}, retry.Options{
		Name:        "verify_payment",
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
		ShouldRetry: errclass.Retryable,
	})
	if err != nil {
		metrics.IncVerify("fail", verifyFailReason(err))
		metrics.ObserveVerifyDuration("fail", time.Since(start).Seconds())
		return nil, err
	}
	metrics.IncVerify("ok", "none")
	metrics.ObserveVerifyDuration("ok", time.Since(start).Seconds())
	return res, nil
}

// fail moves the attempt to the failed state with a classified code and
// records the terminal metrics.
func (u *paymentUC) fail(ctx context.Context, attempt *model.PurchaseAttempt, cause error, start time.Time) {
	code := errclass.Classify(cause).Code
	u.transition(ctx, attempt, model.PurchaseStateFailed, code)
	metrics.IncPurchase(string(model.PurchaseStateFailed), code)
	metrics.ObservePurchaseDuration(string(model.PurchaseStateFailed), time.Since(start).Seconds())
}

func (u *paymentUC) transition(ctx context.Context, attempt *model.PurchaseAttempt, next model.PurchaseState, failureCode string) {
	if !attempt.State.CanTransition(next) {
		u.log.Error().
			Str("attempt_id", attempt.ID).
			Str("from", string(attempt.State)).
			Str("to", string(next)).
			Msg("illegal purchase state transition")
		return
	}
	attempt.State = next
	attempt.FailureCode = failureCode
	attempt.UpdatedAt = time.Now()
	if err := u.attempts.UpdateState(ctx, attempt.ID, next, failureCode); err != nil {
		u.log.Warn().Err(err).Str("attempt_id", attempt.ID).Str("state", string(next)).Msg("failed to journal state")
	}
}

func (u *paymentUC) begin(userID string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, busy := u.inFlight[userID]; busy {
		return false
	}
	u.inFlight[userID] = struct{}{}
	return true
}

func (u *paymentUC) end(userID string) {
	u.mu.Lock()
	delete(u.inFlight, userID)
	u.mu.Unlock()
}

func verifyFailReason(err error) string {
	var apiErr *errclass.APIError
	if errors.As(err, &apiErr) {
		return "http_error"
	}
	var netErr *errclass.NetworkError
	if errors.As(err, &netErr) {
		return "network"
	}
	return "unknown"
}

// intentIDFromSecret extracts the intent id from a client secret of the
// form "pi_xxx_secret_yyy".
func intentIDFromSecret(secret string) string {
	if i := strings.Index(secret, "_secret_"); i > 0 {
		return secret[:i]
	}
	return ""
}
