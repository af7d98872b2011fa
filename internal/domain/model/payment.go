package model

import "time"

// PurchaseState names the steps of a single purchase attempt. The browser
// client kept these implicit in sequential awaits; here they are explicit so
// illegal moves (and duplicate submits) can be rejected.
type PurchaseState string

const (
	PurchaseStateIdle           PurchaseState = "idle"
	PurchaseStateCreatingIntent PurchaseState = "creating_intent"
	PurchaseStateConfirming     PurchaseState = "confirming"
	PurchaseStateVerifying      PurchaseState = "verifying"
	PurchaseStateSucceeded      PurchaseState = "succeeded"
	PurchaseStateFailed         PurchaseState = "failed"
)

var purchaseTransitions = map[PurchaseState][]PurchaseState{
	PurchaseStateIdle:           {PurchaseStateCreatingIntent},
	PurchaseStateCreatingIntent: {PurchaseStateConfirming, PurchaseStateFailed},
	PurchaseStateConfirming:     {PurchaseStateVerifying, PurchaseStateFailed},
	PurchaseStateVerifying:      {PurchaseStateSucceeded, PurchaseStateFailed},
}

// CanTransition reports whether moving from s to next is legal.
func (s PurchaseState) CanTransition(next PurchaseState) bool {
	for _, allowed := range purchaseTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s PurchaseState) Terminal() bool {
	return s == PurchaseStateSucceeded || s == PurchaseStateFailed
}

// Stripe PaymentIntent statuses observed by this service. Only "succeeded"
// is treated as success downstream.
const (
	IntentStatusSucceeded      = "succeeded"
	IntentStatusRequiresAction = "requires_action"
)

// PaymentIntent is the provider-side transaction as observed after
// confirmation. Its full state machine lives at the provider.
type PaymentIntent struct {
	ID     string
	Status string
}

// PlanEcho is the plan summary returned alongside a created intent.
type PlanEcho struct {
	ID             string
	Name           string
	Credits        int64
	Price          int64
	PriceFormatted string
}

// IntentResult is produced by the create-payment-intent call. The client
// secret is single-use: exactly one successful confirmation per intent.
type IntentResult struct {
	ClientSecret string
	Plan         PlanEcho
}

// PurchaseResult is produced only after both the provider confirmation and
// the server-side verification succeed.
type PurchaseResult struct {
	Success      bool
	Intent       *PaymentIntent
	CreditsAdded int64
	NewBalance   int64
	Plan         *PaymentPlan
}

// VerifyResult is the backend's answer to the authoritative verification
// call that actually credits the account.
type VerifyResult struct {
	Message      string
	CreditsAdded int64
	Plan         PlanEcho
}

// PurchaseAttempt is the journaled record of one purchase flow. Persisting
// it lets verification be retried after a crash without re-confirming the
// card.
type PurchaseAttempt struct {
	ID              string // ULID, time-sortable
	UserID          string
	PlanID          string
	IntentID        string
	ClientSecret    string
	State           PurchaseState
	CreditsExpected int64
	FailureCode     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PaymentRecord is one row of the backend's payment history.
type PaymentRecord struct {
	ID        string
	PlanID    string
	Amount    int64
	Currency  string
	Status    string
	CreatedAt time.Time
}
