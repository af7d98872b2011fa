package adapter

import (
	"context"

	"fliq-payments/internal/domain/model"
)

// CardDetails carries the billing details collected by the payment form.
type CardDetails struct {
	Number     string
	ExpMonth   int
	ExpYear    int
	CVC        string
	HolderName string
	PostalCode string
}

// CardGateway is the hex port for the card provider. Confirmation runs
// against a single-use client secret; 3-D Secure and tokenization are the
// provider's concern.
type CardGateway interface {
	Name() string

	// ConfirmIntent confirms the payment intent identified by clientSecret.
	// A non-nil intent with Status != "succeeded" is not an error here;
	// callers decide what terminal statuses mean.
	ConfirmIntent(ctx context.Context, clientSecret string, card CardDetails) (*model.PaymentIntent, error)
}
