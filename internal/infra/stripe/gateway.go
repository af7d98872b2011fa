// File: internal/infra/stripe/gateway.go
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fliq-payments/internal/domain/model"
	"fliq-payments/internal/domain/ports/adapter"
	"fliq-payments/internal/errclass"
)

var _ adapter.CardGateway = (*Gateway)(nil)

// Gateway confirms payment intents against the Stripe API using direct
// HTTP calls, authorized by the publishable key plus the single-use client
// secret (the browser-side confirmation model). 3-D Secure challenges
// surface as status "requires_action".
type Gateway struct {
	publishableKey string
	baseURL        string
	client         *http.Client
}

func NewGateway(publishableKey, baseURL string) *Gateway {
	if baseURL == "" {
		baseURL = "https://api.stripe.com/v1"
	}
	return &Gateway{
		publishableKey: publishableKey,
		baseURL:        baseURL,
		client:         &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *Gateway) Name() string { return "stripe" }

type confirmResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  *struct {
		Type        string `json:"type"`
		Code        string `json:"code"`
		DeclineCode string `json:"decline_code"`
		Message     string `json:"message"`
	} `json:"error"`
	LastPaymentError *struct {
		Code        string `json:"code"`
		DeclineCode string `json:"decline_code"`
		Message     string `json:"message"`
	} `json:"last_payment_error"`
}

// ConfirmIntent confirms the intent behind clientSecret with inline card
// details. A declined card is a StripeError; a reachable-but-unfinished
// intent (e.g. requires_action) is returned as-is for the caller to judge.
func (g *Gateway) ConfirmIntent(ctx context.Context, clientSecret string, card adapter.CardDetails) (*model.PaymentIntent, error) {
	intentID, err := intentIDFromSecret(clientSecret)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("key", g.publishableKey)
	form.Set("client_secret", clientSecret)
	form.Set("payment_method_data[type]", "card")
	form.Set("payment_method_data[card][number]", card.Number)
	form.Set("payment_method_data[card][exp_month]", strconv.Itoa(card.ExpMonth))
	form.Set("payment_method_data[card][exp_year]", strconv.Itoa(card.ExpYear))
	form.Set("payment_method_data[card][cvc]", card.CVC)
	if card.HolderName != "" {
		form.Set("payment_method_data[billing_details][name]", card.HolderName)
	}
	if card.PostalCode != "" {
		form.Set("payment_method_data[billing_details][address][postal_code]", card.PostalCode)
	}

	endpoint := fmt.Sprintf("%s/payment_intents/%s/confirm", g.baseURL, intentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &errclass.NetworkError{Op: "stripe confirm", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errclass.NetworkError{Op: "stripe confirm read", Err: err}
	}

	var out confirmResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &errclass.DecodeError{Endpoint: "stripe confirm", Err: err}
	}

	if out.Error != nil {
		return nil, &errclass.StripeError{
			Code:        out.Error.Code,
			DeclineCode: out.Error.DeclineCode,
			Message:     out.Error.Message,
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &errclass.APIError{Status: resp.StatusCode, Endpoint: "stripe confirm", Message: string(body)}
	}
	if out.Status == "" {
		return nil, &errclass.DecodeError{Endpoint: "stripe confirm", Err: fmt.Errorf("missing intent status")}
	}

	return &model.PaymentIntent{ID: out.ID, Status: out.Status}, nil
}

// intentIDFromSecret extracts "pi_..." from a "pi_..._secret_..." value.
func intentIDFromSecret(clientSecret string) (string, error) {
	idx := strings.Index(clientSecret, "_secret_")
	if !strings.HasPrefix(clientSecret, "pi_") || idx < 0 {
		return "", &errclass.StripeError{Code: "invalid_client_secret", Message: "malformed client secret"}
	}
	return clientSecret[:idx], nil
}
