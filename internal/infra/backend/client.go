// File: internal/infra/backend/client.go
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"fliq-payments/internal/domain/model"
	"fliq-payments/internal/domain/ports/adapter"
	"fliq-payments/internal/errclass"
)

var _ adapter.BackendGateway = (*Client)(nil)

// Client talks to the remote Fliq REST backend. Every protected call sends
// "Authorization: Bearer <token>" with a token minted just-in-time by the
// TokenSource. Responses are decoded into typed structs and validated at
// the boundary; malformed payloads surface as DecodeError, never as
// silently wrong data.
type Client struct {
	baseURL string
	tokens  adapter.TokenSource
	client  *http.Client
}

func NewClient(baseURL string, tokens adapter.TokenSource, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		tokens:  tokens,
		client:  &http.Client{Timeout: timeout},
	}
}

// ---- response envelopes ----

type clientConfigResponse struct {
	Success bool `json:"success"`
	Config  struct {
		Stripe struct {
			PublishableKey string `json:"publishableKey"`
		} `json:"stripe"`
		API struct {
			BaseURL string `json:"baseUrl"`
		} `json:"api"`
		Features map[string]bool `json:"features"`
	} `json:"config"`
	Environment string `json:"environment"`
}

type plansResponse struct {
	Success bool `json:"success"`
	Plans   []struct {
		ID                string `json:"id"`
		Name              string `json:"name"`
		Description       string `json:"description"`
		Credits           int64  `json:"credits"`
		Price             int64  `json:"price"` // minor units
		Currency          string `json:"currency"`
		Category          string `json:"category"`
		ProfilesUnlocked  int    `json:"profilesUnlocked"`
		RevisionsUnlocked int    `json:"revisionsUnlocked"`
		Popular           bool   `json:"popular"`
	} `json:"plans"`
}

type planEchoJSON struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Credits        int64  `json:"credits"`
	Price          int64  `json:"price"`
	PriceFormatted string `json:"priceFormatted"`
}

type createIntentResponse struct {
	Success      bool         `json:"success"`
	ClientSecret string       `json:"clientSecret"`
	Plan         planEchoJSON `json:"plan"`
}

type verifyResponse struct {
	Success      bool         `json:"success"`
	Message      string       `json:"message"`
	CreditsAdded int64        `json:"creditsAdded"`
	Plan         planEchoJSON `json:"plan"`
}

type paymentHistoryResponse struct {
	Success  bool `json:"success"`
	Payments []struct {
		ID        string    `json:"id"`
		PlanID    string    `json:"planId"`
		Amount    int64     `json:"amount"`
		Currency  string    `json:"currency"`
		Status    string    `json:"status"`
		CreatedAt time.Time `json:"createdAt"`
	} `json:"payments"`
}

type creditsResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Credits int64 `json:"credits"`
	} `json:"data"`
}

type balanceResponse struct {
	Success bool `json:"success"`
	Data    struct {
		NewBalance int64 `json:"newBalance"`
	} `json:"data"`
}

type creditHistoryResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Transactions []struct {
			ID              string    `json:"id"`
			Credits         int64     `json:"credits"`
			TransactionType string    `json:"transactionType"`
			Description     string    `json:"description"`
			PackageType     string    `json:"packageType"`
			CreatedAt       time.Time `json:"createdAt"`
		} `json:"transactions"`
		Pagination struct {
			Total  int `json:"total"`
			Limit  int `json:"limit"`
			Offset int `json:"offset"`
		} `json:"pagination"`
	} `json:"data"`
}

// ---- operations ----

func (c *Client) FetchClientConfig(ctx context.Context) (*adapter.ClientConfig, error) {
	var resp clientConfigResponse
	if err := c.do(ctx, http.MethodGet, "/api/config/client", nil, false, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Config.Stripe.PublishableKey == "" {
		return nil, &errclass.DecodeError{Endpoint: "/api/config/client", Err: fmt.Errorf("missing stripe publishable key")}
	}
	return &adapter.ClientConfig{
		StripePublishableKey: resp.Config.Stripe.PublishableKey,
		APIBaseURL:           resp.Config.API.BaseURL,
		Environment:          resp.Environment,
		Features:             resp.Config.Features,
	}, nil
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, false, nil)
}

func (c *Client) FetchPlans(ctx context.Context) ([]*model.PaymentPlan, error) {
	var resp plansResponse
	if err := c.do(ctx, http.MethodGet, "/api/payment/plans", nil, false, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &errclass.DecodeError{Endpoint: "/api/payment/plans", Err: fmt.Errorf("success=false")}
	}

	plans := make([]*model.PaymentPlan, 0, len(resp.Plans))
	for _, p := range resp.Plans {
		pkg, ok := packageTypeFor(p.Category)
		if !ok {
			return nil, &errclass.DecodeError{Endpoint: "/api/payment/plans", Err: fmt.Errorf("unknown category %q", p.Category)}
		}
		plan, err := model.NewPaymentPlan(p.ID, p.Name, p.Credits, p.Price, p.Currency, pkg)
		if err != nil {
			return nil, &errclass.DecodeError{Endpoint: "/api/payment/plans", Err: fmt.Errorf("plan %q: %w", p.ID, err)}
		}
		plan.Description = p.Description
		plan.ProfilesUnlocked = p.ProfilesUnlocked
		plan.RevisionsUnlocked = p.RevisionsUnlocked
		plan.Popular = p.Popular
		plans = append(plans, plan)
	}
	return plans, nil
}

func (c *Client) CreateIntent(ctx context.Context, planID string) (*model.IntentResult, error) {
	body := map[string]string{"planId": planID}
	var resp createIntentResponse
	if err := c.do(ctx, http.MethodPost, "/api/payment/create-payment-intent", body, true, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.ClientSecret == "" {
		return nil, &errclass.DecodeError{Endpoint: "/api/payment/create-payment-intent", Err: fmt.Errorf("missing client secret")}
	}
	return &model.IntentResult{
		ClientSecret: resp.ClientSecret,
		Plan: model.PlanEcho{
			ID:             resp.Plan.ID,
			Name:           resp.Plan.Name,
			Credits:        resp.Plan.Credits,
			Price:          resp.Plan.Price,
			PriceFormatted: resp.Plan.PriceFormatted,
		},
	}, nil
}

func (c *Client) VerifyPayment(ctx context.Context, paymentIntentID string) (*model.VerifyResult, error) {
	body := map[string]string{"paymentIntentId": paymentIntentID}
	var resp verifyResponse
	if err := c.do(ctx, http.MethodPost, "/api/payment/verify-payment", body, true, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &errclass.DecodeError{Endpoint: "/api/payment/verify-payment", Err: fmt.Errorf("success=false: %s", resp.Message)}
	}
	return &model.VerifyResult{
		Message:      resp.Message,
		CreditsAdded: resp.CreditsAdded,
		Plan: model.PlanEcho{
			ID:             resp.Plan.ID,
			Name:           resp.Plan.Name,
			Credits:        resp.Plan.Credits,
			Price:          resp.Plan.Price,
			PriceFormatted: resp.Plan.PriceFormatted,
		},
	}, nil
}

func (c *Client) PaymentHistory(ctx context.Context) ([]*model.PaymentRecord, error) {
	var resp paymentHistoryResponse
	if err := c.do(ctx, http.MethodGet, "/api/payment/history", nil, true, &resp); err != nil {
		return nil, err
	}
	out := make([]*model.PaymentRecord, 0, len(resp.Payments))
	for _, p := range resp.Payments {
		out = append(out, &model.PaymentRecord{
			ID:        p.ID,
			PlanID:    p.PlanID,
			Amount:    p.Amount,
			Currency:  p.Currency,
			Status:    p.Status,
			CreatedAt: p.CreatedAt,
		})
	}
	return out, nil
}

func (c *Client) FetchCredits(ctx context.Context) (int64, error) {
	var resp creditsResponse
	if err := c.do(ctx, http.MethodGet, "/api/profile/credits", nil, true, &resp); err != nil {
		return 0, err
	}
	if resp.Data.Credits < 0 {
		return 0, &errclass.DecodeError{Endpoint: "/api/profile/credits", Err: fmt.Errorf("negative balance %d", resp.Data.Credits)}
	}
	return resp.Data.Credits, nil
}

func (c *Client) AddCredits(ctx context.Context, credits int64, txType model.TransactionType, description string, pkg model.PackageType) (int64, error) {
	body := map[string]any{
		"credits":         credits,
		"transactionType": string(txType),
		"description":     description,
	}
	if pkg != "" {
		body["packageType"] = string(pkg)
	}
	var resp balanceResponse
	if err := c.do(ctx, http.MethodPost, "/api/profile/credits/add", body, true, &resp); err != nil {
		return 0, err
	}
	return resp.Data.NewBalance, nil
}

func (c *Client) DeductCredits(ctx context.Context, credits int64, description, serviceType string) (int64, error) {
	body := map[string]any{
		"credits":     credits,
		"description": description,
	}
	if serviceType != "" {
		body["serviceType"] = serviceType
	}
	var resp balanceResponse
	if err := c.do(ctx, http.MethodPost, "/api/profile/credits/deduct", body, true, &resp); err != nil {
		return 0, err
	}
	return resp.Data.NewBalance, nil
}

func (c *Client) CreditHistory(ctx context.Context, limit, offset int) (*model.CreditHistoryPage, error) {
	path := fmt.Sprintf("/api/profile/credits/history?limit=%d&offset=%d", limit, offset)
	var resp creditHistoryResponse
	if err := c.do(ctx, http.MethodGet, path, nil, true, &resp); err != nil {
		return nil, err
	}

	page := &model.CreditHistoryPage{
		Total:  resp.Data.Pagination.Total,
		Limit:  resp.Data.Pagination.Limit,
		Offset: resp.Data.Pagination.Offset,
	}
	for _, t := range resp.Data.Transactions {
		txType := model.TransactionType(t.TransactionType)
		if !txType.Valid() {
			return nil, &errclass.DecodeError{Endpoint: "/api/profile/credits/history", Err: fmt.Errorf("unknown transaction type %q", t.TransactionType)}
		}
		page.Transactions = append(page.Transactions, &model.CreditTransaction{
			ID:          t.ID,
			Credits:     t.Credits,
			Type:        txType,
			Description: t.Description,
			PackageType: model.PackageType(t.PackageType),
			CreatedAt:   t.CreatedAt,
		})
	}
	return page, nil
}

// do performs one request/decode round trip. Transport failures become
// NetworkError, non-2xx statuses become APIError, and decode failures
// become DecodeError.
func (c *Client) do(ctx context.Context, method, path string, body any, authed bool, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return &errclass.AuthError{Code: "token_refresh_failed", Err: err}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &errclass.NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errclass.NetworkError{Op: "read " + path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized {
			// force a fresh token on the next call
			c.tokens.Invalidate()
		}
		return &errclass.APIError{Status: resp.StatusCode, Endpoint: path, Message: snippet(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &errclass.DecodeError{Endpoint: path, Err: err}
	}
	return nil
}

func packageTypeFor(category string) (model.PackageType, bool) {
	switch category {
	case "profiles", "student_profiles":
		return model.PackageStudentProfiles, true
	case "essays", "essay_revisions":
		return model.PackageEssayRevisions, true
	case "combo", "combo_package":
		return model.PackageCombo, true
	}
	return "", false
}

func snippet(b []byte) string {
	const max = 256
	if len(b) > max {
		b = b[:max]
	}
	return string(b)
}
