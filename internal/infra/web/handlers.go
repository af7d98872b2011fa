package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"fliq-payments/internal/domain"
	"fliq-payments/internal/domain/model"
	"fliq-payments/internal/domain/ports/adapter"
	"fliq-payments/internal/errclass"
)

type errorBody struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{
		Category: string(errclass.FromStatus(status)),
		Code:     code,
		Message:  message,
	}})
}

// respondError turns any failure into a stable JSON envelope. Domain
// sentinels map to precise statuses; everything else goes through the
// classifier, and the body carries the user-facing message, never the raw
// error.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "auth_required", "Please sign in to continue.")
		return
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid_request", "The request is invalid.")
		return
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "The requested resource was not found.")
		return
	case errors.Is(err, domain.ErrPurchaseInFlight):
		writeError(w, http.StatusConflict, "purchase_in_flight", "A purchase is already in progress. Please wait for it to finish.")
		return
	case errors.Is(err, domain.ErrPaymentNotCompleted):
		writeError(w, http.StatusPaymentRequired, "payment_not_completed", "Payment not completed successfully.")
		return
	case errors.Is(err, domain.ErrInsufficientCredits):
		writeError(w, http.StatusPaymentRequired, "insufficient_credits", "You do not have enough credits for this action.")
		return
	case errors.Is(err, domain.ErrConfigUnavailable):
		writeError(w, http.StatusServiceUnavailable, "config_unavailable", "Service is temporarily unavailable. Please try again shortly.")
		return
	}

	ce := s.errs.Handle(r.Context(), err, map[string]any{
		"path":   r.URL.Path,
		"method": r.Method,
	})
	writeJSON(w, statusFor(ce.Category), errorResponse{Error: errorBody{
		Category: string(ce.Category),
		Code:     ce.Code,
		Message:  ce.UserMessage,
	}})
}

func statusFor(cat errclass.Category) int {
	switch cat {
	case errclass.CategoryAuthentication:
		return http.StatusUnauthorized
	case errclass.CategoryAuthorization:
		return http.StatusForbidden
	case errclass.CategoryValidation:
		return http.StatusBadRequest
	case errclass.CategoryNetwork, errclass.CategoryServer:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		backend := "ok"
		if err := s.configUC.CheckHealth(r.Context()); err != nil {
			// Degraded, not down: cached config keeps the surface alive.
			backend = "unreachable"
			status = "degraded"
		}
		writeJSON(w, http.StatusOK, struct {
			Status  string `json:"status"`
			Backend string `json:"backend"`
		}{Status: status, Backend: backend})
	}
}

func (s *Server) configHandler() http.HandlerFunc {
	type configResponse struct {
		StripePublishableKey string          `json:"stripe_publishable_key"`
		APIBaseURL           string          `json:"api_base_url"`
		Environment          string          `json:"environment"`
		Features             map[string]bool `json:"features"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := s.configUC.Load(r.Context())
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, configResponse{
			StripePublishableKey: cfg.StripePublishableKey,
			APIBaseURL:           cfg.APIBaseURL,
			Environment:          cfg.Environment,
			Features:             cfg.Features,
		})
	}
}

type planBody struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	Credits           int64  `json:"credits"`
	Price             int64  `json:"price"`
	PriceFormatted    string `json:"price_formatted"`
	Currency          string `json:"currency"`
	PackageType       string `json:"package_type"`
	ProfilesUnlocked  int    `json:"profiles_unlocked"`
	RevisionsUnlocked int    `json:"revisions_unlocked"`
	Popular           bool   `json:"popular"`
}

func planToBody(p *model.PaymentPlan) planBody {
	return planBody{
		ID:                p.ID,
		Name:              p.Name,
		Description:       p.Description,
		Credits:           p.Credits,
		Price:             p.Price,
		PriceFormatted:    p.PriceFormatted(),
		Currency:          p.Currency,
		PackageType:       string(p.PackageType),
		ProfilesUnlocked:  p.ProfilesUnlocked,
		RevisionsUnlocked: p.RevisionsUnlocked,
		Popular:           p.Popular,
	}
}

func (s *Server) plansHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plans := s.planUC.List(r.Context())
		data := make([]planBody, 0, len(plans))
		for _, p := range plans {
			data = append(data, planToBody(p))
		}
		writeJSON(w, http.StatusOK, struct {
			Data []planBody `json:"data"`
		}{Data: data})
	}
}

type purchaseRequest struct {
	PlanID string `json:"plan_id"`
	Card   struct {
		Number     string `json:"number"`
		ExpMonth   int    `json:"exp_month"`
		ExpYear    int    `json:"exp_year"`
		CVC        string `json:"cvc"`
		HolderName string `json:"holder_name"`
		PostalCode string `json:"postal_code"`
	} `json:"card"`
}

func (s *Server) purchaseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req purchaseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "The request body is not valid JSON.")
			return
		}
		if req.PlanID == "" || req.Card.Number == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "plan_id and card details are required.")
			return
		}

		result, err := s.paymentUC.Purchase(ctx, UserIDFrom(ctx), req.PlanID, adapter.CardDetails{
			Number:     req.Card.Number,
			ExpMonth:   req.Card.ExpMonth,
			ExpYear:    req.Card.ExpYear,
			CVC:        req.Card.CVC,
			HolderName: req.Card.HolderName,
			PostalCode: req.Card.PostalCode,
		})
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, struct {
			Success      bool     `json:"success"`
			IntentID     string   `json:"intent_id"`
			IntentStatus string   `json:"intent_status"`
			CreditsAdded int64    `json:"credits_added"`
			NewBalance   int64    `json:"new_balance"`
			Plan         planBody `json:"plan"`
		}{
			Success:      result.Success,
			IntentID:     result.Intent.ID,
			IntentStatus: result.Intent.Status,
			CreditsAdded: result.CreditsAdded,
			NewBalance:   result.NewBalance,
			Plan:         planToBody(result.Plan),
		})
	}
}

func (s *Server) creditsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		bal, err := s.creditsUC.Fetch(ctx, UserIDFrom(ctx))
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Credits     int64     `json:"credits"`
			LastUpdated time.Time `json:"last_updated"`
		}{Credits: bal.Credits, LastUpdated: bal.LastUpdated})
	}
}

func (s *Server) creditHistoryHandler() http.HandlerFunc {
	type txBody struct {
		ID          string    `json:"id"`
		Credits     int64     `json:"credits"`
		Type        string    `json:"type"`
		Description string    `json:"description"`
		PackageType string    `json:"package_type,omitempty"`
		CreatedAt   time.Time `json:"created_at"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		page, err := s.creditsUC.History(ctx, UserIDFrom(ctx), limit, offset)
		if err != nil {
			s.respondError(w, r, err)
			return
		}

		data := make([]txBody, 0, len(page.Transactions))
		for _, tx := range page.Transactions {
			data = append(data, txBody{
				ID:          tx.ID,
				Credits:     tx.Credits,
				Type:        string(tx.Type),
				Description: tx.Description,
				PackageType: string(tx.PackageType),
				CreatedAt:   tx.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, struct {
			Data   []txBody `json:"data"`
			Total  int      `json:"total"`
			Limit  int      `json:"limit"`
			Offset int      `json:"offset"`
		}{Data: data, Total: page.Total, Limit: page.Limit, Offset: page.Offset})
	}
}

type deductRequest struct {
	Credits     int64  `json:"credits"`
	Description string `json:"description"`
	ServiceType string `json:"service_type"`
}

func (s *Server) creditDeductHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req deductRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "The request body is not valid JSON.")
			return
		}

		newBalance, err := s.creditsUC.Deduct(ctx, UserIDFrom(ctx), req.Credits, req.Description, req.ServiceType)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			NewBalance int64 `json:"new_balance"`
		}{NewBalance: newBalance})
	}
}

func (s *Server) paymentHistoryHandler() http.HandlerFunc {
	type recordBody struct {
		ID        string    `json:"id"`
		PlanID    string    `json:"plan_id"`
		Amount    int64     `json:"amount"`
		Currency  string    `json:"currency"`
		Status    string    `json:"status"`
		CreatedAt time.Time `json:"created_at"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		records, err := s.paymentUC.History(ctx, UserIDFrom(ctx))
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		data := make([]recordBody, 0, len(records))
		for _, rec := range records {
			data = append(data, recordBody{
				ID:        rec.ID,
				PlanID:    rec.PlanID,
				Amount:    rec.Amount,
				Currency:  rec.Currency,
				Status:    rec.Status,
				CreatedAt: rec.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, struct {
			Data []recordBody `json:"data"`
		}{Data: data})
	}
}
