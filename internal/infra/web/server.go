package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"fliq-payments/internal/errclass"
	"fliq-payments/internal/infra/logging"
	"fliq-payments/internal/usecase"
)

type Server struct {
	configUC  usecase.ConfigUseCase
	planUC    usecase.PlanUseCase
	paymentUC usecase.PaymentUseCase
	creditsUC usecase.CreditsUseCase
	auth      *AuthManager
	errs      *errclass.Handler
	log       *zerolog.Logger
}

func NewServer(
	configUC usecase.ConfigUseCase,
	planUC usecase.PlanUseCase,
	paymentUC usecase.PaymentUseCase,
	creditsUC usecase.CreditsUseCase,
	auth *AuthManager,
	errs *errclass.Handler,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		configUC:  configUC,
		planUC:    planUC,
		paymentUC: paymentUC,
		creditsUC: creditsUC,
		auth:      auth,
		errs:      errs,
		log:       &l,
	}
}

// Router builds the chi router for the public payment API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.traceMiddleware)

	r.Get("/healthz", s.healthHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Public: the client needs config and plans before signing in.
		r.Get("/config", s.configHandler())
		r.Get("/plans", s.plansHandler())

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/purchase", s.purchaseHandler())
			r.Get("/credits", s.creditsHandler())
			r.Get("/credits/history", s.creditHistoryHandler())
			r.Post("/credits/deduct", s.creditDeductHandler())
			r.Get("/payments/history", s.paymentHistoryHandler())
		})
	})
	return r
}

// traceMiddleware tags every request with a trace id for log correlation.
func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Request-Id")
		if traceID == "" {
			traceID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", traceID)
		next.ServeHTTP(w, r.WithContext(logging.WithTraceID(r.Context(), traceID)))
	})
}

// authMiddleware validates the bearer token and puts the user id on the
// request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "auth_required", "Please sign in to continue.")
			return
		}
		ctx := withUserID(r.Context(), claims.UserID())
		ctx = logging.WithUserID(ctx, claims.UserID())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
