// File: internal/usecase/plan_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"fliq-payments/internal/domain/model"
	"fliq-payments/internal/domain/ports/adapter"
	"fliq-payments/internal/errclass"
	"fliq-payments/internal/infra/logging"
	"fliq-payments/internal/retry"
)

// Compile-time check
var _ PlanUseCase = (*planUC)(nil)

type PlanUseCase interface {
	// List returns the purchasable catalog. It never fails the caller:
	// any fetch problem degrades to the hardcoded default catalog.
	List(ctx context.Context) []*model.PaymentPlan
	// Find returns the catalog entry with the given id, or nil.
	Find(ctx context.Context, planID string) *model.PaymentPlan
}

type planUC struct {
	backend adapter.BackendGateway
	log     *zerolog.Logger
}

func NewPlanUseCase(backend adapter.BackendGateway, logger *zerolog.Logger) *planUC {
	l := logger.With().Str("component", "PlanUC").Logger()
	return &planUC{backend: backend, log: &l}
}

func (u *planUC) List(ctx context.Context) []*model.PaymentPlan {
	plans, err := retry.WithBackoff(ctx, func(ctx context.Context) ([]*model.PaymentPlan, error) {
		return u.backend.FetchPlans(ctx)
	}, retry.Options{
		Name:        "fetch_plans",
		MaxRetries:  2,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		ShouldRetry: errclass.Retryable,
	})
	if err != nil {
		logging.With(ctx, u.log).Warn().Err(err).Msg("plan fetch failed; serving default catalog")
		return model.DefaultCatalog()
	}
	if len(plans) == 0 {
		logging.With(ctx, u.log).Warn().Msg("backend returned empty catalog; serving default")
		return model.DefaultCatalog()
	}
	return plans
}

func (u *planUC) Find(ctx context.Context, planID string) *model.PaymentPlan {
	for _, p := range u.List(ctx) {
		if p.ID == planID {
			return p
		}
	}
	return nil
}
