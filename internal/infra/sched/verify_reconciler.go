package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"fliq-payments/internal/domain/model"
	"fliq-payments/internal/domain/ports/repository"
	"fliq-payments/internal/infra/logging"
	"fliq-payments/internal/infra/metrics"
	"fliq-payments/internal/usecase"
)

// VerifyReconciler scans for purchase attempts stuck in the verifying state
// and re-runs the server-side verification. This covers crashes and network
// failures between the card confirmation and the verify call, where the
// charge exists but the credits were never granted. It only ever verifies;
// the card is never confirmed twice.
type VerifyReconciler struct {
	uc         usecase.PaymentUseCase
	attempts   repository.AttemptRepository
	interval   time.Duration
	staleAfter time.Duration
	log        *zerolog.Logger
}

func NewVerifyReconciler(uc usecase.PaymentUseCase, attempts repository.AttemptRepository, interval, staleAfter time.Duration, logger *zerolog.Logger) *VerifyReconciler {
	l := logger.With().Str("component", "VerifyReconciler").Logger()
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &VerifyReconciler{uc: uc, attempts: attempts, interval: interval, staleAfter: staleAfter, log: &l}
}

func (w *VerifyReconciler) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting verify reconciler")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping verify reconciler")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *VerifyReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	stale, err := w.attempts.ListInStateOlderThan(ctx, model.PurchaseStateVerifying, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to list stale attempts")
		return
	}
	for _, a := range stale {
		if a.IntentID == "" {
			continue
		}
		vctx := logging.WithIntentID(ctx, a.IntentID)
		if err := w.uc.RetryVerify(vctx, a); err != nil {
			metrics.IncReconciled("failed")
			w.log.Warn().Err(err).Str("attempt_id", a.ID).Str("intent_id", a.IntentID).Msg("reconcile verify failed")
			continue
		}
		metrics.IncReconciled("reverified")
		w.log.Info().Str("attempt_id", a.ID).Msg("stale attempt reconciled")
	}
}
