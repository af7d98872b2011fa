package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"fliq-payments/internal/usecase"
)

// BalanceRefresher periodically re-fetches the credit balance of every
// recently seen user so the cached value tracks server-side changes made
// outside this service.
type BalanceRefresher struct {
	interval time.Duration
	credits  usecase.CreditsUseCase
	log      *zerolog.Logger
}

func NewBalanceRefresher(interval time.Duration, credits usecase.CreditsUseCase, logger *zerolog.Logger) *BalanceRefresher {
	l := logger.With().Str("component", "BalanceRefresher").Logger()
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &BalanceRefresher{interval: interval, credits: credits, log: &l}
}

func (w *BalanceRefresher) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting balance refresher")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping balance refresher")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.credits.RefreshActive(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("balance refresh error")
			}
			if n > 0 {
				w.log.Debug().Int("count", n).Msg("balances refreshed")
			}
		}
	}
}
