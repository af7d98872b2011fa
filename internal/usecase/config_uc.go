// File: internal/usecase/config_uc.go
package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"fliq-payments/internal/domain"
	"fliq-payments/internal/domain/ports/adapter"
	"fliq-payments/internal/domain/ports/repository"
	"fliq-payments/internal/infra/logging"
)

// Compile-time check
var _ ConfigUseCase = (*configUC)(nil)

// ConfigUseCase owns the runtime client configuration (Stripe publishable
// key, API base URL, feature flags). Nothing payment-related proceeds
// without it, so a failed load degrades to the last-known-good copy.
type ConfigUseCase interface {
	// Load fetches fresh config, falling back to the cached copy on failure.
	Load(ctx context.Context) (*adapter.ClientConfig, error)
	// Cached returns the last-known-good copy without a network call.
	Cached(ctx context.Context) (*adapter.ClientConfig, error)
	// Invalidate drops the cached copy.
	Invalidate(ctx context.Context) error
	// CheckHealth probes the backend.
	CheckHealth(ctx context.Context) error
}

type configUC struct {
	backend adapter.BackendGateway
	cache   repository.ConfigCache
	log     *zerolog.Logger
}

func NewConfigUseCase(backend adapter.BackendGateway, cache repository.ConfigCache, logger *zerolog.Logger) *configUC {
	l := logger.With().Str("component", "ConfigUC").Logger()
	return &configUC{backend: backend, cache: cache, log: &l}
}

func (u *configUC) Load(ctx context.Context) (*adapter.ClientConfig, error) {
	defer logging.TraceDuration(u.log, "ConfigUC.Load")()
	cfg, err := u.backend.FetchClientConfig(ctx)
	if err == nil {
		if cerr := u.cache.Store(ctx, cfg); cerr != nil {
			u.log.Warn().Err(cerr).Msg("failed to cache client config")
		}
		return cfg, nil
	}

	logging.With(ctx, u.log).Warn().Err(err).Msg("config fetch failed; trying last-known-good")
	cached, cerr := u.cache.Get(ctx)
	if cerr != nil || cached == nil {
		return nil, domain.ErrConfigUnavailable
	}
	return cached, nil
}

func (u *configUC) Cached(ctx context.Context) (*adapter.ClientConfig, error) {
	cached, err := u.cache.Get(ctx)
	if err != nil || cached == nil {
		return nil, domain.ErrConfigUnavailable
	}
	return cached, nil
}

func (u *configUC) Invalidate(ctx context.Context) error {
	return u.cache.Invalidate(ctx)
}

func (u *configUC) CheckHealth(ctx context.Context) error {
	return u.backend.Health(ctx)
}
