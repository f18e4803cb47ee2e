package service

import (
	"context"
	"fmt"

	"guildmint/internal/core/ports"
	"guildmint/pkg/apperror"

	"github.com/google/uuid"
)

// ExchangeEngineImpl implements ports.ExchangeEngine over the rate store.
// Rates are read-only here; mutation happens only through the registry's
// administrative operation.
type ExchangeEngineImpl struct {
	rateRepo ports.RateRepository
}

// NewExchangeEngine creates a new ExchangeEngineImpl.
func NewExchangeEngine(rateRepo ports.RateRepository) *ExchangeEngineImpl {
	return &ExchangeEngineImpl{rateRepo: rateRepo}
}

// RateFor resolves the admin-configured directional rate. Only the configured
// direction is honored: no multi-hop path-finding, no reciprocal inference.
func (e *ExchangeEngineImpl) RateFor(ctx context.Context, groupID, baseCurrencyID, quoteCurrencyID uuid.UUID) (float64, error) {
	rate, err := e.rateRepo.Get(ctx, groupID, baseCurrencyID, quoteCurrencyID)
	if err != nil {
		return 0, apperror.ErrStorageUnavailable(fmt.Errorf("load rate: %w", err))
	}
	if rate == nil {
		return 0, apperror.ErrRateNotFound()
	}
	return rate.Rate, nil
}
