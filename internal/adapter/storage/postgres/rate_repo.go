package postgres

import (
	"context"
	"errors"
	"fmt"

	"guildmint/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RateRepo implements ports.RateRepository.
type RateRepo struct {
	pool Pool
}

// NewRateRepo creates a new RateRepo.
func NewRateRepo(pool Pool) *RateRepo {
	return &RateRepo{pool: pool}
}

// Upsert creates or replaces the directional rate edge.
func (r *RateRepo) Upsert(ctx context.Context, rate *domain.ExchangeRate) error {
	query := `INSERT INTO exchange_rates (group_id, base_currency_id, quote_currency_id, rate, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (group_id, base_currency_id, quote_currency_id)
		DO UPDATE SET rate = EXCLUDED.rate, updated_at = NOW()`

	_, err := r.pool.Exec(ctx, query, rate.GroupID, rate.BaseCurrencyID, rate.QuoteCurrencyID, rate.Rate)
	if err != nil {
		return fmt.Errorf("upsert exchange rate: %w", err)
	}
	return nil
}

// Get returns the configured directional rate, or nil, nil when the edge does
// not exist. The reverse direction is a separate edge.
func (r *RateRepo) Get(ctx context.Context, groupID, baseCurrencyID, quoteCurrencyID uuid.UUID) (*domain.ExchangeRate, error) {
	query := `SELECT group_id, base_currency_id, quote_currency_id, rate, updated_at
		FROM exchange_rates
		WHERE group_id = $1 AND base_currency_id = $2 AND quote_currency_id = $3`

	e := &domain.ExchangeRate{}
	err := r.pool.QueryRow(ctx, query, groupID, baseCurrencyID, quoteCurrencyID).Scan(
		&e.GroupID, &e.BaseCurrencyID, &e.QuoteCurrencyID, &e.Rate, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get exchange rate: %w", err)
	}
	return e, nil
}
