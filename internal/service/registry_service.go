package service

import (
	"context"
	"fmt"
	"time"

	"guildmint/internal/core/domain"
	"guildmint/internal/core/ports"
	"guildmint/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RegistryServiceImpl implements ports.RegistryService. It exclusively owns
// currency and exchange-rate creation and the primary flag.
type RegistryServiceImpl struct {
	groupRepo    ports.GroupRepository
	currencyRepo ports.CurrencyRepository
	rateRepo     ports.RateRepository
	transactor   ports.DBTransactor
	log          zerolog.Logger
}

// NewRegistryService creates a new RegistryServiceImpl.
func NewRegistryService(
	groupRepo ports.GroupRepository,
	currencyRepo ports.CurrencyRepository,
	rateRepo ports.RateRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *RegistryServiceImpl {
	return &RegistryServiceImpl{
		groupRepo:    groupRepo,
		currencyRepo: currencyRepo,
		rateRepo:     rateRepo,
		transactor:   transactor,
		log:          log,
	}
}

// CreateCurrency adds a currency to a group. The group's first currency
// becomes primary automatically; the count and insert share a transaction so
// two concurrent creates cannot both claim the flag.
func (s *RegistryServiceImpl) CreateCurrency(ctx context.Context, groupID uuid.UUID, displayName string) (*domain.Currency, error) {
	if displayName == "" {
		return nil, apperror.Validation("display name is required")
	}

	group, err := s.groupRepo.GetGroup(ctx, groupID)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("load group: %w", err))
	}
	if group == nil {
		return nil, apperror.ErrNotFound("group")
	}

	dup, err := s.currencyRepo.GetByGroupAndName(ctx, groupID, displayName)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("check duplicate: %w", err))
	}
	if dup != nil {
		return nil, apperror.ErrDuplicateCurrency()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	count, err := s.currencyRepo.CountByGroup(ctx, dbTx, groupID)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("count currencies: %w", err))
	}

	currency := &domain.Currency{
		ID:          uuid.New(),
		GroupID:     groupID,
		DisplayName: displayName,
		IsPrimary:   count == 0,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.currencyRepo.Create(ctx, dbTx, currency); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("create currency: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("currency_id", currency.ID.String()).
		Str("group_id", groupID.String()).
		Bool("primary", currency.IsPrimary).
		Msg("currency created")

	return currency, nil
}

// SetPrimaryCurrency moves the primary flag onto another currency of the same
// group.
func (s *RegistryServiceImpl) SetPrimaryCurrency(ctx context.Context, groupID, currencyID uuid.UUID) error {
	currency, err := s.currencyRepo.GetByID(ctx, currencyID)
	if err != nil {
		return apperror.ErrStorageUnavailable(fmt.Errorf("load currency: %w", err))
	}
	if currency == nil {
		return apperror.ErrCurrencyNotFound()
	}
	if currency.GroupID != groupID {
		return apperror.ErrCurrencyGroupMismatch()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.ErrStorageUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.currencyRepo.SetPrimary(ctx, dbTx, groupID, currencyID); err != nil {
		return apperror.ErrStorageUnavailable(fmt.Errorf("set primary: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.ErrStorageUnavailable(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// SetExchangeRate creates or replaces one directional conversion edge between
// two currencies of the group.
func (s *RegistryServiceImpl) SetExchangeRate(ctx context.Context, groupID, baseCurrencyID, quoteCurrencyID uuid.UUID, rate float64) error {
	if rate <= 0 {
		return apperror.ErrInvalidRate()
	}
	if baseCurrencyID == quoteCurrencyID {
		return apperror.Validation("base and quote currency must differ")
	}

	for _, id := range []uuid.UUID{baseCurrencyID, quoteCurrencyID} {
		c, err := s.currencyRepo.GetByID(ctx, id)
		if err != nil {
			return apperror.ErrStorageUnavailable(fmt.Errorf("load currency: %w", err))
		}
		if c == nil {
			return apperror.ErrCurrencyNotFound()
		}
		if c.GroupID != groupID {
			return apperror.ErrCurrencyGroupMismatch()
		}
	}

	err := s.rateRepo.Upsert(ctx, &domain.ExchangeRate{
		GroupID:         groupID,
		BaseCurrencyID:  baseCurrencyID,
		QuoteCurrencyID: quoteCurrencyID,
		Rate:            rate,
	})
	if err != nil {
		return apperror.ErrStorageUnavailable(fmt.Errorf("upsert rate: %w", err))
	}

	s.log.Info().
		Str("group_id", groupID.String()).
		Str("base", baseCurrencyID.String()).
		Str("quote", quoteCurrencyID.String()).
		Float64("rate", rate).
		Msg("exchange rate configured")

	return nil
}
