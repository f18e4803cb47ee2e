package service

import (
	"bytes"
	"context"
	"fmt"
	"math"

	"guildmint/internal/core/domain"
	"guildmint/internal/core/ports"
	"guildmint/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Convert applies a directional rate, truncating toward zero. The fractional
// remainder is burned: crediting it would require fractional balances, and the
// ledger only holds whole units.
func Convert(amount int64, rate float64) int64 {
	return int64(math.Floor(float64(amount) * rate))
}

// LedgerServiceImpl implements ports.LedgerService. All wallet mutation in the
// system goes through here (bank note balance effects included, via the same
// repository contracts).
type LedgerServiceImpl struct {
	accountRepo  ports.AccountRepository
	currencyRepo ports.CurrencyRepository
	walletRepo   ports.WalletRepository
	rates        ports.ExchangeEngine
	transactor   ports.DBTransactor
	audit        ports.AuditRecorder
	log          zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	accountRepo ports.AccountRepository,
	currencyRepo ports.CurrencyRepository,
	walletRepo ports.WalletRepository,
	rates ports.ExchangeEngine,
	transactor ports.DBTransactor,
	audit ports.AuditRecorder,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		accountRepo:  accountRepo,
		currencyRepo: currencyRepo,
		walletRepo:   walletRepo,
		rates:        rates,
		transactor:   transactor,
		audit:        audit,
		log:          log,
	}
}

// Mint creates value in an account's wallet. Account and wallet are created
// lazily inside the same transaction as the credit.
func (s *LedgerServiceImpl) Mint(ctx context.Context, externalID string, currencyID uuid.UUID, amount int64) (*domain.Wallet, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if err := s.requireCurrency(ctx, currencyID); err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.accountRepo.ResolveTx(ctx, dbTx, externalID)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("resolve account: %w", err))
	}

	if err := s.walletRepo.UpsertAdd(ctx, dbTx, account.ID, currencyID, amount); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("credit wallet: %w", err))
	}

	wallet, err := s.walletRepo.GetForUpdate(ctx, dbTx, account.ID, currencyID)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("read wallet: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("commit tx: %w", err))
	}

	s.audit.Enqueue(domain.AuditEvent{
		Kind:           domain.AuditKindMint,
		ActorAccountID: account.ID,
		CurrencyID:     currencyID,
		Amount:         amount,
	})

	s.log.Info().
		Str("account_id", account.ID.String()).
		Str("currency_id", currencyID.String()).
		Int64("amount", amount).
		Msg("minted")

	return wallet, nil
}

// Burn removes value from an account's wallet, the administrative inverse of
// Mint. Fails with InsufficientBalance rather than going negative.
func (s *LedgerServiceImpl) Burn(ctx context.Context, externalID string, currencyID uuid.UUID, amount int64) (*domain.Wallet, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if err := s.requireCurrency(ctx, currencyID); err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.accountRepo.ResolveTx(ctx, dbTx, externalID)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("resolve account: %w", err))
	}

	wallet, err := s.walletRepo.GetForUpdate(ctx, dbTx, account.ID, currencyID)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil || wallet.Balance < amount {
		return nil, apperror.ErrInsufficientBalance()
	}

	wallet.Balance -= amount
	if err := s.walletRepo.SetBalance(ctx, dbTx, wallet.ID, wallet.Balance); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("debit wallet: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("commit tx: %w", err))
	}

	s.audit.Enqueue(domain.AuditEvent{
		Kind:           domain.AuditKindBurn,
		ActorAccountID: account.ID,
		CurrencyID:     currencyID,
		Amount:         amount,
	})

	return wallet, nil
}

// Transfer moves value between two accounts. Debit and credit commit together
// or not at all.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) error {
	if req.Amount <= 0 {
		return apperror.ErrInvalidAmount()
	}
	if req.FromExternalID == req.ToExternalID {
		return apperror.ErrSelfTransfer()
	}
	if err := s.requireCurrency(ctx, req.CurrencyID); err != nil {
		return err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.ErrStorageUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	from, err := s.accountRepo.ResolveTx(ctx, dbTx, req.FromExternalID)
	if err != nil {
		return apperror.ErrStorageUnavailable(fmt.Errorf("resolve sender: %w", err))
	}
	to, err := s.accountRepo.ResolveTx(ctx, dbTx, req.ToExternalID)
	if err != nil {
		return apperror.ErrStorageUnavailable(fmt.Errorf("resolve receiver: %w", err))
	}

	sender, err := s.lockPairOrdered(ctx, dbTx, from.ID, to.ID, req.CurrencyID)
	if err != nil {
		return err
	}
	if sender == nil || sender.Balance < req.Amount {
		return apperror.ErrInsufficientBalance()
	}

	if err := s.walletRepo.SetBalance(ctx, dbTx, sender.ID, sender.Balance-req.Amount); err != nil {
		return apperror.ErrStorageUnavailable(fmt.Errorf("debit sender: %w", err))
	}
	if err := s.walletRepo.UpsertAdd(ctx, dbTx, to.ID, req.CurrencyID, req.Amount); err != nil {
		return apperror.ErrStorageUnavailable(fmt.Errorf("credit receiver: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.ErrStorageUnavailable(fmt.Errorf("commit tx: %w", err))
	}

	s.audit.Enqueue(domain.AuditEvent{
		Kind:                 domain.AuditKindTransfer,
		ActorAccountID:       from.ID,
		CounterpartAccountID: &to.ID,
		CurrencyID:           req.CurrencyID,
		Amount:               req.Amount,
	})

	s.log.Info().
		Str("from", from.ID.String()).
		Str("to", to.ID.String()).
		Int64("amount", req.Amount).
		Msg("transfer committed")

	return nil
}

// Exchange converts a balance between two currencies of the same group using
// the configured directional rate. The destination credit is
// floor(amount * rate); the remainder is burned.
func (s *LedgerServiceImpl) Exchange(ctx context.Context, req ports.ExchangeRequest) (*ports.ExchangeResult, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	for _, id := range []uuid.UUID{req.FromCurrencyID, req.ToCurrencyID} {
		c, err := s.currencyRepo.GetByID(ctx, id)
		if err != nil {
			return nil, apperror.ErrStorageUnavailable(fmt.Errorf("load currency: %w", err))
		}
		if c == nil {
			return nil, apperror.ErrCurrencyNotFound()
		}
		if c.GroupID != req.GroupID {
			return nil, apperror.ErrCurrencyGroupMismatch()
		}
	}

	rate, err := s.rates.RateFor(ctx, req.GroupID, req.FromCurrencyID, req.ToCurrencyID)
	if err != nil {
		return nil, err
	}
	credited := Convert(req.Amount, rate)

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	account, err := s.accountRepo.ResolveTx(ctx, dbTx, req.ExternalID)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("resolve account: %w", err))
	}

	source, err := s.walletRepo.GetForUpdate(ctx, dbTx, account.ID, req.FromCurrencyID)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("lock source wallet: %w", err))
	}
	if source == nil || source.Balance < req.Amount {
		return nil, apperror.ErrInsufficientBalance()
	}

	if err := s.walletRepo.SetBalance(ctx, dbTx, source.ID, source.Balance-req.Amount); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("debit source: %w", err))
	}
	if credited > 0 {
		if err := s.walletRepo.UpsertAdd(ctx, dbTx, account.ID, req.ToCurrencyID, credited); err != nil {
			return nil, apperror.ErrStorageUnavailable(fmt.Errorf("credit destination: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("commit tx: %w", err))
	}

	s.audit.Enqueue(domain.AuditEvent{
		Kind:           domain.AuditKindExchange,
		ActorAccountID: account.ID,
		CurrencyID:     req.FromCurrencyID,
		Amount:         req.Amount,
	})

	s.log.Info().
		Str("account_id", account.ID.String()).
		Int64("debited", req.Amount).
		Int64("credited", credited).
		Float64("rate", rate).
		Msg("exchange committed")

	return &ports.ExchangeResult{Debited: req.Amount, Credited: credited, Rate: rate}, nil
}

// BalanceOf returns the account's committed balance per currency. Unknown
// accounts hold nothing.
func (s *LedgerServiceImpl) BalanceOf(ctx context.Context, externalID string) (map[uuid.UUID]int64, error) {
	account, err := s.accountRepo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("load account: %w", err))
	}
	balances := make(map[uuid.UUID]int64)
	if account == nil {
		return balances, nil
	}

	wallets, err := s.walletRepo.ListByAccount(ctx, account.ID)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("list wallets: %w", err))
	}
	for _, w := range wallets {
		balances[w.CurrencyID] = w.Balance
	}
	return balances, nil
}

func (s *LedgerServiceImpl) requireCurrency(ctx context.Context, currencyID uuid.UUID) error {
	c, err := s.currencyRepo.GetByID(ctx, currencyID)
	if err != nil {
		return apperror.ErrStorageUnavailable(fmt.Errorf("load currency: %w", err))
	}
	if c == nil {
		return apperror.ErrCurrencyNotFound()
	}
	return nil
}

// lockPairOrdered locks the sender and receiver wallet rows in a canonical
// account-id order, so two opposite-direction transfers between the same pair
// cannot deadlock. Returns the sender's wallet (nil when absent).
func (s *LedgerServiceImpl) lockPairOrdered(ctx context.Context, dbTx pgx.Tx, fromID, toID uuid.UUID, currencyID uuid.UUID) (*domain.Wallet, error) {
	first, second := fromID, toID
	if bytes.Compare(toID[:], fromID[:]) < 0 {
		first, second = toID, fromID
	}

	var sender *domain.Wallet
	for _, id := range []uuid.UUID{first, second} {
		w, err := s.walletRepo.GetForUpdate(ctx, dbTx, id, currencyID)
		if err != nil {
			return nil, apperror.ErrStorageUnavailable(fmt.Errorf("lock wallet: %w", err))
		}
		if id == fromID {
			sender = w
		}
	}
	return sender, nil
}
