package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"guildmint/internal/core/domain"
	"guildmint/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// GetForUpdate fetches a wallet with a pessimistic row lock. Returns nil, nil
// when no wallet row exists yet (balance zero). MUST be called within a
// transaction.
func (r *WalletRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, accountID, currencyID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT id, account_id, currency_id, balance, created_at, updated_at
		FROM wallets WHERE account_id = $1 AND currency_id = $2 FOR UPDATE`

	w := &domain.Wallet{}
	err := tx.QueryRow(ctx, query, accountID, currencyID).Scan(
		&w.ID, &w.AccountID, &w.CurrencyID, &w.Balance, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet for update: %w", err)
	}
	return w, nil
}

// UpsertAdd creates the wallet with delta as its balance, or adds delta to an
// existing balance. The upsert shares the caller's transaction so lazy wallet
// creation and the credit commit together.
func (r *WalletRepo) UpsertAdd(ctx context.Context, tx pgx.Tx, accountID, currencyID uuid.UUID, delta int64) error {
	query := `INSERT INTO wallets (id, account_id, currency_id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (account_id, currency_id)
		DO UPDATE SET balance = wallets.balance + EXCLUDED.balance, updated_at = EXCLUDED.updated_at`

	if _, err := tx.Exec(ctx, query, uuid.New(), accountID, currencyID, delta, time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert wallet balance: %w", err)
	}
	return nil
}

// SetBalance writes an absolute balance within a transaction.
func (r *WalletRepo) SetBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance int64) error {
	query := `UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, balance, walletID)
	if err != nil {
		return fmt.Errorf("set wallet balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	return nil
}

// ListByAccount returns all wallets of one account (non-locking read).
func (r *WalletRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Wallet, error) {
	query := `SELECT id, account_id, currency_id, balance, created_at, updated_at
		FROM wallets WHERE account_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("list wallets by account: %w", err)
	}
	defer rows.Close()

	var wallets []domain.Wallet
	for rows.Next() {
		var w domain.Wallet
		if err := rows.Scan(&w.ID, &w.AccountID, &w.CurrencyID, &w.Balance, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

// ListByGroup returns committed balances for every wallet whose currency
// belongs to the group, joined with the account creation time used for
// leaderboard tie-breaking.
func (r *WalletRepo) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]ports.GroupWallet, error) {
	query := `SELECT w.account_id, w.currency_id, w.balance, a.created_at
		FROM wallets w
		JOIN currencies c ON c.id = w.currency_id
		JOIN accounts a ON a.id = w.account_id
		WHERE c.group_id = $1`

	rows, err := r.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("list wallets by group: %w", err)
	}
	defer rows.Close()

	var out []ports.GroupWallet
	for rows.Next() {
		var gw ports.GroupWallet
		if err := rows.Scan(&gw.AccountID, &gw.CurrencyID, &gw.Balance, &gw.AccountCreatedAt); err != nil {
			return nil, fmt.Errorf("scan group wallet: %w", err)
		}
		out = append(out, gw)
	}
	return out, rows.Err()
}
