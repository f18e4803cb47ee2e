package ports

import (
	"context"
	"time"

	"guildmint/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepository defines persistence operations for accounts.
// Resolve methods upsert: the account is created on first use, inside the same
// atomic boundary as the balance change when the Tx variant is used.
type AccountRepository interface {
	Resolve(ctx context.Context, externalID string) (*domain.Account, error)
	ResolveTx(ctx context.Context, tx pgx.Tx, externalID string) (*domain.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.Account, error)
}

// GroupRepository defines persistence for groups, guilds and memberships.
type GroupRepository interface {
	CreateGroup(ctx context.Context, tx pgx.Tx, group *domain.Group) error
	GetGroup(ctx context.Context, id uuid.UUID) (*domain.Group, error)
	GetGlobalGroup(ctx context.Context) (*domain.Group, error)
	CreateGuild(ctx context.Context, tx pgx.Tx, guild *domain.Guild) error
	GetGuildByExternalID(ctx context.Context, externalID string) (*domain.Guild, error)
	AddMembership(ctx context.Context, tx pgx.Tx, guildID, groupID uuid.UUID, joinedAt time.Time) error
}

// CurrencyRepository defines persistence operations for currencies.
type CurrencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, currency *domain.Currency) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Currency, error)
	GetByGroupAndName(ctx context.Context, groupID uuid.UUID, displayName string) (*domain.Currency, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]domain.Currency, error)
	CountByGroup(ctx context.Context, tx pgx.Tx, groupID uuid.UUID) (int64, error)
	// SetPrimary clears the previous primary flag and sets it on currencyID,
	// both within the supplied transaction.
	SetPrimary(ctx context.Context, tx pgx.Tx, groupID, currencyID uuid.UUID) error
}

// RateRepository defines persistence for directional exchange rates.
type RateRepository interface {
	Upsert(ctx context.Context, rate *domain.ExchangeRate) error
	// Get returns nil, nil when no rate is configured for the direction.
	Get(ctx context.Context, groupID, baseCurrencyID, quoteCurrencyID uuid.UUID) (*domain.ExchangeRate, error)
}

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx run inside transaction blocks with row locking.
type WalletRepository interface {
	// GetForUpdate locks the wallet row. Returns nil, nil when the wallet does
	// not exist yet (balance zero).
	GetForUpdate(ctx context.Context, tx pgx.Tx, accountID, currencyID uuid.UUID) (*domain.Wallet, error)
	// UpsertAdd creates the wallet with the given delta as balance, or adds
	// the delta to an existing balance. Only called with delta > 0; debits
	// lock first via GetForUpdate.
	UpsertAdd(ctx context.Context, tx pgx.Tx, accountID, currencyID uuid.UUID, delta int64) error
	SetBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance int64) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Wallet, error)
	// ListByGroup returns committed balances for every wallet whose currency
	// belongs to the group, with the owning account's creation time for
	// leaderboard tie-breaking.
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]GroupWallet, error)
}

// GroupWallet is one wallet row in a group-wide balance scan.
type GroupWallet struct {
	AccountID        uuid.UUID
	CurrencyID       uuid.UUID
	Balance          int64
	AccountCreatedAt time.Time
}

// NoteRepository defines persistence operations for bank notes.
type NoteRepository interface {
	Create(ctx context.Context, tx pgx.Tx, note *domain.BankNote) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.BankNote, error)
	// Consume flips the consumed flag if and only if it is still false.
	// Returns false when the note was already consumed (or does not exist).
	// The compare-and-set runs inside the supplied transaction so the flip and
	// the wallet credit commit or revert together.
	Consume(ctx context.Context, tx pgx.Tx, id uuid.UUID, consumedAt time.Time) (bool, error)
}

// AuditSink accepts durable batch writes of audit events. A batch either
// fully succeeds or is reported failed; the queue re-stages failed batches.
type AuditSink interface {
	WriteBatch(ctx context.Context, events []domain.AuditEvent) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
