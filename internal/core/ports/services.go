package ports

import (
	"context"
	"time"

	"guildmint/internal/core/domain"

	"github.com/google/uuid"
)

// LedgerService owns all wallet mutation. Each operation is all-or-nothing:
// a failure partway through leaves every wallet exactly as before the call.
type LedgerService interface {
	Mint(ctx context.Context, externalID string, currencyID uuid.UUID, amount int64) (*domain.Wallet, error)
	Burn(ctx context.Context, externalID string, currencyID uuid.UUID, amount int64) (*domain.Wallet, error)
	Transfer(ctx context.Context, req TransferRequest) error
	Exchange(ctx context.Context, req ExchangeRequest) (*ExchangeResult, error)
	// BalanceOf returns the account's committed balance per currency.
	BalanceOf(ctx context.Context, externalID string) (map[uuid.UUID]int64, error)
}

// TransferRequest holds validated input for a transfer.
type TransferRequest struct {
	FromExternalID string
	ToExternalID   string
	CurrencyID     uuid.UUID
	Amount         int64
}

// ExchangeRequest holds validated input for a currency exchange.
type ExchangeRequest struct {
	ExternalID     string
	GroupID        uuid.UUID
	FromCurrencyID uuid.UUID
	ToCurrencyID   uuid.UUID
	Amount         int64
}

// ExchangeResult reports the applied conversion. Credited is
// floor(Amount * Rate); the fractional remainder is burned.
type ExchangeResult struct {
	Debited  int64
	Credited int64
	Rate     float64
}

// ExchangeEngine resolves admin-configured directional rates. There is no
// path-finding across hops and no reciprocal inference.
type ExchangeEngine interface {
	RateFor(ctx context.Context, groupID, baseCurrencyID, quoteCurrencyID uuid.UUID) (float64, error)
}

// NoteService issues and redeems signed single-use bank notes.
type NoteService interface {
	Issue(ctx context.Context, req IssueNoteRequest) (*IssuedNote, error)
	Redeem(ctx context.Context, redeemerExternalID, token string) (*RedeemedNote, error)
}

// IssueNoteRequest holds validated input for note issuance.
type IssueNoteRequest struct {
	IssuerExternalID    string
	RecipientExternalID string
	CurrencyID          uuid.UUID
	Amount              int64
}

// IssuedNote is the issuance result: the persisted note plus its bearer token.
type IssuedNote struct {
	Note  *domain.BankNote
	Token string
}

// RedeemedNote reports a successful redemption.
type RedeemedNote struct {
	NoteID     uuid.UUID
	CurrencyID uuid.UUID
	Amount     int64
}

// LeaderboardService ranks accounts by group holdings converted into a target
// currency. Read-only; reads committed balances at call time.
type LeaderboardService interface {
	Top(ctx context.Context, groupID, targetCurrencyID uuid.UUID, limit int) (*Leaderboard, error)
}

// Leaderboard is the aggregation output for the caller to format.
type Leaderboard struct {
	TargetCurrency *domain.Currency
	Entries        []LeaderboardEntry
}

// LeaderboardEntry is one ranked account.
type LeaderboardEntry struct {
	AccountID        uuid.UUID
	ConvertedBalance int64
}

// IdentityService maps external platform identifiers to internal identities,
// creating them lazily.
type IdentityService interface {
	ResolveAccount(ctx context.Context, externalID string) (*domain.Account, error)
	OnboardGuild(ctx context.Context, externalGuildID string) (*domain.Guild, error)
	// SyncGuildMembers pre-provisions accounts for every member of the guild by
	// paging through the platform directory. Returns the number of members seen.
	SyncGuildMembers(ctx context.Context, externalGuildID string) (int, error)
}

// RegistryService owns currency and exchange-rate administration.
type RegistryService interface {
	CreateCurrency(ctx context.Context, groupID uuid.UUID, displayName string) (*domain.Currency, error)
	SetPrimaryCurrency(ctx context.Context, groupID, currencyID uuid.UUID) error
	SetExchangeRate(ctx context.Context, groupID, baseCurrencyID, quoteCurrencyID uuid.UUID, rate float64) error
}

// NoteTokenService signs and verifies bank note bearer tokens.
type NoteTokenService interface {
	Sign(note *domain.BankNote) (string, error)
	Verify(token string) (*NoteClaims, error)
}

// NoteClaims is the payload carried by a bank note token.
type NoteClaims struct {
	NoteID              uuid.UUID
	CurrencyID          uuid.UUID
	Amount              int64
	RecipientExternalID string
}

// AuditRecorder is the producer side of the audit queue. Enqueue never blocks
// beyond a buffer append and never rejects.
type AuditRecorder interface {
	Enqueue(event domain.AuditEvent)
}

// NoteLock is the fast-path redemption guard: a best-effort, TTL-bounded
// exclusive claim on a note id. The database compare-and-set remains the
// authoritative guard; lock errors degrade to the slow path.
type NoteLock interface {
	Acquire(ctx context.Context, noteID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, noteID string) error
}

// ChatPlatform is the platform-integration layer the core calls out to.
type ChatPlatform interface {
	// ListGuildMembers returns one page of member external ids. An empty page
	// terminates iteration.
	ListGuildMembers(ctx context.Context, externalGuildID string, page, pageSize int) ([]string, error)
	// SendAlert delivers an operator-visible alert message.
	SendAlert(ctx context.Context, message string) error
}

// HashService handles keyed credential hashing (argon2id).
type HashService interface {
	Hash(secret string) (string, error)
	Verify(secret string, hash string) (bool, error)
}
