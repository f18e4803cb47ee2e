package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"guildmint/internal/core/domain"
	"guildmint/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Account Repo ---

type inMemoryAccountRepo struct {
	mu         sync.RWMutex
	byExternal map[string]*domain.Account
	byID       map[uuid.UUID]*domain.Account
}

func newInMemoryAccountRepo() *inMemoryAccountRepo {
	return &inMemoryAccountRepo{
		byExternal: make(map[string]*domain.Account),
		byID:       make(map[uuid.UUID]*domain.Account),
	}
}

func (r *inMemoryAccountRepo) Resolve(ctx context.Context, externalID string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.byExternal[externalID]; ok {
		return a, nil
	}
	a := &domain.Account{ID: uuid.New(), ExternalID: externalID, CreatedAt: time.Now().UTC()}
	r.byExternal[externalID] = a
	r.byID[a.ID] = a
	return a, nil
}

func (r *inMemoryAccountRepo) ResolveTx(ctx context.Context, tx pgx.Tx, externalID string) (*domain.Account, error) {
	return r.Resolve(ctx, externalID)
}

func (r *inMemoryAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return a, nil
}

func (r *inMemoryAccountRepo) GetByExternalID(ctx context.Context, externalID string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byExternal[externalID]
	if !ok {
		return nil, nil
	}
	return a, nil
}

// --- In-Memory Group Repo ---

type inMemoryGroupRepo struct {
	mu          sync.RWMutex
	groups      map[uuid.UUID]*domain.Group
	guilds      map[string]*domain.Guild
	memberships []domain.GuildMembership
}

func newInMemoryGroupRepo() *inMemoryGroupRepo {
	return &inMemoryGroupRepo{
		groups: make(map[uuid.UUID]*domain.Group),
		guilds: make(map[string]*domain.Guild),
	}
}

func (r *inMemoryGroupRepo) CreateGroup(ctx context.Context, tx pgx.Tx, group *domain.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[group.ID] = group
	return nil
}

func (r *inMemoryGroupRepo) GetGroup(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.groups[id]
	if !ok {
		return nil, nil
	}
	return g, nil
}

func (r *inMemoryGroupRepo) GetGlobalGroup(ctx context.Context) (*domain.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, g := range r.groups {
		if g.Kind == domain.GroupKindGlobal {
			return g, nil
		}
	}
	return nil, nil
}

func (r *inMemoryGroupRepo) CreateGuild(ctx context.Context, tx pgx.Tx, guild *domain.Guild) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.guilds[guild.ExternalID]; ok {
		return fmt.Errorf("guild already exists")
	}
	r.guilds[guild.ExternalID] = guild
	return nil
}

func (r *inMemoryGroupRepo) GetGuildByExternalID(ctx context.Context, externalID string) (*domain.Guild, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.guilds[externalID]
	if !ok {
		return nil, nil
	}
	return g, nil
}

func (r *inMemoryGroupRepo) AddMembership(ctx context.Context, tx pgx.Tx, guildID, groupID uuid.UUID, joinedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memberships = append(r.memberships, domain.GuildMembership{GuildID: guildID, GroupID: groupID, JoinedAt: joinedAt})
	return nil
}

// --- In-Memory Currency Repo ---

type inMemoryCurrencyRepo struct {
	mu         sync.RWMutex
	currencies map[uuid.UUID]*domain.Currency
}

func newInMemoryCurrencyRepo() *inMemoryCurrencyRepo {
	return &inMemoryCurrencyRepo{currencies: make(map[uuid.UUID]*domain.Currency)}
}

func (r *inMemoryCurrencyRepo) Create(ctx context.Context, tx pgx.Tx, currency *domain.Currency) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currencies[currency.ID] = currency
	return nil
}

func (r *inMemoryCurrencyRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Currency, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.currencies[id]
	if !ok {
		return nil, nil
	}
	return c, nil
}

func (r *inMemoryCurrencyRepo) GetByGroupAndName(ctx context.Context, groupID uuid.UUID, displayName string) (*domain.Currency, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.currencies {
		if c.GroupID == groupID && c.DisplayName == displayName {
			return c, nil
		}
	}
	return nil, nil
}

func (r *inMemoryCurrencyRepo) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]domain.Currency, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Currency
	for _, c := range r.currencies {
		if c.GroupID == groupID {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (r *inMemoryCurrencyRepo) CountByGroup(ctx context.Context, tx pgx.Tx, groupID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, c := range r.currencies {
		if c.GroupID == groupID {
			n++
		}
	}
	return n, nil
}

func (r *inMemoryCurrencyRepo) SetPrimary(ctx context.Context, tx pgx.Tx, groupID, currencyID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.currencies {
		if c.GroupID == groupID {
			c.IsPrimary = c.ID == currencyID
		}
	}
	return nil
}

// --- In-Memory Rate Repo ---

type rateKey struct {
	group, base, quote uuid.UUID
}

type inMemoryRateRepo struct {
	mu    sync.RWMutex
	rates map[rateKey]*domain.ExchangeRate
}

func newInMemoryRateRepo() *inMemoryRateRepo {
	return &inMemoryRateRepo{rates: make(map[rateKey]*domain.ExchangeRate)}
}

func (r *inMemoryRateRepo) Upsert(ctx context.Context, rate *domain.ExchangeRate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rates[rateKey{rate.GroupID, rate.BaseCurrencyID, rate.QuoteCurrencyID}] = rate
	return nil
}

func (r *inMemoryRateRepo) Get(ctx context.Context, groupID, baseCurrencyID, quoteCurrencyID uuid.UUID) (*domain.ExchangeRate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rate, ok := r.rates[rateKey{groupID, baseCurrencyID, quoteCurrencyID}]
	if !ok {
		return nil, nil
	}
	return rate, nil
}

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu         sync.RWMutex
	wallets    map[uuid.UUID]*domain.Wallet
	accounts   *inMemoryAccountRepo
	currencies *inMemoryCurrencyRepo
}

func newInMemoryWalletRepo(accounts *inMemoryAccountRepo, currencies *inMemoryCurrencyRepo) *inMemoryWalletRepo {
	return &inMemoryWalletRepo{
		wallets:    make(map[uuid.UUID]*domain.Wallet),
		accounts:   accounts,
		currencies: currencies,
	}
}

func (r *inMemoryWalletRepo) find(accountID, currencyID uuid.UUID) *domain.Wallet {
	for _, w := range r.wallets {
		if w.AccountID == accountID && w.CurrencyID == currencyID {
			return w
		}
	}
	return nil
}

func (r *inMemoryWalletRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, accountID, currencyID uuid.UUID) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w := r.find(accountID, currencyID)
	if w == nil {
		return nil, nil
	}
	// Copy: callers mutate the returned struct and persist via SetBalance.
	cp := *w
	return &cp, nil
}

func (r *inMemoryWalletRepo) UpsertAdd(ctx context.Context, tx pgx.Tx, accountID, currencyID uuid.UUID, delta int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w := r.find(accountID, currencyID); w != nil {
		w.Balance += delta
		w.UpdatedAt = time.Now().UTC()
		return nil
	}
	now := time.Now().UTC()
	w := &domain.Wallet{
		ID:         uuid.New(),
		AccountID:  accountID,
		CurrencyID: currencyID,
		Balance:    delta,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.wallets[w.ID] = w
	return nil
}

func (r *inMemoryWalletRepo) SetBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	w.Balance = balance
	w.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *inMemoryWalletRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Wallet
	for _, w := range r.wallets {
		if w.AccountID == accountID {
			result = append(result, *w)
		}
	}
	return result, nil
}

func (r *inMemoryWalletRepo) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]ports.GroupWallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []ports.GroupWallet
	for _, w := range r.wallets {
		c, err := r.currencies.GetByID(ctx, w.CurrencyID)
		if err != nil || c == nil || c.GroupID != groupID {
			continue
		}
		a, err := r.accounts.GetByID(ctx, w.AccountID)
		if err != nil || a == nil {
			continue
		}
		result = append(result, ports.GroupWallet{
			AccountID:        w.AccountID,
			CurrencyID:       w.CurrencyID,
			Balance:          w.Balance,
			AccountCreatedAt: a.CreatedAt,
		})
	}
	return result, nil
}

// --- In-Memory Note Repo ---

type inMemoryNoteRepo struct {
	mu    sync.RWMutex
	notes map[uuid.UUID]*domain.BankNote
}

func newInMemoryNoteRepo() *inMemoryNoteRepo {
	return &inMemoryNoteRepo{notes: make(map[uuid.UUID]*domain.BankNote)}
}

func (r *inMemoryNoteRepo) Create(ctx context.Context, tx pgx.Tx, note *domain.BankNote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes[note.ID] = note
	return nil
}

func (r *inMemoryNoteRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.BankNote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.notes[id]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

// Consume is a true compare-and-set under the repo mutex, matching the
// UPDATE ... WHERE consumed = false semantics of the SQL implementation.
func (r *inMemoryNoteRepo) Consume(ctx context.Context, tx pgx.Tx, id uuid.UUID, consumedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[id]
	if !ok || n.Consumed {
		return false, nil
	}
	n.Consumed = true
	n.ConsumedAt = &consumedAt
	return true, nil
}

// --- In-Memory Audit Sink ---

type inMemoryAuditSink struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func newInMemoryAuditSink() *inMemoryAuditSink {
	return &inMemoryAuditSink{}
}

func (s *inMemoryAuditSink) WriteBatch(ctx context.Context, events []domain.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

func (s *inMemoryAuditSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// --- Serializing Transactor ---

// serialTransactor serializes all transactions behind one mutex, standing in
// for row-level locking so concurrency tests can assert exact balances.
type serialTransactor struct {
	mu sync.Mutex
}

func newSerialTransactor() *serialTransactor {
	return &serialTransactor{}
}

func (t *serialTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	tx := &serialTx{}
	tx.release = func() { t.mu.Unlock() }
	return tx, nil
}

// serialTx is a no-op pgx.Tx that releases the transactor mutex exactly once,
// on whichever of Commit or Rollback runs first.
type serialTx struct {
	once    sync.Once
	release func()
}

func (t *serialTx) done() {
	t.once.Do(t.release)
}

func (t *serialTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *serialTx) Commit(ctx context.Context) error          { t.done(); return nil }
func (t *serialTx) Rollback(ctx context.Context) error        { t.done(); return nil }
func (t *serialTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *serialTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *serialTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *serialTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *serialTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *serialTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *serialTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *serialTx) Conn() *pgx.Conn { return nil }

// --- Stub Chat Platform ---

// stubPlatform serves a fixed member directory and records alerts.
type stubPlatform struct {
	mu      sync.Mutex
	members map[string][]string
	alerts  []string
}

func newStubPlatform() *stubPlatform {
	return &stubPlatform{members: make(map[string][]string)}
}

func (p *stubPlatform) setMembers(externalGuildID string, members []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.members[externalGuildID] = members
}

func (p *stubPlatform) ListGuildMembers(ctx context.Context, externalGuildID string, page, pageSize int) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	all := p.members[externalGuildID]
	start := page * pageSize
	if start >= len(all) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (p *stubPlatform) SendAlert(ctx context.Context, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, message)
	return nil
}
