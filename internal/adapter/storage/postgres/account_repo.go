package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"guildmint/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is the common surface of Pool and pgx.Tx the repos run SQL through.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Resolve upserts the account for an external id and returns it.
func (r *AccountRepo) Resolve(ctx context.Context, externalID string) (*domain.Account, error) {
	return resolveAccount(ctx, r.pool, externalID)
}

// ResolveTx upserts the account within an open transaction, so lazy creation
// shares the atomic boundary of the balance change that triggered it.
func (r *AccountRepo) ResolveTx(ctx context.Context, tx pgx.Tx, externalID string) (*domain.Account, error) {
	return resolveAccount(ctx, tx, externalID)
}

func resolveAccount(ctx context.Context, q querier, externalID string) (*domain.Account, error) {
	// DO NOTHING keeps the insert race-free: the loser of a concurrent insert
	// falls through to the select and sees the winner's row.
	insert := `INSERT INTO accounts (id, external_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (external_id) DO NOTHING`

	if _, err := q.Exec(ctx, insert, uuid.New(), externalID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("upsert account: %w", err)
	}

	query := `SELECT id, external_id, created_at FROM accounts WHERE external_id = $1`

	a := &domain.Account{}
	if err := q.QueryRow(ctx, query, externalID).Scan(&a.ID, &a.ExternalID, &a.CreatedAt); err != nil {
		return nil, fmt.Errorf("select resolved account: %w", err)
	}
	return a, nil
}

// GetByID fetches an account by its UUID.
func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT id, external_id, created_at FROM accounts WHERE id = $1`

	a := &domain.Account{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&a.ID, &a.ExternalID, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by id: %w", err)
	}
	return a, nil
}

// GetByExternalID fetches an account by its external platform id, without
// creating one.
func (r *AccountRepo) GetByExternalID(ctx context.Context, externalID string) (*domain.Account, error) {
	query := `SELECT id, external_id, created_at FROM accounts WHERE external_id = $1`

	a := &domain.Account{}
	err := r.pool.QueryRow(ctx, query, externalID).Scan(&a.ID, &a.ExternalID, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by external id: %w", err)
	}
	return a, nil
}
