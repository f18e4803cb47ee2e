package postgres

import (
	"context"
	"errors"
	"fmt"

	"guildmint/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CurrencyRepo implements ports.CurrencyRepository.
type CurrencyRepo struct {
	pool Pool
}

// NewCurrencyRepo creates a new CurrencyRepo.
func NewCurrencyRepo(pool Pool) *CurrencyRepo {
	return &CurrencyRepo{pool: pool}
}

// Create inserts a new currency within the supplied transaction.
func (r *CurrencyRepo) Create(ctx context.Context, tx pgx.Tx, c *domain.Currency) error {
	query := `INSERT INTO currencies (id, group_id, display_name, is_primary, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := tx.Exec(ctx, query, c.ID, c.GroupID, c.DisplayName, c.IsPrimary, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert currency: %w", err)
	}
	return nil
}

// GetByID fetches a currency by its UUID.
func (r *CurrencyRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Currency, error) {
	query := `SELECT id, group_id, display_name, is_primary, created_at
		FROM currencies WHERE id = $1`

	c := &domain.Currency{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.GroupID, &c.DisplayName, &c.IsPrimary, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get currency by id: %w", err)
	}
	return c, nil
}

// GetByGroupAndName fetches a currency by group and display name.
func (r *CurrencyRepo) GetByGroupAndName(ctx context.Context, groupID uuid.UUID, displayName string) (*domain.Currency, error) {
	query := `SELECT id, group_id, display_name, is_primary, created_at
		FROM currencies WHERE group_id = $1 AND display_name = $2`

	c := &domain.Currency{}
	err := r.pool.QueryRow(ctx, query, groupID, displayName).Scan(&c.ID, &c.GroupID, &c.DisplayName, &c.IsPrimary, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get currency by group and name: %w", err)
	}
	return c, nil
}

// ListByGroup returns all currencies of a group, primary first.
func (r *CurrencyRepo) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]domain.Currency, error) {
	query := `SELECT id, group_id, display_name, is_primary, created_at
		FROM currencies WHERE group_id = $1 ORDER BY is_primary DESC, created_at`

	rows, err := r.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("list currencies by group: %w", err)
	}
	defer rows.Close()

	var out []domain.Currency
	for rows.Next() {
		var c domain.Currency
		if err := rows.Scan(&c.ID, &c.GroupID, &c.DisplayName, &c.IsPrimary, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan currency: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountByGroup counts a group's currencies within the supplied transaction,
// so "first currency becomes primary" cannot race with a concurrent create.
func (r *CurrencyRepo) CountByGroup(ctx context.Context, tx pgx.Tx, groupID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM currencies WHERE group_id = $1`

	var n int64
	if err := tx.QueryRow(ctx, query, groupID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count currencies by group: %w", err)
	}
	return n, nil
}

// SetPrimary moves the primary flag onto currencyID. Both updates run in the
// supplied transaction so the group never observes two primaries.
func (r *CurrencyRepo) SetPrimary(ctx context.Context, tx pgx.Tx, groupID, currencyID uuid.UUID) error {
	clear := `UPDATE currencies SET is_primary = FALSE WHERE group_id = $1 AND is_primary = TRUE`
	if _, err := tx.Exec(ctx, clear, groupID); err != nil {
		return fmt.Errorf("clear primary currency: %w", err)
	}

	set := `UPDATE currencies SET is_primary = TRUE WHERE id = $1 AND group_id = $2`
	tag, err := tx.Exec(ctx, set, currencyID, groupID)
	if err != nil {
		return fmt.Errorf("set primary currency: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("currency %s not in group %s", currencyID, groupID)
	}
	return nil
}
