package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"guildmint/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// NoteRepo implements ports.NoteRepository.
type NoteRepo struct {
	pool Pool
}

// NewNoteRepo creates a new NoteRepo.
func NewNoteRepo(pool Pool) *NoteRepo {
	return &NoteRepo{pool: pool}
}

// Create inserts a new bank note within the issuing transaction.
func (r *NoteRepo) Create(ctx context.Context, tx pgx.Tx, n *domain.BankNote) error {
	query := `INSERT INTO bank_notes (id, currency_id, amount, recipient_external_id, issuer_account_id, consumed, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		n.ID, n.CurrencyID, n.Amount, n.RecipientExternalID,
		n.IssuerAccountID, n.Consumed, n.IssuedAt,
	)
	if err != nil {
		return fmt.Errorf("insert bank note: %w", err)
	}
	return nil
}

// GetByID fetches a bank note (non-locking read).
func (r *NoteRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.BankNote, error) {
	query := `SELECT id, currency_id, amount, recipient_external_id, issuer_account_id, consumed, issued_at, consumed_at
		FROM bank_notes WHERE id = $1`

	n := &domain.BankNote{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&n.ID, &n.CurrencyID, &n.Amount, &n.RecipientExternalID,
		&n.IssuerAccountID, &n.Consumed, &n.IssuedAt, &n.ConsumedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get bank note by id: %w", err)
	}
	return n, nil
}

// Consume flips the consumed flag with a compare-and-set: the WHERE clause
// only matches an unconsumed row, so of two concurrent redemptions exactly one
// sees RowsAffected == 1. Runs inside the crediting transaction.
func (r *NoteRepo) Consume(ctx context.Context, tx pgx.Tx, id uuid.UUID, consumedAt time.Time) (bool, error) {
	query := `UPDATE bank_notes SET consumed = TRUE, consumed_at = $2
		WHERE id = $1 AND consumed = FALSE`

	tag, err := tx.Exec(ctx, query, id, consumedAt)
	if err != nil {
		return false, fmt.Errorf("consume bank note: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
