package postgres

import (
	"context"
	"fmt"

	"guildmint/internal/core/domain"
)

// AuditRepo implements ports.AuditSink against the audit_events table.
type AuditRepo struct {
	pool Pool
}

// NewAuditRepo creates a PostgreSQL-backed audit sink.
func NewAuditRepo(pool Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// WriteBatch persists a batch of audit events inside one transaction, so the
// queue observes the write as all-or-nothing.
func (r *AuditRepo) WriteBatch(ctx context.Context, events []domain.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin audit batch: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `INSERT INTO audit_events (id, kind, actor_account_id, counterpart_account_id, currency_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, e := range events {
		if _, err := tx.Exec(ctx, query,
			e.ID, string(e.Kind), e.ActorAccountID, e.CounterpartAccountID,
			e.CurrencyID, e.Amount, e.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert audit event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit audit batch: %w", err)
	}
	return nil
}
