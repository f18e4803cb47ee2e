package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditEventKind identifies the economic action an audit event records.
type AuditEventKind string

const (
	AuditKindMint       AuditEventKind = "MINT"
	AuditKindBurn       AuditEventKind = "BURN"
	AuditKindExchange   AuditEventKind = "EXCHANGE"
	AuditKindTransfer   AuditEventKind = "TRANSFER"
	AuditKindNoteIssue  AuditEventKind = "NOTE_ISSUE"
	AuditKindNoteRedeem AuditEventKind = "NOTE_REDEEM"
)

// AuditEvent is an immutable record of one economic action. Events are staged
// in memory by the audit queue and flushed to durable storage in batches;
// the core never mutates or deletes them after creation.
type AuditEvent struct {
	ID                   uuid.UUID      `json:"id"`
	Kind                 AuditEventKind `json:"kind"`
	ActorAccountID       uuid.UUID      `json:"actor_account_id"`
	CounterpartAccountID *uuid.UUID     `json:"counterpart_account_id,omitempty"`
	CurrencyID           uuid.UUID      `json:"currency_id"`
	Amount               int64          `json:"amount"`
	CreatedAt            time.Time      `json:"created_at"`
}
