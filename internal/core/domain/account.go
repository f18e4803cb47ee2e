package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account is the internal identity bound 1:1 to an external platform user.
// Accounts are created lazily on first economic interaction and hold no
// balance themselves; balances live in per-currency wallets.
type Account struct {
	ID         uuid.UUID `json:"id"`
	ExternalID string    `json:"external_id"`
	CreatedAt  time.Time `json:"created_at"`
}
