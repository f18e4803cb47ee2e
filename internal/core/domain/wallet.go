package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet holds one account's balance in one currency, in whole units.
// Balance is never negative; a missing wallet row means balance zero.
type Wallet struct {
	ID         uuid.UUID `json:"id"`
	AccountID  uuid.UUID `json:"account_id"`
	CurrencyID uuid.UUID `json:"currency_id"`
	Balance    int64     `json:"balance"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
