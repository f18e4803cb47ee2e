package domain

import (
	"time"

	"github.com/google/uuid"
)

// Currency belongs to exactly one group. Immutable after creation except the
// primary flag, which may move between currencies of the same group.
type Currency struct {
	ID          uuid.UUID `json:"id"`
	GroupID     uuid.UUID `json:"group_id"`
	DisplayName string    `json:"display_name"`
	IsPrimary   bool      `json:"is_primary"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExchangeRate is a directional conversion edge between two currencies of the
// same group: one unit of the base currency yields Rate units of the quote
// currency. The reverse direction is never inferred.
type ExchangeRate struct {
	GroupID         uuid.UUID `json:"group_id"`
	BaseCurrencyID  uuid.UUID `json:"base_currency_id"`
	QuoteCurrencyID uuid.UUID `json:"quote_currency_id"`
	Rate            float64   `json:"rate"`
	UpdatedAt       time.Time `json:"updated_at"`
}
