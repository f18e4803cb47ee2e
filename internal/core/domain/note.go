package domain

import (
	"time"

	"github.com/google/uuid"
)

// BankNote is a single-use, recipient-bound bearer credit. The issuer's wallet
// is debited at issuance, so issued value is out of circulation until redeemed.
// The only mutation a note ever sees is the Consumed flag flipping to true,
// which happens at most once.
type BankNote struct {
	ID                  uuid.UUID  `json:"id"`
	CurrencyID          uuid.UUID  `json:"currency_id"`
	Amount              int64      `json:"amount"`
	RecipientExternalID string     `json:"recipient_external_id"`
	IssuerAccountID     uuid.UUID  `json:"issuer_account_id"`
	Consumed            bool       `json:"consumed"`
	IssuedAt            time.Time  `json:"issued_at"`
	ConsumedAt          *time.Time `json:"consumed_at,omitempty"`
}
