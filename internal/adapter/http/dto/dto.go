package dto

// MintRequest is the request body for administrative minting.
type MintRequest struct {
	ExternalID string `json:"external_id" binding:"required,max=64,safe_id"`
	CurrencyID string `json:"currency_id" binding:"required,uuid"`
	Amount     int64  `json:"amount" binding:"required,gt=0"`
}

// BurnRequest is the request body for administrative burning.
type BurnRequest struct {
	ExternalID string `json:"external_id" binding:"required,max=64,safe_id"`
	CurrencyID string `json:"currency_id" binding:"required,uuid"`
	Amount     int64  `json:"amount" binding:"required,gt=0"`
}

// TransferRequest is the request body for an account-to-account transfer.
type TransferRequest struct {
	FromExternalID string `json:"from_external_id" binding:"required,max=64,safe_id"`
	ToExternalID   string `json:"to_external_id" binding:"required,max=64,safe_id"`
	CurrencyID     string `json:"currency_id" binding:"required,uuid"`
	Amount         int64  `json:"amount" binding:"required,gt=0"`
}

// ExchangeRequest is the request body for a currency exchange.
type ExchangeRequest struct {
	ExternalID     string `json:"external_id" binding:"required,max=64,safe_id"`
	GroupID        string `json:"group_id" binding:"required,uuid"`
	FromCurrencyID string `json:"from_currency_id" binding:"required,uuid"`
	ToCurrencyID   string `json:"to_currency_id" binding:"required,uuid"`
	Amount         int64  `json:"amount" binding:"required,gt=0"`
}

// IssueNoteRequest is the request body for bank note issuance.
type IssueNoteRequest struct {
	IssuerExternalID    string `json:"issuer_external_id" binding:"required,max=64,safe_id"`
	RecipientExternalID string `json:"recipient_external_id" binding:"required,max=64,safe_id"`
	CurrencyID          string `json:"currency_id" binding:"required,uuid"`
	Amount              int64  `json:"amount" binding:"required,gt=0"`
}

// RedeemNoteRequest is the request body for bank note redemption.
type RedeemNoteRequest struct {
	RedeemerExternalID string `json:"redeemer_external_id" binding:"required,max=64,safe_id"`
	Token              string `json:"token" binding:"required"`
}

// CreateCurrencyRequest is the request body for adding a currency to a group.
type CreateCurrencyRequest struct {
	DisplayName string `json:"display_name" binding:"required,min=1,max=50"`
}

// SetRateRequest is the request body for configuring a directional rate.
type SetRateRequest struct {
	BaseCurrencyID  string  `json:"base_currency_id" binding:"required,uuid"`
	QuoteCurrencyID string  `json:"quote_currency_id" binding:"required,uuid"`
	Rate            float64 `json:"rate" binding:"required,gt=0"`
}

// OnboardGuildRequest is the request body for registering a guild.
type OnboardGuildRequest struct {
	ExternalGuildID string `json:"external_guild_id" binding:"required,max=64,safe_id"`
}

// WalletResponse is the response body for a single wallet.
type WalletResponse struct {
	AccountID  string `json:"account_id"`
	CurrencyID string `json:"currency_id"`
	Balance    int64  `json:"balance"`
}

// BalancesResponse maps currency id to balance for one account.
type BalancesResponse struct {
	ExternalID string           `json:"external_id"`
	Balances   map[string]int64 `json:"balances"`
}

// ExchangeResponse is the response body for a completed exchange.
type ExchangeResponse struct {
	Debited  int64   `json:"debited"`
	Credited int64   `json:"credited"`
	Rate     float64 `json:"rate"`
}

// IssuedNoteResponse is the response body for note issuance.
type IssuedNoteResponse struct {
	NoteID     string `json:"note_id"`
	CurrencyID string `json:"currency_id"`
	Amount     int64  `json:"amount"`
	Token      string `json:"token"`
	IssuedAt   string `json:"issued_at"`
}

// RedeemedNoteResponse is the response body for note redemption.
type RedeemedNoteResponse struct {
	NoteID     string `json:"note_id"`
	CurrencyID string `json:"currency_id"`
	Amount     int64  `json:"amount"`
}

// CurrencyResponse is the response body for a currency.
type CurrencyResponse struct {
	ID          string `json:"id"`
	GroupID     string `json:"group_id"`
	DisplayName string `json:"display_name"`
	IsPrimary   bool   `json:"is_primary"`
}

// LeaderboardEntryResponse is one ranked account.
type LeaderboardEntryResponse struct {
	Rank             int    `json:"rank"`
	AccountID        string `json:"account_id"`
	ConvertedBalance int64  `json:"converted_balance"`
}

// LeaderboardResponse is the response body for a group leaderboard.
type LeaderboardResponse struct {
	TargetCurrencyID string                     `json:"target_currency_id"`
	Entries          []LeaderboardEntryResponse `json:"entries"`
}

// GuildResponse is the response body for guild onboarding.
type GuildResponse struct {
	GuildID         string `json:"guild_id"`
	ExternalGuildID string `json:"external_guild_id"`
	SingleGroupID   string `json:"single_group_id"`
}

// MemberSyncResponse reports how many members were provisioned.
type MemberSyncResponse struct {
	ExternalGuildID string `json:"external_guild_id"`
	MembersSynced   int    `json:"members_synced"`
}
