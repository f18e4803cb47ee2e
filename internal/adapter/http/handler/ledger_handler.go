package handler

import (
	"guildmint/internal/adapter/http/dto"
	"guildmint/internal/core/ports"
	"guildmint/pkg/apperror"
	"guildmint/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LedgerHandler handles wallet mutation and balance endpoints.
type LedgerHandler struct {
	ledgerSvc ports.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerSvc ports.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerSvc: ledgerSvc}
}

// Mint handles POST /api/v1/ledger/mint (admin).
func (h *LedgerHandler) Mint(c *gin.Context) {
	var req dto.MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	currencyID, err := uuid.Parse(req.CurrencyID)
	if err != nil {
		response.Error(c, apperror.Validation("currency_id must be a UUID"))
		return
	}

	wallet, err := h.ledgerSvc.Mint(c.Request.Context(), req.ExternalID, currencyID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.WalletResponse{
		AccountID:  wallet.AccountID.String(),
		CurrencyID: wallet.CurrencyID.String(),
		Balance:    wallet.Balance,
	})
}

// Burn handles POST /api/v1/ledger/burn (admin).
func (h *LedgerHandler) Burn(c *gin.Context) {
	var req dto.BurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	currencyID, err := uuid.Parse(req.CurrencyID)
	if err != nil {
		response.Error(c, apperror.Validation("currency_id must be a UUID"))
		return
	}

	wallet, err := h.ledgerSvc.Burn(c.Request.Context(), req.ExternalID, currencyID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.WalletResponse{
		AccountID:  wallet.AccountID.String(),
		CurrencyID: wallet.CurrencyID.String(),
		Balance:    wallet.Balance,
	})
}

// Transfer handles POST /api/v1/ledger/transfer.
func (h *LedgerHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	currencyID, err := uuid.Parse(req.CurrencyID)
	if err != nil {
		response.Error(c, apperror.Validation("currency_id must be a UUID"))
		return
	}

	err = h.ledgerSvc.Transfer(c.Request.Context(), ports.TransferRequest{
		FromExternalID: req.FromExternalID,
		ToExternalID:   req.ToExternalID,
		CurrencyID:     currencyID,
		Amount:         req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"transferred": req.Amount})
}

// Exchange handles POST /api/v1/ledger/exchange.
func (h *LedgerHandler) Exchange(c *gin.Context) {
	var req dto.ExchangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	groupID, err := uuid.Parse(req.GroupID)
	if err != nil {
		response.Error(c, apperror.Validation("group_id must be a UUID"))
		return
	}
	fromCur, err := uuid.Parse(req.FromCurrencyID)
	if err != nil {
		response.Error(c, apperror.Validation("from_currency_id must be a UUID"))
		return
	}
	toCur, err := uuid.Parse(req.ToCurrencyID)
	if err != nil {
		response.Error(c, apperror.Validation("to_currency_id must be a UUID"))
		return
	}

	result, err := h.ledgerSvc.Exchange(c.Request.Context(), ports.ExchangeRequest{
		ExternalID:     req.ExternalID,
		GroupID:        groupID,
		FromCurrencyID: fromCur,
		ToCurrencyID:   toCur,
		Amount:         req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ExchangeResponse{
		Debited:  result.Debited,
		Credited: result.Credited,
		Rate:     result.Rate,
	})
}

// GetBalances handles GET /api/v1/accounts/:externalId/balances.
func (h *LedgerHandler) GetBalances(c *gin.Context) {
	externalID := c.Param("externalId")
	if externalID == "" {
		response.Error(c, apperror.Validation("externalId is required"))
		return
	}

	balances, err := h.ledgerSvc.BalanceOf(c.Request.Context(), externalID)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make(map[string]int64, len(balances))
	for currencyID, balance := range balances {
		out[currencyID.String()] = balance
	}
	response.OK(c, dto.BalancesResponse{ExternalID: externalID, Balances: out})
}
