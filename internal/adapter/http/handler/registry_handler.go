package handler

import (
	"guildmint/internal/adapter/http/dto"
	"guildmint/internal/core/ports"
	"guildmint/pkg/apperror"
	"guildmint/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RegistryHandler handles currency and exchange-rate administration.
type RegistryHandler struct {
	registrySvc ports.RegistryService
}

// NewRegistryHandler creates a new RegistryHandler.
func NewRegistryHandler(registrySvc ports.RegistryService) *RegistryHandler {
	return &RegistryHandler{registrySvc: registrySvc}
}

// CreateCurrency handles POST /api/v1/admin/groups/:groupId/currencies.
func (h *RegistryHandler) CreateCurrency(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("groupId"))
	if err != nil {
		response.Error(c, apperror.Validation("groupId must be a UUID"))
		return
	}

	var req dto.CreateCurrencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	currency, err := h.registrySvc.CreateCurrency(c.Request.Context(), groupID, req.DisplayName)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.CurrencyResponse{
		ID:          currency.ID.String(),
		GroupID:     currency.GroupID.String(),
		DisplayName: currency.DisplayName,
		IsPrimary:   currency.IsPrimary,
	})
}

// SetPrimary handles PUT /api/v1/admin/groups/:groupId/currencies/:currencyId/primary.
func (h *RegistryHandler) SetPrimary(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("groupId"))
	if err != nil {
		response.Error(c, apperror.Validation("groupId must be a UUID"))
		return
	}
	currencyID, err := uuid.Parse(c.Param("currencyId"))
	if err != nil {
		response.Error(c, apperror.Validation("currencyId must be a UUID"))
		return
	}

	if err := h.registrySvc.SetPrimaryCurrency(c.Request.Context(), groupID, currencyID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"primary_currency_id": currencyID.String()})
}

// SetRate handles PUT /api/v1/admin/groups/:groupId/rates.
func (h *RegistryHandler) SetRate(c *gin.Context) {
	groupID, err := uuid.Parse(c.Param("groupId"))
	if err != nil {
		response.Error(c, apperror.Validation("groupId must be a UUID"))
		return
	}

	var req dto.SetRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	base, err := uuid.Parse(req.BaseCurrencyID)
	if err != nil {
		response.Error(c, apperror.Validation("base_currency_id must be a UUID"))
		return
	}
	quote, err := uuid.Parse(req.QuoteCurrencyID)
	if err != nil {
		response.Error(c, apperror.Validation("quote_currency_id must be a UUID"))
		return
	}

	if err := h.registrySvc.SetExchangeRate(c.Request.Context(), groupID, base, quote, req.Rate); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{
		"base_currency_id":  base.String(),
		"quote_currency_id": quote.String(),
		"rate":              req.Rate,
	})
}
