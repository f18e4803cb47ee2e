package handler

import (
	"time"

	"guildmint/internal/adapter/http/dto"
	"guildmint/internal/core/ports"
	"guildmint/pkg/apperror"
	"guildmint/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// NoteHandler handles bank note issuance and redemption.
type NoteHandler struct {
	noteSvc ports.NoteService
}

// NewNoteHandler creates a new NoteHandler.
func NewNoteHandler(noteSvc ports.NoteService) *NoteHandler {
	return &NoteHandler{noteSvc: noteSvc}
}

// Issue handles POST /api/v1/notes/issue.
func (h *NoteHandler) Issue(c *gin.Context) {
	var req dto.IssueNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	currencyID, err := uuid.Parse(req.CurrencyID)
	if err != nil {
		response.Error(c, apperror.Validation("currency_id must be a UUID"))
		return
	}

	issued, err := h.noteSvc.Issue(c.Request.Context(), ports.IssueNoteRequest{
		IssuerExternalID:    req.IssuerExternalID,
		RecipientExternalID: req.RecipientExternalID,
		CurrencyID:          currencyID,
		Amount:              req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.IssuedNoteResponse{
		NoteID:     issued.Note.ID.String(),
		CurrencyID: issued.Note.CurrencyID.String(),
		Amount:     issued.Note.Amount,
		Token:      issued.Token,
		IssuedAt:   issued.Note.IssuedAt.Format(time.RFC3339),
	})
}

// Redeem handles POST /api/v1/notes/redeem.
func (h *NoteHandler) Redeem(c *gin.Context) {
	var req dto.RedeemNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	redeemed, err := h.noteSvc.Redeem(c.Request.Context(), req.RedeemerExternalID, req.Token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.RedeemedNoteResponse{
		NoteID:     redeemed.NoteID.String(),
		CurrencyID: redeemed.CurrencyID.String(),
		Amount:     redeemed.Amount,
	})
}
