package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"guildmint/internal/adapter/http/dto"
	"guildmint/internal/core/domain"
	"guildmint/internal/core/ports"
	"guildmint/internal/core/ports/mocks"
	"guildmint/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func postJSON(t *testing.T, body any) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	c.Request.Header.Set("Content-Type", "application/json")
	return w, c
}

func responseData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "response has no data envelope: %s", w.Body.String())
	return data
}

// --- Ledger Handler Tests ---

func TestMint_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewLedgerHandler(mockLedger)

	currencyID := uuid.New()
	accountID := uuid.New()
	mockLedger.EXPECT().Mint(gomock.Any(), "user-1", currencyID, int64(100)).Return(&domain.Wallet{
		ID:         uuid.New(),
		AccountID:  accountID,
		CurrencyID: currencyID,
		Balance:    100,
	}, nil)

	w, c := postJSON(t, dto.MintRequest{
		ExternalID: "user-1",
		CurrencyID: currencyID.String(),
		Amount:     100,
	})
	h.Mint(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := responseData(t, w)
	assert.Equal(t, accountID.String(), data["account_id"])
	assert.Equal(t, float64(100), data["balance"])
}

func TestMint_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewLedgerHandler(mocks.NewMockLedgerService(ctrl))

	w, c := postJSON(t, map[string]any{})
	h.Mint(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransfer_InsufficientBalance(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewLedgerHandler(mockLedger)

	mockLedger.EXPECT().Transfer(gomock.Any(), gomock.Any()).Return(apperror.ErrInsufficientBalance())

	w, c := postJSON(t, dto.TransferRequest{
		FromExternalID: "alice",
		ToExternalID:   "bob",
		CurrencyID:     uuid.New().String(),
		Amount:         50,
	})
	h.Transfer(c)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "LED_002", resp["error_code"])
}

func TestExchange_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewLedgerHandler(mockLedger)

	groupID := uuid.New()
	fromCur := uuid.New()
	toCur := uuid.New()
	mockLedger.EXPECT().Exchange(gomock.Any(), ports.ExchangeRequest{
		ExternalID:     "user-1",
		GroupID:        groupID,
		FromCurrencyID: fromCur,
		ToCurrencyID:   toCur,
		Amount:         3,
	}).Return(&ports.ExchangeResult{Debited: 3, Credited: 4, Rate: 1.5}, nil)

	w, c := postJSON(t, dto.ExchangeRequest{
		ExternalID:     "user-1",
		GroupID:        groupID.String(),
		FromCurrencyID: fromCur.String(),
		ToCurrencyID:   toCur.String(),
		Amount:         3,
	})
	h.Exchange(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := responseData(t, w)
	assert.Equal(t, float64(3), data["debited"])
	assert.Equal(t, float64(4), data["credited"])
}

func TestGetBalances_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLedger := mocks.NewMockLedgerService(ctrl)
	h := NewLedgerHandler(mockLedger)

	currencyID := uuid.New()
	mockLedger.EXPECT().BalanceOf(gomock.Any(), "user-1").Return(map[uuid.UUID]int64{
		currencyID: 42,
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "externalId", Value: "user-1"}}

	h.GetBalances(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := responseData(t, w)
	balances := data["balances"].(map[string]interface{})
	assert.Equal(t, float64(42), balances[currencyID.String()])
}

// --- Note Handler Tests ---

func TestIssueNote_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockNotes := mocks.NewMockNoteService(ctrl)
	h := NewNoteHandler(mockNotes)

	currencyID := uuid.New()
	noteID := uuid.New()
	mockNotes.EXPECT().Issue(gomock.Any(), ports.IssueNoteRequest{
		IssuerExternalID:    "issuer",
		RecipientExternalID: "recipient",
		CurrencyID:          currencyID,
		Amount:              25,
	}).Return(&ports.IssuedNote{
		Note: &domain.BankNote{
			ID:         noteID,
			CurrencyID: currencyID,
			Amount:     25,
			IssuedAt:   time.Now().UTC(),
		},
		Token: "signed-token",
	}, nil)

	w, c := postJSON(t, dto.IssueNoteRequest{
		IssuerExternalID:    "issuer",
		RecipientExternalID: "recipient",
		CurrencyID:          currencyID.String(),
		Amount:              25,
	})
	h.Issue(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := responseData(t, w)
	assert.Equal(t, noteID.String(), data["note_id"])
	assert.Equal(t, "signed-token", data["token"])
}

func TestRedeemNote_RecipientMismatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockNotes := mocks.NewMockNoteService(ctrl)
	h := NewNoteHandler(mockNotes)

	mockNotes.EXPECT().Redeem(gomock.Any(), "mallory", "token").
		Return(nil, apperror.ErrRecipientMismatch())

	w, c := postJSON(t, dto.RedeemNoteRequest{
		RedeemerExternalID: "mallory",
		Token:              "token",
	})
	h.Redeem(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "NOTE_002", resp["error_code"])
}

func TestRedeemNote_AlreadyConsumed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockNotes := mocks.NewMockNoteService(ctrl)
	h := NewNoteHandler(mockNotes)

	mockNotes.EXPECT().Redeem(gomock.Any(), "recipient", "token").
		Return(nil, apperror.ErrAlreadyConsumed())

	w, c := postJSON(t, dto.RedeemNoteRequest{
		RedeemerExternalID: "recipient",
		Token:              "token",
	})
	h.Redeem(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

// --- Registry Handler Tests ---

func TestCreateCurrency_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockRegistryService(ctrl)
	h := NewRegistryHandler(mockRegistry)

	groupID := uuid.New()
	currencyID := uuid.New()
	mockRegistry.EXPECT().CreateCurrency(gomock.Any(), groupID, "Gold").Return(&domain.Currency{
		ID:          currencyID,
		GroupID:     groupID,
		DisplayName: "Gold",
		IsPrimary:   true,
	}, nil)

	w, c := postJSON(t, dto.CreateCurrencyRequest{DisplayName: "Gold"})
	c.Params = gin.Params{{Key: "groupId", Value: groupID.String()}}
	h.CreateCurrency(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := responseData(t, w)
	assert.Equal(t, currencyID.String(), data["id"])
	assert.Equal(t, true, data["is_primary"])
}

func TestCreateCurrency_BadGroupID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewRegistryHandler(mocks.NewMockRegistryService(ctrl))

	w, c := postJSON(t, dto.CreateCurrencyRequest{DisplayName: "Gold"})
	c.Params = gin.Params{{Key: "groupId", Value: "not-a-uuid"}}
	h.CreateCurrency(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetRate_InvalidRateRejectedByService(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockRegistryService(ctrl)
	h := NewRegistryHandler(mockRegistry)

	groupID := uuid.New()
	base := uuid.New()
	quote := uuid.New()
	mockRegistry.EXPECT().SetExchangeRate(gomock.Any(), groupID, base, quote, 2.5).
		Return(apperror.ErrCurrencyGroupMismatch())

	w, c := postJSON(t, dto.SetRateRequest{
		BaseCurrencyID:  base.String(),
		QuoteCurrencyID: quote.String(),
		Rate:            2.5,
	})
	c.Params = gin.Params{{Key: "groupId", Value: groupID.String()}}
	h.SetRate(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "REG_002", resp["error_code"])
}

// --- Guild Handler Tests ---

func TestOnboardGuild_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockIdentity := mocks.NewMockIdentityService(ctrl)
	h := NewGuildHandler(mockIdentity, mocks.NewMockLeaderboardService(ctrl))

	guildID := uuid.New()
	groupID := uuid.New()
	mockIdentity.EXPECT().OnboardGuild(gomock.Any(), "guild-9").Return(&domain.Guild{
		ID:            guildID,
		ExternalID:    "guild-9",
		SingleGroupID: groupID,
	}, nil)

	w, c := postJSON(t, dto.OnboardGuildRequest{ExternalGuildID: "guild-9"})
	h.Onboard(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := responseData(t, w)
	assert.Equal(t, guildID.String(), data["guild_id"])
	assert.Equal(t, groupID.String(), data["single_group_id"])
}

func TestLeaderboard_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockBoard := mocks.NewMockLeaderboardService(ctrl)
	h := NewGuildHandler(mocks.NewMockIdentityService(ctrl), mockBoard)

	groupID := uuid.New()
	gold := uuid.New()
	first := uuid.New()
	second := uuid.New()
	mockBoard.EXPECT().Top(gomock.Any(), groupID, gold, 3).Return(&ports.Leaderboard{
		TargetCurrency: &domain.Currency{ID: gold, GroupID: groupID, DisplayName: "Gold"},
		Entries: []ports.LeaderboardEntry{
			{AccountID: first, ConvertedBalance: 20},
			{AccountID: second, ConvertedBalance: 5},
		},
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?currency="+gold.String()+"&limit=3", nil)
	c.Params = gin.Params{{Key: "groupId", Value: groupID.String()}}

	h.Leaderboard(c)

	assert.Equal(t, http.StatusOK, w.Code)
	data := responseData(t, w)
	entries := data["entries"].([]interface{})
	require.Len(t, entries, 2)
	top := entries[0].(map[string]interface{})
	assert.Equal(t, float64(1), top["rank"])
	assert.Equal(t, first.String(), top["account_id"])
}

func TestLeaderboard_MissingCurrencyParam(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewGuildHandler(mocks.NewMockIdentityService(ctrl), mocks.NewMockLeaderboardService(ctrl))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "groupId", Value: uuid.New().String()}}

	h.Leaderboard(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
