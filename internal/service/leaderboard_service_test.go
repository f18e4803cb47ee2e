package service

import (
	"context"
	"testing"
	"time"

	"guildmint/internal/core/domain"
	"guildmint/internal/core/ports"
	"guildmint/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type leaderboardTestDeps struct {
	svc          *LeaderboardServiceImpl
	currencyRepo *mocks.MockCurrencyRepository
	walletRepo   *mocks.MockWalletRepository
	rateRepo     *mocks.MockRateRepository
	ctrl         *gomock.Controller
}

func setupLeaderboardService(t *testing.T) *leaderboardTestDeps {
	ctrl := gomock.NewController(t)
	d := &leaderboardTestDeps{
		currencyRepo: mocks.NewMockCurrencyRepository(ctrl),
		walletRepo:   mocks.NewMockWalletRepository(ctrl),
		rateRepo:     mocks.NewMockRateRepository(ctrl),
		ctrl:         ctrl,
	}
	d.svc = NewLeaderboardService(d.currencyRepo, d.walletRepo, d.rateRepo, zerolog.Nop())
	return d
}

func TestLeaderboardService_Top_OrderingAndTies(t *testing.T) {
	d := setupLeaderboardService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	groupID := uuid.New()
	gold := uuid.New()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	older := uuid.New()  // 20, created first
	newer := uuid.New()  // 20, created later
	third := uuid.New()  // 5
	fourth := uuid.New() // 1, cut off by the limit

	d.currencyRepo.EXPECT().GetByID(ctx, gold).Return(&domain.Currency{ID: gold, GroupID: groupID}, nil)
	d.walletRepo.EXPECT().ListByGroup(ctx, groupID).Return([]ports.GroupWallet{
		{AccountID: third, CurrencyID: gold, Balance: 5, AccountCreatedAt: base},
		{AccountID: newer, CurrencyID: gold, Balance: 20, AccountCreatedAt: base.Add(time.Hour)},
		{AccountID: older, CurrencyID: gold, Balance: 20, AccountCreatedAt: base},
		{AccountID: fourth, CurrencyID: gold, Balance: 1, AccountCreatedAt: base},
	}, nil)

	board, err := d.svc.Top(ctx, groupID, gold, 3)
	require.NoError(t, err)
	require.Len(t, board.Entries, 3)

	// Equal totals rank the earlier-created account first.
	assert.Equal(t, older, board.Entries[0].AccountID)
	assert.Equal(t, int64(20), board.Entries[0].ConvertedBalance)
	assert.Equal(t, newer, board.Entries[1].AccountID)
	assert.Equal(t, int64(20), board.Entries[1].ConvertedBalance)
	assert.Equal(t, third, board.Entries[2].AccountID)
	assert.Equal(t, int64(5), board.Entries[2].ConvertedBalance)
}

func TestLeaderboardService_Top_ConvertsAndFloorsPerWallet(t *testing.T) {
	d := setupLeaderboardService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	groupID := uuid.New()
	gold := uuid.New()
	silver := uuid.New()
	copper := uuid.New() // no rate toward gold

	accA := uuid.New()
	accB := uuid.New()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	d.currencyRepo.EXPECT().GetByID(ctx, gold).Return(&domain.Currency{ID: gold, GroupID: groupID}, nil)
	d.walletRepo.EXPECT().ListByGroup(ctx, groupID).Return([]ports.GroupWallet{
		{AccountID: accA, CurrencyID: gold, Balance: 10, AccountCreatedAt: created},
		{AccountID: accA, CurrencyID: silver, Balance: 7, AccountCreatedAt: created},
		{AccountID: accB, CurrencyID: copper, Balance: 1000, AccountCreatedAt: created},
	}, nil)
	// One lookup per distinct non-target currency.
	d.rateRepo.EXPECT().Get(ctx, groupID, silver, gold).Return(&domain.ExchangeRate{
		GroupID:         groupID,
		BaseCurrencyID:  silver,
		QuoteCurrencyID: gold,
		Rate:            0.5,
	}, nil)
	d.rateRepo.EXPECT().Get(ctx, groupID, copper, gold).Return(nil, nil)

	board, err := d.svc.Top(ctx, groupID, gold, 10)
	require.NoError(t, err)
	require.Len(t, board.Entries, 2)

	// accA: 10 gold at face value + floor(7 * 0.5) = 13
	assert.Equal(t, accA, board.Entries[0].AccountID)
	assert.Equal(t, int64(13), board.Entries[0].ConvertedBalance)
	// accB holds only an unconvertible currency and contributes zero.
	assert.Equal(t, accB, board.Entries[1].AccountID)
	assert.Equal(t, int64(0), board.Entries[1].ConvertedBalance)
}

func TestLeaderboardService_Top_DefaultLimit(t *testing.T) {
	d := setupLeaderboardService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	groupID := uuid.New()
	gold := uuid.New()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	wallets := make([]ports.GroupWallet, 0, 8)
	for i := 0; i < 8; i++ {
		wallets = append(wallets, ports.GroupWallet{
			AccountID:        uuid.New(),
			CurrencyID:       gold,
			Balance:          int64(i + 1),
			AccountCreatedAt: created,
		})
	}

	d.currencyRepo.EXPECT().GetByID(ctx, gold).Return(&domain.Currency{ID: gold, GroupID: groupID}, nil)
	d.walletRepo.EXPECT().ListByGroup(ctx, groupID).Return(wallets, nil)

	board, err := d.svc.Top(ctx, groupID, gold, 0)
	require.NoError(t, err)
	assert.Len(t, board.Entries, defaultLeaderboardLimit)
	assert.Equal(t, int64(8), board.Entries[0].ConvertedBalance)
}

func TestLeaderboardService_Top_TargetOutsideGroup(t *testing.T) {
	d := setupLeaderboardService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	gold := uuid.New()

	d.currencyRepo.EXPECT().GetByID(ctx, gold).Return(&domain.Currency{ID: gold, GroupID: uuid.New()}, nil)

	board, err := d.svc.Top(ctx, uuid.New(), gold, 5)
	assert.Nil(t, board)
	assertAppError(t, err, "REG_002")
}

func TestLeaderboardService_Top_TargetNotFound(t *testing.T) {
	d := setupLeaderboardService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	gold := uuid.New()

	d.currencyRepo.EXPECT().GetByID(ctx, gold).Return(nil, nil)

	board, err := d.svc.Top(ctx, uuid.New(), gold, 5)
	assert.Nil(t, board)
	assertAppError(t, err, "LED_003")
}
