package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"guildmint/internal/core/ports"
	"guildmint/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultLeaderboardLimit = 5

// LeaderboardServiceImpl implements ports.LeaderboardService. It is a
// read-only, point-in-time aggregation over committed balances; no snapshot
// isolation is promised across concurrent mutations.
type LeaderboardServiceImpl struct {
	currencyRepo ports.CurrencyRepository
	walletRepo   ports.WalletRepository
	rateRepo     ports.RateRepository
	log          zerolog.Logger
}

// NewLeaderboardService creates a new LeaderboardServiceImpl.
func NewLeaderboardService(
	currencyRepo ports.CurrencyRepository,
	walletRepo ports.WalletRepository,
	rateRepo ports.RateRepository,
	log zerolog.Logger,
) *LeaderboardServiceImpl {
	return &LeaderboardServiceImpl{
		currencyRepo: currencyRepo,
		walletRepo:   walletRepo,
		rateRepo:     rateRepo,
		log:          log,
	}
}

// Top ranks accounts by group holdings converted into the target currency.
// Target-currency balances count at face value; currencies with a configured
// directional rate toward the target contribute floor(balance*rate);
// everything else contributes zero. Ties order by earliest account creation.
func (s *LeaderboardServiceImpl) Top(ctx context.Context, groupID, targetCurrencyID uuid.UUID, limit int) (*ports.Leaderboard, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}

	target, err := s.currencyRepo.GetByID(ctx, targetCurrencyID)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("load target currency: %w", err))
	}
	if target == nil {
		return nil, apperror.ErrCurrencyNotFound()
	}
	if target.GroupID != groupID {
		return nil, apperror.ErrCurrencyGroupMismatch()
	}

	wallets, err := s.walletRepo.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("list group wallets: %w", err))
	}

	// One rate lookup per distinct source currency.
	rates := make(map[uuid.UUID]float64)
	rated := make(map[uuid.UUID]bool)
	lookupRate := func(currencyID uuid.UUID) (float64, bool, error) {
		if ok, seen := rated[currencyID]; seen {
			return rates[currencyID], ok, nil
		}
		r, err := s.rateRepo.Get(ctx, groupID, currencyID, targetCurrencyID)
		if err != nil {
			return 0, false, apperror.ErrStorageUnavailable(fmt.Errorf("load rate: %w", err))
		}
		if r == nil {
			rated[currencyID] = false
			return 0, false, nil
		}
		rates[currencyID] = r.Rate
		rated[currencyID] = true
		return r.Rate, true, nil
	}

	type standing struct {
		accountID uuid.UUID
		total     int64
		createdAt time.Time
	}
	totals := make(map[uuid.UUID]*standing)

	for _, w := range wallets {
		var contribution int64
		switch {
		case w.CurrencyID == targetCurrencyID:
			contribution = w.Balance
		default:
			rate, ok, err := lookupRate(w.CurrencyID)
			if err != nil {
				return nil, err
			}
			if ok {
				contribution = Convert(w.Balance, rate)
			}
		}

		st, ok := totals[w.AccountID]
		if !ok {
			st = &standing{accountID: w.AccountID, createdAt: w.AccountCreatedAt}
			totals[w.AccountID] = st
		}
		st.total += contribution
	}

	standings := make([]*standing, 0, len(totals))
	for _, st := range totals {
		standings = append(standings, st)
	}
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].total != standings[j].total {
			return standings[i].total > standings[j].total
		}
		if !standings[i].createdAt.Equal(standings[j].createdAt) {
			return standings[i].createdAt.Before(standings[j].createdAt)
		}
		return standings[i].accountID.String() < standings[j].accountID.String()
	})

	if len(standings) > limit {
		standings = standings[:limit]
	}

	entries := make([]ports.LeaderboardEntry, len(standings))
	for i, st := range standings {
		entries[i] = ports.LeaderboardEntry{AccountID: st.accountID, ConvertedBalance: st.total}
	}

	return &ports.Leaderboard{TargetCurrency: target, Entries: entries}, nil
}
