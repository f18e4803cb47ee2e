package service

import (
	"context"
	"fmt"
	"time"

	"guildmint/internal/core/domain"
	"guildmint/internal/core/ports"
	"guildmint/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const memberSyncPageSize = 100

// IdentityServiceImpl implements ports.IdentityService.
type IdentityServiceImpl struct {
	accountRepo ports.AccountRepository
	groupRepo   ports.GroupRepository
	transactor  ports.DBTransactor
	platform    ports.ChatPlatform
	log         zerolog.Logger
}

// NewIdentityService creates a new IdentityServiceImpl.
func NewIdentityService(
	accountRepo ports.AccountRepository,
	groupRepo ports.GroupRepository,
	transactor ports.DBTransactor,
	platform ports.ChatPlatform,
	log zerolog.Logger,
) *IdentityServiceImpl {
	return &IdentityServiceImpl{
		accountRepo: accountRepo,
		groupRepo:   groupRepo,
		transactor:  transactor,
		platform:    platform,
		log:         log,
	}
}

// ResolveAccount maps an external user id to its account, creating it on
// first economic interaction.
func (s *IdentityServiceImpl) ResolveAccount(ctx context.Context, externalID string) (*domain.Account, error) {
	a, err := s.accountRepo.Resolve(ctx, externalID)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("resolve account: %w", err))
	}
	return a, nil
}

// OnboardGuild registers a guild: the guild row, its own single group and the
// membership are created in one transaction. A guild always has its single
// group. Idempotent per external id.
func (s *IdentityServiceImpl) OnboardGuild(ctx context.Context, externalGuildID string) (*domain.Guild, error) {
	existing, err := s.groupRepo.GetGuildByExternalID(ctx, externalGuildID)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("load guild: %w", err))
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	group := &domain.Group{
		ID:        uuid.New(),
		Kind:      domain.GroupKindSingle,
		Name:      "guild:" + externalGuildID,
		CreatedAt: now,
	}
	guild := &domain.Guild{
		ID:            uuid.New(),
		ExternalID:    externalGuildID,
		SingleGroupID: group.ID,
		CreatedAt:     now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.groupRepo.CreateGroup(ctx, dbTx, group); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("create single group: %w", err))
	}
	if err := s.groupRepo.CreateGuild(ctx, dbTx, guild); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("create guild: %w", err))
	}
	if err := s.groupRepo.AddMembership(ctx, dbTx, guild.ID, group.ID, now); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("add single membership: %w", err))
	}

	// Every guild also joins the process-wide global group when one exists.
	global, err := s.groupRepo.GetGlobalGroup(ctx)
	if err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("load global group: %w", err))
	}
	if global != nil {
		if err := s.groupRepo.AddMembership(ctx, dbTx, guild.ID, global.ID, now); err != nil {
			return nil, apperror.ErrStorageUnavailable(fmt.Errorf("add global membership: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.ErrStorageUnavailable(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("guild_id", guild.ID.String()).
		Str("external_id", externalGuildID).
		Msg("guild onboarded")

	return guild, nil
}

// SyncGuildMembers pre-provisions accounts for every guild member, paging
// through the platform directory until an empty page.
func (s *IdentityServiceImpl) SyncGuildMembers(ctx context.Context, externalGuildID string) (int, error) {
	guild, err := s.groupRepo.GetGuildByExternalID(ctx, externalGuildID)
	if err != nil {
		return 0, apperror.ErrStorageUnavailable(fmt.Errorf("load guild: %w", err))
	}
	if guild == nil {
		return 0, apperror.ErrNotFound("guild")
	}

	total := 0
	for page := 0; ; page++ {
		members, err := s.platform.ListGuildMembers(ctx, externalGuildID, page, memberSyncPageSize)
		if err != nil {
			return total, apperror.InternalError(fmt.Errorf("list guild members: %w", err))
		}
		if len(members) == 0 {
			break
		}
		for _, externalID := range members {
			if _, err := s.accountRepo.Resolve(ctx, externalID); err != nil {
				return total, apperror.ErrStorageUnavailable(fmt.Errorf("resolve member: %w", err))
			}
			total++
		}
	}

	s.log.Info().
		Str("external_id", externalGuildID).
		Int("members", total).
		Msg("guild members synced")

	return total, nil
}
