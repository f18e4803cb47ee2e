package service

import (
	"context"
	"testing"

	"guildmint/internal/core/domain"
	"guildmint/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type identityTestDeps struct {
	svc         *IdentityServiceImpl
	accountRepo *mocks.MockAccountRepository
	groupRepo   *mocks.MockGroupRepository
	transactor  *mocks.MockDBTransactor
	platform    *mocks.MockChatPlatform
	ctrl        *gomock.Controller
}

func setupIdentityService(t *testing.T) *identityTestDeps {
	ctrl := gomock.NewController(t)
	d := &identityTestDeps{
		accountRepo: mocks.NewMockAccountRepository(ctrl),
		groupRepo:   mocks.NewMockGroupRepository(ctrl),
		transactor:  mocks.NewMockDBTransactor(ctrl),
		platform:    mocks.NewMockChatPlatform(ctrl),
		ctrl:        ctrl,
	}
	d.svc = NewIdentityService(d.accountRepo, d.groupRepo, d.transactor, d.platform, zerolog.Nop())
	return d
}

func TestIdentityService_ResolveAccount(t *testing.T) {
	d := setupIdentityService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	account := &domain.Account{ID: uuid.New(), ExternalID: "user-1"}
	d.accountRepo.EXPECT().Resolve(ctx, "user-1").Return(account, nil)

	got, err := d.svc.ResolveAccount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)
}

func TestIdentityService_OnboardGuild_CreatesSingleAndGlobalMembership(t *testing.T) {
	d := setupIdentityService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	globalID := uuid.New()
	tx := &mockTx{}

	var guildID, singleGroupID uuid.UUID

	d.groupRepo.EXPECT().GetGuildByExternalID(ctx, "guild-9").Return(nil, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.groupRepo.EXPECT().CreateGroup(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ any, g *domain.Group) error {
			assert.Equal(t, domain.GroupKindSingle, g.Kind)
			singleGroupID = g.ID
			return nil
		})
	d.groupRepo.EXPECT().CreateGuild(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ any, g *domain.Guild) error {
			assert.Equal(t, "guild-9", g.ExternalID)
			guildID = g.ID
			return nil
		})
	d.groupRepo.EXPECT().AddMembership(ctx, tx, gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ any, gid, grp uuid.UUID, _ any) error {
			assert.Equal(t, guildID, gid)
			assert.Equal(t, singleGroupID, grp)
			return nil
		})
	d.groupRepo.EXPECT().GetGlobalGroup(ctx).Return(&domain.Group{ID: globalID, Kind: domain.GroupKindGlobal}, nil)
	d.groupRepo.EXPECT().AddMembership(ctx, tx, gomock.Any(), globalID, gomock.Any()).Return(nil)

	guild, err := d.svc.OnboardGuild(ctx, "guild-9")
	require.NoError(t, err)
	assert.Equal(t, "guild-9", guild.ExternalID)
	assert.Equal(t, singleGroupID, guild.SingleGroupID)
}

func TestIdentityService_OnboardGuild_Idempotent(t *testing.T) {
	d := setupIdentityService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	existing := &domain.Guild{ID: uuid.New(), ExternalID: "guild-9"}
	d.groupRepo.EXPECT().GetGuildByExternalID(ctx, "guild-9").Return(existing, nil)

	guild, err := d.svc.OnboardGuild(ctx, "guild-9")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, guild.ID)
}

func TestIdentityService_SyncGuildMembers_PagesUntilEmpty(t *testing.T) {
	d := setupIdentityService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	guild := &domain.Guild{ID: uuid.New(), ExternalID: "guild-9"}

	d.groupRepo.EXPECT().GetGuildByExternalID(ctx, "guild-9").Return(guild, nil)
	d.platform.EXPECT().ListGuildMembers(ctx, "guild-9", 0, memberSyncPageSize).
		Return([]string{"u1", "u2"}, nil)
	d.platform.EXPECT().ListGuildMembers(ctx, "guild-9", 1, memberSyncPageSize).
		Return([]string{"u3"}, nil)
	d.platform.EXPECT().ListGuildMembers(ctx, "guild-9", 2, memberSyncPageSize).
		Return(nil, nil)

	for _, id := range []string{"u1", "u2", "u3"} {
		d.accountRepo.EXPECT().Resolve(ctx, id).Return(&domain.Account{ID: uuid.New(), ExternalID: id}, nil)
	}

	total, err := d.svc.SyncGuildMembers(ctx, "guild-9")
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestIdentityService_SyncGuildMembers_UnknownGuild(t *testing.T) {
	d := setupIdentityService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.groupRepo.EXPECT().GetGuildByExternalID(ctx, "nope").Return(nil, nil)

	total, err := d.svc.SyncGuildMembers(ctx, "nope")
	assert.Zero(t, total)
	assertAppError(t, err, "LED_006")
}
