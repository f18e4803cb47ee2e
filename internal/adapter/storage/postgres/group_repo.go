package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"guildmint/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GroupRepo implements ports.GroupRepository.
type GroupRepo struct {
	pool Pool
}

// NewGroupRepo creates a new GroupRepo.
func NewGroupRepo(pool Pool) *GroupRepo {
	return &GroupRepo{pool: pool}
}

// CreateGroup inserts a group within the supplied transaction.
func (r *GroupRepo) CreateGroup(ctx context.Context, tx pgx.Tx, g *domain.Group) error {
	query := `INSERT INTO groups (id, kind, name, created_at) VALUES ($1, $2, $3, $4)`

	if _, err := tx.Exec(ctx, query, g.ID, string(g.Kind), g.Name, g.CreatedAt); err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	return nil
}

// GetGroup fetches a group by id.
func (r *GroupRepo) GetGroup(ctx context.Context, id uuid.UUID) (*domain.Group, error) {
	query := `SELECT id, kind, name, created_at FROM groups WHERE id = $1`

	g := &domain.Group{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&g.ID, &g.Kind, &g.Name, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get group by id: %w", err)
	}
	return g, nil
}

// GetGlobalGroup fetches the single process-wide global group.
func (r *GroupRepo) GetGlobalGroup(ctx context.Context) (*domain.Group, error) {
	query := `SELECT id, kind, name, created_at FROM groups WHERE kind = $1`

	g := &domain.Group{}
	err := r.pool.QueryRow(ctx, query, string(domain.GroupKindGlobal)).Scan(&g.ID, &g.Kind, &g.Name, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get global group: %w", err)
	}
	return g, nil
}

// CreateGuild inserts a guild within the supplied transaction.
func (r *GroupRepo) CreateGuild(ctx context.Context, tx pgx.Tx, g *domain.Guild) error {
	query := `INSERT INTO guilds (id, external_id, single_group_id, created_at) VALUES ($1, $2, $3, $4)`

	if _, err := tx.Exec(ctx, query, g.ID, g.ExternalID, g.SingleGroupID, g.CreatedAt); err != nil {
		return fmt.Errorf("insert guild: %w", err)
	}
	return nil
}

// GetGuildByExternalID fetches a guild by its external platform id.
func (r *GroupRepo) GetGuildByExternalID(ctx context.Context, externalID string) (*domain.Guild, error) {
	query := `SELECT id, external_id, single_group_id, created_at FROM guilds WHERE external_id = $1`

	g := &domain.Guild{}
	err := r.pool.QueryRow(ctx, query, externalID).Scan(&g.ID, &g.ExternalID, &g.SingleGroupID, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get guild by external id: %w", err)
	}
	return g, nil
}

// AddMembership links a guild into a group within the supplied transaction.
func (r *GroupRepo) AddMembership(ctx context.Context, tx pgx.Tx, guildID, groupID uuid.UUID, joinedAt time.Time) error {
	query := `INSERT INTO guild_memberships (guild_id, group_id, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (guild_id, group_id) DO NOTHING`

	if _, err := tx.Exec(ctx, query, guildID, groupID, joinedAt); err != nil {
		return fmt.Errorf("insert guild membership: %w", err)
	}
	return nil
}
