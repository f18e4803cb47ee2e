package domain

import (
	"time"

	"github.com/google/uuid"
)

// GroupKind classifies the federation scope of a group.
type GroupKind string

const (
	// GroupKindGlobal is the single process-wide group every guild implicitly shares.
	GroupKindGlobal GroupKind = "GLOBAL"
	// GroupKindSingle is the group owned by exactly one guild, created at onboarding.
	GroupKindSingle GroupKind = "SINGLE"
	// GroupKindLocal is an admin-created federation of several guilds.
	GroupKindLocal GroupKind = "LOCAL"
)

// Group is a federation scope that currencies and guild memberships belong to.
type Group struct {
	ID        uuid.UUID `json:"id"`
	Kind      GroupKind `json:"kind"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Guild is an external community. Every guild owns exactly one single group.
type Guild struct {
	ID            uuid.UUID `json:"id"`
	ExternalID    string    `json:"external_id"`
	SingleGroupID uuid.UUID `json:"single_group_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// GuildMembership links a guild into a group.
type GuildMembership struct {
	GuildID  uuid.UUID `json:"guild_id"`
	GroupID  uuid.UUID `json:"group_id"`
	JoinedAt time.Time `json:"joined_at"`
}
