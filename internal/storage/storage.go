package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/anpag/escaipe-room/pkg/chat"
	"github.com/anpag/escaipe-room/pkg/state"
)

// ErrTeamExists is returned by CreateTeam when another team already
// registered the same name (case-insensitive).
var ErrTeamExists = errors.New("team name already registered")

// Storage persists teams, their inventories, and per-channel chat
// history. Lookups for missing records return nil with no error.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Team operations
	CreateTeam(ctx context.Context, team *state.Team) error
	GetTeam(ctx context.Context, id uuid.UUID) (*state.Team, error)
	GetTeamByName(ctx context.Context, name string) (*state.Team, error)
	ListTeams(ctx context.Context) ([]*state.Team, error)
	SaveTeam(ctx context.Context, team *state.Team) error
	// DeleteTeam removes the team record plus its inventory and all
	// channel histories.
	DeleteTeam(ctx context.Context, id uuid.UUID) error

	// Inventory operations
	Inventory(ctx context.Context, id uuid.UUID) ([]state.InventoryItem, error)
	SaveInventory(ctx context.Context, id uuid.UUID, items []state.InventoryItem) error

	// Chat history operations, one history per (team, channel)
	History(ctx context.Context, id uuid.UUID, channel string) ([]chat.Message, error)
	AppendMessage(ctx context.Context, id uuid.UUID, channel string, msg chat.Message) error
	DeleteHistory(ctx context.Context, id uuid.UUID, channel string) error
	// DeleteAllHistory clears every channel's history for the team.
	DeleteAllHistory(ctx context.Context, id uuid.UUID) error
}
