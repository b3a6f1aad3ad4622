package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anpag/escaipe-room/internal/storage"
	"github.com/anpag/escaipe-room/pkg/room"
	"github.com/anpag/escaipe-room/pkg/state"
)

// Progression owns letter awards, room advancement, and progress
// resets. It mutates the team record through storage; callers pass the
// team they already hold and get the mutated copy back via that
// pointer.
type Progression struct {
	registry *room.Registry
	store    storage.Storage
	logger   *slog.Logger
}

// NewProgression creates a progression controller.
func NewProgression(registry *room.Registry, store storage.Storage, logger *slog.Logger) *Progression {
	return &Progression{registry: registry, store: store, logger: logger}
}

// AwardLetter grants the current room's reward letter once the room is
// completed. The collection keeps set semantics, but latest_letter
// always tracks the most recent award, repeat or not. Only a new
// letter is reported back.
func (p *Progression) AwardLetter(ctx context.Context, team *state.Team) (string, error) {
	if !team.State.RoomCompleted {
		return "", nil
	}

	letter := p.registry.Letter(team.State.CurrentRoom)
	if letter == "" {
		return "", nil
	}

	isNew := team.State.AddLetter(letter)
	if !isNew && team.State.LatestLetter == letter {
		return "", nil
	}
	team.State.LatestLetter = letter

	if err := p.store.SaveTeam(ctx, team); err != nil {
		return "", fmt.Errorf("failed to persist letter award: %w", err)
	}
	if !isNew {
		return "", nil
	}
	p.logger.Info("Letter awarded", "team_id", team.ID, "room", team.State.CurrentRoom, "letter", letter)
	return letter, nil
}

// AdvanceRoom moves the team to the next room in the fixed order,
// clearing the completion flag and the latest letter. The coordinator
// history is dropped so mission control re-briefs in the new room.
// Advancing past the last room is a no-op.
func (p *Progression) AdvanceRoom(ctx context.Context, team *state.Team) (string, error) {
	next, ok := p.registry.Next(team.State.CurrentRoom)
	if !ok {
		return team.State.CurrentRoom, nil
	}

	team.State.CurrentRoom = next
	team.State.RoomCompleted = false
	team.State.LatestLetter = ""
	team.State.TerminalStage = ""
	team.State.TerminalFailures = 0

	if err := p.store.SaveTeam(ctx, team); err != nil {
		return "", fmt.Errorf("failed to persist room advance: %w", err)
	}
	if err := p.store.DeleteHistory(ctx, team.ID, CoordinatorChannel); err != nil {
		return "", err
	}

	p.logger.Info("Team advanced", "team_id", team.ID, "room", next)
	return next, nil
}

// ResetProgress returns the team to a fresh start in the first room:
// empty state, empty inventory, no chat history on any channel.
func (p *Progression) ResetProgress(ctx context.Context, team *state.Team) error {
	team.State = state.TeamState{CurrentRoom: p.registry.First()}

	if err := p.store.SaveTeam(ctx, team); err != nil {
		return fmt.Errorf("failed to persist progress reset: %w", err)
	}
	if err := p.store.SaveInventory(ctx, team.ID, nil); err != nil {
		return err
	}
	if err := p.store.DeleteAllHistory(ctx, team.ID); err != nil {
		return err
	}

	p.logger.Info("Team progress reset", "team_id", team.ID)
	return nil
}
