package state

import (
	"log/slog"

	"github.com/anpag/escaipe-room/pkg/directive"
)

// Snapshot is the in-memory view of a team the mutator works on: the
// state record plus the team's inventory rows.
type Snapshot struct {
	State     TeamState
	Inventory []InventoryItem
}

// Apply runs a list of directive effects against a snapshot and
// returns the mutated copy plus the key->value diff of every state
// update, including derived ones. The input snapshot is not modified.
//
// Applying the same effects twice yields the same snapshot: state
// updates are plain assignments, add-item is a no-op when the name
// already exists, remove-item is a no-op when it doesn't.
func Apply(snap Snapshot, effects []directive.Effect, logger *slog.Logger) (Snapshot, map[string]any) {
	if logger == nil {
		logger = slog.Default()
	}

	out := Snapshot{
		State:     snap.State.Clone(),
		Inventory: append([]InventoryItem(nil), snap.Inventory...),
	}
	updates := make(map[string]any)

	for _, eff := range effects {
		switch eff.Kind {
		case directive.EffectStateUpdate:
			out.State.Set(eff.Key, eff.Value)
			updates[eff.Key] = eff.Value

			// Unlocking the terminal completes the room unless it is
			// already marked complete; the derived update is reported
			// so the reward step downstream can trigger.
			if eff.Key == KeyTerminalStage && eff.Value == StageUnlocked && !snap.State.RoomCompleted {
				out.State.RoomCompleted = true
				updates[KeyRoomCompleted] = true
			}

		case directive.EffectAddItem:
			if hasItem(out.Inventory, eff.Name) {
				logger.Debug("Skipping duplicate inventory item", "item", eff.Name)
				continue
			}
			out.Inventory = append(out.Inventory, InventoryItem{Name: eff.Name, Icon: eff.Icon})

		case directive.EffectRemoveItem:
			for i, item := range out.Inventory {
				if item.Name == eff.Name {
					out.Inventory = append(out.Inventory[:i], out.Inventory[i+1:]...)
					break
				}
			}
		}
	}

	return out, updates
}

func hasItem(items []InventoryItem, name string) bool {
	for _, item := range items {
		if item.Name == name {
			return true
		}
	}
	return false
}
