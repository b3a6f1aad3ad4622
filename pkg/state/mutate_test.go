package state

import (
	"testing"

	"github.com/anpag/escaipe-room/pkg/directive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_StateUpdateIdempotence(t *testing.T) {
	snap := Snapshot{State: TeamState{CurrentRoom: "databricks-room"}}
	effects := []directive.Effect{
		{Kind: directive.EffectStateUpdate, Key: KeyTerminalStage, Value: StageQuestion},
		{Kind: directive.EffectStateUpdate, Key: "books_has_dropped_key", Value: true},
	}

	once, _ := Apply(snap, effects, nil)
	twice, _ := Apply(once, effects, nil)

	assert.Equal(t, once.State, twice.State)
	assert.Equal(t, once.Inventory, twice.Inventory)
	assert.Equal(t, StageQuestion, once.State.TerminalStage)
	assert.Equal(t, true, once.State.Vars["books_has_dropped_key"])
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	snap := Snapshot{
		State:     TeamState{CurrentRoom: "databricks-room"},
		Inventory: []InventoryItem{{Name: "Lamp", Icon: "🔦"}},
	}
	_, _ = Apply(snap, []directive.Effect{
		{Kind: directive.EffectStateUpdate, Key: KeyTerminalStage, Value: StageKeySlot},
		{Kind: directive.EffectRemoveItem, Name: "Lamp"},
	}, nil)

	assert.Empty(t, snap.State.TerminalStage)
	assert.Len(t, snap.Inventory, 1)
}

func TestApply_UnlockedDerivesRoomCompleted(t *testing.T) {
	snap := Snapshot{State: TeamState{CurrentRoom: "databricks-room", TerminalStage: StageKeySlot}}
	out, updates := Apply(snap, []directive.Effect{
		{Kind: directive.EffectStateUpdate, Key: KeyTerminalStage, Value: StageUnlocked},
	}, nil)

	assert.True(t, out.State.RoomCompleted)
	assert.Equal(t, true, updates[KeyRoomCompleted])
	assert.Equal(t, StageUnlocked, updates[KeyTerminalStage])
}

func TestApply_UnlockedAlreadyCompletedNoDerivedUpdate(t *testing.T) {
	snap := Snapshot{State: TeamState{
		CurrentRoom:   "databricks-room",
		TerminalStage: StageUnlocked,
		RoomCompleted: true,
	}}
	out, updates := Apply(snap, []directive.Effect{
		{Kind: directive.EffectStateUpdate, Key: KeyTerminalStage, Value: StageUnlocked},
	}, nil)

	assert.True(t, out.State.RoomCompleted)
	assert.NotContains(t, updates, KeyRoomCompleted)
}

func TestApply_AddItemNoDuplicateRows(t *testing.T) {
	snap := Snapshot{Inventory: []InventoryItem{{Name: "BigQuery Keycard", Icon: "💳"}}}
	out, _ := Apply(snap, []directive.Effect{
		{Kind: directive.EffectAddItem, Name: "BigQuery Keycard", Icon: "💳"},
		{Kind: directive.EffectAddItem, Name: "BigQuery Keycard", Icon: "💳"},
	}, nil)

	require.Len(t, out.Inventory, 1)
}

func TestApply_RemoveItem(t *testing.T) {
	snap := Snapshot{Inventory: []InventoryItem{
		{Name: "BigQuery Keycard", Icon: "💳"},
		{Name: "Gemini Code Assist", Icon: "💾"},
	}}

	out, _ := Apply(snap, []directive.Effect{
		{Kind: directive.EffectRemoveItem, Name: "BigQuery Keycard"},
	}, nil)
	require.Len(t, out.Inventory, 1)
	assert.Equal(t, "Gemini Code Assist", out.Inventory[0].Name)

	// Removing a missing item is a no-op, not an error.
	again, _ := Apply(out, []directive.Effect{
		{Kind: directive.EffectRemoveItem, Name: "BigQuery Keycard"},
	}, nil)
	assert.Equal(t, out.Inventory, again.Inventory)
}
