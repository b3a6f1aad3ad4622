package engine

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anpag/escaipe-room/internal/storage"
	"github.com/anpag/escaipe-room/pkg/chat"
	"github.com/anpag/escaipe-room/pkg/room"
	"github.com/anpag/escaipe-room/pkg/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupProgression(t *testing.T) (*Progression, *storage.MockStorage, *state.Team) {
	t.Helper()

	registry := room.DefaultRegistry()
	store := storage.NewMockStorage()
	team := state.NewTeam("Alpha", registry.First())
	require.NoError(t, store.CreateTeam(context.Background(), team))

	return NewProgression(registry, store, testLogger()), store, team
}

func TestAwardLetter(t *testing.T) {
	p, _, team := setupProgression(t)
	ctx := context.Background()

	// Nothing to award before the room is complete.
	letter, err := p.AwardLetter(ctx, team)
	require.NoError(t, err)
	assert.Empty(t, letter)

	team.State.RoomCompleted = true
	letter, err = p.AwardLetter(ctx, team)
	require.NoError(t, err)
	assert.Equal(t, "S", letter)
	assert.Equal(t, "S", team.State.LatestLetter)
	assert.Equal(t, []string{"S"}, team.State.CollectedLetters)

	// Awarding again is a no-op.
	letter, err = p.AwardLetter(ctx, team)
	require.NoError(t, err)
	assert.Empty(t, letter)
	assert.Equal(t, []string{"S"}, team.State.CollectedLetters)
}

func TestAwardLetter_RepeatUpdatesLatest(t *testing.T) {
	p, store, team := setupProgression(t)
	ctx := context.Background()

	// A letter already in the collection is not re-awarded, but
	// latest_letter still tracks it.
	team.State.RoomCompleted = true
	team.State.CollectedLetters = []string{"S"}
	team.State.LatestLetter = ""

	letter, err := p.AwardLetter(ctx, team)
	require.NoError(t, err)
	assert.Empty(t, letter)
	assert.Equal(t, "S", team.State.LatestLetter)
	assert.Equal(t, []string{"S"}, team.State.CollectedLetters)

	saved, err := store.GetTeam(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, "S", saved.State.LatestLetter)
}

func TestAdvanceRoom(t *testing.T) {
	p, store, team := setupProgression(t)
	ctx := context.Background()

	team.State.RoomCompleted = true
	team.State.LatestLetter = "S"
	team.State.TerminalStage = state.StageUnlocked
	require.NoError(t, store.AppendMessage(ctx, team.ID, CoordinatorChannel, chat.NewMessage(chat.RoleModel, "briefing")))
	require.NoError(t, store.AppendMessage(ctx, team.ID, "terminal", chat.NewMessage(chat.RoleUser, "unity")))

	next, err := p.AdvanceRoom(ctx, team)
	require.NoError(t, err)
	assert.Equal(t, "microsoft-room", next)
	assert.Equal(t, "microsoft-room", team.State.CurrentRoom)
	assert.False(t, team.State.RoomCompleted)
	assert.Empty(t, team.State.LatestLetter)
	assert.Empty(t, team.State.TerminalStage)

	// Mission control is re-briefed; other channels keep their logs.
	coord, err := store.History(ctx, team.ID, CoordinatorChannel)
	require.NoError(t, err)
	assert.Empty(t, coord)
	terminal, err := store.History(ctx, team.ID, "terminal")
	require.NoError(t, err)
	assert.Len(t, terminal, 1)
}

func TestAdvanceRoom_PastEnd(t *testing.T) {
	p, _, team := setupProgression(t)
	ctx := context.Background()

	team.State.CurrentRoom = "snowflake-room"
	next, err := p.AdvanceRoom(ctx, team)
	require.NoError(t, err)
	assert.Equal(t, "snowflake-room", next)
	assert.Equal(t, "snowflake-room", team.State.CurrentRoom)
}

func TestResetProgress(t *testing.T) {
	p, store, team := setupProgression(t)
	ctx := context.Background()

	team.State.CurrentRoom = "microsoft-room"
	team.State.RoomCompleted = true
	team.State.CollectedLetters = []string{"S"}
	require.NoError(t, store.SaveInventory(ctx, team.ID, []state.InventoryItem{{Name: "BigQuery Keycard", Icon: "💳"}}))
	require.NoError(t, store.AppendMessage(ctx, team.ID, "books", chat.NewMessage(chat.RoleUser, "shake")))

	require.NoError(t, p.ResetProgress(ctx, team))

	assert.Equal(t, "databricks-room", team.State.CurrentRoom)
	assert.False(t, team.State.RoomCompleted)
	assert.Empty(t, team.State.CollectedLetters)

	inv, err := store.Inventory(ctx, team.ID)
	require.NoError(t, err)
	assert.Empty(t, inv)

	history, err := store.History(ctx, team.ID, "books")
	require.NoError(t, err)
	assert.Empty(t, history)
}
