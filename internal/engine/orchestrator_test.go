package engine

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anpag/escaipe-room/internal/services"
	"github.com/anpag/escaipe-room/internal/storage"
	"github.com/anpag/escaipe-room/pkg/chat"
	"github.com/anpag/escaipe-room/pkg/room"
	"github.com/anpag/escaipe-room/pkg/state"
)

// fakeConn is an in-memory ChannelConn. Inputs are consumed in order;
// an exhausted conn reads io.EOF like a closed websocket.
type fakeConn struct {
	inputs []string
	writes []any
}

func (c *fakeConn) ReadMessage() (string, error) {
	if len(c.inputs) == 0 {
		return "", io.EOF
	}
	next := c.inputs[0]
	c.inputs = c.inputs[1:]
	return next, nil
}

func (c *fakeConn) WriteJSON(v any) error {
	c.writes = append(c.writes, v)
	return nil
}

func (c *fakeConn) envelopes() []chat.ChannelResponse {
	var out []chat.ChannelResponse
	for _, w := range c.writes {
		if env, ok := w.(chat.ChannelResponse); ok {
			out = append(out, env)
		}
	}
	return out
}

func setupOrchestrator(t *testing.T, session *services.MockSession) (*Orchestrator, *storage.MockStorage, *state.Team) {
	t.Helper()

	registry := room.DefaultRegistry()
	store := storage.NewMockStorage()
	team := state.NewTeam("Alpha", registry.First())
	require.NoError(t, store.CreateTeam(context.Background(), team))

	llm := services.NewMockLLM()
	llm.NewSessionFunc = func(ctx context.Context, cfg services.SessionConfig) (services.ChatSession, error) {
		return session, nil
	}

	return NewOrchestrator(registry, store, llm, "gemini-2.5-pro", testLogger()), store, team
}

func TestRunChannel_GreetingAndReplay(t *testing.T) {
	session := &services.MockSession{}
	o, store, team := setupOrchestrator(t, session)
	ctx := context.Background()

	conn := &fakeConn{}
	require.NoError(t, o.RunChannel(ctx, conn, team.ID, "terminal"))

	require.Len(t, conn.writes, 1)
	payload, ok := conn.writes[0].(chat.HistoryPayload)
	require.True(t, ok)
	require.Len(t, payload.History, 1)
	assert.Equal(t, "ai", payload.History[0].Role)
	assert.Equal(t, "SYSTEM ALERT: Governance Lock Active. Identify yourself.", payload.History[0].Text)

	// Reconnecting replays the same single greeting, not a second copy.
	conn2 := &fakeConn{}
	require.NoError(t, o.RunChannel(ctx, conn2, team.ID, "terminal"))
	payload2, ok := conn2.writes[0].(chat.HistoryPayload)
	require.True(t, ok)
	assert.Len(t, payload2.History, 1)

	history, err := store.History(ctx, team.ID, "terminal")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRunChannel_TerminalEscape(t *testing.T) {
	session := &services.MockSession{Replies: []string{
		"ACCESS GRANTED. [STATE_UPDATE: terminal_stage=QUESTION]",
		"To optimize costs and enable true scalability, what architecture must be employed?",
		"Correct. [STATE_UPDATE: terminal_stage=KEY_SLOT]",
		"Insert the physical key.",
		"Key accepted. [STATE_UPDATE: terminal_stage=UNLOCKED]",
		"The bolts retract. You are free to leave.",
	}}
	o, store, team := setupOrchestrator(t, session)
	ctx := context.Background()

	require.NoError(t, store.SaveInventory(ctx, team.ID, []state.InventoryItem{{Name: "BigQuery Keycard", Icon: "💳"}}))

	conn := &fakeConn{inputs: []string{"unity", "serverless", "insert the keycard"}}
	require.NoError(t, o.RunChannel(ctx, conn, team.ID, "terminal"))

	envs := conn.envelopes()
	require.Len(t, envs, 3)

	assert.Equal(t, "ACCESS GRANTED.\n\nTo optimize costs and enable true scalability, what architecture must be employed?", envs[0].Response)
	assert.False(t, envs[0].RoomCompleted)
	assert.Equal(t, "Correct.\n\nInsert the physical key.", envs[1].Response)
	assert.Equal(t, "Key accepted.\n\nThe bolts retract. You are free to leave.", envs[2].Response)
	assert.True(t, envs[2].RoomCompleted)
	assert.Equal(t, "databricks-room", envs[2].CurrentRoom)
	assert.Contains(t, string(envs[2].State), `"latest_letter":"S"`)

	// No directive syntax ever reaches the player.
	for _, env := range envs {
		assert.NotContains(t, env.Response, "STATE_UPDATE")
	}

	loaded, err := store.GetTeam(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, state.StageUnlocked, loaded.State.Stage())
	assert.True(t, loaded.State.RoomCompleted)
	assert.Equal(t, "S", loaded.State.LatestLetter)
	assert.Equal(t, []string{"S"}, loaded.State.CollectedLetters)

	// Each player turn carries the team id note; each transition
	// triggers exactly one cascade prompt.
	inputs := session.Inputs()
	require.Len(t, inputs, 6)
	assert.Contains(t, inputs[0], "unity")
	assert.Contains(t, inputs[0], "[System Note: team_id="+team.ID.String()+"]")
	assert.Equal(t, cascadeNotes[state.StageQuestion], inputs[1])
	assert.Equal(t, cascadeNotes[state.StageKeySlot], inputs[3])
	assert.Equal(t, cascadeNotes[state.StageUnlocked], inputs[5])
}

func TestRunChannel_TerminalGuardBackstopsModel(t *testing.T) {
	// The model narrates but forgets the stage directive; the FSM
	// guard advances the stage anyway and the cascade still fires.
	session := &services.MockSession{Replies: []string{
		"The terminal hums thoughtfully.",
		"State updated. What architecture must be employed?",
	}}
	o, store, team := setupOrchestrator(t, session)
	ctx := context.Background()

	conn := &fakeConn{inputs: []string{"the guard's name is Unity"}}
	require.NoError(t, o.RunChannel(ctx, conn, team.ID, "terminal"))

	loaded, err := store.GetTeam(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, state.StageQuestion, loaded.State.Stage())

	envs := conn.envelopes()
	require.Len(t, envs, 1)
	assert.Contains(t, envs[0].Response, "What architecture must be employed?")
}

func TestRunChannel_TerminalFailureCounting(t *testing.T) {
	session := &services.MockSession{Replies: []string{
		"ACCESS DENIED. That is not the architecture.",
	}}
	o, store, team := setupOrchestrator(t, session)
	ctx := context.Background()

	team.State.TerminalStage = state.StageQuestion
	require.NoError(t, store.SaveTeam(ctx, team))

	conn := &fakeConn{inputs: []string{"monolith"}}
	require.NoError(t, o.RunChannel(ctx, conn, team.ID, "terminal"))

	loaded, err := store.GetTeam(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, state.StageQuestion, loaded.State.Stage())
	assert.Equal(t, 1, loaded.State.TerminalFailures)
}

func TestRunChannel_BooksDirectiveGrant(t *testing.T) {
	session := &services.MockSession{Replies: []string{
		"You shake the book and a shiny plastic card falls out! [STATE_UPDATE: books_has_dropped_key=true] [ACTION: ADD_ITEM(BigQuery Keycard, 💳)]",
	}}
	o, store, team := setupOrchestrator(t, session)
	ctx := context.Background()

	conn := &fakeConn{inputs: []string{"shake the books"}}
	require.NoError(t, o.RunChannel(ctx, conn, team.ID, "books"))

	envs := conn.envelopes()
	require.Len(t, envs, 1)
	require.Len(t, envs[0].Inventory, 1)
	assert.Equal(t, "BigQuery Keycard", envs[0].Inventory[0].Name)
	assert.Equal(t, "💳", envs[0].Inventory[0].Icon)

	loaded, err := store.GetTeam(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, true, loaded.State.Vars["books_has_dropped_key"])

	inv, err := store.Inventory(ctx, team.ID)
	require.NoError(t, err)
	require.Len(t, inv, 1)
}

func TestRunChannel_ProceduralDeskGrant(t *testing.T) {
	session := &services.MockSession{Replies: []string{
		"You rummage through the drawers.",
	}}
	o, store, team := setupOrchestrator(t, session)
	ctx := context.Background()

	team.State.CurrentRoom = "microsoft-room"
	require.NoError(t, store.SaveTeam(ctx, team))

	conn := &fakeConn{inputs: []string{"search the desk"}}
	require.NoError(t, o.RunChannel(ctx, conn, team.ID, "managers_desk"))

	inv, err := store.Inventory(ctx, team.ID)
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Equal(t, room.ChipName, inv[0].Name)
}

func TestRunChannel_DegradedResponseKeepsChannelOpen(t *testing.T) {
	calls := 0
	session := &services.MockSession{
		SendFunc: func(ctx context.Context, text string) (string, error) {
			calls++
			if calls == 1 {
				return "", errors.New("backend unavailable")
			}
			return "Signal restored.", nil
		},
	}
	o, store, team := setupOrchestrator(t, session)
	ctx := context.Background()

	conn := &fakeConn{inputs: []string{"hello?", "hello again"}}
	require.NoError(t, o.RunChannel(ctx, conn, team.ID, "coordinator"))

	envs := conn.envelopes()
	require.Len(t, envs, 2)
	assert.Equal(t, DegradedResponse, envs[0].Response)
	assert.NotEmpty(t, envs[0].Error)
	assert.Equal(t, "Signal restored.", envs[1].Response)
	assert.Empty(t, envs[1].Error)

	// The failed turn keeps the user message but records no reply.
	history, err := store.History(ctx, team.ID, "coordinator")
	require.NoError(t, err)
	var modelReplies []string
	for _, msg := range history {
		if msg.Role == chat.RoleModel {
			modelReplies = append(modelReplies, msg.Content)
		}
	}
	// Greeting plus the one successful reply.
	assert.Len(t, modelReplies, 2)
}

func TestRunChannel_UnknownTeam(t *testing.T) {
	session := &services.MockSession{}
	o, _, _ := setupOrchestrator(t, session)

	err := o.RunChannel(context.Background(), &fakeConn{}, uuid.New(), "terminal")
	assert.ErrorIs(t, err, ErrTeamNotFound)
}
