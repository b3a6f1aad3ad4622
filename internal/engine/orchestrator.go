package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/anpag/escaipe-room/internal/services"
	"github.com/anpag/escaipe-room/internal/storage"
	"github.com/anpag/escaipe-room/pkg/chat"
	"github.com/anpag/escaipe-room/pkg/directive"
	"github.com/anpag/escaipe-room/pkg/room"
	"github.com/anpag/escaipe-room/pkg/state"
)

// DegradedResponse is sent when generation fails; the channel stays
// open and the player can retry.
const DegradedResponse = "Connection interference detected. Please retry."

// ErrTeamNotFound is returned when a channel is opened for an unknown
// team.
var ErrTeamNotFound = errors.New("team not found")

// cascadeNotes are the one-shot follow-up prompts injected after a
// terminal stage transition so the model narrates the new stage.
// Follow-up replies are parsed and applied but never cascade again.
var cascadeNotes = map[string]string{
	state.StageQuestion: "[System Note: Access Granted. State updated to QUESTION. Ask the security question: 'To optimize costs and enable true scalability, what architecture must be employed?']",
	state.StageKeySlot:  "[System Note: Answer Correct. State updated to KEY_SLOT. Ask the user to insert the physical key.]",
	state.StageUnlocked: "[System Note: Key Accepted. State updated to UNLOCKED. Tell the user they are free to leave.]",
}

// ChannelConn is the transport side of one channel connection. The
// websocket handler adapts *websocket.Conn to it; tests use an
// in-memory fake.
type ChannelConn interface {
	ReadMessage() (string, error)
	WriteJSON(v any) error
}

// Orchestrator runs channel conversations: history replay, generation,
// directive processing, procedural guards, and progression.
type Orchestrator struct {
	registry     *room.Registry
	store        storage.Storage
	llm          services.LLMService
	builder      *ContextBuilder
	progress     *Progression
	defaultModel string
	logger       *slog.Logger
}

// NewOrchestrator wires an orchestrator over its collaborators.
func NewOrchestrator(registry *room.Registry, store storage.Storage, llm services.LLMService, defaultModel string, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		registry:     registry,
		store:        store,
		llm:          llm,
		builder:      NewContextBuilder(registry),
		progress:     NewProgression(registry, store, logger),
		defaultModel: defaultModel,
		logger:       logger,
	}
}

// Progression exposes the progression controller for the admin
// handlers, which share its semantics with the channel loop.
func (o *Orchestrator) Progression() *Progression {
	return o.progress
}

// RunChannel owns one channel connection from replay to disconnect.
// It returns nil on a clean disconnect; generation failures are
// reported in-band and keep the loop alive.
func (o *Orchestrator) RunChannel(ctx context.Context, conn ChannelConn, teamID uuid.UUID, itemID string) error {
	team, err := o.store.GetTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if team == nil {
		return ErrTeamNotFound
	}

	inv, err := o.store.Inventory(ctx, teamID)
	if err != nil {
		return err
	}
	history, err := o.store.History(ctx, teamID, itemID)
	if err != nil {
		return err
	}

	// An empty channel opens with a canned greeting, persisted so the
	// next connection replays it like any other message.
	if len(history) == 0 {
		greeting := chat.NewMessage(chat.RoleModel, o.builder.Greeting(itemID))
		if err := o.store.AppendMessage(ctx, teamID, itemID, greeting); err != nil {
			return err
		}
		history = []chat.Message{greeting}
	}

	payload := chat.HistoryPayload{History: make([]chat.HistoryEntry, 0, len(history))}
	for _, msg := range history {
		payload.History = append(payload.History, msg.ToHistoryEntry())
	}
	if err := conn.WriteJSON(payload); err != nil {
		return err
	}

	session, err := o.llm.NewSession(ctx, services.SessionConfig{
		Model:             o.builder.ModelFor(team, itemID, o.defaultModel),
		SystemInstruction: o.builder.SystemInstruction(team, inv, itemID),
		History:           history,
		TeamID:            teamID,
		CheckInventory:    o.inventoryChecker(teamID),
	})
	if err != nil {
		return err
	}

	for {
		text, err := conn.ReadMessage()
		if err != nil {
			o.logger.Debug("Channel disconnected", "team_id", teamID, "channel", itemID)
			return nil
		}
		if err := o.handleTurn(ctx, conn, session, teamID, itemID, text); err != nil {
			return err
		}
	}
}

// handleTurn processes one player utterance end to end.
func (o *Orchestrator) handleTurn(ctx context.Context, conn ChannelConn, session services.ChatSession, teamID uuid.UUID, itemID, text string) error {
	if err := o.store.AppendMessage(ctx, teamID, itemID, chat.NewMessage(chat.RoleUser, text)); err != nil {
		return err
	}

	// Re-fetch: admin operations or other channels may have moved the
	// team between turns. Last write within a turn still wins.
	team, err := o.store.GetTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if team == nil {
		return ErrTeamNotFound
	}
	inv, err := o.store.Inventory(ctx, teamID)
	if err != nil {
		return err
	}

	// The team id rides along so the inventory tool knows whose
	// inventory to check.
	prompt := text + "\n[System Note: team_id=" + teamID.String() + "]"
	reply, err := session.Send(ctx, prompt)
	if err != nil {
		o.logger.Error("Generation failed", "team_id", teamID, "channel", itemID, "error", err)
		return conn.WriteJSON(chat.ChannelResponse{Response: DegradedResponse, Error: err.Error()})
	}

	result := directive.Parse(reply, o.logger)
	snap, updates := state.Apply(state.Snapshot{State: team.State, Inventory: inv}, result.Effects, o.logger)

	if itemID == "terminal" {
		if !result.HasUpdate(state.KeyTerminalStage) {
			snap = o.guardTerminal(team.State, inv, text, snap, updates)
		}
	} else if itemID != CoordinatorChannel && itemID != "books" {
		snap = o.runRoomHandler(team, itemID, text, snap, updates)
	}

	team.State = snap.State
	if err := o.store.SaveTeam(ctx, team); err != nil {
		return err
	}
	if err := o.store.SaveInventory(ctx, teamID, snap.Inventory); err != nil {
		return err
	}
	if err := o.store.AppendMessage(ctx, teamID, itemID, chat.NewMessage(chat.RoleModel, result.Text)); err != nil {
		return err
	}

	responseText := result.Text

	// One-shot cascade on a terminal stage transition.
	if stage, ok := updates[state.KeyTerminalStage].(string); ok {
		if note, ok := cascadeNotes[stage]; ok {
			followUp, err := o.cascade(ctx, session, team, itemID, note)
			if err != nil {
				o.logger.Warn("Cascade turn failed", "team_id", teamID, "channel", itemID, "error", err)
			} else if followUp != "" {
				responseText += "\n\n" + followUp
			}
		}
	}

	if _, err := o.progress.AwardLetter(ctx, team); err != nil {
		return err
	}

	finalInv, err := o.store.Inventory(ctx, teamID)
	if err != nil {
		return err
	}
	return conn.WriteJSON(o.envelope(team, finalInv, responseText))
}

// guardTerminal backstops the terminal FSM: when the model failed to
// emit the stage update its prompt calls for, the transition is
// applied procedurally from the player's input.
func (o *Orchestrator) guardTerminal(pre state.TeamState, inv []state.InventoryItem, input string, snap state.Snapshot, updates map[string]any) state.Snapshot {
	guard, _ := room.AdvanceTerminal(pre, inv, input)
	if guard.Stage() != pre.Stage() {
		snap.State.TerminalStage = guard.TerminalStage
		updates[state.KeyTerminalStage] = guard.TerminalStage
		if guard.Stage() == state.StageUnlocked && !snap.State.RoomCompleted {
			snap.State.RoomCompleted = true
			updates[state.KeyRoomCompleted] = true
		}
		return snap
	}

	if guard.TerminalFailures != snap.State.TerminalFailures {
		snap.State.TerminalFailures = guard.TerminalFailures
	}
	return snap
}

// runRoomHandler applies the room handler's procedural side effects
// for the turn: item grants, state writes, and completion.
func (o *Orchestrator) runRoomHandler(team *state.Team, itemID, input string, snap state.Snapshot, updates map[string]any) state.Snapshot {
	r, ok := o.registry.Room(team.State.CurrentRoom)
	if !ok || r.Handler == nil {
		return snap
	}

	res := r.Handler.Handle(team, snap.Inventory, itemID, input)
	for _, grant := range res.Grants {
		if !snapHasItem(snap.Inventory, grant.Name) {
			snap.Inventory = append(snap.Inventory, grant)
		}
	}
	for k, v := range res.Updates {
		snap.State.Set(k, v)
		updates[k] = v
	}
	if res.Completed && !snap.State.RoomCompleted {
		snap.State.RoomCompleted = true
		updates[state.KeyRoomCompleted] = true
	}
	return snap
}

// cascade runs the bounded follow-up turn after a stage transition.
// Its directives are applied, but no further cascade is triggered.
func (o *Orchestrator) cascade(ctx context.Context, session services.ChatSession, team *state.Team, itemID, note string) (string, error) {
	reply, err := session.Send(ctx, note)
	if err != nil {
		return "", err
	}

	inv, err := o.store.Inventory(ctx, team.ID)
	if err != nil {
		return "", err
	}

	result := directive.Parse(reply, o.logger)
	snap, _ := state.Apply(state.Snapshot{State: team.State, Inventory: inv}, result.Effects, o.logger)

	team.State = snap.State
	if err := o.store.SaveTeam(ctx, team); err != nil {
		return "", err
	}
	if err := o.store.SaveInventory(ctx, team.ID, snap.Inventory); err != nil {
		return "", err
	}
	if err := o.store.AppendMessage(ctx, team.ID, itemID, chat.NewMessage(chat.RoleModel, result.Text)); err != nil {
		return "", err
	}
	return result.Text, nil
}

func (o *Orchestrator) envelope(team *state.Team, inv []state.InventoryItem, responseText string) chat.ChannelResponse {
	entries := make([]chat.InventoryEntry, 0, len(inv))
	for _, it := range inv {
		entries = append(entries, chat.InventoryEntry{Name: it.Name, Icon: it.Icon})
	}

	stateJSON, err := json.Marshal(team.State)
	if err != nil {
		o.logger.Error("Failed to marshal team state", "team_id", team.ID, "error", err)
		stateJSON = []byte("{}")
	}

	return chat.ChannelResponse{
		Response:      responseText,
		Inventory:     entries,
		RoomCompleted: team.State.RoomCompleted,
		CurrentRoom:   team.State.CurrentRoom,
		State:         stateJSON,
	}
}

func (o *Orchestrator) inventoryChecker(teamID uuid.UUID) services.InventoryChecker {
	return func(ctx context.Context, itemName string) (bool, error) {
		inv, err := o.store.Inventory(ctx, teamID)
		if err != nil {
			return false, err
		}
		return snapHasItem(inv, itemName), nil
	}
}

func snapHasItem(inv []state.InventoryItem, name string) bool {
	for _, it := range inv {
		if strings.EqualFold(it.Name, name) {
			return true
		}
	}
	return false
}
