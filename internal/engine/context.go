package engine

import (
	"strings"

	"github.com/anpag/escaipe-room/pkg/room"
	"github.com/anpag/escaipe-room/pkg/state"
)

// CoordinatorChannel is the mission-control companion channel id.
const CoordinatorChannel = "coordinator"

const defaultInstruction = "You are a helpful assistant."

// greetings are the first model message written to an empty channel.
var greetings = map[string]string{
	"terminal":    "SYSTEM ALERT: Governance Lock Active. Identify yourself.",
	"books":       "A heavy stack of documentation. It looks like it hasn't been moved in years.",
	"sparky":      "...prisoner mumbling...",
	"coordinator": "Mission Control online. Signal strength: 100%. I am here to guide you.",
}

// ContextBuilder assembles the per-session system instruction for a
// (team, item) channel from the room registry and the team's state.
type ContextBuilder struct {
	registry *room.Registry
}

// NewContextBuilder creates a context builder over the given registry.
func NewContextBuilder(registry *room.Registry) *ContextBuilder {
	return &ContextBuilder{registry: registry}
}

// SystemInstruction resolves the instruction for one channel session.
// The coordinator gets the room's mission-control template with
// {current_room} and {inventory} interpolated; shared objects get
// their handler's stage-dependent prompt; everything else goes through
// the room handler, falling back to the room default when the handler
// only returns an informational result.
func (b *ContextBuilder) SystemInstruction(team *state.Team, inv []state.InventoryItem, itemID string) string {
	r, ok := b.registry.Room(team.State.CurrentRoom)
	if !ok {
		return defaultInstruction
	}

	if itemID == CoordinatorChannel {
		return b.coordinatorInstruction(r, inv)
	}

	if h, ok := b.registry.ObjectHandler(itemID); ok {
		return h.Instruction(team, inv, "")
	}

	if r.Handler != nil {
		// An empty query yields the item's base prompt.
		res := r.Handler.Handle(team, inv, itemID, "")
		if res.Instruction != "" && !strings.HasPrefix(res.Instruction, room.InfoPrefix) {
			return res.Instruction
		}
	}

	if r.SystemInstruction != "" {
		return r.SystemInstruction
	}
	return defaultInstruction
}

func (b *ContextBuilder) coordinatorInstruction(r *room.Room, inv []state.InventoryItem) string {
	tmpl := r.MissionControlPrompt
	if tmpl == "" {
		return defaultInstruction
	}

	inventory := "Empty"
	if names := state.ItemNames(inv); len(names) > 0 {
		inventory = strings.Join(names, ", ")
	}

	roomName := r.Name
	if roomName == "" {
		roomName = r.ID
	}

	out := strings.ReplaceAll(tmpl, "{current_room}", roomName)
	return strings.ReplaceAll(out, "{inventory}", inventory)
}

// ModelFor resolves the model selector for a channel, falling back to
// the item's room and finally to the given default.
func (b *ContextBuilder) ModelFor(team *state.Team, itemID, defaultModel string) string {
	r, ok := b.registry.Room(team.State.CurrentRoom)
	if !ok {
		return defaultModel
	}
	if m := r.ModelFor(itemID); m != "" {
		return m
	}
	return defaultModel
}

// Greeting returns the first model message for an empty channel.
// Uncanned items greet with their display name, matching the zone
// labels the frontend renders.
func (b *ContextBuilder) Greeting(itemID string) string {
	if g, ok := greetings[itemID]; ok {
		return g
	}
	return "Accessing " + room.DisplayName(itemID) + "... System Ready."
}
