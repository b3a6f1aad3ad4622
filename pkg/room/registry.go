package room

import "github.com/anpag/escaipe-room/pkg/state"

// InfoPrefix marks an informational handler result that is not a
// usable system instruction; the caller falls back to the room's
// default instruction for the item.
const InfoPrefix = "INFO:"

// ItemResult is what a room handler produces for one interaction.
type ItemResult struct {
	// Instruction is either a full system instruction or an
	// informational "INFO: ..." string.
	Instruction string
	// Grants are inventory items awarded procedurally, outside the
	// directive protocol.
	Grants []state.InventoryItem
	// Updates are state keys set procedurally.
	Updates map[string]any
	// Completed reports that the room's challenge is solved.
	Completed bool
}

// ObjectHandler is an interactive object type shared across rooms
// (terminal, books). It builds the object's system instruction from
// the team's current state.
type ObjectHandler interface {
	Instruction(team *state.Team, inv []state.InventoryItem, query string) string
}

// RoomHandler covers a room's remaining interactive objects, keyed by
// item id, including procedural grants and completion signals.
type RoomHandler interface {
	Handle(team *state.Team, inv []state.InventoryItem, itemID, query string) ItemResult
}

// Registry is the immutable room catalog: definitions, the fixed total
// room order, and the object handlers. It is built once at process
// composition time and injected wherever room data is needed.
type Registry struct {
	rooms    map[string]*Room
	order    []string
	handlers map[string]ObjectHandler
}

// NewRegistry builds a registry from room definitions. The order slice
// is the fixed global progression; every id in it must have a
// definition.
func NewRegistry(order []string, rooms []*Room, handlers map[string]ObjectHandler) *Registry {
	byID := make(map[string]*Room, len(rooms))
	for _, r := range rooms {
		byID[r.ID] = r
	}
	if handlers == nil {
		handlers = map[string]ObjectHandler{}
	}
	return &Registry{
		rooms:    byID,
		order:    append([]string(nil), order...),
		handlers: handlers,
	}
}

// DefaultRegistry wires the shipped rooms in their fixed order.
func DefaultRegistry() *Registry {
	return NewRegistry(
		[]string{"databricks-room", "microsoft-room", "snowflake-room"},
		[]*Room{DatabricksRoom(), MicrosoftRoom(), SnowflakeRoom()},
		map[string]ObjectHandler{
			"terminal": &TerminalHandler{},
			"books":    &BooksHandler{},
		},
	)
}

// Room looks up a room definition by id.
func (reg *Registry) Room(id string) (*Room, bool) {
	r, ok := reg.rooms[id]
	return r, ok
}

// Order returns the fixed room sequence.
func (reg *Registry) Order() []string {
	return append([]string(nil), reg.order...)
}

// First returns the id of the first room in the order.
func (reg *Registry) First() string {
	return reg.order[0]
}

// Next returns the room after id in the fixed order. ok is false when
// id is the last room or unknown; advancing past the end is a no-op
// for callers, never an error.
func (reg *Registry) Next(id string) (string, bool) {
	for i, rid := range reg.order {
		if rid == id && i+1 < len(reg.order) {
			return reg.order[i+1], true
		}
	}
	return "", false
}

// Letter returns the reward letter for a room, empty when the room has
// none.
func (reg *Registry) Letter(roomID string) string {
	if r, ok := reg.rooms[roomID]; ok {
		return r.Letter
	}
	return ""
}

// ObjectHandler returns the shared handler for an item id, if any.
func (reg *Registry) ObjectHandler(itemID string) (ObjectHandler, bool) {
	h, ok := reg.handlers[itemID]
	return h, ok
}
