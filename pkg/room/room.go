package room

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Item is the static per-object configuration inside a room. Model and
// instruction fall back to the room-level values when empty.
type Item struct {
	Model       string `json:"model,omitempty"`
	Description string `json:"description,omitempty"`
	Secret      string `json:"secret,omitempty"`
}

// Theme is display metadata consumed by the frontend.
type Theme struct {
	Name   string `json:"name"`
	Filter string `json:"filter"`
	Icon   string `json:"icon"`
	Color  string `json:"color"`
}

// Zone is a clickable region of the room backdrop.
type Zone struct {
	ID    string            `json:"id"`
	Label string            `json:"label"`
	Style map[string]string `json:"style"`
}

// Room is one static room definition. Rooms are data: the engine never
// branches on a concrete room id, only on the registry lookups below.
type Room struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Model               string `json:"model"`
	Letter              string `json:"letter,omitempty"`
	SystemInstruction   string `json:"system_instruction"`
	MissionControlIntro string `json:"mission_control_intro,omitempty"`
	// MissionControlPrompt is the coordinator template. Placeholders
	// {current_room} and {inventory} are interpolated per session.
	MissionControlPrompt string          `json:"mission_control_prompt,omitempty"`
	Background           string          `json:"background,omitempty"`
	BackgroundCompleted  string          `json:"background_completed,omitempty"`
	Items                map[string]Item `json:"items"`
	Theme                Theme           `json:"theme"`
	Zones                []Zone          `json:"zones"`

	// Handler resolves instructions for items without a dedicated
	// object handler. Not serialized.
	Handler RoomHandler `json:"-"`
}

// Item returns the item config, reporting whether it is declared.
func (r *Room) Item(itemID string) (Item, bool) {
	item, ok := r.Items[itemID]
	return item, ok
}

// ModelFor returns the item's model selector, falling back to the
// room's model.
func (r *Room) ModelFor(itemID string) string {
	if item, ok := r.Items[itemID]; ok && item.Model != "" {
		return item.Model
	}
	return r.Model
}

var titleCaser = cases.Title(language.English)

// DisplayName renders an item id like "top_bed" as "Top Bed".
func DisplayName(itemID string) string {
	return titleCaser.String(strings.ReplaceAll(itemID, "_", " "))
}
