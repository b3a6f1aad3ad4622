package room

import (
	"fmt"

	"github.com/anpag/escaipe-room/pkg/state"
)

// SnowflakeRoom is the final room. Still under construction; it exists
// so the progression has a terminal stop after the factory.
func SnowflakeRoom() *Room {
	return &Room{
		ID:                "snowflake-room",
		Name:              "Room 5: The Snowflake Vault",
		Model:             "gemini-2.5-flash",
		Letter:            "G",
		SystemInstruction: "You are the guardian of the Snowflake Vault. It is cold here.",
		MissionControlPrompt: `Role: You are "Mission Control". The user has reached the Snowflake Vault, the final chamber.
Current room: {current_room}
The user's inventory: {inventory}

The vault is still under construction. Congratulate the user on the letters they have collected and hint that the combination puzzle awaits.`,
		Items: map[string]Item{},
		Theme: Theme{Name: "Room 5: The Snowflake Vault", Filter: "hue-rotate(180deg) contrast(1.2)", Icon: "Database", Color: "text-cyan-400"},
		Zones: []Zone{
			{ID: "sign", Label: "Vault Sign", Style: map[string]string{"left": "40%", "top": "40%", "width": "20%", "height": "20%"}},
		},
		Handler: &snowflakeHandler{},
	}
}

type snowflakeHandler struct{}

func (h *snowflakeHandler) Handle(team *state.Team, inv []state.InventoryItem, itemID, query string) ItemResult {
	return ItemResult{Instruction: fmt.Sprintf("%s You are in the Snowflake Vault. It is currently under construction.", InfoPrefix)}
}
