package state

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Team is one player group's persistent progress record. Inventory and
// conversation channels are stored separately and joined by TeamID.
type Team struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	State     TeamState `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTeam creates a registered team starting in firstRoom.
func NewTeam(name, firstRoom string) *Team {
	return &Team{
		ID:        uuid.New(),
		Name:      name,
		State:     TeamState{CurrentRoom: firstRoom},
		CreatedAt: time.Now().UTC(),
	}
}

func (t *Team) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("team name cannot be empty")
	}
	return nil
}

// InventoryItem is owned by exactly one team; the name is unique
// within that team, not globally.
type InventoryItem struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// ItemNames returns just the names, in slice order.
func ItemNames(items []InventoryItem) []string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	return names
}
