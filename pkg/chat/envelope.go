package chat

import "encoding/json"

// InventoryEntry is the wire form of one inventory item.
type InventoryEntry struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// ChannelResponse is the single JSON message emitted for each client
// text message on a live channel. On failure only Response and Error
// are populated and the channel stays open.
type ChannelResponse struct {
	Response      string           `json:"response"`
	Inventory     []InventoryEntry `json:"inventory,omitempty"`
	RoomCompleted bool             `json:"room_completed"`
	CurrentRoom   string           `json:"current_room,omitempty"`
	State         json.RawMessage  `json:"state,omitempty"`
	Error         string           `json:"error,omitempty"`
}
