package chat

import (
	"fmt"
	"time"
)

const (
	// RoleUser marks a message typed by a player.
	RoleUser = "user"
	// RoleModel marks a message produced by the generation service.
	RoleModel = "model"
)

// Message is a single entry in a channel's conversation log.
// Messages are append-only and strictly ordered by timestamp;
// they are never mutated or reordered after creation.
type Message struct {
	Role      string    `json:"role"` // "user" or "model"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a Message stamped with the current time.
func NewMessage(role, content string) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

func (m Message) Validate() error {
	if m.Role != RoleUser && m.Role != RoleModel {
		return fmt.Errorf("invalid message role %q", m.Role)
	}
	if m.Content == "" {
		return fmt.Errorf("message content cannot be empty")
	}
	return nil
}

// HistoryEntry is the client-facing shape of a logged message.
// The model role is renamed to "ai" on the wire.
type HistoryEntry struct {
	Role string `json:"role"` // "ai" or "user"
	Text string `json:"text"`
}

// HistoryPayload is the replay message sent once when a channel opens.
type HistoryPayload struct {
	History []HistoryEntry `json:"history"`
}

// ToHistoryEntry converts a stored message to its wire form.
func (m Message) ToHistoryEntry() HistoryEntry {
	role := "user"
	if m.Role == RoleModel {
		role = "ai"
	}
	return HistoryEntry{Role: role, Text: m.Content}
}
