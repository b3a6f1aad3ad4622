package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/anpag/escaipe-room/pkg/chat"
)

// InventoryChecker reports whether the team currently holds an item.
// The generation backend calls it when the model asks to check the
// team's inventory mid-turn.
type InventoryChecker func(ctx context.Context, itemName string) (bool, error)

// SessionConfig describes one channel conversation: which model to
// use, the object's persona, and the history to resume from.
type SessionConfig struct {
	Model             string
	SystemInstruction string
	History           []chat.Message
	TeamID            uuid.UUID
	CheckInventory    InventoryChecker
}

// ChatSession is a stateful conversation bound to a single channel.
// Implementations are not safe for concurrent use; the channel loop
// is the only caller.
type ChatSession interface {
	// Send submits the player's text and returns the raw model reply,
	// directive tags included.
	Send(ctx context.Context, text string) (string, error)
}

// LLMService defines the interface for the generation backend
type LLMService interface {
	// InitModel verifies the model is available on startup
	InitModel(ctx context.Context, modelName string) error

	// Ping reports generation readiness for health checks
	Ping(ctx context.Context) error

	// NewSession opens a conversation seeded with the given config
	NewSession(ctx context.Context, cfg SessionConfig) (ChatSession, error)

	// Close releases the backend connection
	Close() error
}
