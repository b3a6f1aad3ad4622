package storage

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/anpag/escaipe-room/pkg/chat"
	"github.com/anpag/escaipe-room/pkg/state"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu          sync.RWMutex
	teams       map[uuid.UUID]*state.Team
	names       map[string]uuid.UUID
	inventories map[uuid.UUID][]state.InventoryItem
	histories   map[string][]chat.Message
	pingError   error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		teams:       make(map[uuid.UUID]*state.Team),
		names:       make(map[string]uuid.UUID),
		inventories: make(map[uuid.UUID][]state.InventoryItem),
		histories:   make(map[string][]chat.Message),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

func historyKey(id uuid.UUID, channel string) string {
	return id.String() + ":" + channel
}

// CreateTeam mocks team registration with name uniqueness
func (m *MockStorage) CreateTeam(ctx context.Context, team *state.Team) error {
	if team == nil {
		return errors.New("team cannot be nil")
	}
	if err := team.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	lower := strings.ToLower(team.Name)
	if _, exists := m.names[lower]; exists {
		return ErrTeamExists
	}
	m.names[lower] = team.ID
	m.teams[team.ID] = team
	return nil
}

// GetTeam mocks loading a team
func (m *MockStorage) GetTeam(ctx context.Context, id uuid.UUID) (*state.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	team, exists := m.teams[id]
	if !exists {
		return nil, nil // Return nil for not found
	}
	return team, nil
}

// GetTeamByName mocks the name index lookup
func (m *MockStorage) GetTeamByName(ctx context.Context, name string) (*state.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, exists := m.names[strings.ToLower(name)]
	if !exists {
		return nil, nil
	}
	return m.teams[id], nil
}

// ListTeams mocks listing all registered teams
func (m *MockStorage) ListTeams(ctx context.Context) ([]*state.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	teams := make([]*state.Team, 0, len(m.teams))
	for _, t := range m.teams {
		teams = append(teams, t)
	}
	return teams, nil
}

// SaveTeam mocks saving a team record
func (m *MockStorage) SaveTeam(ctx context.Context, team *state.Team) error {
	if team == nil {
		return errors.New("team cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teams[team.ID] = team
	return nil
}

// DeleteTeam mocks the cascade delete
func (m *MockStorage) DeleteTeam(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if team, exists := m.teams[id]; exists {
		delete(m.names, strings.ToLower(team.Name))
	}
	delete(m.teams, id)
	delete(m.inventories, id)
	prefix := id.String() + ":"
	for key := range m.histories {
		if strings.HasPrefix(key, prefix) {
			delete(m.histories, key)
		}
	}
	return nil
}

// Inventory mocks loading a team's inventory
func (m *MockStorage) Inventory(ctx context.Context, id uuid.UUID) ([]state.InventoryItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inventories[id], nil
}

// SaveInventory mocks replacing a team's inventory
func (m *MockStorage) SaveInventory(ctx context.Context, id uuid.UUID, items []state.InventoryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inventories[id] = items
	return nil
}

// History mocks loading a channel's chat history
func (m *MockStorage) History(ctx context.Context, id uuid.UUID, channel string) ([]chat.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.histories[historyKey(id, channel)], nil
}

// AppendMessage mocks appending to a channel's chat history
func (m *MockStorage) AppendMessage(ctx context.Context, id uuid.UUID, channel string, msg chat.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := historyKey(id, channel)
	m.histories[key] = append(m.histories[key], msg)
	return nil
}

// DeleteAllHistory mocks clearing every channel's history for a team
func (m *MockStorage) DeleteAllHistory(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := id.String() + ":"
	for key := range m.histories {
		if strings.HasPrefix(key, prefix) {
			delete(m.histories, key)
		}
	}
	return nil
}

// DeleteHistory mocks clearing a channel's chat history
func (m *MockStorage) DeleteHistory(ctx context.Context, id uuid.UUID, channel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.histories, historyKey(id, channel))
	return nil
}
