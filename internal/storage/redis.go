package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/anpag/escaipe-room/pkg/chat"
	"github.com/anpag/escaipe-room/pkg/state"
)

// Redis key layout:
//
//	team:{uuid}            team record (JSON)
//	teamname:{lower(name)} name index -> uuid
//	teams                  set of team uuids
//	inventory:{uuid}       inventory (JSON array)
//	chat:{uuid}:{channel}  chat history (list of JSON messages)
//	channels:{uuid}        set of channels with history, for cascade delete
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
}

// Ensure RedisStorage implements Storage interface
var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance
func NewRedisStorage(redisURL string, logger *slog.Logger) *RedisStorage {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})
	return &RedisStorage{
		client: rdb,
		logger: logger,
	}
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

func teamKey(id uuid.UUID) string      { return "team:" + id.String() }
func nameKey(name string) string       { return "teamname:" + strings.ToLower(name) }
func inventoryKey(id uuid.UUID) string { return "inventory:" + id.String() }
func channelsKey(id uuid.UUID) string  { return "channels:" + id.String() }

func chatKey(id uuid.UUID, channel string) string {
	return "chat:" + id.String() + ":" + channel
}

// Team operations

func (r *RedisStorage) CreateTeam(ctx context.Context, team *state.Team) error {
	if err := team.Validate(); err != nil {
		return err
	}

	// The name index doubles as the uniqueness guard.
	ok, err := r.client.SetNX(ctx, nameKey(team.Name), team.ID.String(), 0).Result()
	if err != nil {
		r.logger.Error("Failed to reserve team name", "name", team.Name, "error", err)
		return fmt.Errorf("failed to reserve team name: %w", err)
	}
	if !ok {
		return ErrTeamExists
	}

	if err := r.saveTeamRecord(ctx, team); err != nil {
		// Roll back the reservation so the name can be retried.
		r.client.Del(ctx, nameKey(team.Name))
		return err
	}

	if err := r.client.SAdd(ctx, "teams", team.ID.String()).Err(); err != nil {
		r.logger.Error("Failed to index team", "uuid", team.ID, "error", err)
		return fmt.Errorf("failed to index team: %w", err)
	}
	return nil
}

func (r *RedisStorage) GetTeam(ctx context.Context, id uuid.UUID) (*state.Team, error) {
	data, err := r.client.Get(ctx, teamKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Return nil for not found
		}
		r.logger.Error("Failed to load team", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to load team: %w", err)
	}

	var team state.Team
	if err := json.Unmarshal([]byte(data), &team); err != nil {
		r.logger.Error("Failed to unmarshal team", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal team: %w", err)
	}
	return &team, nil
}

func (r *RedisStorage) GetTeamByName(ctx context.Context, name string) (*state.Team, error) {
	idStr, err := r.client.Get(ctx, nameKey(name)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		r.logger.Error("Failed to resolve team name", "name", name, "error", err)
		return nil, fmt.Errorf("failed to resolve team name: %w", err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt name index for %q: %w", name, err)
	}
	return r.GetTeam(ctx, id)
}

func (r *RedisStorage) ListTeams(ctx context.Context) ([]*state.Team, error) {
	ids, err := r.client.SMembers(ctx, "teams").Result()
	if err != nil {
		r.logger.Error("Failed to list teams", "error", err)
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}

	teams := make([]*state.Team, 0, len(ids))
	for _, idStr := range ids {
		id, err := uuid.Parse(idStr)
		if err != nil {
			r.logger.Warn("Skipping corrupt team index entry", "id", idStr)
			continue
		}
		team, err := r.GetTeam(ctx, id)
		if err != nil {
			return nil, err
		}
		if team == nil {
			// Index entry outlived its record; self-heal.
			r.client.SRem(ctx, "teams", idStr)
			continue
		}
		teams = append(teams, team)
	}
	return teams, nil
}

func (r *RedisStorage) SaveTeam(ctx context.Context, team *state.Team) error {
	return r.saveTeamRecord(ctx, team)
}

func (r *RedisStorage) saveTeamRecord(ctx context.Context, team *state.Team) error {
	data, err := json.Marshal(team)
	if err != nil {
		r.logger.Error("Failed to marshal team", "uuid", team.ID, "error", err)
		return fmt.Errorf("failed to marshal team: %w", err)
	}

	if err := r.client.Set(ctx, teamKey(team.ID), string(data), 0).Err(); err != nil {
		r.logger.Error("Failed to save team", "uuid", team.ID, "error", err)
		return fmt.Errorf("failed to save team: %w", err)
	}
	return nil
}

func (r *RedisStorage) DeleteTeam(ctx context.Context, id uuid.UUID) error {
	team, err := r.GetTeam(ctx, id)
	if err != nil {
		return err
	}

	channels, err := r.client.SMembers(ctx, channelsKey(id)).Result()
	if err != nil && err != redis.Nil {
		r.logger.Error("Failed to list team channels", "uuid", id, "error", err)
		return fmt.Errorf("failed to list team channels: %w", err)
	}

	keys := []string{teamKey(id), inventoryKey(id), channelsKey(id)}
	for _, ch := range channels {
		keys = append(keys, chatKey(id, ch))
	}
	if team != nil {
		keys = append(keys, nameKey(team.Name))
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.SRem(ctx, "teams", id.String())
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to delete team", "uuid", id, "error", err)
		return fmt.Errorf("failed to delete team: %w", err)
	}
	return nil
}

// Inventory operations

func (r *RedisStorage) Inventory(ctx context.Context, id uuid.UUID) ([]state.InventoryItem, error) {
	data, err := r.client.Get(ctx, inventoryKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		r.logger.Error("Failed to load inventory", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}

	var items []state.InventoryItem
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		r.logger.Error("Failed to unmarshal inventory", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal inventory: %w", err)
	}
	return items, nil
}

func (r *RedisStorage) SaveInventory(ctx context.Context, id uuid.UUID, items []state.InventoryItem) error {
	if items == nil {
		items = []state.InventoryItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal inventory: %w", err)
	}

	if err := r.client.Set(ctx, inventoryKey(id), string(data), 0).Err(); err != nil {
		r.logger.Error("Failed to save inventory", "uuid", id, "error", err)
		return fmt.Errorf("failed to save inventory: %w", err)
	}
	return nil
}

// Chat history operations

func (r *RedisStorage) History(ctx context.Context, id uuid.UUID, channel string) ([]chat.Message, error) {
	raw, err := r.client.LRange(ctx, chatKey(id, channel), 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		r.logger.Error("Failed to load chat history", "uuid", id, "channel", channel, "error", err)
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	messages := make([]chat.Message, 0, len(raw))
	for _, entry := range raw {
		var msg chat.Message
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			r.logger.Error("Failed to unmarshal chat message", "uuid", id, "channel", channel, "error", err)
			return nil, fmt.Errorf("failed to unmarshal chat message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (r *RedisStorage) AppendMessage(ctx context.Context, id uuid.UUID, channel string, msg chat.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal chat message: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, chatKey(id, channel), string(data))
	pipe.SAdd(ctx, channelsKey(id), channel)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to append chat message", "uuid", id, "channel", channel, "error", err)
		return fmt.Errorf("failed to append chat message: %w", err)
	}
	return nil
}

func (r *RedisStorage) DeleteAllHistory(ctx context.Context, id uuid.UUID) error {
	channels, err := r.client.SMembers(ctx, channelsKey(id)).Result()
	if err != nil && err != redis.Nil {
		r.logger.Error("Failed to list team channels", "uuid", id, "error", err)
		return fmt.Errorf("failed to list team channels: %w", err)
	}

	keys := []string{channelsKey(id)}
	for _, ch := range channels {
		keys = append(keys, chatKey(id, ch))
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.logger.Error("Failed to delete team histories", "uuid", id, "error", err)
		return fmt.Errorf("failed to delete team histories: %w", err)
	}
	return nil
}

func (r *RedisStorage) DeleteHistory(ctx context.Context, id uuid.UUID, channel string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, chatKey(id, channel))
	pipe.SRem(ctx, channelsKey(id), channel)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to delete chat history", "uuid", id, "channel", channel, "error", err)
		return fmt.Errorf("failed to delete chat history: %w", err)
	}
	return nil
}
