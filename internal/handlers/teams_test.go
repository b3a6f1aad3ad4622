package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anpag/escaipe-room/internal/engine"
	"github.com/anpag/escaipe-room/internal/storage"
	"github.com/anpag/escaipe-room/pkg/chat"
	"github.com/anpag/escaipe-room/pkg/room"
	"github.com/anpag/escaipe-room/pkg/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

func setupTeamsHandler(t *testing.T) (*TeamsHandler, *storage.MockStorage) {
	t.Helper()

	registry := room.DefaultRegistry()
	store := storage.NewMockStorage()
	logger := testLogger()
	progress := engine.NewProgression(registry, store, logger)
	return NewTeamsHandler(store, progress, registry.First(), logger), store
}

func TestTeamsHandler_Register(t *testing.T) {
	handler, _ := setupTeamsHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/teams", strings.NewReader(`{"name":"Alpha"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var info TeamInfo
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&info))
	assert.NotEqual(t, uuid.Nil, info.ID)
	assert.Equal(t, "Alpha", info.Name)
	assert.Equal(t, "databricks-room", info.GameState.CurrentRoom)
	assert.Empty(t, info.Inventory)
}

func TestTeamsHandler_RegisterValidation(t *testing.T) {
	handler, _ := setupTeamsHandler(t)

	tests := []struct {
		name           string
		requestBody    string
		expectedStatus int
	}{
		{
			name:           "empty name",
			requestBody:    `{"name":"  "}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			requestBody:    `{invalid json}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "valid",
			requestBody:    `{"name":"Bravo"}`,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "duplicate name",
			requestBody:    `{"name":"bravo"}`,
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/teams", strings.NewReader(tt.requestBody))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)
			assert.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
		})
	}
}

func TestTeamsHandler_List(t *testing.T) {
	handler, store := setupTeamsHandler(t)
	ctx := context.Background()

	team := state.NewTeam("Alpha", "databricks-room")
	require.NoError(t, store.CreateTeam(ctx, team))
	require.NoError(t, store.SaveInventory(ctx, team.ID, []state.InventoryItem{{Name: "BigQuery Keycard", Icon: "💳"}}))

	req := httptest.NewRequest(http.MethodGet, "/v1/teams", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var infos []TeamInfo
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "Alpha", infos[0].Name)
	require.Len(t, infos[0].Inventory, 1)
	assert.Equal(t, "BigQuery Keycard", infos[0].Inventory[0].Name)
}

func TestTeamsHandler_Delete(t *testing.T) {
	handler, store := setupTeamsHandler(t)
	ctx := context.Background()

	team := state.NewTeam("Alpha", "databricks-room")
	require.NoError(t, store.CreateTeam(ctx, team))
	require.NoError(t, store.AppendMessage(ctx, team.ID, "terminal", chat.NewMessage(chat.RoleUser, "unity")))

	req := httptest.NewRequest(http.MethodDelete, "/v1/teams/"+team.ID.String(), nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	loaded, err := store.GetTeam(ctx, team.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	history, err := store.History(ctx, team.ID, "terminal")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestTeamsHandler_TeamNotFound(t *testing.T) {
	handler, _ := setupTeamsHandler(t)

	req := httptest.NewRequest(http.MethodDelete, "/v1/teams/"+uuid.NewString(), nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	req = httptest.NewRequest(http.MethodDelete, "/v1/teams/not-a-uuid", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTeamsHandler_ResetAndAdvance(t *testing.T) {
	handler, store := setupTeamsHandler(t)
	ctx := context.Background()

	team := state.NewTeam("Alpha", "databricks-room")
	team.State.RoomCompleted = true
	require.NoError(t, store.CreateTeam(ctx, team))

	req := httptest.NewRequest(http.MethodPost, "/v1/teams/"+team.ID.String()+"/advance", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var advance map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&advance))
	assert.Equal(t, "microsoft-room", advance["current_room"])

	req = httptest.NewRequest(http.MethodPost, "/v1/teams/"+team.ID.String()+"/reset", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	loaded, err := store.GetTeam(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, "databricks-room", loaded.State.CurrentRoom)
	assert.False(t, loaded.State.RoomCompleted)
}

func TestTeamsHandler_GrantItem(t *testing.T) {
	handler, store := setupTeamsHandler(t)
	ctx := context.Background()

	team := state.NewTeam("Alpha", "databricks-room")
	require.NoError(t, store.CreateTeam(ctx, team))

	grant := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/teams/"+team.ID.String()+"/items",
			strings.NewReader(`{"name":"BigQuery Keycard","icon":"💳"}`))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	require.Equal(t, http.StatusOK, grant().Code)
	// Granting the same item twice does not duplicate it.
	require.Equal(t, http.StatusOK, grant().Code)

	inv, err := store.Inventory(ctx, team.ID)
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Equal(t, "BigQuery Keycard", inv[0].Name)
}

func TestTeamsHandler_Complete(t *testing.T) {
	handler, store := setupTeamsHandler(t)
	ctx := context.Background()

	team := state.NewTeam("Alpha", "databricks-room")
	require.NoError(t, store.CreateTeam(ctx, team))

	req := httptest.NewRequest(http.MethodPost, "/v1/teams/"+team.ID.String()+"/complete", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, true, resp["room_completed"])
	assert.Equal(t, "S", resp["letter"])

	loaded, err := store.GetTeam(ctx, team.ID)
	require.NoError(t, err)
	assert.True(t, loaded.State.RoomCompleted)
	assert.Equal(t, []string{"S"}, loaded.State.CollectedLetters)
}
