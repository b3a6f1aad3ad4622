package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anpag/escaipe-room/internal/engine"
	"github.com/anpag/escaipe-room/internal/storage"
	"github.com/anpag/escaipe-room/pkg/state"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// TeamInfo is the admin-facing view of a team.
type TeamInfo struct {
	ID        uuid.UUID             `json:"id"`
	Name      string                `json:"name"`
	GameState state.TeamState       `json:"game_state"`
	Inventory []state.InventoryItem `json:"inventory"`
	CreatedAt time.Time             `json:"created_at"`
}

// RegisterTeamRequest defines the request body for team registration
type RegisterTeamRequest struct {
	Name string `json:"name"`
}

// GrantItemRequest defines the request body for an admin item grant
type GrantItemRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type TeamsHandler struct {
	store     storage.Storage
	progress  *engine.Progression
	firstRoom string
	logger    *slog.Logger
}

func NewTeamsHandler(store storage.Storage, progress *engine.Progression, firstRoom string, logger *slog.Logger) *TeamsHandler {
	return &TeamsHandler{
		store:     store,
		progress:  progress,
		firstRoom: firstRoom,
		logger:    logger,
	}
}

// ServeHTTP handles HTTP requests for team operations
// Routes:
// POST /v1/teams                 - Register a new team
// GET /v1/teams                  - List teams with inventories
// DELETE /v1/teams/{id}          - Delete a team and all its data
// POST /v1/teams/{id}/reset      - Reset progress to the first room
// POST /v1/teams/{id}/advance    - Advance to the next room
// POST /v1/teams/{id}/items      - Grant an inventory item
// POST /v1/teams/{id}/complete   - Mark the current room completed
func (h *TeamsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/teams"), "/")

	if path == "" {
		switch r.Method {
		case http.MethodPost:
			h.handleRegister(w, r)
		case http.MethodGet:
			h.handleList(w, r)
		default:
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST, GET")
		}
		return
	}

	parts := strings.SplitN(path, "/", 2)
	teamID, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid team ID", "id", parts[0], "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid team ID format")
		return
	}

	team, err := h.store.GetTeam(r.Context(), teamID)
	if err != nil {
		h.logger.Error("Failed to load team", "team_id", teamID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load team")
		return
	}
	if team == nil {
		writeError(w, h.logger, http.StatusNotFound, "Team not found")
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodDelete {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: DELETE")
			return
		}
		h.handleDelete(w, r, team)
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
		return
	}

	switch parts[1] {
	case "reset":
		h.handleReset(w, r, team)
	case "advance":
		h.handleAdvance(w, r, team)
	case "items":
		h.handleGrantItem(w, r, team)
	case "complete":
		h.handleComplete(w, r, team)
	default:
		writeError(w, h.logger, http.StatusNotFound, "Unknown team operation")
	}
}

func (h *TeamsHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Team name cannot be empty")
		return
	}

	team := state.NewTeam(req.Name, h.firstRoom)
	if err := h.store.CreateTeam(r.Context(), team); err != nil {
		if errors.Is(err, storage.ErrTeamExists) {
			writeError(w, h.logger, http.StatusConflict, "Team name already exists")
			return
		}
		h.logger.Error("Failed to register team", "name", req.Name, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to register team")
		return
	}

	h.logger.Info("Team registered", "team_id", team.ID, "name", team.Name)
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, h.logger, h.teamInfo(team, nil))
}

func (h *TeamsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	teams, err := h.store.ListTeams(r.Context())
	if err != nil {
		h.logger.Error("Failed to list teams", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list teams")
		return
	}

	infos := make([]TeamInfo, 0, len(teams))
	for _, team := range teams {
		inv, err := h.store.Inventory(r.Context(), team.ID)
		if err != nil {
			h.logger.Error("Failed to load inventory", "team_id", team.ID, "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to load inventory")
			return
		}
		infos = append(infos, h.teamInfo(team, inv))
	}
	writeJSON(w, h.logger, infos)
}

func (h *TeamsHandler) handleDelete(w http.ResponseWriter, r *http.Request, team *state.Team) {
	if err := h.store.DeleteTeam(r.Context(), team.ID); err != nil {
		h.logger.Error("Failed to delete team", "team_id", team.ID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete team")
		return
	}
	h.logger.Info("Team deleted", "team_id", team.ID, "name", team.Name)
	writeJSON(w, h.logger, map[string]string{"message": "Team deleted successfully"})
}

func (h *TeamsHandler) handleReset(w http.ResponseWriter, r *http.Request, team *state.Team) {
	if err := h.progress.ResetProgress(r.Context(), team); err != nil {
		h.logger.Error("Failed to reset team", "team_id", team.ID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to reset team")
		return
	}
	writeJSON(w, h.logger, map[string]string{
		"message":      "Reset",
		"current_room": team.State.CurrentRoom,
	})
}

func (h *TeamsHandler) handleAdvance(w http.ResponseWriter, r *http.Request, team *state.Team) {
	current, err := h.progress.AdvanceRoom(r.Context(), team)
	if err != nil {
		h.logger.Error("Failed to advance team", "team_id", team.ID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to advance team")
		return
	}
	writeJSON(w, h.logger, map[string]string{"current_room": current})
}

func (h *TeamsHandler) handleGrantItem(w http.ResponseWriter, r *http.Request, team *state.Team) {
	var req GrantItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Item name cannot be empty")
		return
	}

	inv, err := h.store.Inventory(r.Context(), team.ID)
	if err != nil {
		h.logger.Error("Failed to load inventory", "team_id", team.ID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load inventory")
		return
	}

	for _, it := range inv {
		if strings.EqualFold(it.Name, req.Name) {
			writeJSON(w, h.logger, inv)
			return
		}
	}

	inv = append(inv, state.InventoryItem{Name: req.Name, Icon: req.Icon})
	if err := h.store.SaveInventory(r.Context(), team.ID, inv); err != nil {
		h.logger.Error("Failed to save inventory", "team_id", team.ID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save inventory")
		return
	}
	h.logger.Info("Item granted", "team_id", team.ID, "item", req.Name)
	writeJSON(w, h.logger, inv)
}

func (h *TeamsHandler) handleComplete(w http.ResponseWriter, r *http.Request, team *state.Team) {
	team.State.RoomCompleted = true
	if err := h.store.SaveTeam(r.Context(), team); err != nil {
		h.logger.Error("Failed to complete room", "team_id", team.ID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to complete room")
		return
	}

	letter, err := h.progress.AwardLetter(r.Context(), team)
	if err != nil {
		h.logger.Error("Failed to award letter", "team_id", team.ID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to award letter")
		return
	}

	writeJSON(w, h.logger, map[string]any{
		"room_completed": true,
		"letter":         letter,
	})
}

func (h *TeamsHandler) teamInfo(team *state.Team, inv []state.InventoryItem) TeamInfo {
	if inv == nil {
		inv = []state.InventoryItem{}
	}
	return TeamInfo{
		ID:        team.ID,
		Name:      team.Name,
		GameState: team.State,
		Inventory: inv,
		CreatedAt: team.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: msg}); err != nil {
		logger.Error("Failed to encode error response", "error", err)
	}
}
