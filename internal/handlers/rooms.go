package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/anpag/escaipe-room/pkg/room"
)

type RoomsHandler struct {
	registry *room.Registry
	logger   *slog.Logger
}

func NewRoomsHandler(registry *room.Registry, logger *slog.Logger) *RoomsHandler {
	return &RoomsHandler{registry: registry, logger: logger}
}

// ServeHTTP handles HTTP requests for room configuration
// Routes:
// GET /v1/rooms/{id} - Read a room definition by ID
func (h *RoomsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET")
		return
	}

	roomID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/rooms"), "/")
	if roomID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Room ID is required")
		return
	}

	def, ok := h.registry.Room(roomID)
	if !ok {
		h.logger.Warn("Room not found", "room_id", roomID)
		writeError(w, h.logger, http.StatusNotFound, "Room not found")
		return
	}
	writeJSON(w, h.logger, def)
}
