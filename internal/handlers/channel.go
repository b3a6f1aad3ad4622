package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/anpag/escaipe-room/internal/engine"
)

// closeUnknownTeam is the close code sent when the channel names a
// team that does not exist.
const closeUnknownTeam = 4000

// wsConn adapts *websocket.Conn to the orchestrator's ChannelConn.
type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadMessage() (string, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *wsConn) WriteJSON(v any) error {
	return c.conn.WriteJSON(v)
}

type ChannelHandler struct {
	orchestrator *engine.Orchestrator
	upgrader     websocket.Upgrader
	logger       *slog.Logger
}

func NewChannelHandler(orchestrator *engine.Orchestrator, logger *slog.Logger) *ChannelHandler {
	return &ChannelHandler{
		orchestrator: orchestrator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy is enforced by the CORS layer in front.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeHTTP opens a channel connection
// Routes:
// GET /ws?team_id={uuid}&item_id={item} - Channel websocket
func (h *ChannelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	teamIDStr := r.URL.Query().Get("team_id")
	itemID := r.URL.Query().Get("item_id")
	if teamIDStr == "" || itemID == "" {
		http.Error(w, "team_id and item_id are required", http.StatusBadRequest)
		return
	}

	teamID, err := uuid.Parse(teamIDStr)
	if err != nil {
		http.Error(w, "invalid team_id", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", "team_id", teamID, "error", err)
		return
	}
	defer conn.Close() //nolint:errcheck

	err = h.orchestrator.RunChannel(r.Context(), &wsConn{conn: conn}, teamID, itemID)
	if err != nil {
		if errors.Is(err, engine.ErrTeamNotFound) {
			msg := websocket.FormatCloseMessage(closeUnknownTeam, "team not found")
			_ = conn.WriteMessage(websocket.CloseMessage, msg)
			return
		}
		h.logger.Error("Channel terminated", "team_id", teamID, "channel", itemID, "error", err)
	}
}
