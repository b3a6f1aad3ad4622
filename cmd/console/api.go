package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/anpag/escaipe-room/pkg/chat"
	"github.com/anpag/escaipe-room/pkg/state"
)

// TeamInfo mirrors the API's team view.
type TeamInfo struct {
	ID        uuid.UUID             `json:"id"`
	Name      string                `json:"name"`
	GameState state.TeamState       `json:"game_state"`
	Inventory []state.InventoryItem `json:"inventory"`
	CreatedAt time.Time             `json:"created_at"`
}

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// errTeamExists signals a 409 from team registration so the caller can
// fall back to the already-registered team.
var errTeamExists = fmt.Errorf("team name already exists")

func registerTeam(client *http.Client, baseURL string, name string) (*TeamInfo, error) {
	reqBody := map[string]string{"name": name}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(
		baseURL+"/v1/teams",
		"application/json",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusConflict {
		return nil, errTeamExists
	}

	if resp.StatusCode != http.StatusCreated {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("failed to register team: %s", errorResp.Error)
	}

	var team TeamInfo
	if err := json.Unmarshal(body, &team); err != nil {
		return nil, fmt.Errorf("failed to parse team response: %w", err)
	}
	return &team, nil
}

func listTeams(client *http.Client, baseURL string) ([]TeamInfo, error) {
	resp, err := client.Get(baseURL + "/v1/teams")
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("failed to list teams: %s", errorResp.Error)
	}

	var teams []TeamInfo
	if err := json.Unmarshal(body, &teams); err != nil {
		return nil, fmt.Errorf("failed to parse teams response: %w", err)
	}
	return teams, nil
}

func findTeamByName(client *http.Client, baseURL string, name string) (*TeamInfo, error) {
	teams, err := listTeams(client, baseURL)
	if err != nil {
		return nil, err
	}
	for i := range teams {
		if strings.EqualFold(teams[i].Name, name) {
			return &teams[i], nil
		}
	}
	return nil, fmt.Errorf("team %q not found", name)
}

func getTeam(client *http.Client, baseURL string, teamID uuid.UUID) (*TeamInfo, error) {
	teams, err := listTeams(client, baseURL)
	if err != nil {
		return nil, err
	}
	for i := range teams {
		if teams[i].ID == teamID {
			return &teams[i], nil
		}
	}
	return nil, fmt.Errorf("team %s not found", teamID)
}

// dialChannel opens the websocket for one room object and reads the
// history replay the server sends before accepting input.
func dialChannel(baseURL string, teamID uuid.UUID, itemID string) (*websocket.Conn, *chat.HistoryPayload, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid API base URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	q := u.Query()
	q.Set("team_id", teamID.String())
	q.Set("item_id", itemID)
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		if resp != nil {
			body, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			return nil, nil, fmt.Errorf("websocket dial failed (status %d): %s", resp.StatusCode, string(body))
		}
		return nil, nil, fmt.Errorf("websocket dial failed: %w", err)
	}

	var history chat.HistoryPayload
	if err := conn.ReadJSON(&history); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to read channel history: %w", err)
	}
	return conn, &history, nil
}

func sendText(conn *websocket.Conn, text string) error {
	return conn.WriteMessage(websocket.TextMessage, []byte(text))
}

func readResponse(conn *websocket.Conn) (*chat.ChannelResponse, error) {
	var resp chat.ChannelResponse
	if err := conn.ReadJSON(&resp); err != nil {
		return nil, fmt.Errorf("failed to read channel response: %w", err)
	}
	return &resp, nil
}
