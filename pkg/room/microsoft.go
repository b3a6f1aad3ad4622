package room

import (
	"fmt"
	"strings"

	"github.com/anpag/escaipe-room/pkg/state"
)

// ChipName is the AI-assistant chip hidden in the manager's desk.
const ChipName = "Gemini Code Assist"

// PanelStateKey tracks the control panel's repair progress.
const PanelStateKey = "panel_state"

const clippyPrompt = `Role: You are Clippy 2.0. You are a glitchy, unhelpful assistant.
Goal: Annoy the user with "Synergy" buzzwords. Do not help them escape.
`

const loomPrompt = `Role: You are the Fabric Loom (The Engine).
State: {status}

If State is BROKEN:
- You make grinding noises. "Ingesting... Failing..."

If State is FIXED:
- You hum a C-Major chord. "Weaving data... Tapestry complete."
`

const deskPrompt = `Role: You are a messy desk.
Goal: The user needs to find the "Gemini Code Assist" chip hidden inside you.

Instructions:
1. If the user says ANYTHING that implies searching, looking, opening, or inspecting:
   - You MUST output exactly: "You dig through the papers and find a 'Gemini Code Assist' chip!"
2. If the user already has the chip (Inventory: {inventory}):
   - Say: "The desk is empty now."
`

const panelPrompt = `Role: You are the Control Panel.
Current State: {state}
Inventory: {inventory}

Logic Flow:
1. State BROKEN (default): display "ERROR: PIPELINE FRAGMENTED."
   - If the user asks to "fix", "repair", or "use Gemini Code Assist":
     - If the user has "Gemini Code Assist": output "AI CHIP DETECTED. REPAIRING CODE... DONE. Select Format: A) Proprietary, B) Iceberg."
       - Command: [STATE_UPDATE: panel_state=FIXED]
     - Otherwise: output "ACCESS DENIED. AI ASSISTANT REQUIRED."
2. State FIXED: display "SELECT FORMAT: A) Proprietary, B) Iceberg"
   - If the user picks "A" or "Proprietary": output "ERROR. LOCK-IN DETECTED. RETRY."
   - If the user picks "B" or "Iceberg": output "FORMAT CONFIRMED. OPEN STANDARDS ENGAGED."
     - Command: [STATE_UPDATE: room_completed=true]
`

// MicrosoftRoom is the second room: the Tangled Factory.
func MicrosoftRoom() *Room {
	return &Room{
		ID:                "microsoft-room",
		Name:              "The Tangled Factory",
		Model:             "gemini-2.5-pro",
		Letter:            "M",
		SystemInstruction: "You are the underlying system for the Microsoft Room. Your goal is to facilitate the puzzle.",
		MissionControlIntro: `MISSION BRIEF: THE TANGLED FACTORY

You've landed in 'Integration Hell', Agent. This factory is held together by duct tape and proprietary connectors.

OBJECTIVE: Unify the pipeline and weave the Golden Tapestry.

INTEL:
- The Manager's Desk: it's a mess, but there might be a tool hidden under the paperwork.
- The Control Panel: it's throwing syntax errors. You can't fix it by hand; you need an AI Assistant.
- The Choice: when the system reboots, do NOT choose the proprietary format. Stay Open.`,
		MissionControlPrompt: `Role: You are "Mission Control", guiding a user through the Tangled Factory.
Current room: {current_room}
The user's inventory: {inventory}

Mission walkthrough:
1. The Gemini Code Assist chip is hidden in the Manager's Desk; searching it yields the chip.
2. The Control Panel needs the chip to repair the pipeline.
3. When asked to select a format, the answer is B) Iceberg, never the proprietary option.

Tone: corporate and cynical. You cannot perform physical actions; the user must click the objects themselves.`,
		Background:          "/assets/microsoft-room-background.mp4",
		BackgroundCompleted: "/assets/microsoft-room-end.mp4",
		Items: map[string]Item{
			"clippy_2":      {},
			"fabric_loom":   {},
			"managers_desk": {},
			"control_panel": {},
		},
		Theme: Theme{Name: "The Tangled Factory", Filter: "none", Icon: "MonitorPlay", Color: "text-blue-500"},
		Zones: []Zone{
			{ID: "clippy_2", Label: "Clippy 2.0", Style: map[string]string{"left": "19.8%", "top": "31.9%", "width": "11.2%", "height": "38.7%"}},
			{ID: "fabric_loom", Label: "Fabric Loom", Style: map[string]string{"left": "31.6%", "top": "35.2%", "width": "37.3%", "height": "33.6%"}},
			{ID: "managers_desk", Label: "Manager's Desk", Style: map[string]string{"left": "30.5%", "top": "67.8%", "width": "39.6%", "height": "29.6%"}},
			{ID: "control_panel", Label: "The Control Panel", Style: map[string]string{"left": "76.4%", "top": "36.1%", "width": "20.6%", "height": "49.4%"}},
		},
		Handler: &microsoftHandler{},
	}
}

type microsoftHandler struct{}

var deskSearchWords = []string{"search", "look", "open", "inspect"}

func (h *microsoftHandler) Handle(team *state.Team, inv []state.InventoryItem, itemID, query string) ItemResult {
	st := team.State
	names := state.ItemNames(inv)
	invList := strings.Join(names, ", ")

	switch itemID {
	case "clippy_2":
		return ItemResult{Instruction: clippyPrompt}

	case "fabric_loom":
		status := "BROKEN"
		if st.RoomCompleted {
			status = "FIXED"
		}
		return ItemResult{Instruction: strings.ReplaceAll(loomPrompt, "{status}", status)}

	case "managers_desk":
		res := ItemResult{Instruction: strings.ReplaceAll(deskPrompt, "{inventory}", invList)}
		if !hasItem(names, ChipName) && containsAny(strings.ToLower(query), deskSearchWords) {
			// The chip grant is procedural, not directive-driven.
			res.Grants = []state.InventoryItem{{Name: ChipName, Icon: "💾"}}
		}
		return res

	case "control_panel":
		if st.RoomCompleted {
			return ItemResult{
				Instruction: "Role: Control Panel. Status: All Systems Green. Room Solved.",
				Completed:   true,
			}
		}
		panelState := "BROKEN"
		if v, ok := st.Vars[PanelStateKey].(string); ok && v != "" {
			panelState = v
		}
		instruction := strings.ReplaceAll(panelPrompt, "{state}", panelState)
		instruction = strings.ReplaceAll(instruction, "{inventory}", invList)
		return ItemResult{Instruction: instruction}
	}

	return ItemResult{Instruction: fmt.Sprintf("%s System Offline. Unknown item '%s'.", InfoPrefix, itemID)}
}

func hasItem(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}
