package room

import (
	"strings"

	"github.com/anpag/escaipe-room/pkg/state"
)

// KeycardName is the physical token the terminal's key slot expects.
const KeycardName = "BigQuery Keycard"

// Number of wrong answers before the terminal offers a hint.
const questionHintThreshold = 10

const terminalRole = `Role: You are an old, rigid, command-line interface terminal built by Databricks. You are bureaucratic, obsessed with "Governance," and speak in system logs and error codes.
Your instructions are to follow the state machine logic below. The user's current state will be provided to you. Based on their input, you must generate a response that guides them to the next step.
`

// terminalPrompts maps a stage key to the instruction fragment for
// that stage.
var terminalPrompts = map[string]string{
	state.StageLogin: terminalRole + `State: LOGIN
- If the user's input contains "Unity" (case-insensitive), your response should be: "IDENTITY VERIFIED. Welcome, Unity Catalog Admin. Proceeding to Cost Override Protocol."
  - Command: [STATE_UPDATE: terminal_stage=QUESTION]
- Otherwise, your response should be: "ACCESS DENIED. Username not recognized. Governance policy restricts access to authorized personnel only."
`,
	state.StageQuestion: terminalRole + `State: QUESTION
- You ask: "PROCESSING... TO OPTIMIZE COSTS AND ENABLE TRUE SCALABILITY, WHAT ARCHITECTURE MUST BE EMPLOYED?"
- If the user's input contains "Serverless" (case-insensitive), your response should be: "CORRECT. True Serverless architecture acknowledged. Cost optimization verified."
  - Command: [STATE_UPDATE: terminal_stage=KEY_SLOT]
- Otherwise, your response should be: "INCORRECT. Answer does not compute. Cluster costs are rising. Try again."
`,
	stageQuestionFail: terminalRole + `State: QUESTION_FAIL
- Your response should be: "INCORRECT. Answer does not compute. Cluster costs are rising. Try again."
`,
	stageQuestionAssist: terminalRole + `State: QUESTION_ASSISTANCE
- Your response should be: "You seem to be having trouble. Would you like a hint? (yes/no)"
`,
	stageQuestionChoices: terminalRole + `State: QUESTION_MULTIPLE_CHOICE
- Your response should be: "Hint: Which of the following is a key feature of a truly modern data platform? A) On-premise servers, B) Serverless computing, C) Manual scaling."
`,
	state.StageKeySlot: terminalRole + `State: KEY_SLOT
- You are waiting for a physical key card.
- If the user says "insert key", "use key", "scan card" or similar, YOU MUST CALL THE TOOL check_inventory with item_name='BigQuery Keycard'.
  - If the tool returns has_item=true, your response should be: "KEY ACCEPTED. Releasing Vendor Lock-in mechanism... Door Unlocked."
    - Command: [STATE_UPDATE: terminal_stage=UNLOCKED]
  - Otherwise, your response should be: "ERROR: Key slot empty. You do not possess the required keycard."
- Otherwise, your response should be: "Waiting for physical key insertion..."
`,
	stageKeySlotFail: terminalRole + `State: KEY_SLOT_FAIL
- Your response should be: "ERROR: Key slot empty. You do not possess the required keycard."
`,
	state.StageUnlocked: terminalRole + `State: UNLOCKED
- Your response should be: "System Status: GREEN. You are free to leave."
`,
}

// Prompt-only keys that are not persisted terminal stages.
const (
	stageQuestionFail    = "QUESTION_FAIL"
	stageQuestionAssist  = "QUESTION_ASSISTANCE"
	stageQuestionChoices = "QUESTION_MULTIPLE_CHOICE"
	stageKeySlotFail     = "KEY_SLOT_FAIL"
)

// TerminalHandler builds the terminal's system instruction from the
// team's persisted stage (default LOGIN).
type TerminalHandler struct{}

func (h *TerminalHandler) Instruction(team *state.Team, inv []state.InventoryItem, query string) string {
	return terminalPrompts[team.State.Stage()]
}

// AdvanceTerminal runs the terminal's finite-state machine for one
// user utterance and returns the updated state plus the prompt key to
// respond with. Transitions:
//
//	LOGIN     --"unity"-->                QUESTION
//	QUESTION  --"serverless"-->           KEY_SLOT
//	KEY_SLOT  --insert/use + keycard-->   UNLOCKED
//
// UNLOCKED has no outgoing transition. Repeated QUESTION failures
// count toward a hint offer.
func AdvanceTerminal(st state.TeamState, inv []state.InventoryItem, input string) (state.TeamState, string) {
	out := st.Clone()
	q := strings.ToLower(input)
	promptKey := out.Stage()

	switch out.Stage() {
	case state.StageLogin:
		if strings.Contains(q, "unity") {
			out.TerminalStage = state.StageQuestion
			promptKey = state.StageQuestion
		}

	case state.StageQuestion:
		switch {
		case strings.Contains(q, "serverless"):
			out.TerminalStage = state.StageKeySlot
			promptKey = state.StageKeySlot
		case st.TerminalFailures >= questionHintThreshold && strings.Contains(q, "yes"):
			// Accepted the hint offer.
			promptKey = stageQuestionChoices
		default:
			out.TerminalFailures++
			if out.TerminalFailures >= questionHintThreshold {
				promptKey = stageQuestionAssist
			} else {
				promptKey = stageQuestionFail
			}
		}

	case state.StageKeySlot:
		hasKey := false
		for _, item := range inv {
			if item.Name == KeycardName {
				hasKey = true
				break
			}
		}
		if hasKey && (strings.Contains(q, "insert") || strings.Contains(q, "use")) {
			out.TerminalStage = state.StageUnlocked
			promptKey = state.StageUnlocked
		} else {
			promptKey = stageKeySlotFail
		}

	case state.StageUnlocked:
		// Terminal state; nothing left to do.
	}

	return out, promptKey
}
