package room

import (
	"testing"

	"github.com/anpag/escaipe-room/pkg/state"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAdvanceTerminal_Login(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantStage string
	}{
		{"correct username", "my username is unity", state.StageQuestion},
		{"case-insensitive", "UNITY CATALOG ADMIN", state.StageQuestion},
		{"wrong username", "admin", state.StageLogin},
		{"empty input", "", state.StageLogin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := AdvanceTerminal(state.TeamState{}, nil, tt.input)
			assert.Equal(t, tt.wantStage, out.Stage())
		})
	}
}

func TestAdvanceTerminal_Question(t *testing.T) {
	start := state.TeamState{TerminalStage: state.StageQuestion}

	out, key := AdvanceTerminal(start, nil, "go serverless")
	assert.Equal(t, state.StageKeySlot, out.Stage())
	assert.Equal(t, state.StageKeySlot, key)

	out, key = AdvanceTerminal(start, nil, "monolith")
	assert.Equal(t, state.StageQuestion, out.Stage())
	assert.Equal(t, 1, out.TerminalFailures)
	assert.Equal(t, "QUESTION_FAIL", key)
}

func TestAdvanceTerminal_QuestionHintAfterRepeatedFailures(t *testing.T) {
	st := state.TeamState{TerminalStage: state.StageQuestion}
	var key string
	for i := 0; i < 10; i++ {
		st, key = AdvanceTerminal(st, nil, "wrong answer")
	}
	assert.Equal(t, "QUESTION_ASSISTANCE", key)

	_, key = AdvanceTerminal(st, nil, "yes please")
	assert.Equal(t, "QUESTION_MULTIPLE_CHOICE", key)
}

func TestAdvanceTerminal_KeySlot(t *testing.T) {
	start := state.TeamState{TerminalStage: state.StageKeySlot}
	keycard := []state.InventoryItem{{Name: KeycardName, Icon: "💳"}}

	// Utterance without the keycard is rejected.
	out, key := AdvanceTerminal(start, nil, "insert key")
	assert.Equal(t, state.StageKeySlot, out.Stage())
	assert.Equal(t, "KEY_SLOT_FAIL", key)

	// Keycard without a matching utterance stays put.
	out, _ = AdvanceTerminal(start, keycard, "hello?")
	assert.Equal(t, state.StageKeySlot, out.Stage())

	// Both present unlocks.
	out, key = AdvanceTerminal(start, keycard, "insert key")
	assert.Equal(t, state.StageUnlocked, out.Stage())
	assert.Equal(t, state.StageUnlocked, key)

	out, _ = AdvanceTerminal(start, keycard, "use the keycard")
	assert.Equal(t, state.StageUnlocked, out.Stage())
}

func TestAdvanceTerminal_UnlockedIsTerminal(t *testing.T) {
	start := state.TeamState{TerminalStage: state.StageUnlocked}
	out, key := AdvanceTerminal(start, nil, "unity serverless insert key")
	assert.Equal(t, state.StageUnlocked, out.Stage())
	assert.Equal(t, state.StageUnlocked, key)
}

func TestTerminalHandler_Instruction(t *testing.T) {
	team := &state.Team{ID: uuid.New(), Name: "Alpha"}

	h := &TerminalHandler{}
	instr := h.Instruction(team, nil, "")
	assert.Contains(t, instr, "State: LOGIN")

	team.State.TerminalStage = state.StageKeySlot
	instr = h.Instruction(team, nil, "")
	assert.Contains(t, instr, "State: KEY_SLOT")
	// The tool call must match the declared check_inventory schema.
	assert.Contains(t, instr, "check_inventory with item_name='"+KeycardName+"'")
}
