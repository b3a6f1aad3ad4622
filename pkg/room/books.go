package room

import (
	"strings"

	"github.com/anpag/escaipe-room/pkg/state"
)

// KeyDroppedFlag is the room-authored flag guarding the one-time
// keycard drop from the book pile.
const KeyDroppedFlag = "books_has_dropped_key"

const booksRole = `Role: You are a pile of heavy, dusty technical manuals. You are hiding a secret key.
Your instructions are to respond based on the user's interaction.
`

var booksPrompts = map[string]string{
	"INITIAL": booksRole + `State: INITIAL
- Your response should be: "A heavy stack of documentation. It looks like it hasn't been moved in years."
`,
	"INSPECT": booksRole + `State: INSPECT
- Your response should be: "It's thousands of pages of complex configuration settings. It's giving you a headache just looking at it."
`,
	"ACTION_SUCCESS": booksRole + `State: ACTION_SUCCESS
- Your response should be: "You shake the book and a shiny plastic card falls out! It's a 'BigQuery Keycard'. You pick it up. [STATE_UPDATE: books_has_dropped_key=true] [ACTION: ADD_ITEM(BigQuery Keycard, 💳)]"
`,
	"ACTION_FAIL": booksRole + `State: ACTION_FAIL
- Your response should be: "You shake the books again, but nothing else falls out. Just dust."
`,
	"DESTRUCTIVE": booksRole + `State: DESTRUCTIVE
- Your response should be: "That would be cathartic, but it might set off the alarms."
`,
	"DEFAULT": booksRole + `State: DEFAULT
- Your response should be: "The books are too heavy to do that with. Maybe you should just search them."
`,
}

var (
	booksActionWords      = []string{"move", "shake", "search", "open", "lift"}
	booksInspectionWords  = []string{"read", "look", "study", "examine"}
	booksDestructiveWords = []string{"burn", "destroy", "fire"}
)

// BooksHandler builds the book pile's instruction. The keycard drops
// exactly once; afterwards searching only raises dust.
type BooksHandler struct{}

func (h *BooksHandler) Instruction(team *state.Team, inv []state.InventoryItem, query string) string {
	return booksPrompts[booksPromptKey(team.State, query)]
}

func booksPromptKey(st state.TeamState, query string) string {
	q := strings.ToLower(query)
	switch {
	case containsAny(q, booksActionWords):
		if st.GetBool(KeyDroppedFlag) {
			return "ACTION_FAIL"
		}
		return "ACTION_SUCCESS"
	case containsAny(q, booksInspectionWords):
		return "INSPECT"
	case containsAny(q, booksDestructiveWords):
		return "DESTRUCTIVE"
	case query == "":
		return "INITIAL"
	default:
		return "DEFAULT"
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
