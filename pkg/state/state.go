package state

import (
	"encoding/json"
	"sort"
)

// Terminal stages. The terminal object walks these in order; UNLOCKED
// has no outgoing transition.
const (
	StageLogin    = "LOGIN"
	StageQuestion = "QUESTION"
	StageKeySlot  = "KEY_SLOT"
	StageUnlocked = "UNLOCKED"
)

// Reserved state keys inspected by the engine. Room scripts may set
// any other key; those land in Vars.
const (
	KeyCurrentRoom      = "current_room"
	KeyRoomCompleted    = "room_completed"
	KeyTerminalStage    = "terminal_stage"
	KeyTerminalFailures = "terminal_failures"
	KeyCollectedLetters = "collected_letters"
	KeyLatestLetter     = "latest_letter"
)

// TeamState is a team's game state. The keys the engine itself
// inspects are explicit fields; room-authored flags go in Vars. On the
// wire the whole thing flattens to a single JSON object, matching the
// loosely-keyed shape the frontend consumes.
type TeamState struct {
	CurrentRoom      string
	RoomCompleted    bool
	TerminalStage    string // empty means LOGIN
	TerminalFailures int
	CollectedLetters []string // sorted, set semantics
	LatestLetter     string
	Vars             map[string]any
}

// Clone returns a deep copy. Mutations always go through
// copy-modify-replace so persistence sees a fresh value.
func (s TeamState) Clone() TeamState {
	out := s
	if s.CollectedLetters != nil {
		out.CollectedLetters = append([]string(nil), s.CollectedLetters...)
	}
	if s.Vars != nil {
		out.Vars = make(map[string]any, len(s.Vars))
		for k, v := range s.Vars {
			out.Vars[k] = v
		}
	}
	return out
}

// Get looks up a state key, reserved or room-authored.
func (s TeamState) Get(key string) (any, bool) {
	switch key {
	case KeyCurrentRoom:
		return s.CurrentRoom, s.CurrentRoom != ""
	case KeyRoomCompleted:
		return s.RoomCompleted, true
	case KeyTerminalStage:
		return s.Stage(), true
	case KeyTerminalFailures:
		return s.TerminalFailures, true
	case KeyCollectedLetters:
		return s.CollectedLetters, s.CollectedLetters != nil
	case KeyLatestLetter:
		return s.LatestLetter, s.LatestLetter != ""
	}
	v, ok := s.Vars[key]
	return v, ok
}

// Set assigns a state key in place, routing reserved keys to their
// typed fields. Values arrive already coerced by the directive parser.
func (s *TeamState) Set(key string, value any) {
	switch key {
	case KeyCurrentRoom:
		if v, ok := value.(string); ok {
			s.CurrentRoom = v
		}
	case KeyRoomCompleted:
		if v, ok := value.(bool); ok {
			s.RoomCompleted = v
		}
	case KeyTerminalStage:
		if v, ok := value.(string); ok {
			s.TerminalStage = v
		}
	case KeyTerminalFailures:
		if v, ok := value.(int); ok {
			s.TerminalFailures = v
		}
	case KeyLatestLetter:
		if v, ok := value.(string); ok {
			s.LatestLetter = v
		}
	default:
		if s.Vars == nil {
			s.Vars = make(map[string]any)
		}
		s.Vars[key] = value
	}
}

// Stage returns the terminal stage, defaulting to LOGIN.
func (s TeamState) Stage() string {
	if s.TerminalStage == "" {
		return StageLogin
	}
	return s.TerminalStage
}

// GetBool reads a boolean flag, reserved or room-authored.
func (s TeamState) GetBool(key string) bool {
	v, ok := s.Get(key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// AddLetter inserts a letter keeping set semantics over a sorted
// sequence; it reports whether the letter was new.
func (s *TeamState) AddLetter(letter string) bool {
	for _, l := range s.CollectedLetters {
		if l == letter {
			return false
		}
	}
	s.CollectedLetters = append(s.CollectedLetters, letter)
	sort.Strings(s.CollectedLetters)
	return true
}

// MarshalJSON flattens reserved fields and Vars into one object.
func (s TeamState) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(s.Vars)+6)
	for k, v := range s.Vars {
		m[k] = v
	}
	m[KeyCurrentRoom] = s.CurrentRoom
	if s.RoomCompleted {
		m[KeyRoomCompleted] = true
	}
	if s.TerminalStage != "" {
		m[KeyTerminalStage] = s.TerminalStage
	}
	if s.TerminalFailures != 0 {
		m[KeyTerminalFailures] = s.TerminalFailures
	}
	if s.CollectedLetters != nil {
		m[KeyCollectedLetters] = s.CollectedLetters
	}
	if s.LatestLetter != "" {
		m[KeyLatestLetter] = s.LatestLetter
	}
	return json.Marshal(m)
}

// UnmarshalJSON splits the flat object back into reserved fields and Vars.
func (s *TeamState) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*s = TeamState{}
	for k, v := range m {
		switch k {
		case KeyCurrentRoom:
			if str, ok := v.(string); ok {
				s.CurrentRoom = str
			}
		case KeyRoomCompleted:
			if b, ok := v.(bool); ok {
				s.RoomCompleted = b
			}
		case KeyTerminalStage:
			if str, ok := v.(string); ok {
				s.TerminalStage = str
			}
		case KeyTerminalFailures:
			if n, ok := v.(float64); ok {
				s.TerminalFailures = int(n)
			}
		case KeyCollectedLetters:
			if arr, ok := v.([]any); ok {
				letters := make([]string, 0, len(arr))
				for _, e := range arr {
					if str, ok := e.(string); ok {
						letters = append(letters, str)
					}
				}
				sort.Strings(letters)
				s.CollectedLetters = letters
			}
		case KeyLatestLetter:
			if str, ok := v.(string); ok {
				s.LatestLetter = str
			}
		default:
			if s.Vars == nil {
				s.Vars = make(map[string]any)
			}
			// JSON numbers decode as float64; room flags are written as
			// bool/int/string by the directive parser, so fold integral
			// floats back to int for symmetry.
			if f, ok := v.(float64); ok && f == float64(int(f)) {
				s.Vars[k] = int(f)
				continue
			}
			s.Vars[k] = v
		}
	}
	return nil
}
