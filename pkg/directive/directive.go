package directive

// EffectKind identifies one of the closed set of effects a directive
// tag can produce.
type EffectKind string

const (
	EffectStateUpdate EffectKind = "state_update"
	EffectAddItem     EffectKind = "add_item"
	EffectRemoveItem  EffectKind = "remove_item"
)

// Effect is a single machine-readable instruction extracted from
// generated text. StateUpdate effects carry Key/Value; inventory
// effects carry Name (and Icon for adds).
type Effect struct {
	Kind  EffectKind
	Key   string
	Value any
	Name  string
	Icon  string
}

// Result is the outcome of parsing one generated reply.
type Result struct {
	// Text is the reply with every matched directive tag stripped.
	Text string
	// Effects preserves extraction order: all state updates first,
	// then inventory actions.
	Effects []Effect
	// Updates is the key->value diff of the state-update effects,
	// used by the orchestrator for cascade decisions.
	Updates map[string]any
}

// HasUpdate reports whether the parse produced a state update for key.
func (r Result) HasUpdate(key string) bool {
	_, ok := r.Updates[key]
	return ok
}
