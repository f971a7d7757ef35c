package workflow

// State represents a stage in the per-invoice review lifecycle.
type State string

const (
	// StatePending: bronze rows exist, no reviewer decision yet.
	StatePending State = "PENDING"
	// StateAccepted: a source has been chosen and validated, not yet written.
	StateAccepted State = "ACCEPTED"
	// StateCommitted: the gold record has been replaced and the status flipped.
	StateCommitted State = "COMMITTED"
	// StateRejected: the reviewer declined both sources.
	StateRejected State = "REJECTED"
)

var validStates = map[State]bool{
	StatePending:   true,
	StateAccepted:  true,
	StateCommitted: true,
	StateRejected:  true,
}

var terminalStates = map[State]bool{
	StateRejected: true,
}

// IsTerminal returns true if no further transitions are allowed from the state.
// Committed is not terminal: a resubmission reopens the invoice and replaces
// the gold record.
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known review state.
func (s State) IsValid() bool {
	return validStates[s]
}
