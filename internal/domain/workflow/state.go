package workflow

// State is the top-level status of a reimbursement request
type State string

const (
	StateActive    State = "ACTIVE"
	StateApproved  State = "APPROVED"
	StateDenied    State = "DENIED"
	StateCancelled State = "CANCELLED"
	StateAwarded   State = "AWARDED"
)

var validStates = map[State]bool{
	StateActive:    true,
	StateApproved:  true,
	StateDenied:    true,
	StateCancelled: true,
	StateAwarded:   true,
}

var terminalStates = map[State]bool{
	StateDenied:    true,
	StateCancelled: true,
	StateAwarded:   true,
}

// IsTerminal returns true if no further transitions are allowed
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known request status
func (s State) IsValid() bool {
	return validStates[s]
}
