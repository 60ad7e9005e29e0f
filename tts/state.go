package tts

// StateType represents the playback controller state. It is always scoped to
// exactly one (document, page) pair.
type StateType int

const (
	// StateIdle indicates no document is loaded.
	StateIdle StateType = iota
	// StateLoading indicates a page run has started but no phrase is ready yet.
	StateLoading
	// StatePlaying indicates clips are being played in order.
	StatePlaying
	// StatePaused indicates a page is ready but audio output is stopped.
	StatePaused
)

// String returns the string representation of the state.
func (s StateType) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// StateMachine manages playback state transitions.
type StateMachine struct {
	current     StateType
	transitions map[StateType][]StateType
}

// NewStateMachine creates a state machine with the valid transitions.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		current: StateIdle,
		transitions: map[StateType][]StateType{
			StateIdle:    {StateLoading},
			StateLoading: {StatePlaying, StatePaused, StateLoading, StateIdle},
			StatePlaying: {StatePaused, StateLoading, StateIdle},
			StatePaused:  {StatePlaying, StateLoading, StateIdle},
		},
	}
}

// Transition attempts to move to the specified state and reports whether the
// transition was valid.
func (sm *StateMachine) Transition(to StateType) bool {
	valid, ok := sm.transitions[sm.current]
	if !ok {
		return false
	}
	for _, state := range valid {
		if state == to {
			sm.current = to
			return true
		}
	}
	return false
}

// Current returns the current state.
func (sm *StateMachine) Current() StateType {
	return sm.current
}
