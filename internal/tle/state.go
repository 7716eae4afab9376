package tle

import "fmt"

// State is a phase of the parse state machine.
type State int

const (
	StateInitial State = iota
	StateDetectingFormat
	StateParsingName
	StateParsingLine1
	StateParsingLine2
	StateValidating
	StateCompleted
	StateError
)

var stateNames = [...]string{
	StateInitial:         "initial",
	StateDetectingFormat: "detecting_format",
	StateParsingName:     "parsing_name",
	StateParsingLine1:    "parsing_line1",
	StateParsingLine2:    "parsing_line2",
	StateValidating:      "validating",
	StateCompleted:       "completed",
	StateError:           "error",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateError
}

func (s State) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(stateNames) {
		return nil, fmt.Errorf("unknown state %d", int(s))
	}
	return []byte(stateNames[s]), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", b)
}

// transitions lists the allowed forward edges. Every non-terminal state
// may also fall to StateError.
var transitions = map[State][]State{
	StateInitial:         {StateDetectingFormat},
	StateDetectingFormat: {StateParsingName, StateParsingLine1},
	StateParsingName:     {StateParsingLine1},
	StateParsingLine1:    {StateParsingLine2},
	StateParsingLine2:    {StateValidating},
	StateValidating:      {StateCompleted},
}

func canTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateError {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
