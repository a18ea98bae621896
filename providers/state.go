package providers

import "fmt"

// State is a provider's position in the lifecycle state machine.
type State int

const (
	StateRegistered State = iota
	StateBooted
	StateDeferred
	StateFailed
	StateDisposed
)

var stateNames = map[State]string{
	StateRegistered: "registered",
	StateBooted:     "booted",
	StateDeferred:   "deferred",
	StateFailed:     "failed",
	StateDisposed:   "disposed",
}

// String returns the lowercase state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Inactive reports whether the provider is registered but not running and
// may still be booted through the enable path.
func (s State) Inactive() bool {
	return s == StateRegistered || s == StateDeferred || s == StateDisposed
}

// UnmarshalText decodes a state name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown provider state %q", text)
}
