package launchprobe

import "fmt"

// State is a position in the run lifecycle.
type State int

// Run lifecycle states, in order. StateFailed is reachable from any
// non-terminal state.
const (
	StateUnstarted State = iota
	StateLaunching
	StateAwaitingReady
	StateCapturing
	StateAttached
	StateReported
	StateFailed
)

var stateNames = [...]string{
	StateUnstarted:     "unstarted",
	StateLaunching:     "launching",
	StateAwaitingReady: "awaiting-ready",
	StateCapturing:     "capturing",
	StateAttached:      "attached",
	StateReported:      "reported",
	StateFailed:        "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateReported || s == StateFailed
}

// next returns the only forward state reachable from s.
func (s State) next() (State, bool) {
	switch s {
	case StateUnstarted, StateLaunching, StateAwaitingReady, StateCapturing, StateAttached:
		return s + 1, true
	default:
		return s, false
	}
}

// canTransition reports whether from → to is a legal lifecycle edge.
func canTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	n, ok := from.next()
	return ok && n == to
}
