// Package playback provides the playback engine that owns the output device binding.
package playback

// State represents the playback state.
type State int

const (
	StateIdle    State = iota // No current track
	StateLoading              // Fetching and binding the current track
	StatePlaying              // Track is playing
	StatePaused               // Track is paused
	StateStopped              // Halted at position 0 or ended; track kept
	StateError                // Last load failed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseState converts a string produced by String back to a State.
func ParseState(s string) (State, bool) {
	for st := StateIdle; st <= StateError; st++ {
		if st.String() == s {
			return st, true
		}
	}
	return StateIdle, false
}
