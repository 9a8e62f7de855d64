package puller

// State is a puller lifecycle state.
type State int

// Lifecycle states. A stopped loop returns the puller to Ready; Closed is
// terminal.
const (
	StateIdle State = iota
	StatePreparing
	StateReady
	StateRunning
	StateStopping
	StateClosed
)

var stateNames = [...]string{
	StateIdle:      "idle",
	StatePreparing: "preparing",
	StateReady:     "ready",
	StateRunning:   "running",
	StateStopping:  "stopping",
	StateClosed:    "closed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
