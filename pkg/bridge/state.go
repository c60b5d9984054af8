package bridge

// State is the bridge lifecycle state. The Manager owns the single
// authoritative copy; State() returns snapshots.
type State int

const (
	Uninitialized State = iota
	Starting
	Running
	Stopping
	Stopped
	Faulted
)

var stateNames = map[State]string{
	Uninitialized: "uninitialized",
	Starting:      "starting",
	Running:       "running",
	Stopping:      "stopping",
	Stopped:       "stopped",
	Faulted:       "faulted",
}

// String returns the boundary's lowercase name for the state.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}
