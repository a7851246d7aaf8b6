package pipeline

// State tracks a page through the pipeline. Failed and Done are terminal.
type State int

const (
	StateDiscovered State = iota
	StateDispatched
	StateFetching
	StateConverting
	StateWriting
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateDiscovered: "discovered",
	StateDispatched: "dispatched",
	StateFetching:   "fetching",
	StateConverting: "converting",
	StateWriting:    "writing",
	StateDone:       "done",
	StateFailed:     "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "invalid"
}
