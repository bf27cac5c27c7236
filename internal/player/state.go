package player

// State is a player's lifecycle state. States are ordered.
type State int

const (
	Pending State = iota
	Running
	Paused
	Finished
	Destroyed
)

var stateNames = [...]string{
	Pending:   "pending",
	Running:   "running",
	Paused:    "paused",
	Finished:  "finished",
	Destroyed: "destroyed",
}

func (s State) String() string {
	if s < Pending || s > Destroyed {
		return "unknown"
	}
	return stateNames[s]
}

// ParseState is the inverse of State.String.
func ParseState(name string) (State, bool) {
	for s, n := range stateNames {
		if n == name {
			return State(s), true
		}
	}
	return Pending, false
}
