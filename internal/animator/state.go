package animator

// State is the animator lifecycle. States are ordered; comparisons such as
// "state < Exiting" are meaningful.
type State int

const (
	Idle State = iota
	ProcessingEffects
	Running
	Exiting
	Destroyed
)

var stateNames = [...]string{
	Idle:              "idle",
	ProcessingEffects: "processing_effects",
	Running:           "running",
	Exiting:           "exiting",
	Destroyed:         "destroyed",
}

func (s State) String() string {
	if s < Idle || s > Destroyed {
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
	return Idle, false
}
