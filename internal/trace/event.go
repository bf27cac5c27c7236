package trace

// Kind names one category of traced operation.
type Kind string

// Render port operations.
const (
	KindTransition    Kind = "transition"
	KindStyle         Kind = "style"
	KindClass         Kind = "class"
	KindComputed      Kind = "computed"
	KindReflow        Kind = "reflow"
	KindYield         Kind = "yield"
	KindFrame         Kind = "frame"
	KindTimerSet      Kind = "timer_set"
	KindTimerClear    Kind = "timer_clear"
	KindTimerFire     Kind = "timer_fire"
	KindTransitionEnd Kind = "transition_end"
	KindListen        Kind = "listen"
	KindUnlisten      Kind = "unlisten"
)

// Harness observations.
const (
	KindStatus Kind = "status"
	KindDone   Kind = "done"
	KindStep   Kind = "step"
)

// Event is one traced operation.
//
// Target is empty for operations without a target (timers). Name carries the
// property, class, timer ID or player ID depending on Kind. An empty Value on
// a transition or style event means the value was cleared.
type Event struct {
	Seq    int64  `json:"seq"`
	Kind   Kind   `json:"kind"`
	Target string `json:"target,omitempty"`
	Name   string `json:"name,omitempty"`
	Value  string `json:"value,omitempty"`
}

// object converts the event to its canonical form. Empty optional fields are
// omitted so cleared values and absent values serialize identically.
func (e Event) object() map[string]any {
	obj := map[string]any{
		"seq":  e.Seq,
		"kind": string(e.Kind),
	}
	if e.Target != "" {
		obj["target"] = e.Target
	}
	if e.Name != "" {
		obj["name"] = e.Name
	}
	if e.Value != "" {
		obj["value"] = e.Value
	}
	return obj
}

// Filter returns the events of the given kinds, preserving order.
func Filter(events []Event, kinds ...Kind) []Event {
	want := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}

	var out []Event
	for _, e := range events {
		if want[e.Kind] {
			out = append(out, e)
		}
	}
	return out
}

// Count returns how many events have the given kind.
func Count(events []Event, kind Kind) int {
	n := 0
	for _, e := range events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
