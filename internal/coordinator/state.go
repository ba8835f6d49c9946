package coordinator

import (
	"fmt"
	"slices"
)

// State of an analysis run.
type State int

const (
	Idle State = iota
	Loading
	Indexing
	Analyzing
	Done
	// Failed is reached only when the project graph has a cycle.
	Failed
	Cancelled
)

var stateNames = [...]string{"idle", "loading", "indexing", "analyzing", "done", "failed", "cancelled"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == Done || s == Failed || s == Cancelled
}

var transitions = map[State][]State{
	Idle:      {Loading, Cancelled},
	Loading:   {Indexing, Failed, Cancelled},
	Indexing:  {Analyzing, Cancelled},
	Analyzing: {Done, Cancelled},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to State) bool {
	return slices.Contains(transitions[from], to)
}
