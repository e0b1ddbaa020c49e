package build

import (
	"fmt"
)

// State is the lifecycle state of a Driver.
type State int

const (
	Idle State = iota
	Configuring
	Building
	Installing
	Done
	Failed
)

var stateNames = [...]string{
	Idle:        "Idle",
	Configuring: "Configuring",
	Building:    "Building",
	Installing:  "Installing",
	Done:        "Done",
	Failed:      "Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// IsTerminal reports whether no further phase can run from s.
func (s State) IsTerminal() bool {
	return s == Done || s == Failed
}

// allowed lists the legal transitions. Failed is reachable from every
// state between Idle and Done.
func allowed(from, to State) bool {
	if to == Failed {
		return from != Idle && !from.IsTerminal()
	}
	switch from {
	case Idle:
		return to == Configuring
	case Configuring:
		return to == Building
	case Building:
		return to == Installing || to == Done
	case Installing:
		return to == Done
	}
	return false
}
