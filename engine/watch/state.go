package watch

import "fmt"

// State is the lifecycle position of a Watcher.
type State int32

const (
	StateIdle State = iota
	StateArmed
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

func isAllowedTransition(from, to State) bool {
	switch from {
	case StateIdle:
		return to == StateArmed || to == StateStopped
	case StateArmed:
		return to == StateRunning || to == StateStopped
	case StateRunning:
		return to == StateArmed || to == StateStopped
	default:
		return false
	}
}
