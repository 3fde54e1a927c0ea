package evk

// State is the lifecycle position of a camera handle.
//
// Valid transitions: Closed -> Opened -> Initialized -> Started <->
// Stopped -> Closed. Close is reachable from every state and tears down
// a running session first.
type State uint32

const (
	StateClosed State = iota
	StateOpened
	StateInitialized
	StateStarted
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpened:
		return "opened"
	case StateInitialized:
		return "initialized"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
