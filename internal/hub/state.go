package hub

// State is the connection lifecycle of the hub.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateIdle
	StateFetching
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// transitions lists the allowed successors of every state. Disconnect is
// reachable from everywhere; a failed save returns to the state it left.
var transitions = map[State][]State{
	StateDisconnected: {StateConnecting, StateDisconnected},
	StateConnecting:   {StateIdle, StateError, StateDisconnected},
	StateIdle:         {StateConnecting, StateFetching, StateDisconnected},
	StateFetching:     {StateIdle, StateError, StateFetching, StateConnecting, StateDisconnected},
	StateError:        {StateConnecting, StateFetching, StateDisconnected},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
