package session

// State is a step of the session lifecycle.
type State int32

const (
	StateConnecting State = iota
	StateNegotiatingMode
	StateNegotiatingName
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateNegotiatingMode:
		return "negotiating_mode"
	case StateNegotiatingName:
		return "negotiating_name"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
