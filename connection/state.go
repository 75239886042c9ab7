package connection

// State describes the lifecycle of the shared connection slot owned by a Factory.
type State int32

const (
	StateUnopened State = iota
	StateOpen
	StateStale
	StateRecreating
	StateClosed
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateOpen:
		return "open"
	case StateStale:
		return "stale"
	case StateRecreating:
		return "recreating"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
