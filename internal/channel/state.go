package channel

// State identifies where the connection lifecycle currently stands.
type State int32

const (
	// StateIdle means no session is signed in and no connection exists.
	StateIdle State = iota
	// StateConnecting means a handshake is in flight.
	StateConnecting
	// StateConnected means the transport is established and being read.
	StateConnected
	// StateDisconnected means the transport was lost; a retry may be pending
	// or the attempt budget may be exhausted.
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}
