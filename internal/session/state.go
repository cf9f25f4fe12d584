package session

// State 会话状态
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateAuthenticating
	StateAuthenticated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateAuthenticating:
		return "Authenticating"
	case StateAuthenticated:
		return "Authenticated"
	case StateClosed:
		return "Closed"
	}
	return "Unknown"
}

// 允许的状态迁移
var transitions = map[State][]State{
	StateDisconnected:   {StateConnecting},
	StateConnecting:     {StateConnected, StateDisconnected},
	StateConnected:      {StateAuthenticating, StateClosed},
	StateAuthenticating: {StateAuthenticated, StateConnected},
	StateAuthenticated:  {StateClosed},
	StateClosed:         {StateConnecting},
}

// CanTransition 检查 from -> to 是否合法
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
