package payment

// State is the payment session lifecycle state. Completed, Failed, and
// Cancelled are terminal: a terminal session never transitions again and a
// fresh submission starts a new session from Idle.
type State string

const (
	StateIdle                   State = "IDLE"
	StateCreatingRemoteOrder    State = "CREATING_REMOTE_ORDER"
	StateAwaitingGatewayResult  State = "AWAITING_GATEWAY_RESULT"
	StateVerifyingAndFinalizing State = "VERIFYING_AND_FINALIZING"
	StateCompleted              State = "COMPLETED"
	StateFailed                 State = "FAILED"
	StateCancelled              State = "CANCELLED"
)

// IsTerminal reports whether no further transition can occur from s.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// String implements fmt.Stringer for logging.
func (s State) String() string {
	return string(s)
}

// transitions is the allowed edge set of the session state machine.
var transitions = map[State][]State{
	StateIdle:                  {StateCreatingRemoteOrder},
	StateCreatingRemoteOrder:   {StateAwaitingGatewayResult, StateCompleted, StateFailed},
	StateAwaitingGatewayResult: {StateVerifyingAndFinalizing, StateFailed, StateCancelled},
	StateVerifyingAndFinalizing: {
		StateCompleted, StateFailed,
	},
}

// canTransition reports whether moving from one state to another is allowed.
func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
