package engine

// State is the phase of the live session.
type State string

const (
	// StateIdle means no attempts are queued for the current lift.
	StateIdle State = "idle"

	// StateActive means the session is running and the attempt clock ticks.
	StateActive State = "active"

	// StatePaused means the queue is frozen but visible.
	StatePaused State = "paused"

	// StateLiftCompleted means every attempt of the current lift is done.
	// The operator either changes lift or ends the competition.
	StateLiftCompleted State = "lift_completed"

	// StateEnded is terminal for the session.
	StateEnded State = "ended"
)

func (s State) in(states ...State) bool {
	for _, st := range states {
		if s == st {
			return true
		}
	}
	return false
}
