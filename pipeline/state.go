package pipeline

// State is a stage of a pipeline run. A run moves strictly forward through
// Idle, Preflighting, Processing, Verifying and Reporting to Done. Failed is
// reachable only from Preflighting.
type State string

const (
	StateIdle         State = "idle"
	StatePreflighting State = "preflighting"
	StateProcessing   State = "processing"
	StateVerifying    State = "verifying"
	StateReporting    State = "reporting"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

var transitions = map[State]State{
	StateIdle:         StatePreflighting,
	StatePreflighting: StateProcessing,
	StateProcessing:   StateVerifying,
	StateVerifying:    StateReporting,
	StateReporting:    StateDone,
}

// CanTransition reports whether a run may move from one state to another.
func CanTransition(from, to State) bool {
	if from == StatePreflighting && to == StateFailed {
		return true
	}
	return transitions[from] == to
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
