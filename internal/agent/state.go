package agent

// State is the agent loop's position in its turn state machine.
type State int

const (
	StateAwaitingInput State = iota
	StateComposing
	StateGenerating
	StateToolDispatch
	StateCompleted
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateAwaitingInput:
		return "awaiting_input"
	case StateComposing:
		return "composing"
	case StateGenerating:
		return "generating"
	case StateToolDispatch:
		return "tool_dispatch"
	case StateCompleted:
		return "completed"
	case StateErrored:
		return "errored"
	}
	return "unknown"
}
