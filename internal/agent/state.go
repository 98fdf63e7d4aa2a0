package agent

// State is the orchestrator's position in its think/act/respond cycle:
//
//	Idle → Thinking → {ToolUse → Thinking}* → Responding → Idle
type State int

const (
	StateIdle State = iota
	StateThinking
	StateToolUse
	StateResponding
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateThinking:
		return "thinking"
	case StateToolUse:
		return "tool_use"
	case StateResponding:
		return "responding"
	default:
		return "unknown"
	}
}
