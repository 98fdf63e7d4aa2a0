package session

import (
	"maps"
	"time"
)

// Role identifies the author of a ChatMessage.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is an immutable conversation entry.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ActionType classifies an entry in the action log.
type ActionType string

const (
	ActionThought  ActionType = "thought"
	ActionToolUse  ActionType = "tool_use"
	ActionResponse ActionType = "response"
)

// Action is one step of the orchestrator's reasoning. Tool fields are set
// only for ActionToolUse.
type Action struct {
	ID         string         `json:"id"`
	Type       ActionType     `json:"type"`
	Content    string         `json:"content"`
	Timestamp  time.Time      `json:"timestamp"`
	Tool       string         `json:"tool,omitempty"`
	ToolInput  map[string]any `json:"tool_input,omitempty"`
	ToolOutput string         `json:"tool_output,omitempty"`
	Outcome    string         `json:"outcome,omitempty"`
}

// Clone returns a copy that shares no mutable state with a.
func (a Action) Clone() Action {
	a.ToolInput = cloneParams(a.ToolInput)
	return a
}

func cloneParams(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch v := v.(type) {
		case map[string]any:
			out[k] = cloneParams(v)
		case []any:
			cp := make([]any, len(v))
			copy(cp, v)
			out[k] = cp
		default:
			out[k] = v
		}
	}
	return out
}

// Snapshot is a point-in-time copy of a Session.
type Snapshot struct {
	ID          string         `json:"id"`
	Messages    []ChatMessage  `json:"messages"`
	Actions     []Action       `json:"actions"`
	IsThinking  bool           `json:"is_thinking"`
	CurrentTask string         `json:"current_task,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func cloneMeta(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}
