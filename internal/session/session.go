// Package session holds one conversation's messages and its append-only
// action log. Every read returns a copy.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/clock"
)

// Session holds one conversation's messages, actions and metadata.
type Session struct {
	id          string
	clock       clock.Clock
	messages    []ChatMessage
	actions     []Action
	isThinking  bool
	currentTask string
	createdAt   time.Time
	updatedAt   time.Time
	metadata    map[string]any

	mu sync.Mutex
}

// New creates an empty session. An empty id is replaced by a random UUID.
func New(id string, c clock.Clock) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	if c == nil {
		c = clock.System{}
	}
	now := c.Now()
	return &Session{
		id:        id,
		clock:     c,
		createdAt: now,
		updatedAt: now,
		metadata:  map[string]any{},
	}
}

func (s *Session) ID() string { return s.id }

// AddUser appends a user message and returns it.
func (s *Session) AddUser(content string) ChatMessage {
	return s.addMessage(RoleUser, content)
}

// AddAssistant appends an assistant message and returns it.
func (s *Session) AddAssistant(content string) ChatMessage {
	return s.addMessage(RoleAssistant, content)
}

func (s *Session) addMessage(role Role, content string) ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: s.clock.Now(),
	}
	s.messages = append(s.messages, msg)
	s.updatedAt = msg.Timestamp
	return msg
}

// AppendAction stamps a with an ID and timestamp if missing, appends a copy
// and returns the stored value.
func (s *Session) AppendAction(a Action) Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = s.clock.Now()
	}
	a = a.Clone()
	s.actions = append(s.actions, a)
	s.updatedAt = a.Timestamp
	return a.Clone()
}

// SetThinking updates the in-flight flag and the task description.
func (s *Session) SetThinking(thinking bool, task string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isThinking = thinking
	s.currentTask = task
}

func (s *Session) IsThinking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isThinking
}

// Messages returns a copy of the message history.
func (s *Session) Messages() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ChatMessage(nil), s.messages...)
}

// Actions returns a deep copy of the action log.
func (s *Session) Actions() []Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneActions(s.actions)
}

// ActionsFrom returns a deep copy of the actions from index i on.
func (s *Session) ActionsFrom(i int) []Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	i = min(max(i, 0), len(s.actions))
	return cloneActions(s.actions[i:])
}

// Len returns the number of messages in the session.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// ActionCount returns the number of retained actions.
func (s *Session) ActionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actions)
}

// SetMetadata stores a metadata value.
func (s *Session) SetMetadata(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata[key] = value
}

// Snapshot returns a consistent copy of the whole session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:          s.id,
		Messages:    append([]ChatMessage(nil), s.messages...),
		Actions:     cloneActions(s.actions),
		IsThinking:  s.isThinking,
		CurrentTask: s.currentTask,
		CreatedAt:   s.createdAt,
		UpdatedAt:   s.updatedAt,
		Metadata:    cloneMeta(s.metadata),
	}
}

// TruncateActions keeps the newest keep actions and returns the removed
// prefix, oldest first. keep < 0 is treated as 0.
func (s *Session) TruncateActions(keep int) []Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	keep = max(keep, 0)
	if len(s.actions) <= keep {
		return nil
	}
	cut := len(s.actions) - keep
	removed := s.actions[:cut]
	tail := make([]Action, keep)
	copy(tail, s.actions[cut:])
	s.actions = tail
	s.updatedAt = s.clock.Now()
	return removed
}

// Restore puts actions back at the head of the log, used when archiving fails.
func (s *Session) Restore(actions []Action) {
	if len(actions) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := make([]Action, 0, len(actions)+len(s.actions))
	merged = append(merged, actions...)
	s.actions = append(merged, s.actions...)
}

// Clear resets messages and actions.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.actions = nil
	s.currentTask = ""
	s.updatedAt = s.clock.Now()
}

func cloneActions(in []Action) []Action {
	out := make([]Action, len(in))
	for i, a := range in {
		out[i] = a.Clone()
	}
	return out
}
