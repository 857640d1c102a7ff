package core

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Ethan2298/Objectiv/internal/llm"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a conversation. Once appended it is immutable; the
// in-progress assistant turn during streaming is not yet a Message.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ContextItem is an external-entity reference the user attached to bias the
// next request. Independent of message history.
type ContextItem struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	Snapshot string `json:"snapshot"`
}

// TransferState is the payload carried when a session is moved to a
// standalone surface.
type TransferState struct {
	Title        string        `json:"title"`
	Mode         llm.Mode      `json:"mode"`
	Messages     []Message     `json:"messages"`
	ContextItems []ContextItem `json:"selectedContextItems"`
}

// Session is one conversation bound to one tab. It survives tab switches and
// is destroyed only when its tab closes.
type Session struct {
	// ID is the opaque tab id, stable for the tab's lifetime.
	ID string

	mu           sync.Mutex
	title        string
	mode         llm.Mode
	messages     []Message
	contextItems []ContextItem
	stream       *StreamSession
}

// newSession allocates a Session, optionally seeded from transferred state.
func newSession(id string, mode llm.Mode, seed *TransferState) *Session {
	s := &Session{
		ID:       id,
		mode:     mode,
		messages: make([]Message, 0),
	}
	if seed != nil {
		s.title = seed.Title
		if seed.Mode != "" {
			s.mode = seed.Mode
		}
		s.messages = append(s.messages, seed.Messages...)
		s.contextItems = append(s.contextItems, seed.ContextItems...)
	}
	return s
}

// Title returns the session title.
func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

// SetTitle updates the session title.
func (s *Session) SetTitle(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title = title
}

// Mode returns the backend mode for the next request.
func (s *Session) Mode() llm.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode changes the backend mode for subsequent requests.
func (s *Session) SetMode(mode llm.Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
}

// Messages returns a snapshot of the conversation history.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// ClearMessages discards the conversation history. This is the only way a
// session's history shrinks.
func (s *Session) ClearMessages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = s.messages[:0]
}

// appendMessage appends an immutable Message and returns it.
func (s *Session) appendMessage(role Role, content string) Message {
	id, _ := NewMessageID()
	msg := Message{
		ID:        id,
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return msg
}

// ContextItems returns a snapshot of the selected context items.
func (s *Session) ContextItems() []ContextItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ContextItem, len(s.contextItems))
	copy(out, s.contextItems)
	return out
}

// AddContextItem attaches an external-entity reference to the session.
func (s *Session) AddContextItem(item ContextItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contextItems = append(s.contextItems, item)
}

// ClearContextItems detaches all selected context items.
func (s *Session) ClearContextItems() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contextItems = s.contextItems[:0]
}

// Stream returns the active StreamSession, or nil when no request is
// outstanding.
func (s *Session) Stream() *StreamSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream
}

// trySetStream installs ss as the active stream only if no request is
// outstanding. The check and the install are one critical section, so of any
// number of concurrent sends exactly one wins the reservation.
func (s *Session) trySetStream(ss *StreamSession) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream != nil {
		return false
	}
	s.stream = ss
	return true
}

func (s *Session) setStream(ss *StreamSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream = ss
}

// clearStream removes ss if it is still the active stream. Stale terminal
// streams never clobber a newer one.
func (s *Session) clearStream(ss *StreamSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == ss {
		s.stream = nil
	}
}

// TransferState snapshots the session for handoff to a standalone surface.
func (s *Session) TransferState() TransferState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := TransferState{
		Title:        s.title,
		Mode:         s.mode,
		Messages:     make([]Message, len(s.messages)),
		ContextItems: make([]ContextItem, len(s.contextItems)),
	}
	copy(st.Messages, s.messages)
	copy(st.ContextItems, s.contextItems)
	return st
}

// contextBlock serializes the selected context items as plain text for
// prepending to the outgoing user message content.
func (s *Session) contextBlock() string {
	items := s.ContextItems()
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Selected context:\n")
	for _, item := range items {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", item.Kind, item.Name, item.Snapshot)
	}
	b.WriteString("\n")
	return b.String()
}

// history converts the conversation to wire role/content pairs.
func (s *Session) history() []llm.ChatMessage {
	msgs := s.Messages()
	out := make([]llm.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, llm.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}
