package llm

import "encoding/json"

// EventKind categorizes a normalized streaming event.
type EventKind string

// Event kinds emitted by the protocol adapters.
const (
	EventText       EventKind = "text_delta"  // Text fragment for the in-progress turn
	EventToolUse    EventKind = "tool_use"    // Backend invoked a tool
	EventToolResult EventKind = "tool_result" // Result payload for the preceding tool call
	EventDone       EventKind = "done"        // Normal completion of the stream
	EventError      EventKind = "error"       // Backend-reported or transport failure
)

// StreamEvent is the normalized unit of streaming progress. Both wire formats
// and the agent envelope reduce to this one type, consumed via a single switch
// on Kind.
type StreamEvent struct {
	Kind EventKind

	// Text fragment (EventText).
	Text string

	// Tool call fields (EventToolUse).
	ToolName string
	ToolArgs json.RawMessage

	// Raw result payload, JSON or plain string (EventToolResult).
	ToolResult string

	// Failure reported by the backend or transport (EventError).
	Err error
}

// TextEvent builds a text delta event.
func TextEvent(text string) StreamEvent {
	return StreamEvent{Kind: EventText, Text: text}
}

// DoneEvent builds a completion event.
func DoneEvent() StreamEvent {
	return StreamEvent{Kind: EventDone}
}

// ErrorEvent builds an error event.
func ErrorEvent(err error) StreamEvent {
	return StreamEvent{Kind: EventError, Err: err}
}
