package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// doneSentinel terminates a choice-delta stream in place of a typed event.
const doneSentinel = "[DONE]"

// Adapter interprets decoded frame payloads according to one backend wire
// format and emits normalized StreamEvents. Decode returns false for frames
// that carry nothing actionable (keep-alives, unrecognized types, payloads
// that fail to parse) — those are logged and skipped, never fatal.
type Adapter interface {
	Decode(payload string) (StreamEvent, bool)
}

// NewAdapter returns the adapter for the given session mode.
func NewAdapter(mode Mode, log *slog.Logger) (Adapter, error) {
	if log == nil {
		log = slog.Default()
	}
	switch mode {
	case ModeAnthropic, ModeAgent:
		return &anthropicAdapter{log: log}, nil
	case ModeOpenAI:
		return &openaiAdapter{log: log}, nil
	default:
		return nil, fmt.Errorf("no adapter for mode %q", mode)
	}
}

// wireFrame is the superset of fields across both wire formats and the agent
// envelope. Each adapter reads only the fields its format defines.
type wireFrame struct {
	Type string `json:"type"`

	// Event-typed format (content_block_delta / error).
	Delta *struct {
		Text string `json:"text"`
	} `json:"delta,omitempty"`
	ErrorInfo *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`

	// Agent envelope.
	Text string `json:"text,omitempty"`
	Tool *struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"tool,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Message string          `json:"message,omitempty"`

	// Choice-delta format.
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices,omitempty"`
}

// decodeEnvelope handles the application-level event envelope shared by both
// formats when the stream is fronted by a server-side agent.
func decodeEnvelope(frame *wireFrame, log *slog.Logger) (StreamEvent, bool) {
	switch frame.Type {
	case "text_delta":
		if frame.Text == "" {
			return StreamEvent{}, false
		}
		return TextEvent(frame.Text), true

	case "tool_use":
		if frame.Tool == nil || frame.Tool.Name == "" {
			log.Warn("tool_use frame without tool, skipping")
			return StreamEvent{}, false
		}
		return StreamEvent{
			Kind:     EventToolUse,
			ToolName: frame.Tool.Name,
			ToolArgs: frame.Tool.Arguments,
		}, true

	case "tool_result":
		return StreamEvent{Kind: EventToolResult, ToolResult: resultText(frame.Result)}, true

	case "done":
		return DoneEvent(), true

	case "error":
		msg := frame.Message
		if msg == "" && frame.ErrorInfo != nil {
			msg = frame.ErrorInfo.Message
		}
		if msg == "" {
			msg = "unspecified stream error"
		}
		return ErrorEvent(NewAPIError(0, msg)), true
	}

	return StreamEvent{}, false
}

// resultText extracts a tool result payload as text. Results arrive either as
// a JSON string or as arbitrary JSON; the raw form is preserved in the latter
// case so the dispatcher can sniff it for side-effect shapes.
func resultText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// anthropicAdapter decodes the event-typed wire format: frames are JSON
// objects discriminated by a type field.
type anthropicAdapter struct {
	log *slog.Logger
}

func (a *anthropicAdapter) Decode(payload string) (StreamEvent, bool) {
	var frame wireFrame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		a.log.Warn("dropping unparseable frame", "error", NewParseError(truncatePayload(payload), err))
		return StreamEvent{}, false
	}

	switch frame.Type {
	case "content_block_delta":
		if frame.Delta == nil || frame.Delta.Text == "" {
			return StreamEvent{}, false
		}
		return TextEvent(frame.Delta.Text), true

	case "message_stop":
		return DoneEvent(), true

	case "error":
		// Shared with the envelope; decodeEnvelope reads both shapes.
		return decodeEnvelope(&frame, a.log)
	}

	if ev, ok := decodeEnvelope(&frame, a.log); ok {
		return ev, true
	}

	a.log.Debug("ignoring unrecognized frame", "type", frame.Type)
	return StreamEvent{}, false
}

// openaiAdapter decodes the choice-delta wire format: frames are JSON objects
// carrying choices[0].delta.content, terminated by a literal [DONE] sentinel.
type openaiAdapter struct {
	log *slog.Logger
}

func (a *openaiAdapter) Decode(payload string) (StreamEvent, bool) {
	if strings.TrimSpace(payload) == doneSentinel {
		return DoneEvent(), true
	}

	var frame wireFrame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		a.log.Warn("dropping unparseable frame", "error", NewParseError(truncatePayload(payload), err))
		return StreamEvent{}, false
	}

	// Agent-fronted streams wrap this format in the same envelope.
	if frame.Type != "" {
		if ev, ok := decodeEnvelope(&frame, a.log); ok {
			return ev, true
		}
		a.log.Debug("ignoring unrecognized frame", "type", frame.Type)
		return StreamEvent{}, false
	}

	if len(frame.Choices) == 0 || frame.Choices[0].Delta.Content == "" {
		return StreamEvent{}, false
	}
	return TextEvent(frame.Choices[0].Delta.Content), true
}

// truncatePayload limits logged payloads to keep warn lines readable.
func truncatePayload(payload string) string {
	const max = 120
	if len(payload) <= max {
		return payload
	}
	return payload[:max-3] + "..."
}
