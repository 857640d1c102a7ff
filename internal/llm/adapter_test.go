package llm

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// runPayloads pushes each payload through the adapter and collects the events
// it accepts, mirroring what the stream reader does with decoded frames.
func runPayloads(t *testing.T, a Adapter, payloads ...string) []StreamEvent {
	t.Helper()
	var events []StreamEvent
	for _, p := range payloads {
		if ev, ok := a.Decode(p); ok {
			events = append(events, ev)
		}
	}
	return events
}

func TestNewAdapter(t *testing.T) {
	for _, mode := range []Mode{ModeAnthropic, ModeOpenAI, ModeAgent} {
		a, err := NewAdapter(mode, testLogger())
		require.NoError(t, err, "mode %s", mode)
		require.NotNil(t, a)
	}

	_, err := NewAdapter(Mode("carrier-pigeon"), testLogger())
	assert.Error(t, err)
}

func TestAnthropicAdapter_TextDeltas(t *testing.T) {
	a, err := NewAdapter(ModeAnthropic, testLogger())
	require.NoError(t, err)

	events := runPayloads(t, a,
		`{"type":"message_start","message":{}}`,
		`{"type":"content_block_delta","delta":{"text":"Hel"}}`,
		`{"type":"content_block_delta","delta":{"text":"lo"}}`,
		`{"type":"message_stop"}`,
	)

	require.Len(t, events, 3)
	assert.Equal(t, EventText, events[0].Kind)
	assert.Equal(t, "Hel", events[0].Text)
	assert.Equal(t, "lo", events[1].Text)
	assert.Equal(t, EventDone, events[2].Kind)
	assert.Equal(t, "Hello", events[0].Text+events[1].Text)
}

func TestAnthropicAdapter_ErrorFrame(t *testing.T) {
	a, err := NewAdapter(ModeAnthropic, testLogger())
	require.NoError(t, err)

	ev, ok := a.Decode(`{"type":"error","error":{"message":"overloaded"}}`)
	require.True(t, ok)
	assert.Equal(t, EventError, ev.Kind)
	require.Error(t, ev.Err)
	assert.Contains(t, ev.Err.Error(), "overloaded")

	var streamErr *StreamError
	require.ErrorAs(t, ev.Err, &streamErr)
	assert.Equal(t, ErrorTypeAPI, streamErr.Type)
}

func TestAnthropicAdapter_SkipsMalformedFrames(t *testing.T) {
	a, err := NewAdapter(ModeAnthropic, testLogger())
	require.NoError(t, err)

	// A malformed frame between two valid ones must not disturb either.
	events := runPayloads(t, a,
		`{"type":"content_block_delta","delta":{"text":"before"}}`,
		`{not json at all`,
		`{"type":"content_block_delta","delta":{"text":"after"}}`,
	)

	require.Len(t, events, 2)
	assert.Equal(t, "before", events[0].Text)
	assert.Equal(t, "after", events[1].Text)
}

func TestAdapter_MalformedFrameWarnsWithParseError(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	for _, mode := range []Mode{ModeAnthropic, ModeOpenAI} {
		buf.Reset()
		a, err := NewAdapter(mode, log)
		require.NoError(t, err)

		_, ok := a.Decode(`{broken frame`)
		require.False(t, ok, "mode %s", mode)
		assert.Contains(t, buf.String(), "stream parse error", "mode %s", mode)
		assert.Contains(t, buf.String(), "{broken frame", "mode %s", mode)
	}
}

func TestAnthropicAdapter_IgnoresEmptyDeltaAndUnknownTypes(t *testing.T) {
	a, err := NewAdapter(ModeAnthropic, testLogger())
	require.NoError(t, err)

	for _, payload := range []string{
		`{"type":"content_block_delta","delta":{"text":""}}`,
		`{"type":"content_block_delta"}`,
		`{"type":"ping"}`,
		`{"type":"content_block_start","content_block":{"type":"text"}}`,
	} {
		_, ok := a.Decode(payload)
		assert.False(t, ok, "payload %s", payload)
	}
}

func TestOpenAIAdapter_ChoiceDeltas(t *testing.T) {
	a, err := NewAdapter(ModeOpenAI, testLogger())
	require.NoError(t, err)

	events := runPayloads(t, a,
		`{"choices":[{"delta":{"content":"A"}}]}`,
		`{"choices":[{"delta":{"content":"B"}}]}`,
		`[DONE]`,
	)

	require.Len(t, events, 3)
	assert.Equal(t, "A", events[0].Text)
	assert.Equal(t, "B", events[1].Text)
	assert.Equal(t, EventDone, events[2].Kind)
	assert.Equal(t, "AB", events[0].Text+events[1].Text)
}

func TestOpenAIAdapter_DoneSentinelWhitespace(t *testing.T) {
	a, err := NewAdapter(ModeOpenAI, testLogger())
	require.NoError(t, err)

	ev, ok := a.Decode(" [DONE] ")
	require.True(t, ok)
	assert.Equal(t, EventDone, ev.Kind)
}

func TestOpenAIAdapter_SkipsEmptyChoices(t *testing.T) {
	a, err := NewAdapter(ModeOpenAI, testLogger())
	require.NoError(t, err)

	for _, payload := range []string{
		`{"choices":[]}`,
		`{"choices":[{"delta":{}}]}`,
		`{"choices":[{"delta":{"content":""}}]}`,
		`not json`,
	} {
		_, ok := a.Decode(payload)
		assert.False(t, ok, "payload %s", payload)
	}
}

func TestEnvelope_ToolFlow(t *testing.T) {
	// The agent envelope rides on the event-typed adapter.
	a, err := NewAdapter(ModeAgent, testLogger())
	require.NoError(t, err)

	events := runPayloads(t, a,
		`{"type":"text_delta","text":"Searching"}`,
		`{"type":"tool_use","tool":{"name":"search_items","arguments":{"query":"budget"}}}`,
		`{"type":"tool_result","result":"{\"action\":\"open_item\",\"id\":\"42\"}"}`,
		`{"type":"text_delta","text":" done."}`,
		`{"type":"done"}`,
	)

	require.Len(t, events, 5)

	assert.Equal(t, EventText, events[0].Kind)
	assert.Equal(t, "Searching", events[0].Text)

	assert.Equal(t, EventToolUse, events[1].Kind)
	assert.Equal(t, "search_items", events[1].ToolName)
	assert.JSONEq(t, `{"query":"budget"}`, string(events[1].ToolArgs))

	assert.Equal(t, EventToolResult, events[2].Kind)
	assert.Equal(t, `{"action":"open_item","id":"42"}`, events[2].ToolResult)

	assert.Equal(t, EventDone, events[4].Kind)
}

func TestEnvelope_ToolResultShapes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"json string", `{"type":"tool_result","result":"plain text"}`, "plain text"},
		{"raw object", `{"type":"tool_result","result":{"rows":3}}`, `{"rows":3}`},
		{"absent", `{"type":"tool_result"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAdapter(ModeAgent, testLogger())
			require.NoError(t, err)

			ev, ok := a.Decode(tt.payload)
			require.True(t, ok)
			assert.Equal(t, EventToolResult, ev.Kind)
			assert.Equal(t, tt.want, ev.ToolResult)
		})
	}
}

func TestEnvelope_ErrorFrame(t *testing.T) {
	a, err := NewAdapter(ModeAgent, testLogger())
	require.NoError(t, err)

	ev, ok := a.Decode(`{"type":"error","message":"tool backend unavailable"}`)
	require.True(t, ok)
	assert.Equal(t, EventError, ev.Kind)
	assert.Contains(t, ev.Err.Error(), "tool backend unavailable")

	// An error frame with no message still terminates with a usable error.
	ev, ok = a.Decode(`{"type":"error"}`)
	require.True(t, ok)
	require.Error(t, ev.Err)
	assert.Contains(t, ev.Err.Error(), "unspecified")
}

func TestEnvelope_ToolUseWithoutToolSkipped(t *testing.T) {
	a, err := NewAdapter(ModeAgent, testLogger())
	require.NoError(t, err)

	_, ok := a.Decode(`{"type":"tool_use"}`)
	assert.False(t, ok)
}

func TestOpenAIAdapter_AcceptsEnvelopeFrames(t *testing.T) {
	// An agent fronting a choice-delta backend emits envelope frames; the
	// choice-delta adapter must still understand them.
	a, err := NewAdapter(ModeOpenAI, testLogger())
	require.NoError(t, err)

	ev, ok := a.Decode(`{"type":"text_delta","text":"hi"}`)
	require.True(t, ok)
	assert.Equal(t, "hi", ev.Text)

	ev, ok = a.Decode(`{"type":"done"}`)
	require.True(t, ok)
	assert.Equal(t, EventDone, ev.Kind)
}
