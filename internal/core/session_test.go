package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ethan2298/Objectiv/internal/llm"
)

func TestSession_AppendAndSnapshot(t *testing.T) {
	s := newSession("TAB-s", llm.ModeAnthropic, nil)

	s.appendMessage(RoleUser, "question")
	s.appendMessage(RoleAssistant, "answer")

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "question", msgs[0].Content)
	assert.False(t, msgs[0].Timestamp.IsZero())

	// Mutating the snapshot must not touch the session.
	msgs[0].Content = "tampered"
	assert.Equal(t, "question", s.Messages()[0].Content)
}

func TestSession_TitleAndMode(t *testing.T) {
	s := newSession("TAB-s", llm.ModeAnthropic, nil)
	assert.Equal(t, llm.ModeAnthropic, s.Mode())
	assert.Empty(t, s.Title())

	s.SetTitle("Budget chat")
	s.SetMode(llm.ModeAgent)
	assert.Equal(t, "Budget chat", s.Title())
	assert.Equal(t, llm.ModeAgent, s.Mode())
}

func TestSession_ClearMessages(t *testing.T) {
	s := newSession("TAB-s", llm.ModeAnthropic, nil)
	s.appendMessage(RoleUser, "a")
	s.appendMessage(RoleAssistant, "b")

	s.ClearMessages()
	assert.Empty(t, s.Messages())
}

func TestSession_ContextItems(t *testing.T) {
	s := newSession("TAB-s", llm.ModeAnthropic, nil)
	assert.Empty(t, s.contextBlock())

	s.AddContextItem(ContextItem{ID: "1", Kind: "report", Name: "Q3", Snapshot: "draft v2"})
	s.AddContextItem(ContextItem{ID: "2", Kind: "sheet", Name: "Costs", Snapshot: "totals"})

	block := s.contextBlock()
	assert.Contains(t, block, "Selected context:\n")
	assert.Contains(t, block, "- [report] Q3: draft v2\n")
	assert.Contains(t, block, "- [sheet] Costs: totals\n")

	s.ClearContextItems()
	assert.Empty(t, s.ContextItems())
	assert.Empty(t, s.contextBlock())
}

func TestSession_History(t *testing.T) {
	s := newSession("TAB-s", llm.ModeAnthropic, nil)
	s.appendMessage(RoleUser, "hi")
	s.appendMessage(RoleAssistant, "hello")

	hist := s.history()
	require.Len(t, hist, 2)
	assert.Equal(t, llm.ChatMessage{Role: "user", Content: "hi"}, hist[0])
	assert.Equal(t, llm.ChatMessage{Role: "assistant", Content: "hello"}, hist[1])
}

func TestSession_TransferStateRoundTrip(t *testing.T) {
	s := newSession("TAB-s", llm.ModeOpenAI, nil)
	s.SetTitle("Moving out")
	s.appendMessage(RoleUser, "take me along")
	s.AddContextItem(ContextItem{ID: "9", Kind: "doc", Name: "Notes", Snapshot: "v1"})

	state := s.TransferState()
	assert.Equal(t, "Moving out", state.Title)
	assert.Equal(t, llm.ModeOpenAI, state.Mode)
	require.Len(t, state.Messages, 1)
	require.Len(t, state.ContextItems, 1)

	// The payload crosses surfaces as JSON.
	data, err := json.Marshal(state)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"selectedContextItems"`)

	var decoded TransferState
	require.NoError(t, json.Unmarshal(data, &decoded))

	clone := newSession("TAB-clone", llm.ModeAnthropic, &decoded)
	assert.Equal(t, "Moving out", clone.Title())
	assert.Equal(t, llm.ModeOpenAI, clone.Mode(), "seed mode wins over the default")
	require.Len(t, clone.Messages(), 1)
	assert.Equal(t, "take me along", clone.Messages()[0].Content)
	assert.Len(t, clone.ContextItems(), 1)
}

func TestSession_StaleStreamNeverClobbersNewer(t *testing.T) {
	s := newSession("TAB-s", llm.ModeAnthropic, nil)
	old := newStreamSession(s, func() {}, NewDispatcher(nil, discardLogger()), discardLogger())
	s.setStream(old)

	current := newStreamSession(s, func() {}, NewDispatcher(nil, discardLogger()), discardLogger())
	s.setStream(current)

	s.clearStream(old)
	assert.Same(t, current, s.Stream())

	s.clearStream(current)
	assert.Nil(t, s.Stream())
}
