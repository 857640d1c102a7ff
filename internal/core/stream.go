package core

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/Ethan2298/Objectiv/internal/llm"
	"github.com/Ethan2298/Objectiv/internal/render"
)

// StreamState is the lifecycle phase of an outstanding request.
type StreamState string

const (
	// StateRequesting means the request is issued but no bytes arrived yet.
	StateRequesting StreamState = "requesting"

	// StateStreaming means delta events are being applied.
	StateStreaming StreamState = "streaming"

	// StateFinalizing means the turn completed and its text became a Message.
	StateFinalizing StreamState = "finalizing"

	// StateCancelled means the cancellation token was revoked.
	StateCancelled StreamState = "cancelled"

	// StateErrored means the backend or transport failed mid-turn.
	StateErrored StreamState = "errored"
)

// ToolInvocation is a transient pairing of a tool call with its result
// payload, produced by the stream and consumed once by the dispatcher.
type ToolInvocation struct {
	Name   string
	Args   json.RawMessage
	Result string
}

// StreamSession is the state machine for one outstanding request within a
// Session. It owns the request's cancellation, the text accumulated so far,
// and whichever render sink is currently attached — none while the session
// runs in a background tab.
type StreamSession struct {
	session    *Session
	cancel     context.CancelFunc
	dispatcher *Dispatcher
	log        *slog.Logger

	mu          sync.Mutex
	state       StreamState
	accumulated strings.Builder
	sink        render.Sink
	pendingTool *ToolInvocation
	finalized   bool
	lastErr     error

	done chan struct{}
}

func newStreamSession(session *Session, cancel context.CancelFunc, dispatcher *Dispatcher, log *slog.Logger) *StreamSession {
	return &StreamSession{
		session:    session,
		cancel:     cancel,
		dispatcher: dispatcher,
		log:        log.With("tab", session.ID),
		state:      StateRequesting,
		done:       make(chan struct{}),
	}
}

// run consumes the normalized event sequence until it ends. It is the only
// goroutine mutating this stream's accumulated text, so per-stream event
// order is exactly arrival order.
func (ss *StreamSession) run(events <-chan llm.StreamEvent) {
	defer close(ss.done)

	for ev := range events {
		ss.handleEvent(ev)
	}

	// Channel closed without a terminal frame: either cancellation (state
	// already terminal) or end-of-input, which finalizes like a done event.
	ss.mu.Lock()
	terminal := ss.isTerminalLocked()
	ss.mu.Unlock()
	if !terminal {
		ss.finalize()
	}
}

// handleEvent applies one delta event. Events that race past a terminal
// transition are dropped.
func (ss *StreamSession) handleEvent(ev llm.StreamEvent) {
	ss.mu.Lock()
	if ss.isTerminalLocked() {
		ss.mu.Unlock()
		return
	}

	switch ev.Kind {
	case llm.EventText:
		if ss.state == StateRequesting {
			ss.state = StateStreaming
		}
		ss.accumulated.WriteString(ev.Text)
		if ss.sink != nil {
			ss.sink.Append(ev.Text)
		}
		ss.mu.Unlock()

	case llm.EventToolUse:
		if ss.state == StateRequesting {
			ss.state = StateStreaming
		}
		ss.pendingTool = &ToolInvocation{Name: ev.ToolName, Args: ev.ToolArgs}
		ss.mu.Unlock()

	case llm.EventToolResult:
		inv := ss.pendingTool
		if inv == nil {
			inv = &ToolInvocation{}
		}
		ss.pendingTool = nil
		inv.Result = ev.ToolResult
		// Dispatch outside the lock: recognized actions call back into
		// the UI, which may touch the registry.
		ss.mu.Unlock()
		ss.dispatcher.Dispatch(*inv)

	case llm.EventDone:
		ss.mu.Unlock()
		ss.finalize()

	case llm.EventError:
		ss.mu.Unlock()
		ss.fail(ev.Err)

	default:
		ss.mu.Unlock()
	}
}

// finalize flushes the attached sink, converts the accumulated text into an
// assistant Message, and detaches the stream from its session. Idempotent:
// a second call is a no-op. An empty turn appends no Message.
func (ss *StreamSession) finalize() {
	ss.mu.Lock()
	if ss.finalized || ss.isTerminalLocked() {
		ss.mu.Unlock()
		return
	}
	ss.finalized = true
	ss.state = StateFinalizing

	text := ss.accumulated.String()
	ss.accumulated.Reset()
	sink := ss.sink
	ss.sink = nil
	ss.mu.Unlock()

	if sink != nil {
		if err := sink.Finalize(); err != nil {
			ss.log.Warn("sink finalize failed", "error", err)
		}
	}
	if text != "" {
		ss.session.appendMessage(RoleAssistant, text)
	}
	ss.session.clearStream(ss)
	ss.log.Debug("stream finalized", "chars", len(text))
}

// fail tears down any attached sink and surfaces the error in place of the
// assistant turn. No Message is appended.
func (ss *StreamSession) fail(err error) {
	ss.mu.Lock()
	if ss.finalized || ss.isTerminalLocked() {
		ss.mu.Unlock()
		return
	}
	ss.state = StateErrored
	ss.lastErr = err
	ss.accumulated.Reset()
	sink := ss.sink
	ss.sink = nil
	ss.mu.Unlock()

	if sink != nil {
		sink.Teardown()
	}
	ss.session.clearStream(ss)
	ss.log.Warn("stream errored", "error", err)
}

// Cancel revokes the cancellation token and transitions to Cancelled
// synchronously: once Cancel returns, no further event mutates the session.
// Accumulated text is discarded; no Message is appended.
func (ss *StreamSession) Cancel() {
	ss.cancelWith(false)
}

// CancelKeepPartial cancels like Cancel but commits the text accumulated so
// far as an assistant Message first. Not the default behavior; callers ask
// for it explicitly.
func (ss *StreamSession) CancelKeepPartial() {
	ss.cancelWith(true)
}

func (ss *StreamSession) cancelWith(commitPartial bool) {
	ss.mu.Lock()
	if ss.finalized || ss.isTerminalLocked() {
		ss.mu.Unlock()
		return
	}
	ss.state = StateCancelled
	text := ss.accumulated.String()
	ss.accumulated.Reset()
	sink := ss.sink
	ss.sink = nil
	ss.mu.Unlock()

	// Abort the underlying network read.
	ss.cancel()

	if sink != nil {
		sink.Teardown()
	}
	if commitPartial && text != "" {
		ss.session.appendMessage(RoleAssistant, text)
	}
	ss.session.clearStream(ss)
	ss.log.Debug("stream cancelled", "discarded_chars", len(text), "partial_committed", commitPartial)
}

// AttachSink attaches a render sink, replaying the text accumulated so far
// exactly once so the new sink shows what a sink attached from the start
// would show.
func (ss *StreamSession) AttachSink(sink render.Sink) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.isTerminalLocked() {
		return
	}
	if text := ss.accumulated.String(); text != "" {
		sink.Append(text)
	}
	ss.sink = sink
}

// DetachSink removes the attached sink without cancelling the request; the
// stream keeps running in the background.
func (ss *StreamSession) DetachSink() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.sink = nil
}

// State returns the current lifecycle phase.
func (ss *StreamSession) State() StreamState {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.state
}

// Accumulated returns the text received so far for the in-progress turn.
func (ss *StreamSession) Accumulated() string {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.accumulated.String()
}

// Err returns the failure that moved the stream to Errored, if any.
func (ss *StreamSession) Err() error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.lastErr
}

// Wait blocks until the event loop for this stream has exited.
func (ss *StreamSession) Wait() {
	<-ss.done
}

func (ss *StreamSession) isTerminalLocked() bool {
	return ss.state == StateFinalizing || ss.state == StateCancelled || ss.state == StateErrored
}
