package core

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Ethan2298/Objectiv/internal/llm"
	"github.com/Ethan2298/Objectiv/internal/render"
)

// Streamer opens backend requests and yields normalized event sequences.
// Satisfied by *llm.Client and by llm.MockStreamer in tests.
type Streamer interface {
	Stream(ctx context.Context, req llm.StreamRequest) (<-chan llm.StreamEvent, error)
}

// SinkFactory creates a fresh render sink for the visible surface of a tab.
// Called whenever a streaming session becomes visible.
type SinkFactory func(tabID string) render.Sink

// Registry owns the collection of sessions keyed by tab identity and keeps
// exactly one render sink attached per visible surface. The tab map is
// mutated only by Create, Close, and SwitchTo.
type Registry struct {
	client     Streamer
	dispatcher *Dispatcher
	sinks      SinkFactory
	mode       llm.Mode
	log        *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	order    []string
	active   string
}

// NewRegistry creates a registry with one initial session, which becomes the
// active tab.
func NewRegistry(client Streamer, dispatcher *Dispatcher, sinks SinkFactory, mode llm.Mode, log *slog.Logger) (*Registry, error) {
	if log == nil {
		log = slog.Default()
	}
	r := &Registry{
		client:     client,
		dispatcher: dispatcher,
		sinks:      sinks,
		mode:       mode,
		log:        log,
		sessions:   make(map[string]*Session),
	}
	if _, err := r.Create(nil); err != nil {
		return nil, err
	}
	return r, nil
}

// Create allocates a fresh session, optionally seeded with transferred
// messages and context, and makes it the active tab.
func (r *Registry) Create(seed *TransferState) (*Session, error) {
	id, err := NewTabID()
	if err != nil {
		return nil, err
	}
	session := newSession(id, r.mode, seed)

	r.mu.Lock()
	prev := r.sessions[r.active]
	r.sessions[id] = session
	r.order = append(r.order, id)
	r.active = id
	r.mu.Unlock()

	if prev != nil {
		if ss := prev.Stream(); ss != nil {
			ss.DetachSink()
		}
	}

	r.log.Debug("session created", "tab", id, "seeded", seed != nil)
	return session, nil
}

// Get returns the session for a tab.
func (r *Registry) Get(tabID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[tabID]
	if !ok {
		return nil, &NotFoundError{TabID: tabID}
	}
	return session, nil
}

// Active returns the currently visible session.
func (r *Registry) Active() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[r.active]
}

// List returns the sessions in tab order.
func (r *Registry) List() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sessions[id])
	}
	return out
}

// SwitchTo makes the target tab visible. The previous session keeps its
// backend request running — only its sink is detached. If the target is
// mid-stream, a fresh sink is attached and initialized by replaying the text
// accumulated so far, so the surface shows what it would have shown had it
// been attached from the start.
func (r *Registry) SwitchTo(tabID string) error {
	r.mu.Lock()
	target, ok := r.sessions[tabID]
	if !ok {
		r.mu.Unlock()
		return &NotFoundError{TabID: tabID}
	}
	if r.active == tabID {
		r.mu.Unlock()
		return nil
	}
	prev := r.sessions[r.active]
	r.active = tabID
	r.mu.Unlock()

	if prev != nil {
		if ss := prev.Stream(); ss != nil {
			ss.DetachSink()
		}
	}
	if ss := target.Stream(); ss != nil && r.sinks != nil {
		ss.AttachSink(r.sinks(tabID))
	}

	r.log.Debug("switched tab", "tab", tabID)
	return nil
}

// Close cancels any outstanding stream for the tab, then discards the
// session. The last remaining session cannot be closed; clear it instead.
func (r *Registry) Close(tabID string) error {
	r.mu.Lock()
	session, ok := r.sessions[tabID]
	if !ok {
		r.mu.Unlock()
		return &NotFoundError{TabID: tabID}
	}
	if len(r.sessions) == 1 {
		r.mu.Unlock()
		return &LastSessionError{TabID: tabID}
	}

	delete(r.sessions, tabID)
	for i, id := range r.order {
		if id == tabID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	var next *Session
	if r.active == tabID {
		r.active = r.order[len(r.order)-1]
		next = r.sessions[r.active]
	}
	r.mu.Unlock()

	if ss := session.Stream(); ss != nil {
		ss.Cancel()
	}
	if next != nil {
		if ss := next.Stream(); ss != nil && r.sinks != nil {
			ss.AttachSink(r.sinks(next.ID))
		}
	}

	r.log.Debug("session closed", "tab", tabID)
	return nil
}

// Send appends the user message and starts a streaming request for the tab.
// A session with a request already outstanding rejects the send; callers
// surface this instead of queueing.
func (r *Registry) Send(ctx context.Context, tabID, text string) (*StreamSession, error) {
	session, err := r.Get(tabID)
	if err != nil {
		return nil, err
	}

	// Reserve the session's stream slot before doing anything else; the
	// reservation is atomic, so concurrent sends on one tab cannot both
	// pass a busy check and race to install their streams.
	sctx, cancel := context.WithCancel(ctx)
	ss := newStreamSession(session, cancel, r.dispatcher, r.log)
	if !session.trySetStream(ss) {
		cancel()
		return nil, &BusyError{TabID: tabID}
	}

	session.appendMessage(RoleUser, text)

	// The serialized context block rides on the outbound request only;
	// the stored message stays as the user typed it.
	messages := session.history()
	if block := session.contextBlock(); block != "" {
		messages[len(messages)-1].Content = block + messages[len(messages)-1].Content
	}

	events, err := r.client.Stream(sctx, llm.StreamRequest{
		Mode:     session.Mode(),
		Messages: messages,
	})
	if err != nil {
		cancel()
		session.clearStream(ss)
		return nil, err
	}

	if r.isActive(tabID) && r.sinks != nil {
		ss.AttachSink(r.sinks(tabID))
	}
	go ss.run(events)

	r.log.Debug("stream started", "tab", tabID, "mode", session.Mode())
	return ss, nil
}

func (r *Registry) isActive(tabID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active == tabID
}
