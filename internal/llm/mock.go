package llm

import (
	"context"
	"sync"
)

// MockStreamer is a scripted stream backend for testing.
type MockStreamer struct {
	// Err is returned from Stream before any event is emitted (if set)
	Err error

	// Events are emitted in order, then the channel is closed
	Events []StreamEvent

	// Feed, when set, is forwarded instead of Events until it is closed.
	// Tests use it to control event pacing across goroutines.
	Feed <-chan StreamEvent

	mu       sync.Mutex
	requests []StreamRequest
}

// Stream mocks a streaming request.
func (m *MockStreamer) Stream(ctx context.Context, req StreamRequest) (<-chan StreamEvent, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	events := make(chan StreamEvent, eventBuffer)
	go func() {
		defer close(events)
		if m.Feed != nil {
			for ev := range m.Feed {
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
			return
		}
		for _, ev := range m.Events {
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}

// Requests returns a snapshot of the requests seen so far.
func (m *MockStreamer) Requests() []StreamRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StreamRequest, len(m.requests))
	copy(out, m.requests)
	return out
}
