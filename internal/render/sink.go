// Package render defines the incremental-markup consumer attached to a
// visible streaming session, plus the concrete sinks the CLI surface uses.
package render

// Sink consumes ordered text chunks for one in-progress assistant turn.
// Exactly one sink is attached per visible surface; a session running in a
// background tab has none.
type Sink interface {
	// Append adds the next text chunk. Chunks arrive in stream order.
	Append(text string)

	// Finalize flushes the sink and produces the finished rendering.
	// Called once, when the turn completes normally.
	Finalize() error

	// Teardown abandons the sink, removing partial content from the
	// visible surface. Called on stream error or cancellation.
	Teardown()
}
