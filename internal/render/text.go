package render

import (
	"fmt"
	"io"
	"sync"
)

// TextSink is a plain passthrough sink for surfaces without markdown support.
type TextSink struct {
	w       io.Writer
	written bool
}

// NewTextSink creates a sink writing raw text to w.
func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: w}
}

func (s *TextSink) Append(text string) {
	s.written = true
	fmt.Fprint(s.w, text)
}

func (s *TextSink) Finalize() error {
	if s.written {
		fmt.Fprintln(s.w)
	}
	return nil
}

func (s *TextSink) Teardown() {
	if s.written {
		fmt.Fprintln(s.w)
	}
}

// CaptureSink records every call for tests.
type CaptureSink struct {
	mu        sync.Mutex
	chunks    []string
	finalized int
	tornDown  int
}

// NewCaptureSink creates an empty capture sink.
func NewCaptureSink() *CaptureSink {
	return &CaptureSink{}
}

func (s *CaptureSink) Append(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, text)
}

func (s *CaptureSink) Finalize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalized++
	return nil
}

func (s *CaptureSink) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tornDown++
}

// Content returns the concatenation of all appended chunks.
func (s *CaptureSink) Content() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out string
	for _, c := range s.chunks {
		out += c
	}
	return out
}

// Chunks returns a copy of the appended chunks in order.
func (s *CaptureSink) Chunks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.chunks))
	copy(out, s.chunks)
	return out
}

// Finalized returns how many times Finalize was called.
func (s *CaptureSink) Finalized() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalized
}

// TornDown returns how many times Teardown was called.
func (s *CaptureSink) TornDown() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tornDown
}
