package llm

import "strings"

// framePrefix marks a protocol frame in the event stream. Lines without it
// (blank separators, comments, "event:" lines) carry no payload.
const framePrefix = "data:"

// Decoder turns arbitrarily-chunked stream fragments into complete protocol
// frames. It keeps a single residual buffer so the output is identical
// whether the transport delivers the stream byte-by-byte or all at once.
type Decoder struct {
	residual strings.Builder
}

// NewDecoder creates an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends a fragment and returns the payloads of all frames completed by
// it, in order. The final incomplete line (if any) is retained until a later
// fragment supplies its terminator.
func (d *Decoder) Feed(fragment string) []string {
	d.residual.WriteString(fragment)

	buf := d.residual.String()
	var frames []string
	for {
		idx := strings.IndexByte(buf, '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimSuffix(buf[:idx], "\r")
		buf = buf[idx+1:]

		payload, ok := strings.CutPrefix(line, framePrefix)
		if !ok {
			continue
		}
		frames = append(frames, strings.TrimPrefix(payload, " "))
	}

	d.residual.Reset()
	d.residual.WriteString(buf)
	return frames
}

// Residual returns the buffered incomplete line. A non-empty residual at
// end-of-input means the stream was truncated mid-frame; such a fragment is
// never a valid frame and is dropped.
func (d *Decoder) Residual() string {
	return d.residual.String()
}
