package render

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextSink_Passthrough(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTextSink(&buf)

	sink.Append("Hel")
	sink.Append("lo")
	require.NoError(t, sink.Finalize())

	assert.Equal(t, "Hello\n", buf.String())
}

func TestTextSink_EmptyTurnWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTextSink(&buf)

	require.NoError(t, sink.Finalize())
	assert.Empty(t, buf.String())

	sink.Teardown()
	assert.Empty(t, buf.String())
}

func TestTextSink_TeardownEndsPartialLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewTextSink(&buf)

	sink.Append("partial")
	sink.Teardown()

	assert.Equal(t, "partial\n", buf.String())
}

func TestMarkdownSink_PreviewThenStyledRender(t *testing.T) {
	var buf bytes.Buffer
	sink, err := NewMarkdownSink(&buf)
	require.NoError(t, err)

	sink.Append("# Title\n\nSome ")
	sink.Append("**bold** text.")

	// The live preview is the raw stream.
	assert.Contains(t, buf.String(), "# Title")

	require.NoError(t, sink.Finalize())
	// The styled render follows the preview and drops the markup syntax.
	assert.Greater(t, buf.Len(), len("# Title\n\nSome **bold** text."))
	assert.Contains(t, buf.String(), "Title")
}

func TestMarkdownSink_FinalizeEmptyIsNoop(t *testing.T) {
	var buf bytes.Buffer
	sink, err := NewMarkdownSink(&buf)
	require.NoError(t, err)

	require.NoError(t, sink.Finalize())
	assert.Empty(t, buf.String())
}

func TestMarkdownSink_TeardownAbandonsBuffer(t *testing.T) {
	var buf bytes.Buffer
	sink, err := NewMarkdownSink(&buf)
	require.NoError(t, err)

	sink.Append("abandoned")
	sink.Teardown()

	// A later Finalize has nothing left to render.
	before := buf.Len()
	require.NoError(t, sink.Finalize())
	assert.Equal(t, before, buf.Len())
}

func TestCaptureSink_RecordsEverything(t *testing.T) {
	sink := NewCaptureSink()

	sink.Append("a")
	sink.Append("b")
	require.NoError(t, sink.Finalize())
	sink.Teardown()

	assert.Equal(t, []string{"a", "b"}, sink.Chunks())
	assert.Equal(t, "ab", sink.Content())
	assert.Equal(t, 1, sink.Finalized())
	assert.Equal(t, 1, sink.TornDown())
}
