package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamfabric/gateway/internal/textbuf"
)

func TestChunker_WithholdsBelowMinChars(t *testing.T) {
	c := New(Options{MinChars: 10, MaxChars: 100})
	chunks := c.Push("short")
	assert.Empty(t, chunks)
	assert.Equal(t, 5, c.BufferedLength())
	assert.Equal(t, "short", c.PendingText())
}

func TestChunker_EmitsOnBreakPointOnceMinReached(t *testing.T) {
	c := New(Options{MinChars: 5, MaxChars: 50})
	chunks := c.Push("Hello world. ")
	require.Len(t, chunks, 1)
	assert.Equal(t, "Hello world. ", chunks[0].Content)
	assert.Equal(t, textbuf.BreakSentence, chunks[0].BreakType)
	assert.Equal(t, 0, c.BufferedLength())
}

func TestChunker_HardCutsWhenNoBreakPointUnderMax(t *testing.T) {
	c := New(Options{MinChars: 5, MaxChars: 50})
	chunks := c.Push("nobreakpointshereatall")
	require.Len(t, chunks, 1, "buffered text is above min with no break point: hard cut at min(buffered, max)")
	assert.Equal(t, "nobreakpointshereatall", chunks[0].Content)
	assert.Equal(t, textbuf.BreakHard, chunks[0].BreakType)
	assert.Equal(t, 0, c.BufferedLength())
}

func TestChunker_ForcedOverflowAtMaxWithoutBreakPoint(t *testing.T) {
	c := New(Options{MinChars: 5, MaxChars: 10})
	chunks := c.Push("nobreakpointshereatall")
	// 22 runes with max 10: two hard cuts of 10, the last 2 runes stay below min.
	require.Len(t, chunks, 2)
	assert.Equal(t, 10, len([]rune(chunks[0].Content)))
	assert.Equal(t, textbuf.BreakHard, chunks[0].BreakType)
}

func TestChunker_ProtectsOpenFenceUntilClosedOrOverflow(t *testing.T) {
	c := New(Options{MinChars: 1, MaxChars: 100, ProtectCodeFences: true})
	chunks := c.Push("intro\n```go\nfunc f() {\n")
	assert.Empty(t, chunks, "must withhold while fence is open, even above min")
	assert.True(t, c.InCodeFence())

	chunks = c.Push("}\n```\nmore text after this point to pass threshold.")
	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.False(t, ch.PartialFence)
	}
}

func TestChunker_ForcedOverflowInsideOpenFencePastMax(t *testing.T) {
	c := New(Options{MinChars: 1, MaxChars: 10, ProtectCodeFences: true})
	chunks := c.Push("```go\nlonger code that never closes the fence")
	// After the forced cut the remainder holds no fence marker, so it is
	// chunked normally: six word breaks and a final hard cut follow.
	require.Len(t, chunks, 8)
	assert.Equal(t, 10, len([]rune(chunks[0].Content)))
	assert.True(t, chunks[0].PartialFence)
	assert.True(t, chunks[0].HasFence)
}

func TestChunker_FlushDrainsRegardlessOfThresholds(t *testing.T) {
	c := New(Options{MinChars: 1000, MaxChars: 2000})
	c.Push("too short to ever emit on its own")
	require.NotZero(t, c.BufferedLength())

	chunks := c.Flush()
	require.Len(t, chunks, 1)
	assert.Equal(t, "too short to ever emit on its own", chunks[0].Content)
	assert.Equal(t, textbuf.BreakHard, chunks[0].BreakType)
	assert.Equal(t, 0, c.BufferedLength())
}

func TestChunker_FlushOnEmptyBufferReturnsNil(t *testing.T) {
	c := New(Options{MinChars: 1, MaxChars: 100})
	assert.Nil(t, c.Flush())
}

func TestChunker_PendingTextDoesNotConsume(t *testing.T) {
	c := New(Options{MinChars: 1000, MaxChars: 2000})
	c.Push("buffered but unread")
	assert.Equal(t, "buffered but unread", c.PendingText())
	assert.Equal(t, "buffered but unread", c.PendingText(), "PendingText must not be destructive")
	assert.Equal(t, 19, c.BufferedLength())
}
