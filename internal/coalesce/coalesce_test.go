package coalesce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamfabric/gateway/internal/chunk"
)

func newTestClock(start time.Time) (Clock, func(time.Duration)) {
	now := start
	clock := func() time.Time { return now }
	advance := func(d time.Duration) { now = now.Add(d) }
	return clock, advance
}

func TestCoalescer_DisabledWhenGapMillisZero(t *testing.T) {
	c := New(Options{GapMillis: 0}, nil)
	out := c.Push(chunk.Chunk{Content: "a"})
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].Content)
	assert.Equal(t, "", c.PendingText())
}

func TestCoalescer_MergesChunksWithinGap(t *testing.T) {
	start := time.Now()
	clock, advance := newTestClock(start)
	c := New(Options{GapMillis: 100, MaxSize: 1000}, clock)

	out := c.Push(chunk.Chunk{Content: "foo"})
	assert.Empty(t, out)
	assert.Equal(t, "foo", c.PendingText())

	advance(10 * time.Millisecond)
	out = c.Push(chunk.Chunk{Content: "bar"})
	assert.Empty(t, out, "within gap: merges instead of flushing")
	assert.Equal(t, "foobar", c.PendingText())
}

func TestCoalescer_FlushesPendingWhenGapExceeded(t *testing.T) {
	start := time.Now()
	clock, advance := newTestClock(start)
	c := New(Options{GapMillis: 50, MaxSize: 1000}, clock)

	c.Push(chunk.Chunk{Content: "foo"})
	advance(200 * time.Millisecond)
	out := c.Push(chunk.Chunk{Content: "bar"})

	require.Len(t, out, 1, "the stale pending chunk must flush on its own")
	assert.Equal(t, "foo", out[0].Content)
	assert.Equal(t, "bar", c.PendingText(), "the new chunk becomes the pending one")
}

func TestCoalescer_FlushesPendingOnMaxSizeOverflow(t *testing.T) {
	clock, _ := newTestClock(time.Now())
	c := New(Options{GapMillis: 1000, MaxSize: 5}, clock)

	c.Push(chunk.Chunk{Content: "abc"})
	out := c.Push(chunk.Chunk{Content: "defgh"})

	require.Len(t, out, 1, "combined size exceeds MaxSize, pending flushes instead of merging")
	assert.Equal(t, "abc", out[0].Content)
	assert.Equal(t, "defgh", c.PendingText())
}

func TestCoalescer_PassthroughBypassesCoalescing(t *testing.T) {
	clock, _ := newTestClock(time.Now())
	c := New(Options{GapMillis: 1000, MaxSize: 1000, MinPassthroughSize: 5}, clock)

	out := c.Push(chunk.Chunk{Content: "big enough"})
	require.Len(t, out, 1, "a chunk at/above MinPassthroughSize bypasses coalescing entirely")
	assert.Equal(t, "big enough", out[0].Content)
	assert.Equal(t, "", c.PendingText())
}

func TestCoalescer_PassthroughFlushesExistingPendingFirst(t *testing.T) {
	clock, _ := newTestClock(time.Now())
	c := New(Options{GapMillis: 1000, MaxSize: 1000, MinPassthroughSize: 5}, clock)

	out := c.Push(chunk.Chunk{Content: "ab"})
	assert.Empty(t, out)

	out = c.Push(chunk.Chunk{Content: "big enough"})
	require.Len(t, out, 2)
	assert.Equal(t, "ab", out[0].Content)
	assert.Equal(t, "big enough", out[1].Content)
	assert.Equal(t, "", c.PendingText())
}

func TestCoalescer_FlushDrainsPending(t *testing.T) {
	clock, _ := newTestClock(time.Now())
	c := New(Options{GapMillis: 1000, MaxSize: 1000}, clock)

	c.Push(chunk.Chunk{Content: "abc"})
	out := c.Flush()
	require.Len(t, out, 1)
	assert.Equal(t, "abc", out[0].Content)
	assert.Equal(t, "", c.PendingText())
}

func TestCoalescer_FlushOnEmptyReturnsNil(t *testing.T) {
	c := New(Options{GapMillis: 100}, nil)
	assert.Nil(t, c.Flush())
}

func TestCoalescer_MergedChunkCarriesForwardFenceFlags(t *testing.T) {
	clock, _ := newTestClock(time.Now())
	c := New(Options{GapMillis: 1000, MaxSize: 1000}, clock)

	c.Push(chunk.Chunk{Content: "```go", HasFence: true})
	out := c.Push(chunk.Chunk{Content: "\ncode", PartialFence: true})
	assert.Empty(t, out)

	flushed := c.Flush()
	require.Len(t, flushed, 1)
	assert.True(t, flushed[0].HasFence)
	assert.True(t, flushed[0].PartialFence)
	assert.Equal(t, "```go\ncode", flushed[0].Content)
}
