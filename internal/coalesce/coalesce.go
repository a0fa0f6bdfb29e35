// Package coalesce implements the optional merge stage between the chunker
// and block emission: small adjacent chunks are merged when they arrive
// within a configured time gap and the combined size stays bounded.
package coalesce

import (
	"time"

	"github.com/streamfabric/gateway/internal/chunk"
)

// Options configures a Coalescer.
type Options struct {
	// GapMillis is the maximum inter-chunk idle time, in milliseconds,
	// beyond which a pending chunk is flushed instead of merged. A value
	// of 0 disables coalescing entirely (every Push passes through).
	GapMillis int
	// MaxSize bounds the combined size of a coalesced chunk.
	MaxSize int
	// MinPassthroughSize: an incoming chunk at or above this size bypasses
	// coalescing and displaces any pending chunk.
	MinPassthroughSize int
}

// Clock abstracts time.Now so tests can control the gap deterministically.
type Clock func() time.Time

// Coalescer merges small adjacent chunks under the time-gap rule described
// in the component design. It is not safe for concurrent use.
//
// A background timer is deliberately NOT owned here: §9 flags a
// timer-driven flush that can't emit on its own as a pattern requiring
// redesign on a systems target. Flush() is the sole authoritative drain,
// callable by the owner (the mode handler) at any time; a caller that wants
// time-based flushing drives its own ticker and calls Flush explicitly.
type Coalescer struct {
	opts    Options
	now     Clock
	pending *chunk.Chunk
	lastAt  time.Time
}

// New creates a Coalescer. If clock is nil, time.Now is used.
func New(opts Options, clock Clock) *Coalescer {
	if clock == nil {
		clock = time.Now
	}
	return &Coalescer{opts: opts, now: clock}
}

// Push offers a newly emitted chunk to the coalescer. It returns the chunks
// that are now final and ready for the mode handler to shape into a Block
// or update — zero, one, or (when the pending chunk must flush before the
// new one passes through) two chunks.
func (c *Coalescer) Push(ch chunk.Chunk) []chunk.Chunk {
	now := c.now()

	if c.opts.GapMillis <= 0 {
		return []chunk.Chunk{ch}
	}

	if c.pending == nil {
		if c.passesThrough(ch) {
			return []chunk.Chunk{ch}
		}
		c.pending = &ch
		c.lastAt = now
		return nil
	}

	gap := now.Sub(c.lastAt)
	overflow := c.opts.MaxSize > 0 && len(c.pending.Content)+len(ch.Content) > c.opts.MaxSize

	if gap.Milliseconds() > int64(c.opts.GapMillis) || overflow || c.passesThrough(ch) {
		flushed := *c.pending
		c.pending = nil
		if c.passesThrough(ch) {
			return []chunk.Chunk{flushed, ch}
		}
		c.pending = &ch
		c.lastAt = now
		return []chunk.Chunk{flushed}
	}

	merged := mergeChunks(*c.pending, ch)
	c.pending = &merged
	c.lastAt = now
	return nil
}

// PendingText returns the content of the pending (not yet flushed) chunk,
// if any, without clearing it. Used when a setProfile/configure handoff
// needs to carry unread content into a freshly constructed Coalescer.
func (c *Coalescer) PendingText() string {
	if c.pending == nil {
		return ""
	}
	return c.pending.Content
}

func (c *Coalescer) passesThrough(ch chunk.Chunk) bool {
	return c.opts.MinPassthroughSize > 0 && len(ch.Content) >= c.opts.MinPassthroughSize
}

// Flush drains any pending chunk unconditionally. This is the only
// authoritative drain path — safe to call from the owning goroutine at any
// time, including on a timer tick the owner drives itself.
func (c *Coalescer) Flush() []chunk.Chunk {
	if c.pending == nil {
		return nil
	}
	out := *c.pending
	c.pending = nil
	return []chunk.Chunk{out}
}

func mergeChunks(a, b chunk.Chunk) chunk.Chunk {
	return chunk.Chunk{
		Content:      a.Content + b.Content,
		BreakType:    b.BreakType,
		HasFence:     a.HasFence || b.HasFence,
		PartialFence: a.PartialFence || b.PartialFence,
	}
}
