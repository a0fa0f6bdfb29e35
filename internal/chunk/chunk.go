// Package chunk drives a text buffer, a fence tracker, and the break-point
// finder to emit destination-sized chunks of streamed text without ever
// splitting a markdown code fence across a boundary (except under the
// explicit overflow rule below).
//
// Grounded on the buffered-chunk-storage shape of the teacher's
// internal/streaming/session.go (StreamSession.chunks), regeneralized from
// storing raw upstream SSE lines into producing destination-shaped text
// chunks.
package chunk

import (
	"strings"

	"github.com/streamfabric/gateway/internal/fence"
	"github.com/streamfabric/gateway/internal/textbuf"
)

// Options configures one Chunker instance. It is the character budget slice
// of a channel profile that the chunker actually needs; there is no line
// budget.
type Options struct {
	MinChars           int
	MaxChars           int // 0 means unbounded
	ProtectCodeFences  bool
}

// Chunk is one emitted piece of text.
type Chunk struct {
	Content      string
	BreakType    textbuf.BreakKind
	HasFence     bool // content contains at least one fence marker line
	PartialFence bool // content was cut mid-fence (only possible on forced overflow)
}

// Chunker is NOT safe for concurrent use; callers serialize push/flush
// themselves (the Block Streamer façade owns this).
type Chunker struct {
	opts   Options
	buf    *textbuf.Buffer
	tracker *fence.Tracker
}

// New creates a Chunker with the given options.
func New(opts Options) *Chunker {
	return &Chunker{
		opts:    opts,
		buf:     textbuf.New(),
		tracker: fence.New(),
	}
}

// BufferedLength reports the number of pending (unemitted) characters.
func (c *Chunker) BufferedLength() int {
	return c.buf.Len()
}

// InCodeFence reports whether an unclosed fence is currently open in the
// buffered (not yet emitted) text.
func (c *Chunker) InCodeFence() bool {
	return c.tracker.IsOpen()
}

// PendingText returns the buffered text that has not yet been emitted as a
// chunk, without consuming it. Used when a setProfile/configure handoff
// needs to replay unread content into a freshly constructed Chunker.
func (c *Chunker) PendingText() string {
	return c.buf.Peek()
}

// Push appends text and returns zero or more chunks that are now ready to
// emit, per the withhold/emit rules in the component design.
func (c *Chunker) Push(text string) []Chunk {
	c.buf.Append(text)
	c.tracker.Update(c.buf.Peek())

	var out []Chunk
	for {
		ch, ok := c.tryEmitOne()
		if !ok {
			break
		}
		out = append(out, ch)
	}
	return out
}

// Flush drains any remaining buffered content as a single final hard-break
// chunk, regardless of min/max thresholds. Returns an empty slice if there
// is nothing buffered.
func (c *Chunker) Flush() []Chunk {
	if c.buf.Len() == 0 {
		return nil
	}
	content := c.buf.Consume(c.buf.Len())
	hasFence := containsFenceMarker(content)
	c.tracker.Reset(c.buf.Peek())
	return []Chunk{{
		Content:   content,
		BreakType: textbuf.BreakHard,
		HasFence:  hasFence,
	}}
}

// tryEmitOne applies one round of the withhold/emit decision. It returns
// ok=false when nothing more can be emitted from the current buffer state.
func (c *Chunker) tryEmitOne() (Chunk, bool) {
	buffered := c.buf.Len()
	if buffered == 0 {
		return Chunk{}, false
	}

	max := c.opts.MaxChars
	unbounded := max <= 0

	// Withhold: below the minimum and not forced by an overflowing max.
	if buffered < c.opts.MinChars && (unbounded || buffered < max) {
		return Chunk{}, false
	}

	if c.opts.ProtectCodeFences && c.tracker.IsOpen() {
		if unbounded || buffered < max {
			// Stay open: wait for more text or the fence to close.
			return Chunk{}, false
		}
		// Forced overflow: integrity of the fence is sacrificed only here.
		content := c.buf.Consume(max)
		c.tracker.Reset(c.buf.Peek())
		return Chunk{
			Content:      content,
			BreakType:    textbuf.BreakHard,
			HasFence:     containsFenceMarker(content),
			PartialFence: true,
		}, true
	}

	upper := buffered
	if !unbounded && upper > max {
		upper = max
	}
	if upper < c.opts.MinChars {
		// Not enough buffered yet even though we're "at max" in theory.
		return Chunk{}, false
	}

	full := c.buf.Peek()
	pos, kind := textbuf.Find(full, c.opts.MinChars, upper)
	if pos <= 0 {
		return Chunk{}, false
	}

	content := c.buf.Consume(pos)
	c.tracker.Reset(c.buf.Peek())
	return Chunk{
		Content:   content,
		BreakType: kind,
		HasFence:  containsFenceMarker(content),
	}, true
}

func containsFenceMarker(s string) bool {
	return strings.Contains(s, "```") || strings.Contains(s, "~~~")
}
