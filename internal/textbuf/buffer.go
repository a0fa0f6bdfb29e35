// Package textbuf implements the append-mostly character buffer the chunker
// reads from, plus the break-point search used to decide where to cut it.
package textbuf

import "strings"

// Buffer is an appendable, UTF-8 aware character buffer. All offsets passed
// to and returned from Buffer are rune (code-unit) positions into the
// accumulated text, not byte offsets.
//
// Buffer is implemented on top of a single growable rune slice. A
// chunk-list (rope-like) implementation with the same observable semantics
// exists as RopeBuffer; no configuration selects between them, and the
// chunker always uses Buffer.
type Buffer struct {
	data []rune
}

// New returns an empty Buffer.
func New() *Buffer {
	return &Buffer{}
}

// Append adds text to the end of the buffer.
func (b *Buffer) Append(text string) {
	if text == "" {
		return
	}
	b.data = append(b.data, []rune(text)...)
}

// Len returns the number of runes currently buffered.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Peek returns the full buffered text without modifying the buffer.
func (b *Buffer) Peek() string {
	return string(b.data)
}

// PeekRange returns the rune range [start, end) without modifying the
// buffer. Out-of-range bounds are clamped.
func (b *Buffer) PeekRange(start, end int) string {
	start, end = b.clamp(start, end)
	if start >= end {
		return ""
	}
	return string(b.data[start:end])
}

// Consume destructively removes and returns the rune prefix [0, n). If n
// exceeds the buffer length, the whole buffer is consumed.
func (b *Buffer) Consume(n int) string {
	if n <= 0 {
		return ""
	}
	if n > len(b.data) {
		n = len(b.data)
	}
	out := string(b.data[:n])
	b.data = append([]rune(nil), b.data[n:]...)
	return out
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.data = b.data[:0]
}

func (b *Buffer) clamp(start, end int) (int, int) {
	if start < 0 {
		start = 0
	}
	if end > len(b.data) {
		end = len(b.data)
	}
	if start > len(b.data) {
		start = len(b.data)
	}
	return start, end
}

// RopeBuffer is a chunk-list variant of Buffer. It defers the cost of
// coalescing appended pieces until a Peek/Consume actually needs contiguous
// text, which amortizes well when producers append many small deltas
// between reads. It implements the exact same external semantics as Buffer.
type RopeBuffer struct {
	pieces []string
	length int // cached rune length
}

// NewRope returns an empty RopeBuffer.
func NewRope() *RopeBuffer {
	return &RopeBuffer{}
}

func (r *RopeBuffer) Append(text string) {
	if text == "" {
		return
	}
	r.pieces = append(r.pieces, text)
	r.length += len([]rune(text))
}

func (r *RopeBuffer) Len() int {
	return r.length
}

func (r *RopeBuffer) Peek() string {
	if len(r.pieces) == 1 {
		return r.pieces[0]
	}
	var b strings.Builder
	for _, p := range r.pieces {
		b.WriteString(p)
	}
	joined := b.String()
	if len(r.pieces) > 1 {
		r.pieces = []string{joined}
	}
	return joined
}

func (r *RopeBuffer) PeekRange(start, end int) string {
	full := []rune(r.Peek())
	if start < 0 {
		start = 0
	}
	if end > len(full) {
		end = len(full)
	}
	if start > len(full) {
		start = len(full)
	}
	if start >= end {
		return ""
	}
	return string(full[start:end])
}

func (r *RopeBuffer) Consume(n int) string {
	full := []rune(r.Peek())
	if n <= 0 {
		return ""
	}
	if n > len(full) {
		n = len(full)
	}
	out := string(full[:n])
	rest := string(full[n:])
	if rest == "" {
		r.pieces = nil
	} else {
		r.pieces = []string{rest}
	}
	r.length -= n
	return out
}

func (r *RopeBuffer) Clear() {
	r.pieces = nil
	r.length = 0
}
