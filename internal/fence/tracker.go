// Package fence tracks whether the tail of a streamed text is currently
// inside an unclosed ``` or ~~~ fenced code block.
//
// The scanning rule (markers only at line starts, after optional leading
// whitespace, triple-backtick/tilde distinct from inline single-backtick
// code) is grounded on the line-oriented fence scan in
// modules/channel/telegram/markdown.go's FormatMarkdownV2, generalized from
// Telegram-specific formatting into destination-agnostic fence tracking.
package fence

import "strings"

// Kind distinguishes the two fence marker families. They must match to
// close: a ``` fence is only closed by ```, never by ~~~.
type Kind int

const (
	KindNone Kind = iota
	KindBacktick
	KindTilde
)

// Tracker holds the incremental fence-open state for one logical stream of
// text. It is updated via Update as new text is appended, and can be Reset
// to restart tracking from an empty state for a given remainder (used after
// the chunker consumes a prefix of its buffer).
type Tracker struct {
	open       bool
	kind       Kind
	openOffset int    // rune offset, within the text last passed to Update or Reset, of the line that opened the fence
	infostring string // language tag on the opening fence line, e.g. "python"

	// scanned marks the start of the current (possibly still-growing) line:
	// everything before it is complete, newline-terminated, and committed.
	// Repeated Update calls on a growing buffer stay incremental because only
	// the trailing line is ever rescanned, never the committed prefix.
	scanned int

	// snapOpen/snapKind/snapInfostring is the fence state as of `scanned` —
	// the state to roll back to before rescanning the trailing line, so a
	// fence marker split across multiple Update calls (e.g. "```" arrives,
	// then "day\n" arrives before a newline ever closed the line) is always
	// scanned in full rather than just its newest suffix.
	snapOpen       bool
	snapKind       Kind
	snapInfostring string
}

// New returns a Tracker with no fence open.
func New() *Tracker {
	return &Tracker{}
}

// IsOpen reports whether the tracker currently believes it is inside an
// unclosed fence.
func (t *Tracker) IsOpen() bool {
	return t.open
}

// OpenKind returns the marker kind of the currently open fence (KindNone if not
// open).
func (t *Tracker) OpenKind() Kind {
	if !t.open {
		return KindNone
	}
	return t.kind
}

// Infostring returns the language tag of the currently open fence, if any.
func (t *Tracker) Infostring() string {
	if !t.open {
		return ""
	}
	return t.infostring
}

// Reset restarts tracking from an empty state and rescans the given text in
// full. This is used by the chunker after it consumes a prefix: the
// remaining (unread) suffix is rescanned from scratch so fence state
// reflects only what's left in the buffer.
func (t *Tracker) Reset(remainder string) {
	t.open = false
	t.kind = KindNone
	t.openOffset = 0
	t.infostring = ""
	t.scanned = 0
	t.snapOpen = false
	t.snapKind = KindNone
	t.snapInfostring = ""
	t.Update(remainder)
}

// Update incrementally scans newly appended text. Callers append-only and
// call Update with the FULL current text each time (not just the delta);
// Update tracks how much of it is already committed (complete,
// newline-terminated lines) and resumes from there, so the amortized cost
// stays linear instead of quadratic across many small appends.
//
// The line at the very end of the text may still be growing (no trailing
// newline yet). That line is rolled back to the snapshot taken at its start
// and rescanned in full on every call until a newline terminates it, rather
// than only rescanning whatever suffix was appended since the last call —
// otherwise a fence marker split across two Update calls (e.g. "```"
// arrives, then "day\n" arrives before the line ever closed) would never be
// recognized, since the marker itself would never appear in a single scan.
func (t *Tracker) Update(fullText string) {
	runes := []rune(fullText)
	if t.scanned > len(runes) {
		// Text shrank (a Reset with a smaller remainder) — caller should
		// have called Reset instead, but guard against misuse.
		t.scanned = 0
		t.snapOpen, t.snapKind, t.snapInfostring = false, KindNone, ""
	}

	start := t.scanned
	for start < len(runes) {
		end := start
		for end < len(runes) && runes[end] != '\n' {
			end++
		}
		terminated := end < len(runes)
		line := string(runes[start:end])

		t.open, t.kind, t.infostring = t.snapOpen, t.snapKind, t.snapInfostring
		t.consumeLine(line)
		if t.open && !t.snapOpen {
			t.openOffset = start
		}

		if !terminated {
			return
		}

		end++ // skip the newline itself
		start = end
		t.scanned = start
		t.snapOpen, t.snapKind, t.snapInfostring = t.open, t.kind, t.infostring
	}
}

// consumeLine applies fence-marker detection to one line. Markers are only
// recognized at the start of a line, after optional leading whitespace.
func (t *Tracker) consumeLine(line string) {
	trimmed := strings.TrimLeft(line, " \t")

	var markerKind Kind
	var marker string
	switch {
	case strings.HasPrefix(trimmed, "```"):
		markerKind = KindBacktick
		marker = "```"
	case strings.HasPrefix(trimmed, "~~~"):
		markerKind = KindTilde
		marker = "~~~"
	default:
		return
	}

	rest := strings.TrimPrefix(trimmed, marker)
	// A line of only backticks/tildes (and nothing else) is a valid
	// fence marker; any non-whitespace after it is the infostring when
	// opening, or must be empty when closing.
	if !t.open {
		t.open = true
		t.kind = markerKind
		t.infostring = strings.TrimSpace(rest)
		return
	}

	if markerKind == t.kind && strings.TrimSpace(rest) == "" {
		t.open = false
		t.kind = KindNone
		t.infostring = ""
	}
	// A marker of the other kind, or one followed by trailing text, does
	// not close an open fence — it's ordinary fenced content.
}
