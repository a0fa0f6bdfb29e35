// Package blockstream implements the per-destination text-chunking state
// machine: it turns a token-delta stream into destination-appropriate
// Blocks (bounded by characters; a profile's MaxLines is not applied) or
// progressive StreamingUpdates,
// while the chunker beneath it guarantees code fences are never split
// across a boundary except under the documented overflow rule.
//
// Grounded on the teacher's internal/streaming/session.go (chunk storage,
// completion flag, stats) and internal/streaming/types.go (StreamInfo,
// StreamMetrics), regeneralized from raw upstream SSE lines to destination-
// shaped Blocks and StreamingUpdates.
package blockstream

import (
	"time"

	"github.com/streamfabric/gateway/internal/textbuf"
)

// Block is a destination-sized piece of assistant text suitable for a
// single send.
type Block struct {
	Content   string
	Index     int
	IsFirst   bool
	IsLast    bool
	BreakType textbuf.BreakKind
	Timestamp time.Time
}

// StreamingUpdate is an incremental "full text so far" snapshot.
type StreamingUpdate struct {
	FullContent string
	Delta       string
	Index       int
	Timestamp   time.Time
}

// CompletedRunSummary is the end-of-stream report emitted exactly once, on
// Complete().
type CompletedRunSummary struct {
	TotalBlocks int
	TotalChars  int
	DurationMs  int64
}

// Stats mirrors the façade's observable state, per §4.7.
type Stats struct {
	TotalInputChars  int
	TotalOutputBlocks int
	TotalOutputChars int
	AvgBlockSize     float64
	Duration         time.Duration
	StartTime        time.Time
	EndTime          time.Time
}

// State is the façade's lifecycle snapshot, per §4.7.
type State struct {
	Buffered    int
	Emitted     int
	Mode        string
	InCodeFence bool
	IsComplete  bool
	IsAborted   bool
}
