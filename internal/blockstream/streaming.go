package blockstream

import (
	"strings"
	"time"

	"github.com/streamfabric/gateway/internal/fence"
)

// streamingHandler emits progressive StreamingUpdates carrying the full
// content accumulated so far plus the incremental delta, matching
// destinations that support live message edits (e.g. Telegram, Discord).
// Index is stamped by the Streamer façade, not here, so it survives a
// mid-stream handler swap (setProfile/configure).
type streamingHandler struct {
	full    strings.Builder
	tracker *fence.Tracker
}

func newStreamingHandler() *streamingHandler {
	return &streamingHandler{tracker: fence.New()}
}

func (h *streamingHandler) push(text string) ([]Block, []StreamingUpdate) {
	if text == "" {
		return nil, nil
	}
	h.full.WriteString(text)
	h.tracker.Update(h.full.String())
	update := StreamingUpdate{
		FullContent: h.full.String(),
		Delta:       text,
		Timestamp:   time.Now(),
	}
	return nil, []StreamingUpdate{update}
}

// flush is a no-op: every push() already emitted the latest full snapshot,
// there is nothing buffered that a flush could surface early.
func (h *streamingHandler) flush() ([]Block, []StreamingUpdate) {
	return nil, nil
}

func (h *streamingHandler) complete() ([]Block, []StreamingUpdate) {
	if h.full.Len() == 0 {
		return nil, nil
	}
	update := StreamingUpdate{
		FullContent: h.full.String(),
		Delta:       "",
		Timestamp:   time.Now(),
	}
	return nil, []StreamingUpdate{update}
}

func (h *streamingHandler) bufferedLength() int {
	return h.full.Len()
}

func (h *streamingHandler) inCodeFence() bool {
	return h.tracker.IsOpen()
}

// pendingText reports nothing unread: every push immediately emits a full
// snapshot, so there's nothing buffered for a handoff to carry over.
func (h *streamingHandler) pendingText() string {
	return ""
}
