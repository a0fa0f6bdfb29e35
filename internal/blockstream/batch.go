package blockstream

import (
	"strings"
	"time"
)

// batchHandler accumulates all pushed text and emits exactly one Block, on
// complete(). push() and flush() never emit — batch mode has no progressive
// delivery by definition (§4.6).
type batchHandler struct {
	buf      strings.Builder
	fenceOpen bool
}

func newBatchHandler() *batchHandler {
	return &batchHandler{}
}

func (h *batchHandler) push(text string) ([]Block, []StreamingUpdate) {
	h.buf.WriteString(text)
	h.fenceOpen = computeFenceOpen(h.buf.String())
	return nil, nil
}

func (h *batchHandler) flush() ([]Block, []StreamingUpdate) {
	return nil, nil
}

func (h *batchHandler) complete() ([]Block, []StreamingUpdate) {
	content := h.buf.String()
	if content == "" {
		return nil, nil
	}
	block := Block{
		Content:   content,
		IsLast:    true,
		Timestamp: time.Now(),
	}
	return []Block{block}, nil
}

func (h *batchHandler) bufferedLength() int {
	return h.buf.Len()
}

func (h *batchHandler) inCodeFence() bool {
	return h.fenceOpen
}

// pendingText returns everything pushed so far: batch mode never emits
// before complete(), so the whole accumulated buffer is unread.
func (h *batchHandler) pendingText() string {
	return h.buf.String()
}

// computeFenceOpen does a cheap full rescan; batch mode never emits mid-fence
// so amortized incremental tracking (as chunk.Chunker uses) isn't warranted
// here — callers only care about the final parity at complete().
func computeFenceOpen(s string) bool {
	open := false
	for _, line := range strings.Split(s, "\n") {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "```") || strings.HasPrefix(t, "~~~") {
			open = !open
		}
	}
	return open
}
