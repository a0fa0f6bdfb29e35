package blockstream

import (
	"strings"
	"time"

	"github.com/streamfabric/gateway/internal/chunk"
	"github.com/streamfabric/gateway/internal/coalesce"
)

// blockHandler emits complete Blocks as they become ready. Index/IsFirst are
// not stamped here — the Streamer façade owns that numbering so it survives
// a mid-stream handler swap (setProfile/configure).
type blockHandler struct {
	chunker   *chunk.Chunker
	coalescer *coalesce.Coalescer
}

func newBlockHandler(c *chunk.Chunker, co *coalesce.Coalescer) *blockHandler {
	return &blockHandler{chunker: c, coalescer: co}
}

func (h *blockHandler) push(text string) ([]Block, []StreamingUpdate) {
	chunks := h.chunker.Push(text)
	if h.coalescer != nil {
		var ready []chunk.Chunk
		for _, c := range chunks {
			ready = append(ready, h.coalescer.Push(c)...)
		}
		chunks = ready
	}
	return h.toBlocks(chunks, false), nil
}

func (h *blockHandler) flush() ([]Block, []StreamingUpdate) {
	chunks := h.chunker.Flush()
	if h.coalescer != nil {
		chunks = append(h.coalescer.Flush(), chunks...)
	}
	// flush() never marks isLast — only complete() does (§4.7, Open Question
	// resolved in DESIGN.md: source does not mark it, preserved here).
	return h.toBlocks(chunks, false), nil
}

func (h *blockHandler) complete() ([]Block, []StreamingUpdate) {
	var chunks []chunk.Chunk
	if h.coalescer != nil {
		chunks = append(chunks, h.coalescer.Flush()...)
	}
	chunks = append(chunks, h.chunker.Flush()...)
	blocks := h.toBlocks(chunks, true)
	return blocks, nil
}

func (h *blockHandler) bufferedLength() int {
	return h.chunker.BufferedLength()
}

func (h *blockHandler) inCodeFence() bool {
	return h.chunker.InCodeFence()
}

// pendingText returns everything accumulated but not yet emitted: the
// coalescer's pending (older) chunk, if any, followed by the chunker's
// unconsumed (newer) buffered text.
func (h *blockHandler) pendingText() string {
	if h.coalescer == nil {
		return h.chunker.PendingText()
	}
	var sb strings.Builder
	sb.WriteString(h.coalescer.PendingText())
	sb.WriteString(h.chunker.PendingText())
	return sb.String()
}

func (h *blockHandler) toBlocks(chunks []chunk.Chunk, markLast bool) []Block {
	if len(chunks) == 0 {
		return nil
	}
	out := make([]Block, 0, len(chunks))
	now := time.Now()
	for _, c := range chunks {
		out = append(out, Block{
			Content:   c.Content,
			BreakType: c.BreakType,
			Timestamp: now,
		})
	}
	if markLast && len(out) > 0 {
		out[len(out)-1].IsLast = true
	}
	return out
}
