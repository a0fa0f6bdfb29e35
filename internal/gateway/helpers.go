package gateway

import (
	"encoding/json"
	"strconv"

	"github.com/google/uuid"

	"github.com/streamfabric/gateway/internal/blockstream"
	"github.com/streamfabric/gateway/internal/profile"
)

// newRunID generates a process-unique run identifier. The registry itself
// is agnostic to ID shape; this is just a convenient default for routes
// that don't receive one from the caller.
func newRunID() string {
	return "run_" + uuid.NewString()
}

// lastEventID reads the resume point for an SSE reconnect: the Last-Event-ID
// header per the SSE spec, falling back to an afterId query parameter for
// clients that can't set custom headers (e.g. EventSource with query-string
// resume bookkeeping).
func lastEventID(req *Request) int {
	if h := req.Header("Last-Event-ID"); h != "" {
		if n, err := strconv.Atoi(h); err == nil {
			return n
		}
	}
	if q := req.Query("afterId"); q != "" {
		if n, err := strconv.Atoi(q); err == nil {
			return n
		}
	}
	return 0
}

func jsonMarshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// sseBlockStreamer adapts a blockstream.Streamer's hooks onto one SSE
// connection, so GET .../blocks can drive the Block Streamer directly off
// the Run Registry's replayed deltas.
type sseBlockStreamer struct {
	s   *blockstream.Streamer
	sse *SSEWriter
}

func newSSEBlockStreamer(p profile.Profile, sse *SSEWriter) *sseBlockStreamer {
	bs := &sseBlockStreamer{sse: sse}
	bs.s = blockstream.New(p, blockstream.Options{ProtectCodeFences: true}, blockstream.Hooks{
		OnBlock: func(b blockstream.Block) {
			data, _ := jsonMarshal(b)
			sse.WriteEvent("block", strconv.Itoa(b.Index), string(data))
		},
		OnUpdate: func(u blockstream.StreamingUpdate) {
			data, _ := jsonMarshal(u)
			sse.WriteEvent("update", strconv.Itoa(u.Index), string(data))
		},
		OnComplete: func(summary blockstream.CompletedRunSummary) {
			data, _ := jsonMarshal(summary)
			sse.WriteEvent("complete", "", string(data))
		},
	})
	return bs
}

func (b *sseBlockStreamer) push(text string) error {
	return b.s.Push(text)
}

func (b *sseBlockStreamer) complete() {
	b.s.Complete()
}
