package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// SSEWriter frames events per §4.13: `event: <name>\n[id: <id>\n]data:
// <line>\n...\n\n`, multi-line data split one `data:` line per source
// line, comments as `: text\n\n`.
//
// Grounded on the teacher's internal/proxy SSE flusher pattern
// (http.Flusher, text/event-stream headers, X-Accel-Buffering: no),
// generalized from raw proxied chat chunks to named/ided events for any
// SSE route (raw BufferedEvents or Block Streamer output).
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	ctx     context.Context

	mu     sync.Mutex
	closed bool
}

func newSSEWriter(w http.ResponseWriter, flusher http.Flusher, ctx context.Context) *SSEWriter {
	return &SSEWriter{w: w, flusher: flusher, ctx: ctx}
}

// Closed reports whether the writer has stopped accepting writes, either
// because the client disconnected or Close was called.
func (s *SSEWriter) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed || s.ctx.Err() != nil
}

// WriteEvent frames one event. id is omitted from the wire frame when "".
// Returns false if the writer is closed (the caller should stop producing).
func (s *SSEWriter) WriteEvent(name, id, data string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.ctx.Err() != nil {
		return false
	}

	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "event: %s\n", name)
	}
	if id != "" {
		fmt.Fprintf(&b, "id: %s\n", id)
	}
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")

	if _, err := s.w.Write([]byte(b.String())); err != nil {
		s.closed = true
		return false
	}
	s.flusher.Flush()
	return true
}

// Comment writes an SSE comment line, used for keep-alive pings.
func (s *SSEWriter) Comment(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.ctx.Err() != nil {
		return false
	}
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		s.closed = true
		return false
	}
	s.flusher.Flush()
	return true
}

// KeepAlive sends a periodic comment ping until ctx (the request's own
// context, already wired into this writer) is done or Close is called. It
// is meant to be run in its own goroutine alongside the handler's event
// production loop.
func (s *SSEWriter) KeepAlive(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if !s.Comment("keep-alive") {
				return
			}
		}
	}
}

// Close marks the writer closed; subsequent writes become no-ops.
func (s *SSEWriter) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
