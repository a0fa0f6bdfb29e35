package gateway

import (
	"sync/atomic"

	"github.com/streamfabric/gateway/internal/logger"
)

// AsyncLogger drains request-lifecycle records through a bounded worker
// pool so a burst of requests never makes logging itself the request-path
// bottleneck. A full queue drops the record and counts it rather than
// blocking the HTTP handler goroutine.
//
// Grounded on the teacher's internal/request_tracking (bounded channel +
// atomic dropped-count worker pool), regeneralized here from HTTP-call
// usage tracking to the gateway's own request log buffer.
type AsyncLogger struct {
	ch      chan LogEntry
	dropped atomic.Int64
	buffer  *LogBuffer
	log     *logger.Logger
}

// NewAsyncLogger starts workerCount goroutines draining a queue of depth
// queueDepth, recording each entry into buffer and emitting it through log.
func NewAsyncLogger(workerCount, queueDepth int, buffer *LogBuffer, log *logger.Logger) *AsyncLogger {
	if workerCount <= 0 {
		workerCount = 2
	}
	if queueDepth <= 0 {
		queueDepth = 256
	}
	a := &AsyncLogger{
		ch:     make(chan LogEntry, queueDepth),
		buffer: buffer,
		log:    log,
	}
	for i := 0; i < workerCount; i++ {
		go a.worker()
	}
	return a
}

func (a *AsyncLogger) worker() {
	for e := range a.ch {
		a.buffer.Add(e)
		a.log.WithComponent("gateway").WithFields(map[string]any{
			"method":      e.Method,
			"path":        e.Path,
			"status":      e.Status,
			"duration_ms": e.DurationMs,
		}).Info("request")
	}
}

// Submit enqueues e without blocking; if the queue is full, the record is
// dropped and counted.
func (a *AsyncLogger) Submit(e LogEntry) {
	select {
	case a.ch <- e:
	default:
		a.dropped.Add(1)
	}
}

// Dropped reports how many records have been dropped due to a full queue.
func (a *AsyncLogger) Dropped() int64 { return a.dropped.Load() }

// Close stops accepting new entries. Workers drain what's already queued
// and then exit.
func (a *AsyncLogger) Close() { close(a.ch) }
